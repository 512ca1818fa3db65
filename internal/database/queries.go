package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// --- Scan results ---

// InsertScanResult appends a result to the history and prunes rows beyond
// limit, oldest first. The history stays capped at limit entries.
func (db *DB) InsertScanResult(r *ScanResult, limit int) error {
	reasons, err := json.Marshal(r.Reasons)
	if err != nil {
		return fmt.Errorf("encoding reasons: %w", err)
	}

	res, err := db.Exec(
		`INSERT INTO scan_results (url, risk, confidence, reasons, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.URL, r.Risk, r.Confidence, string(reasons), r.Source, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert scan result: %w", err)
	}
	r.ID, _ = res.LastInsertId()

	if limit > 0 {
		_, err = db.Exec(
			`DELETE FROM scan_results WHERE id NOT IN
			 (SELECT id FROM scan_results ORDER BY created_at DESC, id DESC LIMIT ?)`,
			limit,
		)
		if err != nil {
			return fmt.Errorf("prune history: %w", err)
		}
	}
	return nil
}

func scanResultRow(rows interface{ Scan(...any) error }) (*ScanResult, error) {
	r := &ScanResult{}
	var reasons string
	if err := rows.Scan(&r.ID, &r.URL, &r.Risk, &r.Confidence, &reasons, &r.Source, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(reasons), &r.Reasons); err != nil {
		return nil, fmt.Errorf("decoding reasons: %w", err)
	}
	return r, nil
}

func (db *DB) GetScanResult(id int64) (*ScanResult, error) {
	row := db.QueryRow(
		`SELECT id, url, risk, confidence, reasons, source, created_at
		 FROM scan_results WHERE id = ?`, id,
	)
	r, err := scanResultRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scan result: %w", err)
	}
	return r, nil
}

// ListScanResults returns history entries most-recent-first.
func (db *DB) ListScanResults(limit int) ([]ScanResult, error) {
	rows, err := db.Query(
		`SELECT id, url, risk, confidence, reasons, source, created_at
		 FROM scan_results ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list scan results: %w", err)
	}
	defer rows.Close()

	var results []ScanResult
	for rows.Next() {
		r, err := scanResultRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

func (db *DB) DeleteScanResult(id int64) error {
	_, err := db.Exec(`DELETE FROM scan_results WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete scan result: %w", err)
	}
	return nil
}

func (db *DB) ClearScanResults() error {
	_, err := db.Exec(`DELETE FROM scan_results`)
	if err != nil {
		return fmt.Errorf("clear scan results: %w", err)
	}
	return nil
}

// --- Stats ---

type HistoryStats struct {
	Total      int `json:"total"`
	Safe       int `json:"safe"`
	Suspicious int `json:"suspicious"`
	Phishing   int `json:"phishing"`
}

func (db *DB) GetStats() (*HistoryStats, error) {
	stats := &HistoryStats{}
	if err := db.QueryRow(`SELECT COUNT(*) FROM scan_results`).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("counting scan results: %w", err)
	}

	rows, err := db.Query(`SELECT risk, COUNT(*) FROM scan_results GROUP BY risk`)
	if err != nil {
		return nil, fmt.Errorf("counting by risk: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var risk string
		var n int
		if err := rows.Scan(&risk, &n); err != nil {
			return nil, fmt.Errorf("scanning risk count: %w", err)
		}
		switch risk {
		case "Safe":
			stats.Safe = n
		case "Suspicious":
			stats.Suspicious = n
		case "Phishing":
			stats.Phishing = n
		}
	}
	return stats, rows.Err()
}

// --- Reports ---

func (db *DB) CreateReport(r *Report) error {
	res, err := db.Exec(
		`INSERT INTO reports (title, format, content, file_path) VALUES (?, ?, ?, ?)`,
		r.Title, r.Format, r.Content, r.FilePath,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	r.ID, _ = res.LastInsertId()
	return nil
}

func (db *DB) GetReport(id int64) (*Report, error) {
	r := &Report{}
	err := db.QueryRow(
		`SELECT id, title, format, content, file_path, created_at FROM reports WHERE id = ?`, id,
	).Scan(&r.ID, &r.Title, &r.Format, &r.Content, &r.FilePath, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return r, nil
}

func (db *DB) ListReports() ([]Report, error) {
	rows, err := db.Query(
		`SELECT id, title, format, file_path, created_at FROM reports ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.Title, &r.Format, &r.FilePath, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
