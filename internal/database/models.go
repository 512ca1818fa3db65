package database

import "time"

// ScanResult is one entry in the scan history. Reasons are stored as a JSON
// array in the reasons column; rows are immutable once written.
type ScanResult struct {
	ID         int64     `json:"id"`
	URL        string    `json:"url"`
	Risk       string    `json:"risk"`
	Confidence float64   `json:"confidence"`
	Reasons    []string  `json:"reasons"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
}

type Report struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Format    string    `json:"format"`
	Content   string    `json:"content,omitempty"`
	FilePath  string    `json:"file_path"`
	CreatedAt time.Time `json:"created_at"`
}
