package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strconv"
	"strings"
	"time"

	"qrsentry/internal/classify"
	"qrsentry/internal/database"
	"qrsentry/internal/decode"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// historyLimit guards against a non-positive configured cap, which would
// otherwise hide the history (LIMIT 0) while rows pile up unpruned.
func (s *Server) historyLimit() int {
	if s.cfg.History.Limit > 0 {
		return s.cfg.History.Limit
	}
	return 50
}

// persistResult records a classified scan in the capped history.
func (s *Server) persistResult(url, source string, c classify.Classification) (*database.ScanResult, error) {
	r := &database.ScanResult{
		URL:        url,
		Risk:       string(c.Risk),
		Confidence: c.Confidence,
		Reasons:    c.Reasons,
		Source:     source,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.db.InsertScanResult(r, s.historyLimit()); err != nil {
		return nil, err
	}
	return r, nil
}

// --- History ---

func (s *Server) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		results, err := s.db.ListScanResults(s.historyLimit())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if results == nil {
			results = []database.ScanResult{}
		}
		writeJSON(w, http.StatusOK, results)

	case http.MethodDelete:
		if err := s.db.ClearScanResults(); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAPIHistoryItem(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/history/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid history id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		result, err := s.db.GetScanResult(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if result == nil {
			writeError(w, http.StatusNotFound, "history entry not found")
			return
		}
		writeJSON(w, http.StatusOK, result)

	case http.MethodDelete:
		if err := s.db.DeleteScanResult(id); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// --- Scanning ---

// handleAPIScanImage is the static-image path: one decode attempt, no
// throttling. A missing QR pattern is a normal outcome, not an error; only
// upload problems produce error statuses.
func (s *Server) handleAPIScanImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil { // 10MB limit
		writeError(w, http.StatusBadRequest, "file too large or invalid form data")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(file); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	img, _, err := image.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unsupported or corrupt image")
		return
	}

	payload, err := s.decoder.Attempt(r.Context(), img)
	if err != nil {
		if errors.Is(err, decode.ErrNoCode) {
			writeJSON(w, http.StatusOK, map[string]any{
				"decoded": false,
				"message": "no readable pattern found",
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := s.classifyAndStore(payload, "upload")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"decoded": true,
		"result":  result,
	})
}

// classifyAndStore runs the classification with its own deadline, detached
// from the request context so an impatient client cannot abort it mid-flight.
func (s *Server) classifyAndStore(payload, source string) (*database.ScanResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.classifyTimeout())
	defer cancel()

	c := s.classifier.Classify(ctx, payload)
	return s.persistResult(payload, source, c)
}

func (s *Server) classifyTimeout() time.Duration {
	if s.cfg.Classifier.TimeoutMs > 0 {
		return time.Duration(s.cfg.Classifier.TimeoutMs) * time.Millisecond
	}
	return 15 * time.Second
}

func (s *Server) handleAPIClassify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.classifyTimeout())
	defer cancel()
	writeJSON(w, http.StatusOK, s.classifier.Classify(ctx, req.URL))
}

func (s *Server) handleAPIDecoders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.decoder.Status())
}

// --- Reports ---

func (s *Server) handleAPIReports(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		reports, err := s.db.ListReports()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if reports == nil {
			reports = []database.Report{}
		}
		writeJSON(w, http.StatusOK, reports)

	case http.MethodPost:
		var req struct {
			Format string `json:"format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		if req.Format == "" {
			req.Format = "markdown"
		}

		var rpt *database.Report
		var err error

		switch req.Format {
		case "markdown":
			_, rpt, err = s.reportGen.SaveMarkdown()
		case "pdf":
			_, rpt, err = s.reportGen.SavePDF()
		default:
			writeError(w, http.StatusBadRequest, "format must be 'markdown' or 'pdf'")
			return
		}

		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, rpt)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAPIReport(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/reports/")
	if idStr == "" {
		writeError(w, http.StatusBadRequest, "missing report id")
		return
	}

	parts := strings.SplitN(idStr, "/", 2)
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}

	rpt, err := s.db.GetReport(id)
	if err != nil || rpt == nil {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}

	if len(parts) > 1 && parts[1] == "download" {
		if rpt.FilePath != "" {
			http.ServeFile(w, r, rpt.FilePath)
			return
		}
		if rpt.Format == "markdown" && rpt.Content != "" {
			w.Header().Set("Content-Type", "text/markdown")
			w.Header().Set("Content-Disposition", "attachment; filename=report.md")
			w.Write([]byte(rpt.Content))
			return
		}
		writeError(w, http.StatusNotFound, "report file not found")
		return
	}

	writeJSON(w, http.StatusOK, rpt)
}
