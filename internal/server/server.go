package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"qrsentry/internal/classify"
	"qrsentry/internal/config"
	"qrsentry/internal/database"
	"qrsentry/internal/decode"
	"qrsentry/internal/report"
)

type Server struct {
	cfg        *config.Config
	db         *database.DB
	decoder    *decode.Chain
	classifier classify.Classifier
	reportGen  *report.Generator
	mux        *http.ServeMux
}

func New(cfg *config.Config, db *database.DB, decoder *decode.Chain, classifier classify.Classifier) *Server {
	s := &Server{
		cfg:        cfg,
		db:         db,
		decoder:    decoder,
		classifier: classifier,
		reportGen:  report.NewGenerator(db, cfg.Reports.Directory, cfg.Reports.FontPath),
		mux:        http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	slog.Info("starting server", "addr", addr)

	handler := recoveryMiddleware(securityHeaders(loggingMiddleware(s.mux)))
	return http.ListenAndServe(addr, handler)
}

func (s *Server) registerRoutes() {
	// History
	s.mux.HandleFunc("/api/history", s.handleAPIHistory)
	s.mux.HandleFunc("/api/history/", s.handleAPIHistoryItem)
	s.mux.HandleFunc("/api/stats", s.handleAPIStats)

	// Scanning
	s.mux.HandleFunc("/api/scan/image", s.handleAPIScanImage)
	s.mux.HandleFunc("/api/classify", s.handleAPIClassify)
	s.mux.HandleFunc("/api/decoders", s.handleAPIDecoders)

	// Reports
	s.mux.HandleFunc("/api/reports", s.handleAPIReports)
	s.mux.HandleFunc("/api/reports/", s.handleAPIReport)

	// WebSocket scan sessions
	s.mux.HandleFunc("/ws/scan", s.handleScanSocket)
}
