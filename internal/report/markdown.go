package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"qrsentry/internal/database"
)

type Generator struct {
	db         *database.DB
	reportsDir string
	fontPath   string
}

func NewGenerator(db *database.DB, reportsDir, fontPath string) *Generator {
	return &Generator{db: db, reportsDir: reportsDir, fontPath: fontPath}
}

// GenerateMarkdown renders the current scan history as a markdown report.
func (g *Generator) GenerateMarkdown() (string, error) {
	results, err := g.db.ListScanResults(1000)
	if err != nil {
		return "", fmt.Errorf("listing scan results: %w", err)
	}
	stats, err := g.db.GetStats()
	if err != nil {
		return "", fmt.Errorf("loading stats: %w", err)
	}

	var b strings.Builder

	b.WriteString("# QR Scan History Report\n\n")
	b.WriteString(fmt.Sprintf("**Generated:** %s  \n", time.Now().Format("January 2, 2006 15:04:05 MST")))
	b.WriteString("**Tool:** QRSentry  \n\n")

	b.WriteString("## Summary\n\n")
	b.WriteString(fmt.Sprintf("%d scanned link(s) on record.\n\n", stats.Total))
	b.WriteString("| Risk | Count |\n")
	b.WriteString("|---|---|\n")
	b.WriteString(fmt.Sprintf("| Safe | %d |\n", stats.Safe))
	b.WriteString(fmt.Sprintf("| Suspicious | %d |\n", stats.Suspicious))
	b.WriteString(fmt.Sprintf("| Phishing | %d |\n\n", stats.Phishing))

	b.WriteString("## Scanned Links\n\n")
	if len(results) == 0 {
		b.WriteString("No scans recorded.\n\n")
	}
	for _, r := range results {
		b.WriteString(fmt.Sprintf("### %s — %s\n\n", r.Risk, truncate(r.URL, 120)))
		b.WriteString(fmt.Sprintf("**Scanned:** %s  \n", r.CreatedAt.Format(time.RFC3339)))
		b.WriteString(fmt.Sprintf("**Source:** %s  \n", r.Source))
		b.WriteString(fmt.Sprintf("**Confidence:** %.2f  \n\n", r.Confidence))
		if len(r.Reasons) > 0 {
			for _, reason := range r.Reasons {
				b.WriteString(fmt.Sprintf("- %s\n", reason))
			}
			b.WriteString("\n")
		}
	}

	return b.String(), nil
}

func (g *Generator) SaveMarkdown() (string, *database.Report, error) {
	content, err := g.GenerateMarkdown()
	if err != nil {
		return "", nil, err
	}

	os.MkdirAll(g.reportsDir, 0755)
	filename := fmt.Sprintf("scan-history-%s.md", time.Now().Format("20060102-150405"))
	path := filepath.Join(g.reportsDir, filename)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", nil, fmt.Errorf("writing report: %w", err)
	}

	rpt := &database.Report{
		Title:    "QR Scan History",
		Format:   "markdown",
		Content:  content,
		FilePath: path,
	}
	if err := g.db.CreateReport(rpt); err != nil {
		return "", nil, fmt.Errorf("saving report record: %w", err)
	}

	return path, rpt, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
