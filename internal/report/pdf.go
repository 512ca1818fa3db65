package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/signintech/gopdf"

	"qrsentry/internal/database"
)

// SavePDF renders the scan history as a PDF. A TTF font path must be
// configured; gopdf cannot embed text without one.
func (g *Generator) SavePDF() (string, *database.Report, error) {
	if g.fontPath == "" {
		return "", nil, fmt.Errorf("pdf output requires reports.font_path in the config")
	}

	results, err := g.db.ListScanResults(1000)
	if err != nil {
		return "", nil, fmt.Errorf("listing scan results: %w", err)
	}
	stats, err := g.db.GetStats()
	if err != nil {
		return "", nil, fmt.Errorf("loading stats: %w", err)
	}

	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := pdf.AddTTFFont("body", g.fontPath); err != nil {
		return "", nil, fmt.Errorf("loading report font: %w", err)
	}

	writeLine := func(size float64, text string) {
		pdf.SetFont("body", "", size)
		pdf.SetX(40)
		pdf.Cell(nil, text)
		pdf.Br(size + 6)
	}

	pdf.SetY(40)
	writeLine(18, "QR Scan History Report")
	writeLine(10, "Generated: "+time.Now().Format("2006-01-02 15:04:05"))
	pdf.Br(10)

	writeLine(12, fmt.Sprintf("Total scans: %d", stats.Total))
	writeLine(12, fmt.Sprintf("Safe: %d   Suspicious: %d   Phishing: %d", stats.Safe, stats.Suspicious, stats.Phishing))
	pdf.Br(10)

	for _, r := range results {
		if pdf.GetY() > 780 {
			pdf.AddPage()
			pdf.SetY(40)
		}
		writeLine(11, fmt.Sprintf("[%s] %s", r.Risk, truncate(r.URL, 90)))
		writeLine(9, fmt.Sprintf("%s  confidence %.2f  via %s", r.CreatedAt.Format("2006-01-02 15:04"), r.Confidence, r.Source))
		for _, reason := range r.Reasons {
			writeLine(9, "  - "+truncate(reason, 100))
		}
		pdf.Br(4)
	}

	os.MkdirAll(g.reportsDir, 0755)
	filename := fmt.Sprintf("scan-history-%s.pdf", time.Now().Format("20060102-150405"))
	path := filepath.Join(g.reportsDir, filename)

	if err := pdf.WritePdf(path); err != nil {
		return "", nil, fmt.Errorf("writing pdf: %w", err)
	}

	rpt := &database.Report{
		Title:    "QR Scan History",
		Format:   "pdf",
		FilePath: path,
	}
	if err := g.db.CreateReport(rpt); err != nil {
		return "", nil, fmt.Errorf("saving report record: %w", err)
	}

	return path, rpt, nil
}
