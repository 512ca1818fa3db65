package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"qrsentry/internal/classify"
	"qrsentry/internal/config"
	"qrsentry/internal/database"
	"qrsentry/internal/decode"
)

type stubClassifier struct {
	result classify.Classification
}

func (s stubClassifier) Classify(ctx context.Context, raw string) classify.Classification {
	return s.result
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		History:    config.HistoryConfig{Limit: 50},
		Classifier: config.ClassifierConfig{TimeoutMs: 1000},
		Reports:    config.ReportsConfig{Directory: t.TempDir()},
		Scanner:    config.ScannerConfig{SampleIntervalMs: 150, ProcessWidth: 480, ConfirmDelayMs: 1},
	}
}

func testServerWithConfig(t *testing.T, c classify.Classifier, cfg *config.Config) *httptest.Server {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := New(cfg, db, decode.NewChain(decode.NewSoft(480)), c)
	ts := httptest.NewServer(srv.mux)
	t.Cleanup(ts.Close)
	return ts
}

func testServer(t *testing.T, c classify.Classifier) *httptest.Server {
	return testServerWithConfig(t, c, testConfig(t))
}

func qrPNG(t *testing.T, payload string) []byte {
	t.Helper()

	matrix, err := qrcode.NewQRCodeWriter().Encode(payload, gozxing.BarcodeFormat_QR_CODE, 232, 232, nil)
	if err != nil {
		t.Fatalf("encoding QR: %v", err)
	}
	img := image.NewGray(image.Rect(0, 0, matrix.GetWidth(), matrix.GetHeight()))
	for y := 0; y < matrix.GetHeight(); y++ {
		for x := 0; x < matrix.GetWidth(); x++ {
			if matrix.Get(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func uploadFile(t *testing.T, ts *httptest.Server, contents []byte) *http.Response {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "scan.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write(contents)
	mw.Close()

	resp, err := http.Post(ts.URL+"/api/scan/image", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return resp
}

func TestClassifyEndpoint(t *testing.T) {
	t.Parallel()

	ts := testServer(t, stubClassifier{result: classify.Classification{
		Risk: classify.RiskSafe, Confidence: 0.9, Reasons: []string{"well-known domain"},
	}})

	resp, err := http.Post(ts.URL+"/api/classify", "application/json",
		strings.NewReader(`{"url":"https://example.com"}`))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got classify.Classification
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.Risk != classify.RiskSafe || got.Confidence != 0.9 {
		t.Fatalf("got %+v", got)
	}
}

func TestClassifyEndpointRequiresURL(t *testing.T) {
	t.Parallel()

	ts := testServer(t, stubClassifier{result: classify.Fallback()})

	resp, err := http.Post(ts.URL+"/api/classify", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestScanImageFullPath(t *testing.T) {
	t.Parallel()

	const payload = "https://g00gle.com/login"
	ts := testServer(t, stubClassifier{result: classify.Classification{
		Risk: classify.RiskPhishing, Confidence: 0.92, Reasons: []string{"lookalike domain"},
	}})

	resp := uploadFile(t, ts, qrPNG(t, payload))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var got struct {
		Decoded bool                `json:"decoded"`
		Result  database.ScanResult `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !got.Decoded {
		t.Fatal("expected a decode hit")
	}
	if got.Result.URL != payload || got.Result.Risk != "Phishing" {
		t.Fatalf("result = %+v", got.Result)
	}

	// The scan lands in the history.
	histResp, err := http.Get(ts.URL + "/api/history")
	if err != nil {
		t.Fatalf("history request: %v", err)
	}
	defer histResp.Body.Close()
	var history []database.ScanResult
	if err := json.NewDecoder(histResp.Body).Decode(&history); err != nil {
		t.Fatalf("decoding history: %v", err)
	}
	if len(history) != 1 || history[0].URL != payload || history[0].Source != "upload" {
		t.Fatalf("history = %+v", history)
	}
}

func TestHistoryZeroLimitFallsBackToDefault(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.History.Limit = 0
	ts := testServerWithConfig(t, stubClassifier{result: classify.Classification{
		Risk: classify.RiskSafe, Confidence: 0.8, Reasons: []string{"known host"},
	}}, cfg)

	resp := uploadFile(t, ts, qrPNG(t, "https://example.com/menu"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	// A zero cap must not hide the history behind LIMIT 0.
	histResp, err := http.Get(ts.URL + "/api/history")
	if err != nil {
		t.Fatalf("history request: %v", err)
	}
	defer histResp.Body.Close()
	var history []database.ScanResult
	if err := json.NewDecoder(histResp.Body).Decode(&history); err != nil {
		t.Fatalf("decoding history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history has %d entries, want 1", len(history))
	}
}

func TestScanImageNoPattern(t *testing.T) {
	t.Parallel()

	ts := testServer(t, stubClassifier{result: classify.Fallback()})

	blank := image.NewGray(image.Rect(0, 0, 320, 240))
	var buf bytes.Buffer
	png.Encode(&buf, blank)

	resp := uploadFile(t, ts, buf.Bytes())
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: a miss is not an error", resp.StatusCode)
	}

	var got struct {
		Decoded bool   `json:"decoded"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.Decoded || got.Message != "no readable pattern found" {
		t.Fatalf("got %+v", got)
	}
}

func TestScanImageRejectsGarbage(t *testing.T) {
	t.Parallel()

	ts := testServer(t, stubClassifier{result: classify.Fallback()})

	resp := uploadFile(t, ts, []byte("definitely not an image"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for a corrupt upload", resp.StatusCode)
	}
}

func TestStatsEndpoint(t *testing.T) {
	t.Parallel()

	ts := testServer(t, stubClassifier{result: classify.Fallback()})

	resp, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var stats database.HistoryStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if stats.Total != 0 {
		t.Fatalf("fresh database total = %d", stats.Total)
	}
}
