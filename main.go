package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"

	"qrsentry/internal/banner"
	"qrsentry/internal/classify"
	"qrsentry/internal/config"
	"qrsentry/internal/database"
	"qrsentry/internal/decode"
	"qrsentry/internal/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	imagePath := flag.String("image", "", "decode and classify a local image, then exit")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if *imagePath != "" {
		os.Exit(scanOnce(cfg, *imagePath))
	}

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := server.New(cfg, db, buildChain(cfg), newClassifier(cfg))

	if err := srv.ListenAndServe(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// buildChain ranks the decode tiers: native zbarimg first when installed,
// the pure-Go fallback always last.
func buildChain(cfg *config.Config) *decode.Chain {
	var tiers []decode.Decoder
	if z, err := decode.NewZBar(); err == nil {
		tiers = append(tiers, z)
		slog.Info("native decode tier enabled", "binary", "zbarimg")
	} else {
		slog.Info("native decode tier unavailable, software decode only")
	}
	tiers = append(tiers, decode.NewSoft(cfg.Scanner.ProcessWidth))
	return decode.NewChain(tiers...)
}

func newClassifier(cfg *config.Config) classify.Classifier {
	return classify.NewLLMClassifier(classify.LLMOptions{
		Endpoint:      cfg.Classifier.Endpoint,
		Model:         cfg.Classifier.Model,
		APIKey:        cfg.Classifier.APIKey(),
		PromptVariant: cfg.Classifier.Prompt,
		Timeout:       time.Duration(cfg.Classifier.TimeoutMs) * time.Millisecond,
	})
}

// scanOnce is the CLI path: decode a local image single-shot, classify it,
// record it in the history, and print the verdict.
func scanOnce(cfg *config.Config, path string) int {
	banner.Print()

	f, err := os.Open(path)
	if err != nil {
		color.Red("cannot open %s: %v", path, err)
		return 1
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		color.Red("unsupported or corrupt image: %v", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	payload, err := buildChain(cfg).Attempt(ctx, img)
	if err != nil {
		color.Yellow("no readable pattern found")
		return 0
	}
	fmt.Printf("decoded: %s\n", payload)

	result := newClassifier(cfg).Classify(ctx, payload)
	printVerdict(result)

	if db, err := database.New(cfg.Database.Path); err == nil {
		defer db.Close()
		db.InsertScanResult(&database.ScanResult{
			URL:        payload,
			Risk:       string(result.Risk),
			Confidence: result.Confidence,
			Reasons:    result.Reasons,
			Source:     "cli",
			CreatedAt:  time.Now().UTC(),
		}, cfg.History.Limit)
	}

	return 0
}

func printVerdict(c classify.Classification) {
	verdict := fmt.Sprintf("%s (confidence %.2f)", c.Risk, c.Confidence)
	switch c.Risk {
	case classify.RiskSafe:
		color.Green(verdict)
	case classify.RiskPhishing:
		color.Red(verdict)
	default:
		color.Yellow(verdict)
	}
	for _, reason := range c.Reasons {
		fmt.Println("  -", reason)
	}
}
