// Command extract runs the coupon extraction pipeline over local text and HTML
// files and prints the accepted records as JSON.
//
//	extract [flags] FILE...
//
// A FILE of "-" reads one document from stdin.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/couponlens/backend/internal/domain"
	"github.com/couponlens/backend/internal/infrastructure/dedup"
	"github.com/couponlens/backend/internal/infrastructure/htmltext"
	"github.com/couponlens/backend/internal/infrastructure/logging"
	"github.com/couponlens/backend/internal/infrastructure/refdata"
	"github.com/couponlens/backend/internal/usecase"
	"go.uber.org/zap"
)

type options struct {
	refPath       string
	dbPath        string
	artifactsDir  string
	historyLog    string
	out           string
	minConfidence float64
	relaxed       bool
	logLevel      string
	debug         bool
}

func main() {
	var opts options
	flag.StringVar(&opts.refPath, "ref", "", "reference data YAML (default: embedded)")
	flag.StringVar(&opts.dbPath, "db", "", "SQLite dedup database (default: in-memory)")
	flag.StringVar(&opts.artifactsDir, "artifacts", "", "directory of prior .csv/.xlsx/.log exports to seed dedup from")
	flag.StringVar(&opts.historyLog, "history", "", "history log to seed dedup from")
	flag.StringVar(&opts.out, "out", "", "also write accepted records to a .csv or .xlsx file")
	flag.Float64Var(&opts.minConfidence, "min-confidence", 0.7, "minimum candidate confidence")
	flag.BoolVar(&opts.relaxed, "relaxed", false, "accept letter-only codes")
	flag.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flag.BoolVar(&opts.debug, "debug", false, "trace every pipeline stage")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] FILE...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(opts, flag.Args(), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "extract: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, files []string, stdout io.Writer) error {
	if opts.minConfidence <= 0 || opts.minConfidence > 1 {
		return fmt.Errorf("-min-confidence must be within (0,1], got: %v", opts.minConfidence)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	level := opts.logLevel
	if opts.debug {
		level = "debug"
	}
	logger, err := logging.NewTo(level, "console", "stderr")
	if err != nil {
		return err
	}
	defer logger.Sync()

	ref, err := refdata.Load(opts.refPath)
	if err != nil {
		return err
	}

	store, err := dedup.OpenWithHistory(ctx, dedup.Options{
		DBPath:       opts.dbPath,
		ArtifactsDir: opts.artifactsDir,
		HistoryLog:   opts.historyLog,
	}, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	service := usecase.NewExtractionService(ref, store, usecase.ExtractionConfig{
		MinConfidence:      opts.minConfidence,
		RequireMixed:       !opts.relaxed,
		EnableDebugLogging: opts.debug,
	}, logger)

	docs := make([]domain.Document, 0, len(files))
	for _, path := range files {
		doc, err := readDocument(path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	// Accepted records are already in the dedup store, so they are printed and
	// exported even when the batch stops early
	results, batchErr := service.ExtractBatch(ctx, docs)

	var records []domain.CouponRecord
	for _, r := range results {
		records = append(records, r.Records...)
		logger.Info("document processed",
			zap.String("document_id", r.DocumentID),
			zap.Int("records", len(r.Records)),
			zap.Bool("gated", r.Gated),
			zap.Any("rejections", r.Rejections))
	}

	if opts.out != "" {
		if err := dedup.WriteTabular(opts.out, records); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return err
	}
	return batchErr
}

// readDocument loads one file, rendering .html/.htm pages to their visible text
func readDocument(path string) (domain.Document, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("reading %s: %w", path, err)
	}

	doc := domain.Document{ID: path, Text: string(data), Source: "file"}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		page, err := htmltext.ExtractString(string(data))
		if err != nil {
			return domain.Document{}, fmt.Errorf("%s: %w", path, err)
		}
		doc.Title = page.Title
		doc.Text = page.Text
	default:
		doc.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return doc, nil
}
