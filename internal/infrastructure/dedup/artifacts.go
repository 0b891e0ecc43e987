package dedup

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/couponlens/backend/internal/domain"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// DefaultLogMarker precedes "CODE -> BRAND" in the history log
const DefaultLogMarker = "Valid coupon extracted:"

// Accepted header names for tabular artifacts, compared case-insensitively
var (
	codeColumns  = []string{"coupon code", "code"}
	brandColumns = []string{"brand"}
)

// placeholderCodes are written by exporters for records without a code
var placeholderCodes = map[string]bool{"": true, "N/A": true, "NA": true, "NONE": true, "NULL": true}

var validArtifactCode = regexp.MustCompile(`^[A-Z0-9_-]{3,25}$`)

// LoadReport summarizes one artifact load
type LoadReport struct {
	Files     int `json:"files"`
	Added     int `json:"added"`
	Malformed int `json:"malformed"`
}

func (r *LoadReport) merge(other LoadReport) {
	r.Files += other.Files
	r.Added += other.Added
	r.Malformed += other.Malformed
}

// pair is a code+brand read from an artifact
type pair struct {
	code  string
	brand string
}

// LoadLog reads a line-oriented history log and records every
// "<marker> CODE -> BRAND" entry. Plain and JSON log lines both work;
// lines carrying the marker but no parsable pair count as malformed.
func (s *Store) LoadLog(ctx context.Context, path, marker string) (LoadReport, error) {
	if marker == "" {
		marker = DefaultLogMarker
	}
	pattern := regexp.MustCompile(regexp.QuoteMeta(marker) + `\s*([A-Za-z0-9_-]{3,25})\s*->\s*([^"\t\r\n]*[^"\s])`)

	f, err := os.Open(path)
	if err != nil {
		return LoadReport{}, fmt.Errorf("opening log %s: %w", path, err)
	}
	defer f.Close()

	var pairs []pair
	malformed := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, marker) {
			continue
		}
		m := pattern.FindStringSubmatch(line)
		if m == nil {
			malformed++
			s.logger.Debug("[DEDUP] malformed log line", zap.Error(domain.ErrArtifactParse), zap.String("line", truncate(line, 120)))
			continue
		}
		p, ok := newPair(m[1], m[2])
		if !ok {
			malformed++
			continue
		}
		pairs = append(pairs, p)
	}
	if err := scanner.Err(); err != nil {
		return LoadReport{}, fmt.Errorf("reading log %s: %w", path, err)
	}

	added, err := s.load(ctx, pairs, "log", malformed)
	report := LoadReport{Files: 1, Added: added, Malformed: malformed}
	s.logger.Info("loaded history log",
		zap.String("path", path),
		zap.Int("added", added),
		zap.Int("malformed", malformed))
	return report, err
}

// LoadTabular reads a .csv or .xlsx export with a code column
// ("Coupon Code" or "Code") and a "Brand" column
func (s *Store) LoadTabular(ctx context.Context, path string) (LoadReport, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx":
		rows, err = readXLSX(path)
	default:
		return LoadReport{}, fmt.Errorf("%w: unsupported artifact type %s", domain.ErrArtifactParse, path)
	}
	if err != nil {
		return LoadReport{}, err
	}
	if len(rows) == 0 {
		return LoadReport{Files: 1}, nil
	}

	codeIdx, brandIdx := headerIndex(rows[0], codeColumns), headerIndex(rows[0], brandColumns)
	if codeIdx < 0 || brandIdx < 0 {
		return LoadReport{}, fmt.Errorf("%w: %s has no code/brand columns", domain.ErrArtifactParse, path)
	}

	var pairs []pair
	malformed := 0
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		if codeIdx >= len(row) || brandIdx >= len(row) {
			malformed++
			continue
		}
		p, ok := newPair(row[codeIdx], row[brandIdx])
		if !ok {
			malformed++
			continue
		}
		pairs = append(pairs, p)
	}

	added, err := s.load(ctx, pairs, "tabular", malformed)
	s.logger.Info("loaded tabular export",
		zap.String("path", path),
		zap.Int("added", added),
		zap.Int("malformed", malformed))
	return LoadReport{Files: 1, Added: added, Malformed: malformed}, err
}

// LoadDir walks dir recursively loading every .csv, .xlsx and .log artifact.
// A file that cannot be parsed is counted and skipped.
func (s *Store) LoadDir(ctx context.Context, dir, marker string) (LoadReport, error) {
	var report LoadReport

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		var (
			r   LoadReport
			err error
		)
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv", ".xlsx":
			r, err = s.LoadTabular(ctx, path)
		case ".log", ".txt":
			r, err = s.LoadLog(ctx, path, marker)
		default:
			return nil
		}

		if err != nil {
			if errors.Is(err, domain.ErrStoreUnavailable) {
				return err
			}
			s.logger.Warn("skipping artifact", zap.String("path", path), zap.Error(err))
			s.countMalformed(1)
			report.Malformed++
			return nil
		}
		report.merge(r)
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("loading artifacts from %s: %w", dir, err)
	}

	return report, nil
}

// WriteTabular exports records as .csv or .xlsx with the columns LoadTabular reads back
func WriteTabular(path string, records []domain.CouponRecord) error {
	header := []string{"Coupon Code", "Brand", "Title", "Discount %", "Category", "Expiry Date", "Confidence", "Description"}
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, header)
	for _, r := range records {
		percent := ""
		if r.PercentOff > 0 {
			percent = strconv.Itoa(r.PercentOff)
		}
		rows = append(rows, []string{
			r.Code, r.Brand, r.Title, percent, r.Category, r.ExpiryDate,
			strconv.FormatFloat(r.Confidence, 'f', 2, 64), r.Description,
		})
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return writeCSV(path, rows)
	case ".xlsx":
		return writeXLSX(path, rows)
	default:
		return fmt.Errorf("unsupported export type %s", path)
	}
}

func (s *Store) countMalformed(n int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stats.ArtifactParseErrors += n
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A broken quote makes the rest of the line unusable; keep an empty row so it counts as malformed
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				rows = append(rows, nil)
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		rows = append(rows, record)
	}

	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", domain.ErrArtifactParse, path, err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("%w: no sheets in %s", domain.ErrArtifactParse, path)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: reading rows of %s: %v", domain.ErrArtifactParse, path, err)
	}
	return rows, nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func writeXLSX(path string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func headerIndex(header []string, names []string) int {
	for _, name := range names {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
	}
	return -1
}

func newPair(code, brand string) (pair, bool) {
	code = domain.NormalizeCode(code)
	brand = strings.TrimSpace(brand)
	if placeholderCodes[code] || !validArtifactCode.MatchString(code) {
		return pair{}, false
	}
	if brand == "" || strings.EqualFold(brand, "unknown") || strings.EqualFold(brand, "n/a") {
		return pair{}, false
	}
	return pair{code: code, brand: brand}, true
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return row != nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
