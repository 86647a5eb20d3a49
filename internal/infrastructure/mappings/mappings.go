// Package mappings loads and serves operator-curated source-to-product
// assignments. Curation happens in spreadsheets, so CSV, XLSX, and legacy XLS
// files are all accepted.
package mappings

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	xls "github.com/extrame/xls"
	"github.com/rs/zerolog"
	"github.com/saintfish/chardet"
	excelize "github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/horecawatch/engine/internal/domain"
)

// Table is an in-memory manual-mapping lookup, safe for concurrent use.
type Table struct {
	mutex sync.RWMutex
	data  map[string]domain.ManualMapping
	log   zerolog.Logger
}

// NewTable creates an empty mapping table.
func NewTable(log zerolog.Logger) *Table {
	return &Table{
		data: make(map[string]domain.ManualMapping),
		log:  log,
	}
}

// Get returns the mapping for a source key.
func (t *Table) Get(sourceKey string) (domain.ManualMapping, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	m, ok := t.data[sourceKey]
	return m, ok
}

// Add inserts or replaces a mapping. Keys and confidence are validated since
// rows come straight from hand-edited files.
func (t *Table) Add(m domain.ManualMapping) error {
	if m.SourceKey == "" || !strings.Contains(m.SourceKey, "_") {
		return fmt.Errorf("%w: source key %q must be <site>_<id>", domain.ErrInvalidRequest, m.SourceKey)
	}
	if m.TargetProductID <= 0 {
		return fmt.Errorf("%w: product id %d", domain.ErrInvalidRequest, m.TargetProductID)
	}
	if m.Confidence <= 0 || m.Confidence > 100 {
		return fmt.Errorf("%w: confidence %d out of range", domain.ErrInvalidRequest, m.Confidence)
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.data[m.SourceKey] = m
	return nil
}

// Remove drops a mapping; removing an absent key is a no-op.
func (t *Table) Remove(sourceKey string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	delete(t.data, sourceKey)
}

// Len returns the number of loaded mappings.
func (t *Table) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return len(t.data)
}

// All returns every mapping sorted by source key.
func (t *Table) All() []domain.ManualMapping {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	out := make([]domain.ManualMapping, 0, len(t.data))
	for _, m := range t.data {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceKey < out[j].SourceKey })
	return out
}

// LoadFile merges mappings from a curation file, picking the parser by
// extension. Malformed rows are skipped with a warning, never fatal; the
// returned count is the number of mappings actually loaded.
func (t *Table) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening mappings file: %w", err)
	}
	defer f.Close()

	var rows [][]string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		rows, err = readCSVRows(f)
	case ".xlsx":
		rows, err = readXLSXRows(f)
	case ".xls":
		rows, err = readXLSRows(f)
	default:
		return 0, fmt.Errorf("unsupported mappings file %q", path)
	}
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	return t.merge(rows), nil
}

func (t *Table) merge(rows [][]string) int {
	loaded := 0
	for i, row := range rows {
		m, ok := parseRow(row)
		if !ok {
			continue
		}
		if err := t.Add(m); err != nil {
			t.log.Warn().Err(err).Int("row", i+1).Msg("skipping malformed mapping row")
			continue
		}
		loaded++
	}
	return loaded
}

// parseRow turns one spreadsheet row into a mapping. Expected columns:
// source_key, product_id, confidence, notes (notes optional). Blank rows,
// comment rows, and the header row are skipped silently.
func parseRow(row []string) (domain.ManualMapping, bool) {
	if len(row) < 3 {
		return domain.ManualMapping{}, false
	}
	key := strings.TrimSpace(row[0])
	if key == "" || strings.HasPrefix(key, "#") || strings.EqualFold(key, "source_key") {
		return domain.ManualMapping{}, false
	}

	productID, err := strconv.ParseInt(strings.TrimSpace(row[1]), 10, 64)
	if err != nil {
		return domain.ManualMapping{SourceKey: key}, true // let Add reject it
	}
	confidence, err := strconv.Atoi(strings.TrimSpace(row[2]))
	if err != nil {
		confidence = 0
	}

	m := domain.ManualMapping{
		SourceKey:       key,
		TargetProductID: productID,
		Confidence:      confidence,
	}
	if len(row) > 3 {
		m.Notes = strings.TrimSpace(row[3])
	}
	return m, true
}

// SaveCSV writes the table back out in the curation format, sorted by key.
func (t *Table) SaveCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating mappings file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"source_key", "product_id", "confidence", "notes"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, m := range t.All() {
		record := []string{
			m.SourceKey,
			strconv.FormatInt(m.TargetProductID, 10),
			strconv.Itoa(m.Confidence),
			m.Notes,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing mapping: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// readCSVRows reads CSV, auto-detecting encoding. Turkish curation files
// regularly arrive as Windows-1254.
func readCSVRows(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)

	peek, _ := br.Peek(2048)
	cs := "utf-8"
	if len(peek) > 0 {
		if det, err := chardet.NewTextDetector().DetectBest(peek); err == nil && det != nil {
			cs = strings.ToLower(det.Charset)
		}
	}

	var dec io.Reader = br
	switch cs {
	case "windows-1254", "iso-8859-9":
		dec = transform.NewReader(br, charmap.Windows1254.NewDecoder())
	case "windows-1252", "iso-8859-1":
		dec = transform.NewReader(br, charmap.Windows1252.NewDecoder())
	default:
		// assume UTF-8
	}

	cr := csv.NewReader(dec)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func readXLSXRows(r io.Reader) ([][]string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	return f.GetRows(sheet)
}

func readXLSRows(r io.Reader) ([][]string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	// Legacy exports are usually Windows-1254, occasionally UTF-8.
	var wb *xls.WorkBook
	var lastErr error
	for _, ch := range []string{"windows-1254", "utf-8"} {
		wb, err = xls.OpenReader(bytes.NewReader(b), ch)
		if err == nil && wb != nil {
			lastErr = nil
			break
		}
		lastErr = err
	}
	if wb == nil {
		if lastErr == nil {
			lastErr = errors.New("xls: failed to open workbook")
		}
		return nil, lastErr
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil
	}

	const maxCols = 4
	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		cols := make([]string, maxCols)
		if row != nil {
			for j := 0; j < maxCols; j++ {
				cols[j] = strings.TrimSpace(row.Col(j))
			}
		}
		rows = append(rows, cols)
	}
	return rows, nil
}
