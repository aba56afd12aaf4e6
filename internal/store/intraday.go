package store

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"BullionLedger/internal/logger"
	"BullionLedger/internal/metrics"
)

const (
	colDate = "date"
	colUnit = "unit"
)

var sampleColumn = regexp.MustCompile(`^p_(\d+)$`)

// SampleColumn returns the column name of the 1-based sample index i.
func SampleColumn(i int) string {
	return fmt.Sprintf("p_%02d", i)
}

// WideRow holds one day's intraday samples keyed by column index.
type WideRow struct {
	Date    string
	Unit    string
	Samples map[int]string
}

// LastIndex returns the highest sample index on the row, 0 if none.
func (r *WideRow) LastIndex() int {
	last := 0
	for i := range r.Samples {
		if i > last {
			last = i
		}
	}
	return last
}

// WideTable is a per-commodity table with one row per date and one numbered
// column per intraday sample.
type WideTable struct {
	Path string
	Rows []*WideRow
}

// LoadWideTable reads the table at path. A missing or unreadable file gives
// an empty table.
func LoadWideTable(path string) *WideTable {
	t := &WideTable{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			t.recovered(err)
		}
		return t
	}
	rows, err := parseWideTable(data)
	if err != nil {
		t.recovered(err)
		return t
	}
	t.Rows = rows
	return t
}

func (t *WideTable) recovered(err error) {
	metrics.StoreRecoveries.WithLabelValues("intraday").Inc()
	logger.With("file", t.Path).WithError(err).Warn("intraday table unreadable, starting empty")
}

func parseWideTable(data []byte) ([]*WideRow, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	dateCol, unitCol := -1, -1
	samples := make(map[int]int) // column position -> sample index
	for pos, name := range header {
		switch name {
		case colDate:
			dateCol = pos
		case colUnit:
			unitCol = pos
		default:
			if m := sampleColumn.FindStringSubmatch(name); m != nil {
				idx, err := strconv.Atoi(m[1])
				if err == nil && idx > 0 {
					samples[pos] = idx
				}
			}
		}
	}
	if dateCol < 0 {
		return nil, errors.New("missing date column")
	}

	rows := make([]*WideRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := &WideRow{Samples: make(map[int]string)}
		for pos, v := range rec {
			switch {
			case pos == dateCol:
				row.Date = v
			case pos == unitCol:
				row.Unit = v
			default:
				if idx, ok := samples[pos]; ok && strings.TrimSpace(v) != "" {
					row.Samples[idx] = v
				}
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Append records value as the next sample of date's row, creating the row
// if needed, and returns the column it was written to. Indices only grow:
// the new column follows the highest index already on the row.
func (t *WideTable) Append(date, unit string, value float64) string {
	var row *WideRow
	for _, r := range t.Rows {
		if r.Date == date {
			row = r
			break
		}
	}
	if row == nil {
		row = &WideRow{Date: date, Unit: unit, Samples: make(map[int]string)}
		t.Rows = append(t.Rows, row)
	}

	idx := row.LastIndex() + 1
	row.Samples[idx] = strconv.FormatFloat(value, 'f', -1, 64)
	return SampleColumn(idx)
}

// Header returns date, unit and every sample column up to the largest index
// found on any row.
func (t *WideTable) Header() []string {
	last := 0
	for _, r := range t.Rows {
		if i := r.LastIndex(); i > last {
			last = i
		}
	}
	header := make([]string, 0, last+2)
	header = append(header, colDate, colUnit)
	for i := 1; i <= last; i++ {
		header = append(header, SampleColumn(i))
	}
	return header
}

// Save rewrites the whole table.
func (t *WideTable) Save() error {
	header := t.Header()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range t.Rows {
		rec := make([]string, len(header))
		rec[0] = r.Date
		rec[1] = r.Unit
		for i := 2; i < len(header); i++ {
			rec[i] = r.Samples[i-1]
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode intraday table: %w", err)
	}
	return writeFileAtomic(t.Path, buf.Bytes())
}

// AppendIntraday loads the table at path, appends one sample and saves it.
func AppendIntraday(path, date, unit string, value float64) (string, error) {
	t := LoadWideTable(path)
	col := t.Append(date, unit, value)
	if err := t.Save(); err != nil {
		return "", err
	}
	return col, nil
}
