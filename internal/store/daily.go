package store

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"BullionLedger/internal/logger"
	"BullionLedger/internal/metrics"
	"BullionLedger/internal/model"
)

// DailyStore keeps one commodity's daily OHLC records: a JSON array that is
// the source of truth and a CSV projection rewritten from it on every merge.
type DailyStore struct {
	JSONPath  string
	CSVPath   string
	Unit      model.Unit
	KeyFields []string
}

// NewDailyStore returns the store for commodity c under dataDir.
func NewDailyStore(dataDir string, c model.Commodity) *DailyStore {
	return &DailyStore{
		JSONPath:  filepath.Join(dataDir, c.DailyJSONFile()),
		CSVPath:   filepath.Join(dataDir, c.DailyCSVFile()),
		Unit:      c.Unit,
		KeyFields: c.KeyFields(),
	}
}

// Load reads all records. A missing file is an empty store; an unreadable
// one is logged and also treated as empty.
func (s *DailyStore) Load() []*Fields {
	data, err := os.ReadFile(s.JSONPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.recovered(err)
		}
		return nil
	}

	var raw []*Fields
	if err := json.Unmarshal(data, &raw); err != nil {
		s.recovered(err)
		return nil
	}

	records := raw[:0]
	for _, r := range raw {
		if r != nil {
			records = append(records, r)
		}
	}
	return records
}

func (s *DailyStore) recovered(err error) {
	metrics.StoreRecoveries.WithLabelValues("daily").Inc()
	logger.With("file", s.JSONPath).WithError(err).Warn("daily store unreadable, starting empty")
}

// Merge folds obs into the record sharing its key fields, or appends a new
// record, then persists both files. It returns the record's OHLC after the
// merge.
func (s *DailyStore) Merge(obs model.Observation) (CanonicalOHLC, error) {
	keys, err := s.keyValues(obs)
	if err != nil {
		return CanonicalOHLC{}, err
	}
	price := Normalize(ToUnit(obs.Value, obs.Unit, s.Unit), s.Unit)

	records := s.Load()
	var merged *CanonicalOHLC
	for _, rec := range records {
		if !matches(rec, s.KeyFields, keys) {
			continue
		}
		v, ok := Classify(rec)
		if !ok {
			logger.With("file", s.JSONPath).Debug("skipping record without a known price field")
			continue
		}
		c := Upgrade(v, s.Unit).Fold(price)
		c.apply(rec)
		merged = &c
		break
	}

	if merged == nil {
		rec := NewFields()
		for _, k := range s.KeyFields {
			rec.Set(k, keys[k])
		}
		rec.Set(fieldClose, price)
		rec.Set(fieldSource, obs.Source)
		c := flat(price)
		c.apply(rec)
		records = append(records, rec)
		merged = &c
	}

	if err := s.save(records); err != nil {
		return CanonicalOHLC{}, err
	}
	return *merged, nil
}

func (s *DailyStore) keyValues(obs model.Observation) (map[string]string, error) {
	keys := make(map[string]string, len(obs.Keys))
	for _, k := range obs.Keys {
		keys[k.Name] = k.Value
	}
	for _, k := range s.KeyFields {
		if _, ok := keys[k]; !ok {
			return nil, fmt.Errorf("observation missing key field %q", k)
		}
	}
	return keys, nil
}

func matches(rec *Fields, fields []string, keys map[string]string) bool {
	for _, k := range fields {
		v, ok := rec.String(k)
		if !ok || v != keys[k] {
			return false
		}
	}
	return true
}

func (s *DailyStore) save(records []*Fields) error {
	if records == nil {
		records = []*Fields{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode daily store: %w", err)
	}
	if err := writeFileAtomic(s.JSONPath, data); err != nil {
		return err
	}

	table, err := Project(records)
	if err != nil {
		return fmt.Errorf("project daily store: %w", err)
	}
	return writeFileAtomic(s.CSVPath, table)
}

// Project renders records as CSV. The header is the union of all record
// keys in first-seen order; missing fields are left blank.
func Project(records []*Fields) ([]byte, error) {
	var header []string
	seen := make(map[string]bool)
	for _, r := range records {
		for _, k := range r.Keys() {
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	row := make([]string, len(header))
	for _, r := range records {
		for i, k := range header {
			v, _ := r.Get(k)
			row[i] = cell(v)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Bars returns every readable record in canonical form, in store order.
// When a date and sub key appear more than once the later record wins and
// keeps the earlier one's position.
func (s *DailyStore) Bars() []model.DailyBar {
	var bars []model.DailyBar
	index := make(map[string]int)
	for _, rec := range s.Load() {
		v, ok := Classify(rec)
		if !ok {
			continue
		}
		c := Upgrade(v, s.Unit)
		b := model.DailyBar{Open: c.Open, High: c.High, Low: c.Low, Close: c.Close}
		b.Date, _ = rec.String("date")
		b.Source, _ = rec.String(fieldSource)
		for _, k := range s.KeyFields {
			if k != "date" {
				b.SubKey, _ = rec.String(k)
				break
			}
		}

		key := b.Date + "_" + b.SubKey
		if i, ok := index[key]; ok {
			bars[i] = b
			continue
		}
		index[key] = len(bars)
		bars = append(bars, b)
	}
	return bars
}
