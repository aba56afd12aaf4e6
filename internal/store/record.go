package store

import (
	"math"

	"BullionLedger/internal/model"
)

const (
	fieldOpen         = "open"
	fieldHigh         = "high"
	fieldLow          = "low"
	fieldClose        = "close"
	fieldSource       = "source"
	fieldPricePerKg   = "price_per_kg_inr"
	fieldPricePerGram = "price_per_gram_inr"
)

// CanonicalOHLC is a daily record in the store's canonical unit.
type CanonicalOHLC struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// VersionedRecord is one of the shapes a daily record has been written in.
type VersionedRecord interface {
	upgrade(unit model.Unit) CanonicalOHLC
}

// LegacyGramRecord carries only a flat per-gram price.
type LegacyGramRecord struct {
	PricePerGram float64
}

// LegacyKgRecord carries only a flat per-kg price.
type LegacyKgRecord struct {
	PricePerKg float64
}

// CanonicalOHLCRecord is the current shape. Open, High and Low may be
// missing on records written before they were tracked.
type CanonicalOHLCRecord struct {
	Open  *float64
	High  *float64
	Low   *float64
	Close float64
}

// Normalize scales a per-kg series value that looks like a per-gram price.
// Values at or above the threshold are returned unchanged, so applying it
// twice is the same as applying it once.
func Normalize(v float64, unit model.Unit) float64 {
	if unit == model.UnitKg && v < model.KgThreshold {
		return v * 1000
	}
	return v
}

// ToUnit converts a price quoted per `from` into a price per `to`.
func ToUnit(v float64, from, to model.Unit) float64 {
	switch {
	case from == model.UnitGram && to == model.UnitKg:
		return v * 1000
	case from == model.UnitKg && to == model.UnitGram:
		return v / 1000
	default:
		return v
	}
}

// Classify reads the versioned shape out of a stored record. It returns
// false when the record carries no price field it understands.
func Classify(f *Fields) (VersionedRecord, bool) {
	// A close that is not a number (e.g. null) falls through to the legacy
	// fields.
	if c, ok := f.Number(fieldClose); ok {
		rec := CanonicalOHLCRecord{Close: c}
		rec.Open = optionalNumber(f, fieldOpen)
		rec.High = optionalNumber(f, fieldHigh)
		rec.Low = optionalNumber(f, fieldLow)
		return rec, true
	}
	if v, ok := f.Number(fieldPricePerKg); ok {
		return LegacyKgRecord{PricePerKg: v}, true
	}
	if v, ok := f.Number(fieldPricePerGram); ok {
		return LegacyGramRecord{PricePerGram: v}, true
	}
	return nil, false
}

// Upgrade converts any record shape into canonical OHLC in unit.
func Upgrade(v VersionedRecord, unit model.Unit) CanonicalOHLC {
	return v.upgrade(unit)
}

func (r LegacyGramRecord) upgrade(unit model.Unit) CanonicalOHLC {
	return flat(Normalize(ToUnit(r.PricePerGram, model.UnitGram, unit), unit))
}

func (r LegacyKgRecord) upgrade(unit model.Unit) CanonicalOHLC {
	return flat(Normalize(r.PricePerKg, unit))
}

func (r CanonicalOHLCRecord) upgrade(unit model.Unit) CanonicalOHLC {
	c := CanonicalOHLC{Close: Normalize(r.Close, unit)}
	c.Open = Normalize(orValue(r.Open, r.Close), unit)
	c.High = Normalize(orValue(r.High, r.Close), unit)
	c.Low = Normalize(orValue(r.Low, r.Close), unit)
	return c
}

// Fold extends the record with a new close. Open is never changed.
func (c CanonicalOHLC) Fold(price float64) CanonicalOHLC {
	c.High = math.Max(c.High, price)
	c.Low = math.Min(c.Low, price)
	c.Close = price
	return c
}

// apply writes the OHLC values back into f. Missing fields are appended
// close first, then open, high, low.
func (c CanonicalOHLC) apply(f *Fields) {
	f.Set(fieldClose, c.Close)
	f.Set(fieldOpen, c.Open)
	f.Set(fieldHigh, c.High)
	f.Set(fieldLow, c.Low)
}

func flat(v float64) CanonicalOHLC {
	return CanonicalOHLC{Open: v, High: v, Low: v, Close: v}
}

func optionalNumber(f *Fields, key string) *float64 {
	v, ok := f.Number(key)
	if !ok {
		return nil
	}
	return &v
}

func orValue(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}
