package model

import "time"

// DateLayout is the canonical date key format.
const DateLayout = "2006-01-02"

// KeyField is one identifying field of a daily record.
type KeyField struct {
	Name  string
	Value string
}

// Observation is a single freshly scraped price.
type Observation struct {
	Date   time.Time
	Keys   []KeyField // ordered, "date" first
	Unit   Unit
	Value  float64
	Source string
}

// DateKey returns the observation date in DateLayout.
func (o Observation) DateKey() string {
	return o.Date.Format(DateLayout)
}

// SubKey returns the value of the first non-date key field, if any.
func (o Observation) SubKey() string {
	for _, k := range o.Keys {
		if k.Name != "date" {
			return k.Value
		}
	}
	return ""
}

// NewObservation builds an observation for commodity c. subKey is ignored
// when the commodity has no sub key field.
func NewObservation(c Commodity, date time.Time, subKey string, value float64) Observation {
	keys := []KeyField{{Name: "date", Value: date.Format(DateLayout)}}
	if c.SubKeyField != "" {
		keys = append(keys, KeyField{Name: c.SubKeyField, Value: subKey})
	}
	return Observation{
		Date:   date,
		Keys:   keys,
		Unit:   c.Unit,
		Value:  value,
		Source: c.Source,
	}
}
