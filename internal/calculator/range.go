package calculator

import (
	"errors"
	"math"

	"BullionLedger/internal/model"
)

// Direction is the move of a close against the previous day's close.
type Direction int

const (
	Same Direction = iota
	Up
	Down
)

// Arrow renders d for reports.
func (d Direction) Arrow() string {
	switch d {
	case Up:
		return "▲"
	case Down:
		return "▼"
	default:
		return "="
	}
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "same"
	}
}

// Compare returns the direction from prev to curr.
func Compare(curr, prev float64) Direction {
	switch {
	case curr > prev:
		return Up
	case curr < prev:
		return Down
	default:
		return Same
	}
}

// Recent returns the last n bars, newest first.
func Recent(bars []model.DailyBar, n int) []model.DailyBar {
	start := len(bars) - n
	if start < 0 {
		start = 0
	}
	out := make([]model.DailyBar, 0, len(bars)-start)
	for i := len(bars) - 1; i >= start; i-- {
		out = append(out, bars[i])
	}
	return out
}

// PeriodRange returns the highest high and lowest low across bars.
func PeriodRange(bars []model.DailyBar) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low, nil
}

// RangePosition returns where current sits within [low, high] (0.0~1.0).
func RangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}

// Series is the bars of one sub key, in store order.
type Series struct {
	SubKey string
	Bars   []model.DailyBar
}

// GroupBySubKey splits bars into series ordered by first appearance.
func GroupBySubKey(bars []model.DailyBar) []Series {
	var out []Series
	index := make(map[string]int)
	for _, b := range bars {
		i, ok := index[b.SubKey]
		if !ok {
			i = len(out)
			index[b.SubKey] = i
			out = append(out, Series{SubKey: b.SubKey})
		}
		out[i].Bars = append(out[i].Bars, b)
	}
	return out
}
