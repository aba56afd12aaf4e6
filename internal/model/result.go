package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a per-commodity failure.
type ErrorKind string

const (
	KindFetch       ErrorKind = "fetch"
	KindExtraction  ErrorKind = "extraction"
	KindPersistence ErrorKind = "persistence"
)

// IngestError is the failure of one commodity's pass.
type IngestError struct {
	Kind      ErrorKind
	Commodity string
	Err       error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Commodity, e.Kind, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or "" if it carries none.
func KindOf(err error) ErrorKind {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}

// Result is the outcome of one commodity's ingestion pass.
type Result struct {
	Commodity    string
	Observations []Observation
	Err          error
}

// OK reports whether the pass succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Message is a one-line description of the outcome.
func (r Result) Message() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return fmt.Sprintf("%d observation(s)", len(r.Observations))
}

// RunSummary collects the results of one run across all commodities.
type RunSummary struct {
	ID         string
	Date       time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []Result
}

// Succeeded returns the number of commodities ingested without error.
func (s *RunSummary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of commodities whose pass failed.
func (s *RunSummary) Failed() int {
	return len(s.Results) - s.Succeeded()
}
