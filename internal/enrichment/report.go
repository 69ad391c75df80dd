// Package enrichment attaches token identity and historical USD prices to
// session ledger rows. Upstream failures never abort a stage: each unit of
// work ends in an Outcome recorded on the stage Report.
package enrichment

import (
	"fmt"

	"solana-wallet-lab/internal/observability"
)

// Outcome is the result of one unit of enrichment work.
type Outcome string

const (
	OutcomeResolved Outcome = "resolved" // upstream data applied
	OutcomeSkipped  Outcome = "skipped"  // nothing usable upstream, rows left as they were or marked synthetic
	OutcomeFailed   Outcome = "failed"   // upstream call failed, rows left unenriched
)

// Stage names.
const (
	StageMetadata = "metadata"
	StagePrice    = "price"
)

// Unit is one token (metadata), one batch that failed as a whole (metadata),
// or one (token, bucket) group (price).
type Unit struct {
	Key     string
	Outcome Outcome
	Rows    int64
	Err     error
}

// Report collects the unit outcomes of a stage.
type Report struct {
	Stage string
	Units []Unit
}

func newReport(stage string) *Report {
	return &Report{Stage: stage}
}

func (r *Report) add(key string, outcome Outcome, rows int64, err error) {
	r.Units = append(r.Units, Unit{Key: key, Outcome: outcome, Rows: rows, Err: err})
}

// Count returns the number of units with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, u := range r.Units {
		if u.Outcome == o {
			n++
		}
	}
	return n
}

// RowsUpdated returns the number of ledger rows written by resolved units.
func (r *Report) RowsUpdated() int64 {
	var n int64
	for _, u := range r.Units {
		if u.Outcome == OutcomeResolved {
			n += u.Rows
		}
	}
	return n
}

// Summary returns a one-line description of failures, or "" when none failed.
func (r *Report) Summary() string {
	failed := r.Count(OutcomeFailed)
	if failed == 0 {
		return ""
	}
	var first error
	for _, u := range r.Units {
		if u.Outcome == OutcomeFailed {
			first = u.Err
			break
		}
	}
	return fmt.Sprintf("%s enrichment: %d of %d units failed (first: %v)", r.Stage, failed, len(r.Units), first)
}

func (r *Report) record() {
	for _, o := range []Outcome{OutcomeResolved, OutcomeSkipped, OutcomeFailed} {
		observability.RecordEnrichment(r.Stage, string(o), r.Count(o))
	}
}
