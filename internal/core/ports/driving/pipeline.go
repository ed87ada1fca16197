package driving

import (
	"context"
	"time"

	"github.com/gleanly/glean/internal/core/domain"
)

// ItemResult is the per-item outcome of a pipeline run. Per-item
// failures never abort the run; each item reports independently.
type ItemResult struct {
	// SourceID is the item's source identity.
	SourceID string

	// State is the final state-machine position for this run.
	State domain.ItemState

	// Outcome is the recorded processed-set outcome, empty when the
	// item was skipped.
	Outcome domain.Outcome

	// Skipped is true when the item was already settled with an
	// unchanged content hash, so no external call was made.
	Skipped bool

	// SupersededID names the prior near-duplicate record this item
	// replaced, if any.
	SupersededID string

	// Err holds the failure reason when State is failed.
	Err string
}

// BatchReport summarises one pipeline run.
type BatchReport struct {
	// RunID uniquely identifies the run.
	RunID string

	// Started and Finished bound the run.
	Started  time.Time
	Finished time.Time

	// Items holds per-item results in input order.
	Items []ItemResult
}

// Count returns the number of items with the given outcome.
func (r *BatchReport) Count(outcome domain.Outcome) int {
	n := 0
	for i := range r.Items {
		if r.Items[i].Outcome == outcome {
			n++
		}
	}
	return n
}

// SkippedCount returns the number of items skipped as already
// processed.
func (r *BatchReport) SkippedCount() int {
	n := 0
	for i := range r.Items {
		if r.Items[i].Skipped {
			n++
		}
	}
	return n
}

// SearchResult is one fragment returned by a similarity search.
type SearchResult struct {
	// ID is the fragment identity.
	ID string

	// Score is the cosine similarity to the query.
	Score float64

	// Kind and Subject describe the matched fragment.
	Kind    domain.Kind
	Subject string

	// Snippet is the leading text of the fragment.
	Snippet string
}

// ProcessedSummary aggregates the processed set for status display.
type ProcessedSummary struct {
	// Total is the number of processed-set entries.
	Total int

	// ByOutcome counts entries per outcome.
	ByOutcome map[domain.Outcome]int

	// IndexSize is the number of embedding records held.
	IndexSize int
}

// Pipeline drives the classification-to-knowledge-graph pipeline.
type Pipeline interface {
	// ProcessBatch runs the pipeline over a fixed set of fragments
	// once and reports per-item outcomes. The returned error is
	// reserved for run-level failures; item failures land in the
	// report.
	ProcessBatch(ctx context.Context, fragments []domain.Fragment) (*BatchReport, error)

	// ProcessOne runs the pipeline for a single fragment,
	// resynthesizing only the groups its subject affects.
	ProcessOne(ctx context.Context, fragment domain.Fragment) (ItemResult, error)

	// Search embeds the query and returns the most similar stored
	// fragments.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)

	// Summary reports processed-set counts.
	Summary(ctx context.Context) (*ProcessedSummary, error)

	// Clear removes all fragments, embeddings and processed-set
	// entries. This is the only operation that shrinks the
	// processed set.
	Clear(ctx context.Context) error
}

// WatchLoop runs the pipeline indefinitely over a watched ingest
// directory, re-entering the state machine per detected item only.
type WatchLoop interface {
	// Run blocks until ctx is cancelled.
	Run(ctx context.Context) error
}
