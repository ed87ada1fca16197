package domain

import "time"

// Outcome is the recorded result of processing one source item.
type Outcome string

// Processing outcomes.
const (
	// OutcomeSaved means the item was classified, indexed, linked
	// and its group document persisted.
	OutcomeSaved Outcome = "saved"

	// OutcomeUnclassified means the collaborator could not produce a
	// known kind. The item is recorded as processed and excluded
	// from linking; it is not retried unless its content changes.
	OutcomeUnclassified Outcome = "unclassified"

	// OutcomeSuperseded means a later near-duplicate capture of the
	// same material replaced this item's records.
	OutcomeSuperseded Outcome = "superseded"

	// OutcomeFailed means processing failed. The item re-enters the
	// pipeline on the next run.
	OutcomeFailed Outcome = "failed"
)

// Settled returns true if the outcome is terminal for unchanged
// content, meaning re-runs skip the item without external calls.
func (o Outcome) Settled() bool {
	return o == OutcomeSaved || o == OutcomeUnclassified || o == OutcomeSuperseded
}

// ProcessedEntry records the last-known state of one source item so
// the orchestrator can decide whether it needs (re)processing.
type ProcessedEntry struct {
	// SourceID is the source reference identity.
	SourceID string

	// ContentHash is the hash of the text last seen for the source.
	ContentHash string

	// Outcome is the recorded processing result.
	Outcome Outcome

	// Error holds the failure reason when Outcome is failed.
	Error string

	// ProcessedAt is when the entry was last written.
	ProcessedAt time.Time
}

// ItemState is the position of a source item in the processing state
// machine. Failed is an absorbing state for the current run only.
type ItemState string

// Item states, in pipeline order.
const (
	StateNew                 ItemState = "new"
	StateClassifying         ItemState = "classifying"
	StateClassified          ItemState = "classified"
	StateIndexed             ItemState = "indexed"
	StateLinkedAndGrouped    ItemState = "linked_and_grouped"
	StateSynthesizedAndSaved ItemState = "synthesized_and_saved"
	StateFailed              ItemState = "failed"
)
