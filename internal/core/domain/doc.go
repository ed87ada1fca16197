// Package domain defines the core business entities for Glean.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Fragment: Raw OCR text plus source provenance
//   - ClassifiedFragment: A fragment tagged with kind/subject/confidence
//   - Link: A validated note to wrong-question relationship
//   - Group: A named, subject-scoped cluster rendered as one document
//   - EmbeddingRecord: The semantic vector owned by one fragment
//   - ProcessedEntry: The durable record enabling idempotent re-runs
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
