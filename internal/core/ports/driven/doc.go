// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the pipeline to function:
//
//   - Classifier: Calls the external classification collaborator
//   - EmbeddingService: Generates vector embeddings
//   - EmbeddingIndex: Stores vectors, answers similarity queries
//   - FragmentStore: Classified fragment persistence
//   - EmbeddingStore: Embedding record persistence
//   - ProcessedStore: Processed-set persistence
//   - DocumentWriter: Synthesized document persistence
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
