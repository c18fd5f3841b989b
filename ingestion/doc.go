// Package ingestion provisions the vector index and graph store from a dataset.
//
// The Seeder type loads dataset nodes and writes them to both stores:
//   - Creating the vector index when it does not exist
//   - Embedding node text in batches through the cached embedder
//   - Upserting vectors with their metadata
//   - Writing entities and their relations to the graph
//
// Invalid nodes are logged and skipped. Progress is reported with a
// ProgressTracker while batches are embedded.
package ingestion
