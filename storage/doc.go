// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package storage defines the store boundaries the retrieval pipeline talks to.
//
// Three kinds of stores sit behind these interfaces:
//
//   - CacheStore: a key/value store with per-entry expiry, used by the
//     content-addressed cache for embeddings and answers
//   - VectorIndex / VectorProvisioner: a nearest-neighbour index queried
//     with an embedding and populated by the seeder
//   - GraphStore / GraphWriter: an entity graph expanded one hop around
//     each retrieved entity
//
// # Backends
//
//   - storage/badger: embedded BadgerDB, cache store and local vector index
//   - storage/sqlite: embedded SQLite, cache store and local graph store
//   - storage/redis: networked cache store
//   - storage/pinecone: managed vector index
//   - storage/neo4j: networked graph store
//   - storage/memory: in-process stores for tests and throwaway sessions
//
// # Constructor Return Type Pattern
//
// Backend constructors return concrete types so callers can reach
// backend-specific operations (Stats, PurgeExpired, EnsureIndex). Consumers
// depend only on the interfaces in this package.
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
package storage
