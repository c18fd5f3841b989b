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

// Package search retrieves and assembles the context a language model needs
// to answer a question.
//
// Retrieval runs in stages, each with its own type:
//   - CachedEmbedder turns text into a vector, consulting the cache first
//   - Retriever queries the vector index for the nearest entities
//   - Enricher expands those entities one hop through the graph store
//   - Assembler renders matches and facts into a bounded prompt context
//
// Every external call runs under a resilience.Policy. Retriever and Enricher
// never return errors: failures are logged and produce empty results, so a
// broken subsystem degrades the answer instead of ending the session.
package search
