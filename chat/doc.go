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

// Package chat runs question-answering turns over the retrieval pipeline.
//
// A Session answers one question per call to Ask. Each turn moves through
// the states embedding, retrieving, enriching, assembling and generating,
// and ends answered, degraded or failed. A turn never ends the session: a
// panic inside a turn is recovered and reported as a failed turn.
//
// A REPL reads questions line by line, prints answers with their timing and
// stops on exit, quit, q, end of input or context cancellation.
package chat
