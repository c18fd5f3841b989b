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

package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidNode indicates a dataset Node failed validation.
	ErrInvalidNode = errors.New("invalid node")

	// ErrEmptyNodeID indicates the node ID field is empty.
	ErrEmptyNodeID = errors.New("node id cannot be empty")

	// ErrEmptyNodeName indicates the node Name field is empty.
	ErrEmptyNodeName = errors.New("node name cannot be empty")

	// ErrInvalidRelation indicates a relation name is not usable as an edge type.
	ErrInvalidRelation = errors.New("invalid relation")

	// ErrEmptyTarget indicates a connection has no target.
	ErrEmptyTarget = errors.New("connection target cannot be empty")
)
