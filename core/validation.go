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

import (
	"fmt"
)

// ValidateNode validates a dataset Node according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Name must not be empty
//   - every connection must have a valid relation and a target
//
// NOT validated:
//   - Type, City, Description (optional for retrieval)
//   - whether connection targets exist (dangling edges are dropped by the graph store)
func ValidateNode(node *Node) error {
	if node == nil {
		return fmt.Errorf("%w: node is nil", ErrInvalidNode)
	}

	if node.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidNode, ErrEmptyNodeID)
	}

	if node.Name == "" {
		return fmt.Errorf("%w: %s: %w", ErrInvalidNode, node.ID, ErrEmptyNodeName)
	}

	for _, c := range node.Connections {
		if err := ValidateRelation(c.Relation); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidNode, node.ID, err)
		}
		if c.Target == "" {
			return fmt.Errorf("%w: %s: %w", ErrInvalidNode, node.ID, ErrEmptyTarget)
		}
	}

	return nil
}

// ValidateRelation checks that a relation name can be used verbatim as an
// edge type: a letter or underscore followed by letters, digits or underscores.
func ValidateRelation(relation string) error {
	if relation == "" {
		return fmt.Errorf("%w: empty", ErrInvalidRelation)
	}
	for i, r := range relation {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return fmt.Errorf("%w: %q", ErrInvalidRelation, relation)
		}
	}
	return nil
}
