package core

import (
	"fmt"
	"strings"
	"time"
)

// Metadata holds the scalar attributes a vector index returns alongside a match.
// Values are strings, numbers, booleans or lists of strings.
type Metadata map[string]any

// String returns the metadata value for key rendered as text.
// Missing and nil values return the empty string.
func (m Metadata) String(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

// Match is a single nearest-neighbour hit returned by a vector index.
// Matches are kept in the order the index returned them (descending score).
type Match struct {
	ID       string
	Score    float32
	Metadata Metadata
}

// GraphFact is one edge discovered while expanding a source entity by one hop.
type GraphFact struct {
	Source            string
	Relation          string
	TargetID          string
	TargetName        string
	TargetType        string
	TargetDescription string // Truncated when the fact is built
	Labels            []string
}

// PromptContext is the bounded context block handed to the language model.
// Vector snippets always come first, graph snippets second.
type PromptContext struct {
	VectorSnippets []string
	GraphSnippets  []string
}

const (
	vectorSectionHeader = "Top semantic matches:"
	graphSectionHeader  = "Related connections (from knowledge graph):"

	// NoGraphConnections is emitted in place of the graph section when no facts were found.
	NoGraphConnections = "(No graph connections available)"
)

// HasGraph reports whether the context carries a graph section.
func (p *PromptContext) HasGraph() bool {
	return len(p.GraphSnippets) > 0
}

// Text renders the context block.
func (p *PromptContext) Text() string {
	var sb strings.Builder
	sb.WriteString(vectorSectionHeader)
	sb.WriteString("\n")
	sb.WriteString(strings.Join(p.VectorSnippets, "\n"))
	if p.HasGraph() {
		sb.WriteString("\n\n")
		sb.WriteString(graphSectionHeader)
		sb.WriteString("\n")
		sb.WriteString(strings.Join(p.GraphSnippets, "\n"))
	} else {
		sb.WriteString("\n\n")
		sb.WriteString(NoGraphConnections)
	}
	return sb.String()
}

// TurnState identifies where a query turn is in the orchestration loop.
type TurnState string

const (
	StateEmbedding  TurnState = "embedding"
	StateRetrieving TurnState = "retrieving"
	StateEnriching  TurnState = "enriching"
	StateAssembling TurnState = "assembling"
	StateGenerating TurnState = "generating"

	// Terminal states
	StateAnswered TurnState = "answered"
	StateDegraded TurnState = "degraded"
	StateFailed   TurnState = "failed"
)

// IsTerminal reports whether the state ends a turn.
func (s TurnState) IsTerminal() bool {
	return s == StateAnswered || s == StateDegraded || s == StateFailed
}

// TurnResult is the outcome of one query turn.
type TurnResult struct {
	Number    int
	Query     string
	State     TurnState
	Answer    string
	Matches   []Match
	Facts     []GraphFact
	Context   *PromptContext
	FromCache bool
	Elapsed   time.Duration
	Err       error // Cause of degradation or failure, nil when answered normally
}

// Connection is an outgoing relation declared by a dataset node.
type Connection struct {
	Relation string `json:"relation"`
	Target   string `json:"target"`
}

// Node is one entity of a seed dataset. It becomes a vector in the index
// and an entity in the graph store.
type Node struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	Name        string       `json:"name"`
	City        string       `json:"city,omitempty"`
	Region      string       `json:"region,omitempty"`
	Description string       `json:"description,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Connections []Connection `json:"connections,omitempty"`
}

// Metadata returns the index metadata stored with the node's vector.
func (n *Node) Metadata() Metadata {
	md := Metadata{
		"id":   n.ID,
		"type": n.Type,
		"name": n.Name,
	}
	if n.City != "" {
		md["city"] = n.City
	}
	if n.Region != "" {
		md["region"] = n.Region
	}
	if n.Description != "" {
		md["description"] = n.Description
	}
	if len(n.Tags) > 0 {
		md["tags"] = n.Tags
	}
	return md
}
