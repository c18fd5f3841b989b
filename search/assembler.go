package search

import (
	"fmt"
	"strings"

	"github.com/poiesic/wayfarer/ai"
	"github.com/poiesic/wayfarer/core"
)

// DefaultSystemPrompt instructs the model how to use the assembled context.
const DefaultSystemPrompt = "You are a helpful travel assistant for Vietnam. Use the provided semantic search results " +
	"and graph facts to answer the user's query in a friendly, concise manner. " +
	"Provide specific recommendations with details. " +
	"When referencing places, mention their node IDs in parentheses for reference."

// Assembler renders retrieval results into a bounded prompt.
type Assembler struct {
	systemPrompt string
}

// NewAssembler creates an assembler. Only WithSystemPrompt applies.
func NewAssembler(opts ...Option) (*Assembler, error) {
	s, err := applyOptions("assembler", opts)
	if err != nil {
		return nil, err
	}
	return &Assembler{systemPrompt: s.systemPrompt}, nil
}

// SystemPrompt returns the prompt sent ahead of every question.
func (a *Assembler) SystemPrompt() string {
	return a.systemPrompt
}

// Build renders at most MaxVectorSnippets matches and MaxGraphSnippets facts.
func (a *Assembler) Build(matches []core.Match, facts []core.GraphFact) *core.PromptContext {
	pc := &core.PromptContext{}
	for _, m := range matches[:min(len(matches), MaxVectorSnippets)] {
		pc.VectorSnippets = append(pc.VectorSnippets, VectorSnippet(m))
	}
	for _, f := range facts[:min(len(facts), MaxGraphSnippets)] {
		pc.GraphSnippets = append(pc.GraphSnippets, GraphSnippet(f))
	}
	return pc
}

// Messages returns the chat transcript for query: the system prompt followed
// by the query and the rendered context.
func (a *Assembler) Messages(query string, pc *core.PromptContext) []ai.Message {
	if pc == nil {
		pc = &core.PromptContext{}
	}
	return []ai.Message{
		{Role: ai.RoleSystem, Content: a.systemPrompt},
		{Role: ai.RoleUser, Content: fmt.Sprintf("User query: %s\n\n%s\n\nAnswer:", query, pc.Text())},
	}
}

// VectorSnippet renders one match as
// "- [id] name (type) in city: description [relevance: 0.000]".
func VectorSnippet(m core.Match) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "- [%s] %s (%s)", m.ID, orNA(m.Metadata.String("name")), orNA(m.Metadata.String("type")))
	if city := m.Metadata.String("city"); city != "" {
		sb.WriteString(" in ")
		sb.WriteString(city)
	}
	if desc := m.Metadata.String("description"); desc != "" {
		sb.WriteString(": ")
		sb.WriteString(truncateRunes(desc, VectorDescriptionLimit))
	}
	fmt.Fprintf(&sb, " [relevance: %.3f]", m.Score)
	return sb.String()
}

// GraphSnippet renders one fact as "- [source] --REL--> [target] name: description".
func GraphSnippet(f core.GraphFact) string {
	return fmt.Sprintf("- [%s] --%s--> [%s] %s: %s",
		f.Source, f.Relation, f.TargetID, f.TargetName, truncateRunes(f.TargetDescription, GraphDescriptionLimit))
}
