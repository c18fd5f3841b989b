package ingestion

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/poiesic/wayfarer/core"
)

// LoadDataset decodes a JSON array of nodes.
func LoadDataset(r io.Reader) ([]core.Node, error) {
	var nodes []core.Node
	if err := json.NewDecoder(r).Decode(&nodes); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataset, err)
	}
	return nodes, nil
}

// LoadDatasetFile decodes the JSON dataset at path.
func LoadDatasetFile(path string) ([]core.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadDataset(f)
}

// EmbeddingText returns the text embedded for node:
// "name (type) in city, region: description. Tags: a, b".
func EmbeddingText(node *core.Node) string {
	var sb strings.Builder
	sb.WriteString(node.Name)
	if node.Type != "" {
		fmt.Fprintf(&sb, " (%s)", node.Type)
	}

	var place []string
	if node.City != "" {
		place = append(place, node.City)
	}
	if node.Region != "" {
		place = append(place, node.Region)
	}
	if len(place) > 0 {
		sb.WriteString(" in ")
		sb.WriteString(strings.Join(place, ", "))
	}

	if node.Description != "" {
		sb.WriteString(": ")
		sb.WriteString(node.Description)
	}
	if len(node.Tags) > 0 {
		sb.WriteString(". Tags: ")
		sb.WriteString(strings.Join(node.Tags, ", "))
	}
	return sb.String()
}
