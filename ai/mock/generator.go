package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/wayfarer/ai"
)

// MockGenerator is a test double for ai.Generator.
// It records the messages of every call. It is safe for concurrent use.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, the reply echoes the last message length.
	GenerateFunc func(ctx context.Context, messages []ai.Message) (string, error)

	mu        sync.Mutex
	callCount int
	last      []ai.Message
}

// NewMockGenerator creates a mock generator with default behavior.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate returns GenerateFunc's reply, or a canned answer.
func (m *MockGenerator) Generate(ctx context.Context, messages []ai.Message) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.last = append([]ai.Message(nil), messages...)
	fn := m.GenerateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages)
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages")
	}
	return fmt.Sprintf("mock answer (%d chars of context)", len(messages[len(messages)-1].Content)), nil
}

// CallCount returns the number of times Generate was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastMessages returns the messages passed to the most recent call.
func (m *MockGenerator) LastMessages() []ai.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Reset clears the call count and recorded messages.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.last = nil
	m.GenerateFunc = nil
}
