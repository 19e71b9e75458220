// Package testing provides test utilities and mocks for testing LLM
// operations components without real providers or a real Redis.
package testing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hirepath/llmops/internal/provider"
)

// MockInvoker is a mock implementation of provider.Invoker for testing
// without making real API calls.
type MockInvoker struct {
	// InvokeFunc is called when Invoke() is invoked. If nil, a default
	// response is returned.
	InvokeFunc func(ctx context.Context, messages []provider.Message, params provider.Params) (*provider.Result, error)

	// Content is the default response content.
	Content string

	// Latency is slept before returning, to exercise timing paths.
	Latency time.Duration

	mu sync.Mutex

	// CallCount tracks how many times Invoke was called.
	CallCount int

	// LastMessages stores the last transcript received.
	LastMessages []provider.Message

	// LastParams stores the last parameters received.
	LastParams provider.Params
}

// Invoke implements provider.Invoker.
func (m *MockInvoker) Invoke(ctx context.Context, messages []provider.Message, params provider.Params) (*provider.Result, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastMessages = messages
	m.LastParams = params
	m.mu.Unlock()

	if m.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Latency):
		}
	}

	if m.InvokeFunc != nil {
		return m.InvokeFunc(ctx, messages, params)
	}

	content := m.Content
	if content == "" {
		content = "Mock response based on the request. It indicates a plausible answer with enough length to be cacheable."
	}

	return &provider.Result{
		Content:      content,
		InputTokens:  100,
		OutputTokens: 50,
		Model:        params.Model,
	}, nil
}

// Calls returns the current call count.
func (m *MockInvoker) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// ErrorInvoker is a mock that always returns errors (for fallback and
// error-path testing).
type ErrorInvoker struct {
	ErrorMessage string

	mu        sync.Mutex
	CallCount int
}

// Invoke always returns an error.
func (e *ErrorInvoker) Invoke(ctx context.Context, messages []provider.Message, params provider.Params) (*provider.Result, error) {
	e.mu.Lock()
	e.CallCount++
	e.mu.Unlock()
	return nil, fmt.Errorf("%s", e.ErrorMessage)
}

// Calls returns the current call count.
func (e *ErrorInvoker) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.CallCount
}

// MockStore is an in-memory implementation of the durable cache store
// interface, with optional fault injection.
type MockStore struct {
	mu   sync.Mutex
	Data map[string][]byte
	TTLs map[string]time.Duration

	// FailAll makes every operation return an error.
	FailAll bool

	SetCount    int
	GetCount    int
	DeleteCount int
}

// NewMockStore creates an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		Data: make(map[string][]byte),
		TTLs: make(map[string]time.Duration),
	}
}

// Set stores a value in memory.
func (s *MockStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SetCount++
	if s.FailAll {
		return fmt.Errorf("mock store failure")
	}
	s.Data[key] = value
	s.TTLs[key] = ttl
	return nil
}

// Get retrieves a value from memory.
func (s *MockStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GetCount++
	if s.FailAll {
		return nil, false, fmt.Errorf("mock store failure")
	}
	value, ok := s.Data[key]
	return value, ok, nil
}

// Delete removes a key from memory.
func (s *MockStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DeleteCount++
	if s.FailAll {
		return fmt.Errorf("mock store failure")
	}
	delete(s.Data, key)
	delete(s.TTLs, key)
	return nil
}

// Keys returns all stored keys.
func (s *MockStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return nil, fmt.Errorf("mock store failure")
	}
	keys := make([]string, 0, len(s.Data))
	for key := range s.Data {
		keys = append(keys, key)
	}
	return keys, nil
}

// Close is a no-op.
func (s *MockStore) Close() error {
	return nil
}
