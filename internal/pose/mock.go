package pose

import (
	"context"
	"sync"

	"gocv.io/x/gocv"
)

// MockProvider is a test implementation of the Provider interface.
// It allows tests to control the detection results.
type MockProvider struct {
	mu      sync.Mutex
	persons []Person
	err     error
	calls   int
}

// NewMockProvider creates a new MockProvider instance.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// SetPersons sets the persons that will be returned by Detect.
func (m *MockProvider) SetPersons(persons []Person) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persons = persons
}

// SetFrames is a shorthand for SetPersons with keypoints only.
func (m *MockProvider) SetFrames(frames ...*Frame) {
	persons := make([]Person, len(frames))
	for i, f := range frames {
		persons[i] = Person{Keypoints: f}
	}
	m.SetPersons(persons)
}

// SetError sets the error that will be returned by Detect.
func (m *MockProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured persons or error.
func (m *MockProvider) Detect(ctx context.Context, frame *gocv.Mat) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return Result{}, m.err
	}

	var ts int64
	if len(m.persons) > 0 && m.persons[0].Keypoints != nil {
		ts = m.persons[0].Keypoints.Timestamp
	}
	return Result{
		Detected:  len(m.persons) > 0,
		Persons:   m.persons,
		Timestamp: ts,
	}, nil
}

// Close is a no-op for the mock provider.
func (m *MockProvider) Close() error {
	return nil
}
