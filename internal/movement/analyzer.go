package movement

import (
	"errors"

	"github.com/ayusman/abhinaya/internal/pose"
)

var (
	// ErrInvalidAnalyzer is returned when registering a nil or unnamed analyzer.
	ErrInvalidAnalyzer = errors.New("invalid analyzer")
	// ErrDuplicateAnalyzer is returned when an analyzer ID is already registered.
	ErrDuplicateAnalyzer = errors.New("analyzer already registered")
	// ErrAnalyzerNotFound is returned when unregistering an unknown analyzer.
	ErrAnalyzerNotFound = errors.New("analyzer not found")
)

// Analyzer evaluates one frame pair and reports raw detections.
// Implementations must not keep state between calls; previous may be nil
// for analyzers that only inspect the current frame.
type Analyzer interface {
	ID() string
	Analyze(current, previous *pose.Frame, threshold float64) ([]Detection, error)
}

// Tuned is implemented by analyzers that carry their own stabilizer tuning.
type Tuned interface {
	Tuning() Tuning
}

// AnalyzeFunc is the function form of Analyzer.Analyze.
type AnalyzeFunc func(current, previous *pose.Frame, threshold float64) ([]Detection, error)

type funcAnalyzer struct {
	id string
	fn AnalyzeFunc
}

// NewAnalyzerFunc adapts a function into an Analyzer. It returns
// ErrInvalidAnalyzer when id is empty or fn is nil.
func NewAnalyzerFunc(id string, fn AnalyzeFunc) (Analyzer, error) {
	if id == "" || fn == nil {
		return nil, ErrInvalidAnalyzer
	}
	return &funcAnalyzer{id: id, fn: fn}, nil
}

func (a *funcAnalyzer) ID() string { return a.id }

func (a *funcAnalyzer) Analyze(current, previous *pose.Frame, threshold float64) ([]Detection, error) {
	return a.fn(current, previous, threshold)
}
