package pipeline

import (
	"context"
	"strings"

	"orchd/pkg/types"
)

// Classifier extracts task type, subject and complexity from free text.
// The real heuristics live outside this core; any implementation with
// this shape plugs in.
type Classifier interface {
	Classify(ctx context.Context, input string) (types.TaskProfile, error)
}

// MemoryStore surfaces recent relevant lessons for a task type.
type MemoryStore interface {
	RecentLessons(ctx context.Context, taskType string, limit int) ([]string, error)
}

// Executor runs one execution attempt against the currently scheduled
// model.
type Executor interface {
	Process(ctx context.Context, input, plan, promptContext string) (types.StageResult, error)
}

// Verifier reviews an executor output.
type Verifier interface {
	Process(ctx context.Context, input, output string) (types.StageResult, error)
}

// Scheduler is the slice of the model scheduler the pipeline drives.
type Scheduler interface {
	SwitchTo(ctx context.Context, key types.ModelKey) (types.ModelKey, error)
}

// KeywordClassifier is a trivial stand-in classifier for deployments
// without an external one: task type from keyword hits, complexity
// from input length.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(_ context.Context, input string) (types.TaskProfile, error) {
	lower := strings.ToLower(input)
	p := types.TaskProfile{Type: "general", Complexity: 3}
	for _, kw := range []string{"code", "function", "bug", "compile", "refactor", "implement"} {
		if strings.Contains(lower, kw) {
			p.Type = "code"
			break
		}
	}
	switch {
	case len(input) > 2000:
		p.Complexity = 8
	case len(input) > 500:
		p.Complexity = 5
	}
	return p, nil
}

// NoopMemory is the empty memory store.
type NoopMemory struct{}

func (NoopMemory) RecentLessons(context.Context, string, int) ([]string, error) {
	return nil, nil
}
