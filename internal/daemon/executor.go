package daemon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"orchd/pkg/types"
)

// ModelSource resolves the model name the next call should target.
// Implemented by the scheduler.
type ModelSource interface {
	CurrentModelName() (string, bool)
}

// Executor is the daemon-backed execution collaborator: it runs the
// assembled prompt against whichever model the scheduler made current.
type Executor struct {
	client  *Client
	models  ModelSource
	numCtx  int
	predict int
}

// NewExecutor builds an executor. numCtx and numPredict are passed to
// the daemon per request (0 = daemon default).
func NewExecutor(client *Client, models ModelSource, numCtx, numPredict int) *Executor {
	return &Executor{client: client, models: models, numCtx: numCtx, predict: numPredict}
}

// Process runs one execution attempt. input and plan are folded into
// the prompt only when the assembler did not already include them.
func (e *Executor) Process(ctx context.Context, input, plan, promptContext string) (types.StageResult, error) {
	model, ok := e.models.CurrentModelName()
	if !ok {
		return types.StageResult{}, fmt.Errorf("no model scheduled")
	}
	prompt := promptContext
	if prompt == "" {
		prompt = input
	}
	if plan != "" && !strings.Contains(prompt, plan) {
		prompt = prompt + "\n\nPlan:\n" + plan
	}
	start := time.Now()
	out, err := e.client.Generate(ctx, model, prompt, &GenerateOptions{
		Temperature: 0.2,
		NumCtx:      e.numCtx,
		NumPredict:  e.predict,
	})
	if err != nil {
		return types.StageResult{}, err
	}
	return types.StageResult{
		Content: out,
		Metadata: map[string]any{
			"model":       model,
			"duration_ms": time.Since(start).Milliseconds(),
		},
	}, nil
}

// Verifier is the daemon-backed verification collaborator. It asks the
// current model to review an output and emit a structured verdict that
// the pipeline parses downstream.
type Verifier struct {
	client *Client
	models ModelSource
}

// NewVerifier builds a verifier sharing the executor's daemon client.
func NewVerifier(client *Client, models ModelSource) *Verifier {
	return &Verifier{client: client, models: models}
}

const verifyTemplate = `You are a strict reviewer. Evaluate whether the answer
solves the task.

Task:
%s

Answer:
%s

Reply with exactly these lines:
VERDICT: accepted | needs-rework | rejected
SCORE: <integer 0-100>
PROBLEMS: <short list, or "none">`

// Process reviews output against input. A transport failure or an
// empty review is reported with a fallback-flagged result so the
// pipeline can treat the verifier itself as degraded.
func (v *Verifier) Process(ctx context.Context, input, output string) (types.StageResult, error) {
	model, ok := v.models.CurrentModelName()
	if !ok {
		return types.StageResult{Metadata: map[string]any{"fallback": true}}, fmt.Errorf("no model scheduled")
	}
	prompt := fmt.Sprintf(verifyTemplate, input, output)
	out, err := v.client.Generate(ctx, model, prompt, &GenerateOptions{Temperature: 0})
	if err != nil {
		return types.StageResult{Metadata: map[string]any{"fallback": true}}, err
	}
	res := types.StageResult{Content: out, Metadata: map[string]any{"model": model}}
	if strings.TrimSpace(out) == "" {
		res.Metadata["fallback"] = true
	}
	return res, nil
}
