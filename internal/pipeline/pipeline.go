// Package pipeline is the per-request state machine: analyze, plan,
// execute, verify, with bounded retries that escalate from local model
// keys to remote ones when quality or availability fails.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"orchd/internal/assembler"
	"orchd/pkg/types"
)

// State names one node of the per-request machine. Exposed for
// logging; transitions are internal to Run.
type State string

const (
	StateAnalyzing State = "analyzing"
	StatePlanning  State = "planning"
	StateExecuting State = "executing"
	StateVerifying State = "verifying"
	StateAccepted  State = "accepted"
	StateRetrying  State = "retrying"
	StateExhausted State = "exhausted"
)

// apologyMessage is returned when every attempt produced empty output.
const apologyMessage = "Sorry, I could not produce a useful answer for this request. Please rephrase or try again later."

// verifierDownProblems is the fixed problems text recorded when the
// verifier itself was degraded.
const verifierDownProblems = "verification failed, retry with a different model"

// Config tunes the retry/escalation machine. Zero fields fall back to
// the documented defaults.
type Config struct {
	MaxAttempts          int
	EscalateAfterAttempt int
	EscalateComplexity   int
	AcceptScore          int
	MaxTokens            int
	// CloudMaxTokens is the larger budget used once an attempt runs on
	// a remote key; 0 means 4x MaxTokens.
	CloudMaxTokens int
	CallTimeout    time.Duration
	LessonLimit    int
}

func (c *Config) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.EscalateAfterAttempt <= 0 {
		c.EscalateAfterAttempt = 1
	}
	if c.EscalateComplexity <= 0 {
		c.EscalateComplexity = 7
	}
	if c.AcceptScore <= 0 {
		c.AcceptScore = 70
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 8192
	}
	if c.CloudMaxTokens <= 0 {
		c.CloudMaxTokens = 4 * c.MaxTokens
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 120 * time.Second
	}
	if c.LessonLimit <= 0 {
		c.LessonLimit = 5
	}
}

// Request is one unit of work entering the pipeline.
type Request struct {
	Input        string
	CurrentFile  string
	CurrentCode  string
	History      []assembler.Turn
	RelatedFiles []string
	ToolResults  []assembler.ToolResult
	SystemPrompt string
}

// Result is what the caller always gets back: the best available
// content plus its quality metadata, never a raw internal error.
type Result struct {
	Content  string
	State    State
	Verdict  Verdict
	Score    int
	Problems string
	Attempts int
	ModelKey types.ModelKey
	Profile  types.TaskProfile
}

// Pipeline wires the collaborators together. Construct one per
// process and share it; each Run is an independent request flow.
type Pipeline struct {
	sched      Scheduler
	asm        *assembler.Assembler
	classifier Classifier
	memory     MemoryStore
	executor   Executor
	verifier   Verifier
	cfg        Config
	log        zerolog.Logger
}

// New builds a pipeline. classifier and memory may be nil; the
// keyword classifier and the empty memory store stand in.
func New(sched Scheduler, asm *assembler.Assembler, classifier Classifier, memory MemoryStore, executor Executor, verifier Verifier, cfg Config, log zerolog.Logger) *Pipeline {
	cfg.applyDefaults()
	if classifier == nil {
		classifier = KeywordClassifier{}
	}
	if memory == nil {
		memory = NoopMemory{}
	}
	return &Pipeline{
		sched:      sched,
		asm:        asm,
		classifier: classifier,
		memory:     memory,
		executor:   executor,
		verifier:   verifier,
		cfg:        cfg,
		log:        log,
	}
}

// localKeyFor maps a task type to its local model key.
func localKeyFor(taskType string) types.ModelKey {
	switch taskType {
	case "code":
		return types.KeyCode
	case "chat", "personality":
		return types.KeyPersonality
	default:
		return types.KeyReason
	}
}

// remoteKeyFor maps a task type to its escalation target.
func remoteKeyFor(taskType string) types.ModelKey {
	switch taskType {
	case "code":
		return types.KeyCloudCode
	case "vision":
		return types.KeyCloudVision
	default:
		return types.KeyCloudUniversal
	}
}

// Run drives one request through the machine. The returned error is
// non-nil only for caller-side cancellation; every model-side failure
// is absorbed into the Result.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	// Analyzing.
	profile, err := p.classifier.Classify(ctx, req.Input)
	if err != nil {
		p.log.Warn().Err(err).Msg("classification failed, using defaults")
		profile = types.TaskProfile{Type: "general", Complexity: 5}
	}

	lessons, err := p.memory.RecentLessons(ctx, profile.Type, p.cfg.LessonLimit)
	if err != nil {
		p.log.Debug().Err(err).Msg("lesson lookup failed")
	}

	// Planning: pick the starting key and sketch the plan the executor
	// sees alongside the prompt.
	key := localKeyFor(profile.Type)
	plan := p.composePlan(profile, lessons)

	systemPrompt := req.SystemPrompt
	if len(lessons) > 0 {
		systemPrompt = strings.TrimSpace(systemPrompt + "\n\nLessons from similar tasks:\n- " + strings.Join(lessons, "\n- "))
	}

	res := Result{State: StateRetrying, Verdict: VerdictUnknown, Score: fallbackScore, Profile: profile}
	forceEscalate := false
	sawContent := false

	for attempt := 0; attempt < p.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Attempts = attempt + 1

		// Escalation decision on entering Executing. The first attempt
		// stays local unless a degraded verifier already forced remote.
		escalate := forceEscalate
		if attempt > 0 {
			escalate = escalate || attempt >= p.cfg.EscalateAfterAttempt || profile.Complexity >= p.cfg.EscalateComplexity
		}

		target := key
		if escalate {
			target = remoteKeyFor(profile.Type)
		}
		remote := false
		if cur, err := p.sched.SwitchTo(ctx, target); err != nil {
			// Degrade to whatever is current rather than aborting.
			p.log.Warn().Err(err).Str("target", string(target)).Msg("switch failed, keeping previous model")
			res.ModelKey = cur
		} else {
			res.ModelKey = cur
			remote = target != key && escalate
			if escalate {
				escalationsTotal.Inc()
			}
		}
		forceEscalate = false

		budget := p.cfg.MaxTokens
		if remote {
			budget = p.cfg.CloudMaxTokens
		}
		window := p.asm.Build(assembler.BuildRequest{
			Query:        req.Input,
			CurrentFile:  req.CurrentFile,
			CurrentCode:  req.CurrentCode,
			History:      req.History,
			RelatedFiles: req.RelatedFiles,
			ToolResults:  req.ToolResults,
			SystemPrompt: systemPrompt,
			MaxTokens:    budget,
		})
		prompt := window.BuildPrompt()

		// Executing.
		execCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
		out, execErr := p.executor.Process(execCtx, req.Input, plan, prompt)
		cancel()
		if execErr != nil || strings.TrimSpace(out.Content) == "" {
			// Timeout and empty output are the same failure; no
			// verification for nothing.
			outcome := "empty"
			if execErr != nil {
				outcome = "error"
			}
			attemptsTotal.WithLabelValues(outcome).Inc()
			p.log.Warn().Err(execErr).Int("attempt", attempt).Msg("execution produced no output")
			continue
		}
		attemptsTotal.WithLabelValues("ok").Inc()
		sawContent = true
		res.Content = out.Content

		// Verifying.
		verifyCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
		review, verr := p.verifier.Process(verifyCtx, req.Input, out.Content)
		cancel()
		if verr != nil || degradedReview(review) {
			// A broken verifier is itself grounds for escalation on the
			// next attempt, independent of the thresholds.
			p.log.Warn().Err(verr).Int("attempt", attempt).Msg("verification degraded, forcing escalation")
			res.State = StateRetrying
			res.Verdict = VerdictUnknown
			res.Score = fallbackScore
			res.Problems = verifierDownProblems
			forceEscalate = true
			continue
		}

		parsed := ParseReview(review.Content)
		res.Verdict = parsed.Verdict
		res.Score = parsed.Score
		res.Problems = parsed.Problems
		if parsed.Score >= p.cfg.AcceptScore {
			res.State = StateAccepted
			requestsTotal.WithLabelValues(string(StateAccepted)).Inc()
			return res, nil
		}
		res.State = StateRetrying
		p.log.Info().Int("attempt", attempt).Int("score", parsed.Score).Str("verdict", string(parsed.Verdict)).Msg("output not accepted, retrying")
	}

	// Retry budget exhausted. Best effort: the last produced content
	// goes back with its metadata; all-empty runs get the apology.
	res.State = StateExhausted
	if !sawContent {
		res.Content = apologyMessage
		res.Problems = "all attempts returned empty output"
	}
	requestsTotal.WithLabelValues(string(StateExhausted)).Inc()
	return res, nil
}

func (p *Pipeline) composePlan(profile types.TaskProfile, lessons []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task type: %s (complexity %d/10).", profile.Type, profile.Complexity)
	if profile.Subject != "" {
		fmt.Fprintf(&b, " Subject: %s.", profile.Subject)
	}
	b.WriteString(" Steps: understand the request, produce a complete answer, double-check it against the request before finishing.")
	if len(lessons) > 0 {
		fmt.Fprintf(&b, " Apply %d prior lessons.", len(lessons))
	}
	return b.String()
}

// degradedReview reports a verification result that cannot be trusted:
// empty content or an explicit fallback flag from the collaborator.
func degradedReview(r types.StageResult) bool {
	if strings.TrimSpace(r.Content) == "" {
		return true
	}
	fb, _ := r.Metadata["fallback"].(bool)
	return fb
}
