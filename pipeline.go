package deepthink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/everydev1618/godeepthink/llm"
	"github.com/everydev1618/godeepthink/search"
)

// Pipeline coordinates a full reasoning run: plan, optional research,
// fan-out thinking, critique, refinement, optional meta-refinement. Safe
// for concurrent use; each Run owns its own state and budget.
type Pipeline struct {
	cfg      Config
	gateway  *Gateway
	policy   RetryPolicy
	provider search.Provider
	sink     EventSink
	logger   *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*pipelineSettings)

type pipelineSettings struct {
	sink     EventSink
	provider search.Provider
	policy   RetryPolicy
	logger   *slog.Logger
}

// WithEventSink attaches an observer for pipeline events.
func WithEventSink(sink EventSink) PipelineOption {
	return func(s *pipelineSettings) { s.sink = sink }
}

// WithSearchProvider enables the research stage.
func WithSearchProvider(p search.Provider) PipelineOption {
	return func(s *pipelineSettings) { s.provider = p }
}

// WithRetryPolicy overrides the gateway's retry behavior.
func WithRetryPolicy(p RetryPolicy) PipelineOption {
	return func(s *pipelineSettings) { s.policy = p }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(s *pipelineSettings) { s.logger = l }
}

// NewPipeline creates a pipeline over the given backend. The config is
// validated up front; a bad config never reaches the remote endpoint.
func NewPipeline(backend llm.LLM, cfg Config, opts ...PipelineOption) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	settings := pipelineSettings{
		sink:   NopSink{},
		policy: DefaultRetryPolicy(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&settings)
	}

	return &Pipeline{
		cfg:      cfg,
		gateway:  NewGateway(backend, cfg.Model, cfg.PerCallTimeout, settings.policy, settings.sink),
		policy:   settings.policy,
		provider: settings.provider,
		sink:     settings.sink,
		logger:   settings.logger.With("component", "pipeline"),
	}, nil
}

// RunOption overrides config values for a single run.
type RunOption func(*Config)

// WithPathCount sets the first-round fan-out width for this run.
func WithPathCount(n int) RunOption {
	return func(c *Config) { c.NPaths = n }
}

// WithTopK sets how many candidates the refiner receives for this run.
func WithTopK(k int) RunOption {
	return func(c *Config) { c.TopK = k }
}

// WithGlobalTimeout sets this run's wall-clock bound.
func WithGlobalTimeout(d time.Duration) RunOption {
	return func(c *Config) { c.GlobalTimeout = d }
}

// WithMetaRefine toggles the final polish pass for this run.
func WithMetaRefine(enabled bool) RunOption {
	return func(c *Config) { c.EnableMetaRefine = enabled }
}

// meteredGateway counts one run's calls and tokens on top of the shared
// gateway.
type meteredGateway struct {
	gw           *Gateway
	calls        atomic.Int64
	inputTokens  atomic.Int64
	outputTokens atomic.Int64
}

func (m *meteredGateway) Generate(ctx context.Context, runID, prompt string, params GenParams) (*llm.Response, error) {
	resp, err := m.gw.Generate(ctx, runID, prompt, params)
	m.calls.Add(1)
	if resp != nil {
		m.inputTokens.Add(int64(resp.InputTokens))
		m.outputTokens.Add(int64(resp.OutputTokens))
	}
	return resp, err
}

// run carries one run's mutable state through the stages.
type run struct {
	id       string
	query    string
	cfg      Config
	state    State
	budget   *BudgetManager
	gw       *meteredGateway
	started  time.Time
	baseSeed int64

	plan       *Plan
	research   *ResearchFindings
	candidates []Candidate
	evals      []Evaluation
	refined    *RefinementResult
	meta       *MetaRefinementResult
	warnings   []string
}

// Run executes the full pipeline for one query. On cancellation or
// global timeout it returns the partial outcome alongside
// ErrRunCancelled; on other failures the outcome carries whatever stages
// completed before the error.
func (p *Pipeline) Run(ctx context.Context, query string, opts ...RunOption) (*RunOutcome, error) {
	cfg := p.cfg
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateQuery(query); err != nil {
		return nil, err
	}

	r := &run{
		id:       uuid.New().String()[:8],
		query:    query,
		cfg:      cfg,
		budget:   NewBudgetManager(cfg.maxPaths(), cfg.QualityThreshold),
		gw:       &meteredGateway{gw: p.gateway},
		started:  time.Now(),
		baseSeed: rand.Int63(),
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.GlobalTimeout)
	defer cancel()

	p.logger.Info("run started", "run_id", r.id, "n_paths", cfg.NPaths, "top_k", cfg.TopK)

	err := p.execute(ctx, r)
	if err != nil {
		terminal := StateFailed
		evType := EventRunFailed
		if ClassifyError(err) == ClassCancelled {
			terminal = StateCancelled
			evType = EventRunCancelled
			if !errors.Is(err, ErrRunCancelled) {
				err = fmt.Errorf("%w: %w", ErrRunCancelled, err)
			}
		}
		p.setState(r, terminal)
		p.publish(r, Event{Type: evType, Data: map[string]any{"error": err.Error()}})
		p.logger.Warn("run ended early", "run_id", r.id, "state", terminal, "error", err)
		return p.outcome(r), err
	}

	p.setState(r, StateCompleted)
	out := p.outcome(r)
	p.publish(r, Event{Type: EventRunCompleted, Data: map[string]any{
		"paths_consumed": out.Metadata.PathsConsumed,
		"elapsed_ms":     out.Metadata.Elapsed.Milliseconds(),
	}})
	p.logger.Info("run completed", "run_id", r.id,
		"paths", out.Metadata.PathsConsumed, "elapsed", out.Metadata.Elapsed)
	return out, nil
}

// execute walks the stages in order, leaving partial results on r as it
// goes.
func (p *Pipeline) execute(ctx context.Context, r *run) error {
	// Planning.
	p.setState(r, StatePlanning)
	p.stageStart(r, StagePlanner)
	plan, err := NewPlanner(r.gw, r.cfg).Plan(ctx, r.id, r.query)
	if err != nil {
		p.stageFail(r, StagePlanner, err)
		return err
	}
	r.plan = plan
	p.stageDone(r, StagePlanner)

	// Research, only when the plan asks for it.
	if plan.NeedsResearch {
		p.setState(r, StateResearching)
		p.stageStart(r, StageResearcher)
		r.research = NewResearcher(r.gw, p.provider, r.cfg).Research(ctx, r.id, plan)
		p.stageDone(r, StageResearcher)
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrRunCancelled, err)
		}
	}

	// First thinking round.
	p.setState(r, StateThinking)
	p.stageStart(r, StageThinker)
	firstRound := plan.PathCount
	if err := r.budget.Charge(firstRound); err != nil {
		p.stageFail(r, StageThinker, err)
		return NewStageError(StageThinker, r.id, err)
	}

	thinker := NewThinker(r.gw, r.cfg)
	exec := NewExecutor(r.cfg.MaxConcurrency)
	taskBudget := p.taskTimeout(&r.cfg)
	think := func(ctx context.Context, pathIndex int, seed int64) (*Candidate, error) {
		return thinker.Think(ctx, r.id, r.query, plan, r.research, pathIndex, firstRound, seed)
	}
	r.candidates = exec.RunRound(ctx, r.id, 0, firstRound, r.baseSeed, taskBudget, think)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRunCancelled, err)
	}
	if CountSucceeded(r.candidates) == 0 {
		err := NewStageError(StageThinker, r.id, ErrInsufficientCandidates)
		p.stageFail(r, StageThinker, err)
		return err
	}
	p.stageDone(r, StageThinker)

	// Budget decision on first-round self-assessed quality.
	decision := r.budget.Decide(firstRound, selfAssessedScores(r.candidates))
	p.publish(r, Event{Type: EventBudgetDecision, Data: map[string]any{
		"expand":      decision.Expand,
		"extra_paths": decision.ExtraPaths,
		"mean_score":  decision.MeanScore,
		"reason":      decision.Reason,
	}})

	if decision.Expand {
		if err := r.budget.Apply(decision); err != nil {
			// Lost a race we cannot lose with a per-run budget; treat
			// as no expansion.
			p.logger.Warn("budget apply failed", "run_id", r.id, "error", err)
		} else {
			p.setState(r, StateThinkingExpanded)
			p.stageStart(r, StageThinker)
			total := len(r.candidates) + decision.ExtraPaths
			thinkMore := func(ctx context.Context, pathIndex int, seed int64) (*Candidate, error) {
				return thinker.Think(ctx, r.id, r.query, plan, r.research, pathIndex, total, seed)
			}
			extra := exec.RunRound(ctx, r.id, len(r.candidates), decision.ExtraPaths, r.baseSeed, taskBudget, thinkMore)
			r.candidates = append(r.candidates, extra...)
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: %w", ErrRunCancelled, err)
			}
			p.stageDone(r, StageThinker)
		}
	}

	// Critique over every successful candidate from both rounds.
	p.setState(r, StateCritiquing)
	p.stageStart(r, StageCritic)
	evals, err := NewCritic(r.gw, r.cfg).Evaluate(ctx, r.id, r.query, plan, r.candidates)
	if err != nil {
		p.stageFail(r, StageCritic, err)
		return err
	}
	r.evals = evals
	p.stageDone(r, StageCritic)

	// Refinement of the top K.
	p.setState(r, StateRefining)
	p.stageStart(r, StageRefiner)
	k := r.cfg.TopK
	if k > len(evals) {
		k = len(evals)
	}
	refined, err := NewRefiner(r.gw, r.cfg).Refine(ctx, r.id, r.query, r.candidates, evals[:k])
	if err != nil {
		p.stageFail(r, StageRefiner, err)
		return err
	}
	r.refined = refined
	p.stageDone(r, StageRefiner)

	// Optional polish. Failure degrades, never fails.
	if r.cfg.EnableMetaRefine {
		p.setState(r, StateMetaRefining)
		p.stageStart(r, StageMetaRefiner)
		meta, err := NewMetaRefiner(r.gw, r.cfg).Refine(ctx, r.id, r.query, refined.Answer)
		if err != nil {
			if ClassifyError(err) == ClassCancelled {
				return err
			}
			p.stageFail(r, StageMetaRefiner, err)
			r.warnings = append(r.warnings,
				fmt.Sprintf("meta-refinement failed, returning refined answer: %v", err))
			p.logger.Warn("meta-refinement degraded", "run_id", r.id, "error", err)
		} else {
			r.meta = meta
			p.stageDone(r, StageMetaRefiner)
		}
	}

	return nil
}

// taskTimeout bounds one reasoning path's total wall time: worst-case
// gateway attempts at the per-call timeout plus backoff between them,
// doubled to cover the corrective reparse call. A thinker that stalls
// outside its gateway calls still gets finalized within this budget.
func (p *Pipeline) taskTimeout(cfg *Config) time.Duration {
	if cfg.PerCallTimeout <= 0 {
		return 0
	}
	attempts := p.policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	budget := time.Duration(attempts) * cfg.PerCallTimeout
	for a := 1; a < attempts; a++ {
		budget += p.policy.Delay(a)
	}
	return 2 * budget
}

// Ping issues a single untried backend call, for health probes.
func (p *Pipeline) Ping(ctx context.Context) error {
	return p.gateway.Ping(ctx)
}

// selfAssessedScores maps thinker confidence onto the critic's 0-10
// scale as a cheap first-round quality signal, so the expensive critique
// runs exactly once over the final candidate set.
func selfAssessedScores(candidates []Candidate) []float64 {
	var scores []float64
	for _, c := range candidates {
		if c.Status != CandidateSucceeded {
			continue
		}
		switch c.Confidence {
		case "high":
			scores = append(scores, 8)
		case "low":
			scores = append(scores, 3)
		default:
			scores = append(scores, 6)
		}
	}
	return scores
}

func (p *Pipeline) outcome(r *run) *RunOutcome {
	now := time.Now()
	budget := r.budget.State()

	answer := ""
	if r.refined != nil {
		answer = r.refined.Answer
	}
	if r.meta != nil {
		answer = r.meta.Answer
	}

	return &RunOutcome{
		Answer:      answer,
		Plan:        r.plan,
		Research:    r.research,
		Candidates:  r.candidates,
		Evaluations: r.evals,
		Refinement:  r.refined,
		MetaRefine:  r.meta,
		Warnings:    r.warnings,
		Metadata: RunMetadata{
			RunID:          r.id,
			Query:          r.query,
			State:          r.state,
			PathsRequested: r.cfg.NPaths,
			PathsConsumed:  budget.Consumed,
			BudgetExpanded: budget.Expanded,
			InputTokens:    int(r.gw.inputTokens.Load()),
			OutputTokens:   int(r.gw.outputTokens.Load()),
			GatewayCalls:   int(r.gw.calls.Load()),
			Elapsed:        now.Sub(r.started),
			StartedAt:      r.started,
			FinishedAt:     now,
		},
	}
}

func (p *Pipeline) setState(r *run, s State) {
	r.state = s
	p.publish(r, Event{Type: EventStateChanged, State: s})
}

func (p *Pipeline) stageStart(r *run, stage Stage) {
	p.publish(r, Event{Type: EventStageStarted, Stage: stage})
}

func (p *Pipeline) stageDone(r *run, stage Stage) {
	p.publish(r, Event{Type: EventStageCompleted, Stage: stage})
}

func (p *Pipeline) stageFail(r *run, stage Stage, err error) {
	p.publish(r, Event{Type: EventStageFailed, Stage: stage, Data: map[string]any{"error": err.Error()}})
}

func (p *Pipeline) publish(r *run, ev Event) {
	ev.RunID = r.id
	if ev.State == "" {
		ev.State = r.state
	}
	ev.Timestamp = time.Now()
	p.sink.Publish(ev)
}
