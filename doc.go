// Package deepthink coordinates a multi-stage parallel reasoning pipeline
// on top of a remote generative-inference endpoint.
//
// A run fans a single query out into several independently generated
// reasoning attempts, evaluates the candidates, and synthesizes a final
// answer. The package provides:
//
//   - A model gateway wrapping every remote call with per-call timeouts
//     and bounded retry with exponential backoff and jitter
//   - Stage agents (Planner, Researcher, Thinker, Critic, Refiner,
//     Meta-Refiner) sharing one invocation contract
//   - A fan-out/fan-in executor with a concurrency ceiling and
//     partial-failure tolerance
//   - A budget manager that may allocate additional reasoning paths after
//     the first round based on quality signals
//   - A pipeline coordinator owning the run's state machine and the
//     global timeout
//
// # Quick Start
//
// Create a pipeline and run a query:
//
//	backend := llm.NewGemini()
//	pipe, err := deepthink.NewPipeline(backend, deepthink.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	outcome, err := pipe.Run(ctx, "Why does the sum of 1/n² converge?")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(outcome.Answer)
//
// # Configuration
//
// All tunables live in Config: path count bounds, top-K selection, per-call
// and global timeouts, the quality threshold for budget expansion, and the
// concurrency ceiling. Invalid configurations are rejected before any
// remote call is made:
//
//	cfg := deepthink.DefaultConfig()
//	cfg.NPaths = 8
//	cfg.TopK = 3
//	pipe, err := deepthink.NewPipeline(backend, cfg)
//
// # Observability
//
// Attach an EventSink to receive a structured event per stage transition
// and per gateway attempt. Sinks must never block; the pipeline drops
// events rather than stall:
//
//	sink := deepthink.NewChannelSink(256)
//	pipe, err := deepthink.NewPipeline(backend, cfg, deepthink.WithEventSink(sink))
//
// # Research
//
// When the planner flags a query as needing external research, the
// pipeline consults a search.Provider if one is configured. Tool failure
// degrades to empty findings rather than failing the run:
//
//	pipe, err := deepthink.NewPipeline(backend, cfg,
//	    deepthink.WithSearchProvider(search.NewTavily(apiKey)))
//
// # Architecture
//
// The main components are:
//
//   - Gateway: the only component that talks to the remote endpoint
//   - Planner/Researcher/Thinker/Critic/Refiner/MetaRefiner: stage agents
//   - Executor: bounded concurrent fan-out returning one Candidate per task
//   - BudgetManager: at-most-once path expansion decision between rounds
//   - Pipeline: stage sequencing, state ownership, global timeout
//
// # Thread Safety
//
// A Pipeline is safe for concurrent use; every Run owns its own state and
// budget. Stage agents and the executor never mutate run-scoped state
// directly, they return values the coordinator applies.
package deepthink
