package deepthink

import (
	"fmt"
	"strings"
)

// Prompt templates for the stage agents. Each instructs the model to
// reply with a single JSON object matching the stage's result type.

const plannerPromptTmpl = `You are a reasoning strategist. Analyze the following query and produce a plan for solving it with multiple independent reasoning attempts.

Query:
%s

Respond with a single JSON object, no markdown fences, with exactly these fields:
{
  "task": "one-sentence restatement of what must be solved",
  "reasoning_type": "mathematical | analytical | creative | factual | philosophical",
  "key_aspects": ["aspect the answer must address", "..."],
  "complexity_level": "low | medium | high",
  "success_criteria": ["what a strong answer looks like", "..."],
  "needs_research": true or false (true only if current external facts are required),
  "research_queries": ["search query", "..."] (empty if needs_research is false),
  "path_count": integer between %d and %d, how many independent attempts this deserves
}`

const thinkerPromptTmpl = `You are reasoning path %d of %d, working independently on this task. Take a distinct approach from what other paths might try. Think deeply and commit to an answer.

Task: %s
Reasoning type: %s
Key aspects: %s
%s
Original query:
%s

Respond with a single JSON object, no markdown fences, with exactly these fields:
{
  "approach": "one sentence naming your angle of attack",
  "thoughts": "your full reasoning, step by step",
  "answer": "your complete final answer",
  "confidence": "high | medium | low",
  "potential_issues": ["weakness you see in your own answer", "..."]
}`

const criticPromptTmpl = `You are a rigorous evaluator. Score each candidate answer below against the rubric. Be strict and discriminating; do not give identical scores to different answers.

Original query:
%s

Success criteria: %s

Candidates:
%s

Score every candidate on five dimensions, each 0-10:
- correctness: is the reasoning sound and the answer right
- completeness: does it cover the key aspects
- originality: does it bring real insight rather than boilerplate
- evidence: is the reasoning supported, not asserted
- clarity: is it well organized and readable

Respond with a single JSON object, no markdown fences:
{
  "evaluations": [
    {
      "path_index": <index from the candidate header>,
      "scores": {"correctness": 0-10, "completeness": 0-10, "originality": 0-10, "evidence": 0-10, "clarity": 0-10},
      "strengths": ["...", "..."],
      "weaknesses": ["...", "..."]
    }
  ]
}
Include one evaluation per candidate, in any order.`

const refinerPromptTmpl = `You are a synthesis expert. Merge the strongest candidate answers below into one answer better than any of them. Fix the weaknesses the evaluator found; keep the strengths.

Original query:
%s

Top candidates with their evaluations:
%s

Respond with a single JSON object, no markdown fences, with exactly these fields:
{
  "answer": "the complete synthesized answer",
  "confidence": "high | medium | low",
  "synthesis_approach": "one sentence on how you combined them",
  "improvements_made": ["fix applied", "..."]
}`

const metaRefinerPromptTmpl = `You are a master editor making a final pass over an already-good answer. Raise its elegance and depth without changing what it claims. Cut redundancy, sharpen the structure, surface the deepest insight.

Original query:
%s

Current answer:
%s

Respond with a single JSON object, no markdown fences, with exactly these fields:
{
  "answer": "the polished final answer",
  "synthesis_type": "one word for the editorial move you made",
  "elegance_score": 0-10,
  "intellectual_depth": "one sentence on the depth achieved",
  "key_insights": ["core insight the answer rests on", "..."]
}`

const researchSummaryPromptTmpl = `Summarize the search results below into the facts most useful for answering the query. Keep it under 300 words, cite nothing, just state the facts.

Query:
%s

Results:
%s

Respond with plain text, no JSON.`

// correctiveSuffixFmt is appended when a stage reply fails to parse and
// the call is retried once. The verb carries the parse failure so the
// model sees what to fix.
const correctiveSuffixFmt = "\n\nYour previous reply was not valid JSON matching the requested schema (%v). Respond again with only the JSON object, no prose, no markdown fences."

// formatCandidatesForCritic renders successful candidates for the critic
// prompt, keyed by their stable path index.
func formatCandidatesForCritic(candidates []Candidate) string {
	var b strings.Builder
	for _, c := range candidates {
		if c.Status != CandidateSucceeded {
			continue
		}
		fmt.Fprintf(&b, "--- Candidate %d (approach: %s, self-reported confidence: %s) ---\n%s\n\n",
			c.PathIndex, c.Approach, c.Confidence, c.Answer)
	}
	return b.String()
}

// formatTopForRefiner renders the top-ranked candidates with their
// evaluations for the refiner prompt.
func formatTopForRefiner(candidates []Candidate, evals []Evaluation) string {
	byIndex := make(map[int]Candidate, len(candidates))
	for _, c := range candidates {
		byIndex[c.PathIndex] = c
	}
	var b strings.Builder
	for _, ev := range evals {
		c := byIndex[ev.PathIndex]
		fmt.Fprintf(&b, "--- Candidate %d (rank %d, score %.1f) ---\n", ev.PathIndex, ev.Rank, ev.Total)
		fmt.Fprintf(&b, "Answer:\n%s\n", c.Answer)
		if len(ev.Strengths) > 0 {
			fmt.Fprintf(&b, "Strengths: %s\n", strings.Join(ev.Strengths, "; "))
		}
		if len(ev.Weaknesses) > 0 {
			fmt.Fprintf(&b, "Weaknesses: %s\n", strings.Join(ev.Weaknesses, "; "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// formatFindings renders research findings for the thinker prompt.
// Returns "" when there is nothing to include.
func formatFindings(research *ResearchFindings) string {
	if research == nil || (research.Summary == "" && len(research.Findings) == 0) {
		return ""
	}
	var b strings.Builder
	b.WriteString("Research findings:\n")
	if research.Summary != "" {
		b.WriteString(research.Summary)
		b.WriteString("\n")
	}
	for _, f := range research.Findings {
		fmt.Fprintf(&b, "- [%s] %s\n", f.Query, f.Content)
	}
	return b.String()
}
