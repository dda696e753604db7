package council

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dusk-indust/council/internal/catalog"
	"github.com/dusk-indust/council/internal/events"
	"github.com/dusk-indust/council/internal/extract"
	"github.com/dusk-indust/council/internal/metrics"
	"github.com/dusk-indust/council/internal/openrouter"
)

// ErrCycleInFlight is returned when a second message arrives for a
// conversation whose previous cycle has not reached a terminal state. The
// design assumes at most one active cycle per conversation; arbitrating
// concurrent cycles is the caller's problem, not the sequencer's.
var ErrCycleInFlight = errors.New("council: a pipeline cycle is already in flight for this conversation")

// Documented fallbacks substituted when a non-fatal stage call fails. Only
// the final synthesis is allowed to abort the chain.
const (
	fallbackIntentDraft  = "Analyzing query requirements..."
	fallbackContribution = "Expert contribution unavailable."
	fallbackVerification = "Verification unavailable."
	fallbackPlanning     = "Planning unavailable."
	fallbackEditorial    = "Editorial guidelines unavailable."
	defaultTitle         = "New Conversation"
)

// Sequencer drives the fixed stage chain. It is the sole writer to a
// conversation during a cycle: every stage boundary is committed to the
// store before its completion event is emitted, so an observed event always
// implies persisted state.
type Sequencer struct {
	store Store
	llm   openrouter.Client
	cat   *catalog.Catalog
	met   *metrics.Metrics
	log   *slog.Logger
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sequencer) { s.log = l }
}

// WithMetrics wires stage-duration instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sequencer) { s.met = m }
}

// NewSequencer creates a Sequencer over the given store, gateway, and catalog.
func NewSequencer(store Store, llm openrouter.Client, cat *catalog.Catalog, opts ...Option) *Sequencer {
	s := &Sequencer{
		store: store,
		llm:   llm,
		cat:   cat,
		met:   metrics.Nop(),
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ---------------------------------------------------------------------------
// Draft phase
// ---------------------------------------------------------------------------

// Begin runs the draft phase for a new user message: intent draft plus
// clarification-question generation. It commits an assistant message in
// clarification_pending state and terminates the event stream at the
// clarification checkpoint. The execution phase only runs when the client
// explicitly calls Resume.
func (s *Sequencer) Begin(ctx context.Context, conversationID, query string, sel ModelSelection, bridge *events.Bridge) error {
	defer bridge.Close()

	if err := s.cat.ValidateSelection(sel.ChairmanModel, sel.ExpertModels); err != nil {
		return s.fail(bridge, err)
	}
	// Reject mismatched reasoning configuration up front rather than
	// mid-pipeline.
	for model, cfg := range sel.ThinkingByModel {
		if _, err := openrouter.BuildReasoning(s.cat, model, &cfg); err != nil {
			return s.fail(bridge, err)
		}
	}

	conv, err := s.store.Get(conversationID)
	if err != nil {
		return s.fail(bridge, err)
	}
	if inFlight(conv) {
		return s.fail(bridge, ErrCycleInFlight)
	}
	baseline := conv.LastCompleteArtifact()

	if err := s.store.AppendUserMessage(conversationID, query); err != nil {
		return s.fail(bridge, fmt.Errorf("council: persist user message: %w", err))
	}

	bridge.Emit(events.Event{Type: events.TypeDraftStart})
	started := time.Now()

	draft := s.callText(ctx, s.cat.UtilityModel, intentDraftPrompt(query, baseline), nil, fallbackIntentDraft)
	questions := s.generateQuestions(ctx, query, draft)

	now := time.Now().UTC()
	msg := Message{
		Status:         StatusClarificationPending,
		ModelSelection: &sel,
		IntentDraft:    draft,
		Questions:      questions,
		Stages: []StageResult{
			{Stage: StageIntentDraft, Status: StageComplete, Models: []string{s.cat.UtilityModel}, CompletedAt: now, Analysis: draft},
			{Stage: StageClarification, Status: StageComplete, Models: []string{s.cat.UtilityModel}, CompletedAt: now, Questions: questions},
		},
	}
	if err := s.store.AppendAssistantMessage(conversationID, msg); err != nil {
		return s.fail(bridge, fmt.Errorf("council: persist draft checkpoint: %w", err))
	}
	s.met.StageDuration.WithLabelValues(string(StageIntentDraft)).Observe(time.Since(started).Seconds())

	bridge.Emit(events.Event{Type: events.TypeDraftComplete, Data: map[string]any{
		"intent_draft": draft,
		"questions":    questions,
	}})
	bridge.Emit(events.Event{Type: events.TypeClarificationRequired, Data: map[string]any{
		"questions": questions,
	}})
	return nil
}

// generateQuestions asks for clarification questions as JSON. Extraction
// failure yields zero questions, which is a valid checkpoint (the client can
// only skip).
func (s *Sequencer) generateQuestions(ctx context.Context, query, draft string) []Question {
	resp, err := s.llm.CallOne(ctx, openrouter.Call{
		Model:    s.cat.UtilityModel,
		Messages: []openrouter.Message{{Role: openrouter.RoleUser, Content: clarificationPrompt(query, draft)}},
	})
	if err != nil {
		s.log.Warn("clarification question generation failed", "error", err)
		return nil
	}
	var parsed struct {
		Questions []Question `json:"questions"`
	}
	if !extract.JSONInto(resp.Content, &parsed) {
		return nil
	}
	for i := range parsed.Questions {
		if parsed.Questions[i].ID == "" {
			parsed.Questions[i].ID = fmt.Sprintf("q%d", i+1)
		}
	}
	return parsed.Questions
}

// ---------------------------------------------------------------------------
// Execution phase
// ---------------------------------------------------------------------------

// Resume continues a conversation paused at the clarification checkpoint and
// runs the execution phase to completion or error. The draft phase is never
// re-run. answers may record a skip; the committed stage sequence is
// structurally identical either way.
//
// A cycle left in clarification_submitted by a crash mid-execution re-enters
// here with its originally recorded answers; stage commits are upserts, so
// re-running an already-committed stage is harmless.
func (s *Sequencer) Resume(ctx context.Context, conversationID string, answers ClarificationAnswers, bridge *events.Bridge) error {
	defer bridge.Close()

	conv, err := s.store.Get(conversationID)
	if err != nil {
		return s.fail(bridge, err)
	}
	cycle, err := pendingCycle(conv)
	if err != nil {
		return s.fail(bridge, err)
	}

	// Record the clarification answers and transition the status lattice.
	// On re-entry the recorded answers win over the caller's payload.
	err = s.store.UpdatePendingAssistant(conversationID, func(m *Message) error {
		switch m.Status {
		case StatusClarificationPending:
			m.Status = StatusClarificationSubmitted
			m.Answers = &answers
		case StatusClarificationSubmitted:
			if m.Answers != nil {
				answers = *m.Answers
			}
		default:
			return ErrNoPendingMessage
		}
		return nil
	})
	if err != nil {
		return s.fail(bridge, err)
	}

	sel := *cycle.selection

	// Brief (stage0 on the wire): refine the draft with the answers.
	bridge.Emit(events.Event{Type: events.TypeStage0Start})
	brief, err := s.runBrief(ctx, conversationID, cycle, answers)
	if err != nil {
		return s.fatal(bridge, conversationID, err)
	}
	bridge.Emit(events.Event{Type: events.TypeStage0Complete, Data: map[string]any{"analysis": brief}})

	// Brainstorm: parallel proposals, chairman synthesis.
	bridge.Emit(events.Event{Type: events.TypeBrainstormStart})
	brainstorm, err := s.runBrainstorm(ctx, conversationID, cycle.query, brief, sel)
	if err != nil {
		return s.fatal(bridge, conversationID, err)
	}
	bridge.Emit(events.Event{Type: events.TypeBrainstormComplete, Data: map[string]any{
		"brainstorm_content": brainstorm.Display,
		"experts":            brainstorm.Experts,
	}})

	// Sequential contributions: order is a semantic dependency, never
	// parallelized.
	bridge.Emit(events.Event{Type: events.TypeContributionsStart})
	contributions, err := s.runContributions(ctx, conversationID, cycle.query, brief, brainstorm.Experts, sel, bridge)
	if err != nil {
		return s.fatal(bridge, conversationID, err)
	}
	bridge.Emit(events.Event{Type: events.TypeContributionsComplete, Data: map[string]any{
		"num_experts": len(contributions),
	}})

	// Verification: evidence fan-out plus report.
	bridge.Emit(events.Event{Type: events.TypeVerificationStart})
	verification, err := s.runVerification(ctx, conversationID, cycle.query, contributions)
	if err != nil {
		return s.fatal(bridge, conversationID, err)
	}
	bridge.Emit(events.Event{Type: events.TypeVerificationComplete, Data: verification})

	// Synthesis planning.
	bridge.Emit(events.Event{Type: events.TypePlanningStart})
	plan, err := s.runMarkdownStage(ctx, conversationID, StagePlanning,
		planningPrompt(cycle.query, brief, contributions, verification), fallbackPlanning)
	if err != nil {
		return s.fatal(bridge, conversationID, err)
	}
	bridge.Emit(events.Event{Type: events.TypePlanningComplete, Data: plan})

	// Editorial guidelines.
	bridge.Emit(events.Event{Type: events.TypeEditorialStart})
	editorial, err := s.runMarkdownStage(ctx, conversationID, StageEditorial,
		editorialPrompt(cycle.query, brief, plan), fallbackEditorial)
	if err != nil {
		return s.fatal(bridge, conversationID, err)
	}
	bridge.Emit(events.Event{Type: events.TypeEditorialComplete, Data: editorial})

	// Final synthesis: the one required fan-in. Failure here is fatal.
	bridge.Emit(events.Event{Type: events.TypeFinalStart})
	final, err := s.runFinal(ctx, conversationID, cycle.query, brief, contributions, verification, plan, editorial, sel)
	if err != nil {
		return s.fatal(bridge, conversationID, err)
	}
	bridge.Emit(events.Event{Type: events.TypeFinalComplete, Data: final})

	s.updateTitle(ctx, conversationID, conv.Title, cycle.query, bridge)

	bridge.Emit(events.Event{Type: events.TypeComplete})
	return nil
}

// cycleState is the working copy of the paused cycle reconstructed from the
// store at Resume time.
type cycleState struct {
	query     string
	baseline  string
	selection *ModelSelection
	draft     string
	questions []Question
}

// pendingCycle locates the checkpoint message and its originating user query.
// Both pre-resume (pending) and interrupted (submitted) cycles qualify.
func pendingCycle(conv *Conversation) (*cycleState, error) {
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		m := &conv.Messages[i]
		if m.Role != RoleAssistant {
			continue
		}
		if m.Status != StatusClarificationPending && m.Status != StatusClarificationSubmitted {
			continue
		}
		cycle := &cycleState{
			selection: m.ModelSelection,
			draft:     m.IntentDraft,
			questions: m.Questions,
		}
		for j := i - 1; j >= 0; j-- {
			if conv.Messages[j].Role == RoleUser {
				cycle.query = conv.Messages[j].Content
				break
			}
		}
		// Baseline context comes from turns before this cycle.
		prior := Conversation{Messages: conv.Messages[:i]}
		cycle.baseline = prior.LastCompleteArtifact()
		if cycle.selection == nil {
			return nil, errors.New("council: checkpoint message is missing its model selection")
		}
		return cycle, nil
	}
	return nil, ErrNoPendingMessage
}

func (s *Sequencer) runBrief(ctx context.Context, conversationID string, cycle *cycleState, answers ClarificationAnswers) (string, error) {
	defer s.observe(StageBrief)()
	prompt := briefPrompt(cycle.query, cycle.draft, formatAnswers(cycle.questions, answers), cycle.baseline)
	// A failed brief call falls back to the draft itself: weaker context,
	// not a dead pipeline.
	brief := s.callText(ctx, s.cat.UtilityModel, prompt, nil, cycle.draft)
	err := s.commitStage(conversationID, StageResult{
		Stage:    StageBrief,
		Models:   []string{s.cat.UtilityModel},
		Analysis: brief,
	})
	return brief, err
}

func (s *Sequencer) runBrainstorm(ctx context.Context, conversationID, query, brief string, sel ModelSelection) (*BrainstormResult, error) {
	defer s.observe(StageBrainstorm)()

	pool := distinct(sel.ExpertModels)
	calls := make([]openrouter.Call, len(pool))
	for i, model := range pool {
		calls[i] = openrouter.Call{
			Model:     model,
			Messages:  []openrouter.Message{{Role: openrouter.RoleUser, Content: brainstormPrompt(query, brief)}},
			Reasoning: sel.Reasoning(model),
		}
	}
	results := s.llm.CallMany(ctx, calls)

	var sections, suggestions []string
	for i, res := range results {
		short := shortModel(pool[i])
		if res.Err != nil {
			s.log.Warn("brainstorm proposal failed", "model", pool[i], "error", res.Err)
			sections = append(sections, fmt.Sprintf("### 🤖 %s\n*Failed to respond*\n", short))
			continue
		}
		sections = append(sections, fmt.Sprintf("### 🤖 %s\n%s\n", short, res.Response.Content))
		suggestions = append(suggestions, fmt.Sprintf("=== Suggestions from %s ===\n%s", short, res.Response.Content))
	}
	display := "## Expert Brainstorm Results\n\n" + strings.Join(sections, "\n---\n\n")

	// The chairman synthesizes the team; a failed or unparseable synthesis
	// degrades to the documented fallback roster, never to a failed stage.
	var experts []Expert
	var rationale string
	resp, err := s.llm.CallOne(ctx, openrouter.Call{
		Model:     sel.ChairmanModel,
		Messages:  []openrouter.Message{{Role: openrouter.RoleUser, Content: teamSynthesisPrompt(query, brief, strings.Join(suggestions, "\n"), catalog.NumExperts)}},
		Reasoning: sel.Reasoning(sel.ChairmanModel),
	})
	if err != nil {
		s.log.Warn("team synthesis failed, using fallback roster", "error", err)
		experts = fallbackExperts()
	} else {
		var ok bool
		experts, rationale, ok = parseExpertTeam(resp.Content)
		if !ok {
			s.log.Warn("team synthesis produced no extractable team, using fallback roster")
		}
	}
	if rationale != "" {
		display += fmt.Sprintf("\n\n---\n\n## 👔 Chairman's Team Selection\n\n%s", rationale)
	}

	brainstorm := &BrainstormResult{Display: display, Rationale: rationale, Experts: experts}
	err = s.commitStage(conversationID, StageResult{
		Stage:      StageBrainstorm,
		Models:     append(append([]string{}, pool...), sel.ChairmanModel),
		Brainstorm: brainstorm,
	})
	return brainstorm, err
}

// runContributions executes the sequential chain: expert K's prompt includes
// the literal text of contributions 1..K-1 and nothing later. Each expert's
// result is committed before its completion event fires, so the persisted
// prefix is always a valid history.
func (s *Sequencer) runContributions(ctx context.Context, conversationID, query, brief string, experts []Expert, sel ModelSelection, bridge *events.Bridge) ([]Contribution, error) {
	defer s.observe(StageContributions)()

	var contributions []Contribution
	models := make([]string, 0, len(experts))

	for _, expert := range experts {
		model, err := catalog.ModelForSlot(sel.ExpertModels, expert.Order)
		if err != nil {
			return nil, fmt.Errorf("council: assign model for expert %d: %w", expert.Order, err)
		}
		models = append(models, model)

		bridge.Emit(events.Event{Type: events.TypeExpertStart, Data: map[string]any{
			"order":  expert.Order,
			"expert": expert,
		}})

		text := s.callText(ctx, model,
			contributionPrompt(query, brief, expert, contributions, catalog.NumExperts),
			sel.Reasoning(model), fallbackContribution)

		entry := Contribution{Order: expert.Order, Expert: expert, Text: text, Model: model}
		contributions = append(contributions, entry)

		// Intermediate commit: the contributions stage stays `running` until
		// the last expert lands, but every committed prefix is replayable.
		status := StageRunning
		if len(contributions) == len(experts) {
			status = StageComplete
		}
		err = s.upsertStage(conversationID, StageResult{
			Stage:         StageContributions,
			Status:        status,
			Models:        append([]string{}, models...),
			CompletedAt:   time.Now().UTC(),
			Contributions: append([]Contribution{}, contributions...),
		})
		if err != nil {
			return nil, err
		}

		bridge.Emit(events.Event{Type: events.TypeExpertComplete, Data: entry})
	}

	return contributions, nil
}

func (s *Sequencer) runVerification(ctx context.Context, conversationID, query string, contributions []Contribution) (string, error) {
	defer s.observe(StageVerification)()

	queries := s.searchQueries(ctx, query, contributions)
	evidence := s.gatherEvidence(ctx, queries)

	report := s.callText(ctx, s.cat.UtilityModel,
		verificationPrompt(query, contributions, evidence), nil, fallbackVerification)

	err := s.commitStage(conversationID, StageResult{
		Stage:    StageVerification,
		Models:   []string{s.cat.SearchModel, s.cat.UtilityModel},
		Analysis: report,
	})
	return report, err
}

// searchQueries asks a fast model which claims deserve verification and
// clamps the result to the configured policy bounds. The selection rule is a
// policy, not a fixed algorithm; extraction failure degrades to using the
// user query itself.
func (s *Sequencer) searchQueries(ctx context.Context, query string, contributions []Contribution) []string {
	policy := s.cat.Search
	if policy.MaxQueries == 0 {
		return nil
	}

	var queries []string
	resp, err := s.llm.CallOne(ctx, openrouter.Call{
		Model:    s.cat.UtilityModel,
		Messages: []openrouter.Message{{Role: openrouter.RoleUser, Content: searchQueriesPrompt(query, contributions, policy.MaxQueries)}},
	})
	if err == nil {
		var parsed struct {
			Queries []string `json:"queries"`
		}
		if extract.JSONInto(resp.Content, &parsed) {
			queries = parsed.Queries
		}
	}
	if len(queries) > policy.MaxQueries {
		queries = queries[:policy.MaxQueries]
	}
	for len(queries) < policy.MinQueries {
		queries = append(queries, query)
	}
	return queries
}

// gatherEvidence fans out to the search model, one call per query, behind a
// join barrier. Failed lookups are dropped; verification proceeds on
// whatever evidence arrived.
func (s *Sequencer) gatherEvidence(ctx context.Context, queries []string) string {
	if len(queries) == 0 {
		return ""
	}
	policy := s.cat.Search
	calls := make([]openrouter.Call, len(queries))
	for i, q := range queries {
		calls[i] = openrouter.Call{
			Model:    s.cat.SearchModel,
			Messages: []openrouter.Message{{Role: openrouter.RoleUser, Content: q}},
			Timeout:  time.Duration(policy.Timeout * float64(time.Second)),
			Extra: map[string]any{
				"temperature": 0,
				"max_tokens":  800,
				"web_search_options": map[string]any{
					"search_context_size": "high",
				},
			},
		}
	}
	results := s.llm.CallMany(ctx, calls)

	var sections []string
	for i, res := range results {
		if res.Err != nil {
			s.log.Warn("evidence lookup failed", "query", queries[i], "error", res.Err)
			continue
		}
		sections = append(sections, fmt.Sprintf("### Query: %s\n%s", queries[i], res.Response.Content))
		if len(sections) >= policy.MaxSources {
			break
		}
	}
	return strings.Join(sections, "\n\n")
}

// runMarkdownStage handles the single-call markdown stages (planning,
// editorial): call, fall back on failure, commit.
func (s *Sequencer) runMarkdownStage(ctx context.Context, conversationID string, stage Stage, prompt, fallback string) (string, error) {
	defer s.observe(stage)()
	text := s.callText(ctx, s.cat.UtilityModel, prompt, nil, fallback)
	err := s.commitStage(conversationID, StageResult{
		Stage:    stage,
		Models:   []string{s.cat.UtilityModel},
		Analysis: text,
	})
	return text, err
}

// runFinal is the chairman synthesis. Unlike every other stage, a permanent
// failure here aborts the chain: there is no artifact to fall back to.
func (s *Sequencer) runFinal(ctx context.Context, conversationID, query, brief string, contributions []Contribution, verification, plan, editorial string, sel ModelSelection) (*FinalResult, error) {
	defer s.observe(StageFinal)()

	resp, err := s.llm.CallOne(ctx, openrouter.Call{
		Model: sel.ChairmanModel,
		Messages: []openrouter.Message{
			{Role: openrouter.RoleSystem, Content: "You are the master synthesizer. Follow both the synthesis plan AND editorial guidelines precisely."},
			{Role: openrouter.RoleUser, Content: chairmanPrompt(query, brief, contributions, verification, plan, editorial)},
		},
		Reasoning: sel.Reasoning(sel.ChairmanModel),
	})
	if err != nil {
		return nil, fmt.Errorf("council: final synthesis: %w", err)
	}

	final := &FinalResult{Model: sel.ChairmanModel, Response: resp.Content}
	err = s.store.UpdatePendingAssistant(conversationID, func(m *Message) error {
		m.Stages = append(m.Stages, StageResult{
			Stage:       StageFinal,
			Status:      StageComplete,
			Models:      []string{sel.ChairmanModel},
			CompletedAt: time.Now().UTC(),
			Final:       final,
		})
		m.Status = StatusComplete
		m.Content = final.Response
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("council: commit final synthesis: %w", err)
	}
	return final, nil
}

// updateTitle generates a conversation title on the first completed turn.
// Failures are absorbed; a stale default title is cosmetic.
func (s *Sequencer) updateTitle(ctx context.Context, conversationID, currentTitle, query string, bridge *events.Bridge) {
	if currentTitle != "" && currentTitle != defaultTitle {
		return
	}
	resp, err := s.llm.CallOne(ctx, openrouter.Call{
		Model:    s.cat.UtilityModel,
		Messages: []openrouter.Message{{Role: openrouter.RoleUser, Content: titlePrompt(query)}},
		Timeout:  30 * time.Second,
	})
	if err != nil {
		s.log.Warn("title generation failed", "error", err)
		return
	}
	title := strings.Trim(strings.TrimSpace(resp.Content), `"'`)
	if runes := []rune(title); len(runes) > 50 {
		title = string(runes[:47]) + "..."
	}
	if title == "" {
		return
	}
	if err := s.store.SetTitle(conversationID, title); err != nil {
		s.log.Warn("title update failed", "error", err)
		return
	}
	bridge.Emit(events.Event{Type: events.TypeTitleUpdated, Data: map[string]any{"title": title}})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// callText performs a single-call stage step, substituting fallback on any
// permanent failure. Transient failures were already retried by the gateway.
func (s *Sequencer) callText(ctx context.Context, model, prompt string, reasoning *openrouter.ReasoningConfig, fallback string) string {
	resp, err := s.llm.CallOne(ctx, openrouter.Call{
		Model:     model,
		Messages:  []openrouter.Message{{Role: openrouter.RoleUser, Content: prompt}},
		Reasoning: reasoning,
	})
	if err != nil {
		s.log.Warn("model call failed, using fallback", "model", model, "error", err)
		return fallback
	}
	if strings.TrimSpace(resp.Content) == "" {
		return fallback
	}
	return resp.Content
}

// commitStage appends a completed stage result in one atomic store write.
func (s *Sequencer) commitStage(conversationID string, res StageResult) error {
	res.Status = StageComplete
	res.CompletedAt = time.Now().UTC()
	return s.upsertStage(conversationID, res)
}

// upsertStage writes a stage result, replacing an earlier entry for the same
// stage (used by the contributions stage's running commits).
func (s *Sequencer) upsertStage(conversationID string, res StageResult) error {
	if res.CompletedAt.IsZero() {
		res.CompletedAt = time.Now().UTC()
	}
	err := s.store.UpdatePendingAssistant(conversationID, func(m *Message) error {
		for i := range m.Stages {
			if m.Stages[i].Stage == res.Stage {
				m.Stages[i] = res
				return nil
			}
		}
		m.Stages = append(m.Stages, res)
		return nil
	})
	if err != nil {
		return fmt.Errorf("council: commit stage %s: %w", res.Stage, err)
	}
	return nil
}

// fail emits a terminal error without touching the store (used before the
// cycle's assistant message exists).
func (s *Sequencer) fail(bridge *events.Bridge, err error) error {
	s.log.Error("pipeline rejected", "error", err)
	bridge.Emit(events.Event{Type: events.TypeError, Message: err.Error()})
	return err
}

// fatal aborts the chain: the message is marked error (best effort), prior
// committed stages are preserved, and a terminal error event is emitted.
func (s *Sequencer) fatal(bridge *events.Bridge, conversationID string, err error) error {
	s.log.Error("pipeline aborted", "conversation", conversationID, "error", err)
	markErr := s.store.UpdatePendingAssistant(conversationID, func(m *Message) error {
		m.Status = StatusError
		m.Error = err.Error()
		return nil
	})
	if markErr != nil {
		s.log.Error("could not mark message as errored", "error", markErr)
	}
	bridge.Emit(events.Event{Type: events.TypeError, Message: err.Error()})
	return err
}

// observe returns a closure recording the stage's wall time.
func (s *Sequencer) observe(stage Stage) func() {
	started := time.Now()
	return func() {
		s.met.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(started).Seconds())
	}
}

// inFlight reports whether the conversation's latest assistant message is in
// a non-terminal state.
func inFlight(conv *Conversation) bool {
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		m := &conv.Messages[i]
		if m.Role != RoleAssistant {
			continue
		}
		return m.Status == StatusClarificationPending || m.Status == StatusClarificationSubmitted
	}
	return false
}

// distinct returns pool with duplicates removed, preserving first-seen order.
func distinct(pool []string) []string {
	seen := make(map[string]bool, len(pool))
	out := make([]string, 0, len(pool))
	for _, m := range pool {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// shortModel trims the provider prefix from a model identifier for display.
func shortModel(model string) string {
	if idx := strings.LastIndexByte(model, '/'); idx >= 0 {
		return model[idx+1:]
	}
	return model
}
