// Package council implements the stage sequencer: the fixed multi-stage
// pipeline that turns one user query into one synthesized artifact by
// orchestrating many independent model calls. The chain splits into a draft
// phase (intent draft plus clarification questions) and an execution phase
// (brief, brainstorm, sequential expert contributions, verification,
// planning, editorial, final synthesis), with the clarification checkpoint
// as the only externally resumable suspension point.
package council

import (
	"time"

	"github.com/dusk-indust/council/internal/openrouter"
)

// ModelSelection fixes which models serve a message. Created once per
// message and immutable thereafter; when the expert team size exceeds the
// pool, models are reused round-robin.
type ModelSelection struct {
	ChairmanModel   string                                `json:"chairman_model"`
	ExpertModels    []string                              `json:"expert_models"`
	ThinkingByModel map[string]openrouter.ReasoningConfig `json:"thinking_by_model,omitempty"`
}

// Reasoning returns the thinking config for a model, or nil if none was
// selected.
func (s ModelSelection) Reasoning(model string) *openrouter.ReasoningConfig {
	if s.ThinkingByModel == nil {
		return nil
	}
	cfg, ok := s.ThinkingByModel[model]
	if !ok {
		return nil
	}
	return &cfg
}

// Expert is one seat on the council, defined by the brainstorm synthesis and
// immutable once contributions begin. Order runs 1..NumExperts, contiguous.
type Expert struct {
	Order       int    `json:"order"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Objectives  string `json:"objectives"`
}

// Contribution is one expert's addition to the chain. The contribution list
// is append-only and any prefix of it is a valid, independently consumable
// history.
type Contribution struct {
	Order  int    `json:"order"`
	Expert Expert `json:"expert"`
	Text   string `json:"contribution"`
	Model  string `json:"model"`
}

// Question is one clarification question generated by the draft phase.
type Question struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Options    []string `json:"options,omitempty"`
	AllowOther bool     `json:"allow_other,omitempty"`
}

// Answer is a client response to one clarification question.
type Answer struct {
	QuestionID      string   `json:"question_id"`
	SelectedOptions []string `json:"selected_options,omitempty"`
	OtherText       string   `json:"other_text,omitempty"`
}

// ClarificationAnswers is the continuation payload. Skip true means the
// client declined to answer; the execution phase proceeds either way.
type ClarificationAnswers struct {
	Answers  []Answer `json:"answers,omitempty"`
	FreeText string   `json:"free_text,omitempty"`
	Skip     bool     `json:"skip"`
}

// Stage names one step of the fixed pipeline.
type Stage string

const (
	StageIntentDraft   Stage = "intent-draft"
	StageClarification Stage = "clarification"
	StageBrief         Stage = "brief"
	StageBrainstorm    Stage = "brainstorm"
	StageContributions Stage = "contributions"
	StageVerification  Stage = "verification"
	StagePlanning      Stage = "planning"
	StageEditorial     Stage = "editorial"
	StageFinal         Stage = "final-synthesis"
)

// StageStatus tracks a stage through its lifecycle.
type StageStatus string

const (
	StagePending  StageStatus = "pending"
	StageRunning  StageStatus = "running"
	StageComplete StageStatus = "complete"
	StageFailed   StageStatus = "failed"
)

// BrainstormResult is the brainstorm stage payload: the per-model proposal
// display text plus the synthesized expert team.
type BrainstormResult struct {
	Display   string   `json:"brainstorm_content"`
	Rationale string   `json:"team_rationale,omitempty"`
	Experts   []Expert `json:"experts"`
}

// FinalResult is the final synthesis payload.
type FinalResult struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

// StageResult is the committed envelope for one stage. The payload is a
// closed set of variants keyed by Stage: markdown stages fill Analysis,
// clarification fills Questions, brainstorm fills Brainstorm, contributions
// fills Contributions, final synthesis fills Final. A stage result is only
// materialized after all of its upstream stages completed.
type StageResult struct {
	Stage       Stage       `json:"stage"`
	Status      StageStatus `json:"status"`
	Models      []string    `json:"models,omitempty"`
	CompletedAt time.Time   `json:"completed_at"`

	Analysis      string            `json:"analysis,omitempty"`
	Questions     []Question        `json:"questions,omitempty"`
	Brainstorm    *BrainstormResult `json:"brainstorm,omitempty"`
	Contributions []Contribution    `json:"contributions,omitempty"`
	Final         *FinalResult      `json:"final,omitempty"`
}

// MessageStatus is the assistant message lattice. Error is reachable from
// any non-terminal state.
type MessageStatus string

const (
	StatusClarificationPending   MessageStatus = "clarification_pending"
	StatusClarificationSubmitted MessageStatus = "clarification_submitted"
	StatusComplete               MessageStatus = "complete"
	StatusError                  MessageStatus = "error"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is the unit of persistence. For assistant messages, Content holds
// the final artifact once the pipeline completes; Stages accumulates one
// committed StageResult per finished stage, in order.
type Message struct {
	Role           string                `json:"role"`
	Content        string                `json:"content,omitempty"`
	Status         MessageStatus         `json:"status,omitempty"`
	ModelSelection *ModelSelection       `json:"model_selection,omitempty"`
	IntentDraft    string                `json:"intent_draft,omitempty"`
	Questions      []Question            `json:"clarification_questions,omitempty"`
	Answers        *ClarificationAnswers `json:"clarification_answers,omitempty"`
	Stages         []StageResult         `json:"stages,omitempty"`
	Error          string                `json:"error,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

// StageResult returns the committed result for a stage, or nil.
func (m *Message) StageResult(stage Stage) *StageResult {
	for i := range m.Stages {
		if m.Stages[i].Stage == stage {
			return &m.Stages[i]
		}
	}
	return nil
}

// Conversation is an ordered message thread.
type Conversation struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
}

// LastCompleteArtifact returns the final artifact of the most recent complete
// assistant message, for threading into the next turn's prompts as baseline
// context. Empty string when no prior turn completed.
func (c *Conversation) LastCompleteArtifact() string {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		m := &c.Messages[i]
		if m.Role == RoleAssistant && m.Status == StatusComplete {
			return m.Content
		}
	}
	return ""
}

// ConversationMeta is the listing projection.
type ConversationMeta struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
}
