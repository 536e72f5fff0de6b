package triage

import (
	"context"

	"github.com/qmuntal/stateless"
	"github.com/rs/zerolog/log"
)

// Stage is a step of a single submit turn.
type Stage string

const (
	StageReceived     Stage = "received"
	StageAnalyzing    Stage = "analyzing"
	StageAnalyzed     Stage = "analyzed"
	StageRecommending Stage = "recommending"
	StageCompleted    Stage = "completed"
	StageFailed       Stage = "failed"
)

// Progress is emitted every time a turn changes stage.
type Progress struct {
	ConversationID string `json:"conversationId"`
	Stage          Stage  `json:"stage"`
}

// ProgressFunc observes turn progress. It is called synchronously.
type ProgressFunc func(Progress)

type trigger string

const (
	triggerAnalyze   trigger = "analyze"
	triggerAnalyzed  trigger = "analyzed"
	triggerRecommend trigger = "recommend"
	triggerComplete  trigger = "complete"
	triggerFail      trigger = "fail"
)

// turn tracks one read-append-analyze-append-recommend cycle.
type turn struct {
	conversationID string
	fsm            *stateless.StateMachine
}

func newTurn(conversationID string, observe ProgressFunc) *turn {
	fsm := stateless.NewStateMachine(StageReceived)

	fsm.Configure(StageReceived).
		Permit(triggerAnalyze, StageAnalyzing).
		Permit(triggerFail, StageFailed)
	fsm.Configure(StageAnalyzing).
		Permit(triggerAnalyzed, StageAnalyzed).
		Permit(triggerFail, StageFailed)
	fsm.Configure(StageAnalyzed).
		Permit(triggerRecommend, StageRecommending).
		Permit(triggerFail, StageFailed)
	fsm.Configure(StageRecommending).
		Permit(triggerComplete, StageCompleted)

	t := &turn{conversationID: conversationID, fsm: fsm}
	if observe != nil {
		fsm.OnTransitioned(func(_ context.Context, tr stateless.Transition) {
			if stage, ok := tr.Destination.(Stage); ok {
				observe(Progress{ConversationID: conversationID, Stage: stage})
			}
		})
		observe(Progress{ConversationID: conversationID, Stage: StageReceived})
	}
	return t
}

func (t *turn) fire(ctx context.Context, tr trigger) {
	if err := t.fsm.FireCtx(ctx, tr); err != nil {
		log.Warn().Err(err).Str("conversation_id", t.conversationID).Str("trigger", string(tr)).Msg("invalid turn transition")
	}
}

func (t *turn) fail(ctx context.Context) {
	t.fire(ctx, triggerFail)
}

func (t *turn) stage() Stage {
	stage, _ := t.fsm.MustState().(Stage)
	return stage
}
