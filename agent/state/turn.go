package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TurnState is one node of the per-turn state machine.
type TurnState string

const (
	TurnAwaitingModel TurnState = "awaiting_model"
	TurnExecutingTool TurnState = "executing_tool"
	TurnStreaming     TurnState = "streaming_output"
	TurnDone          TurnState = "done"
	TurnFailed        TurnState = "failed"
)

var ErrBadTransition = errors.New("invalid turn transition")

// transitions is the legal edge set. Failed is reachable from every
// non-terminal state; Done only from streaming.
var transitions = map[TurnState][]TurnState{
	TurnAwaitingModel: {TurnExecutingTool, TurnStreaming, TurnFailed},
	TurnExecutingTool: {TurnAwaitingModel, TurnFailed},
	TurnStreaming:     {TurnDone, TurnFailed},
}

// Turn tracks one loop run: its state, how many tool calls it has spent, and
// per-tool failure counts for the single-retry policy.
type Turn struct {
	ID        string
	AccountID string
	State     TurnState
	ToolCalls int
	StartedAt time.Time

	failures map[string]int
}

func NewTurn(accountID string) *Turn {
	return &Turn{
		ID:        uuid.NewString(),
		AccountID: accountID,
		State:     TurnAwaitingModel,
		StartedAt: time.Now().UTC(),
		failures:  make(map[string]int, 4),
	}
}

// Transition moves the turn to the next state, rejecting illegal edges.
func (t *Turn) Transition(to TurnState) error {
	if t.State == to {
		return nil
	}
	for _, allowed := range transitions[t.State] {
		if allowed == to {
			t.State = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrBadTransition, t.State, to)
}

func (t *Turn) Terminal() bool {
	return t.State == TurnDone || t.State == TurnFailed
}

// RecordToolCall counts one tool execution and returns the running total.
func (t *Turn) RecordToolCall() int {
	t.ToolCalls++
	return t.ToolCalls
}

// RecordFailure counts one failed execution of a tool and returns how many
// times that tool has now failed this turn.
func (t *Turn) RecordFailure(tool string) int {
	t.failures[tool]++
	return t.failures[tool]
}

// Failures reports how many times a tool has failed this turn.
func (t *Turn) Failures(tool string) int {
	return t.failures[tool]
}
