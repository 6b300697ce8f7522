package tactician

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/contract"
	statex "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/state"
)

// Controller drives one conversational turn: it streams the model, executes
// requested tool calls through the session dispatcher, and feeds results back
// until the model produces a final answer.
type Controller struct {
	model    einomodel.ToolCallingChatModel
	sessions contractx.SessionSource
	system   string
	cfg      Config
}

func NewController(chatModel einomodel.ToolCallingChatModel, sessions contractx.SessionSource, systemPrompt string, cfg Config) (*Controller, error) {
	if chatModel == nil {
		return nil, errors.New("nil chat model")
	}
	if sessions == nil {
		return nil, errors.New("nil session source")
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, errors.New("empty system prompt")
	}
	return &Controller{
		model:    chatModel,
		sessions: sessions,
		system:   systemPrompt,
		cfg:      cfg.withDefaults(),
	}, nil
}

// Request is one user turn. History carries the earlier turns verbatim and
// may be nil for a fresh conversation.
type Request struct {
	AccountID   string
	History     []*schema.Message
	UserMessage string
}

// Run starts the turn and returns its chunk stream. The channel closes when
// the turn reaches a terminal state; after the caller cancels ctx no further
// chunk is sent.
func (c *Controller) Run(ctx context.Context, req Request) (<-chan contractx.StreamChunk, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, errors.New("account id is required")
	}

	conv, err := statex.NewConversation(c.system, req.History, req.UserMessage)
	if err != nil {
		return nil, err
	}

	session := c.sessions.Session(accountID)
	bound, err := c.model.WithTools(session.Specs())
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)
	}

	out := make(chan contractx.StreamChunk, c.cfg.ChunkBuffer)
	r := &run{
		cfg:     c.cfg,
		model:   bound,
		session: session,
		conv:    conv,
		turn:    statex.NewTurn(accountID),
		out:     out,
	}
	go func() {
		defer close(out)
		r.loop(ctx)
	}()
	return out, nil
}

// run is the per-turn loop state. It lives on a single goroutine.
type run struct {
	cfg     Config
	model   einomodel.ToolCallingChatModel
	session contractx.Dispatcher
	conv    *statex.Conversation
	turn    *statex.Turn
	out     chan<- contractx.StreamChunk
}

func (r *run) loop(ctx context.Context) {
	log.Debug().Str("turn_id", r.turn.ID).Str("account_id", r.turn.AccountID).Msg("turn started")

	for {
		full, err := r.modelRound(ctx)
		if err != nil {
			r.fail(ctx, err)
			return
		}

		if len(full.ToolCalls) > 0 {
			if err := r.conv.Append(full); err != nil {
				r.fail(ctx, fmt.Errorf("%w: %v", contractx.ErrModelProtocol, err))
				return
			}
			if err := r.turn.Transition(statex.TurnExecutingTool); err != nil {
				r.fail(ctx, err)
				return
			}
			if err := r.executeCalls(ctx, full.ToolCalls); err != nil {
				r.fail(ctx, err)
				return
			}
			if err := r.turn.Transition(statex.TurnAwaitingModel); err != nil {
				r.fail(ctx, err)
				return
			}
			continue
		}

		if strings.TrimSpace(full.Content) == "" {
			r.fail(ctx, fmt.Errorf("%w: model response is empty", contractx.ErrModelProtocol))
			return
		}
		if err := r.conv.Append(full); err != nil {
			r.fail(ctx, fmt.Errorf("%w: %v", contractx.ErrModelProtocol, err))
			return
		}
		if err := r.turn.Transition(statex.TurnStreaming); err != nil {
			r.fail(ctx, err)
			return
		}
		if err := r.turn.Transition(statex.TurnDone); err != nil {
			r.fail(ctx, err)
			return
		}
		r.emit(ctx, contractx.StreamChunk{Type: contractx.ChunkDone, FinishReason: contractx.FinishStop})
		log.Debug().Str("turn_id", r.turn.ID).Int("tool_calls", r.turn.ToolCalls).Msg("turn done")
		return
	}
}

// modelRound streams one model response, forwarding text deltas and completed
// strategy spans as they arrive, and returns the concatenated message.
func (r *run) modelRound(ctx context.Context) (*schema.Message, error) {
	mctx, cancel := context.WithTimeout(ctx, r.cfg.ModelTimeout)
	defer cancel()

	stream, err := r.model.Stream(mctx, r.conv.Messages())
	if err != nil {
		return nil, r.modelErr(ctx, err, "open model stream")
	}
	defer stream.Close()

	var (
		scanner strategyScanner
		frames  []*schema.Message
	)
	for {
		frame, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, r.modelErr(ctx, err, "recv model stream")
		}
		if frame == nil {
			continue
		}
		frames = append(frames, frame)
		if frame.Content == "" {
			continue
		}
		if !r.emit(ctx, contractx.StreamChunk{Type: contractx.ChunkText, Text: frame.Content}) {
			return nil, ctx.Err()
		}
		for _, span := range scanner.feed(frame.Content) {
			if !json.Valid([]byte(span)) {
				log.Warn().Str("turn_id", r.turn.ID).Msg("strategy span is not valid JSON, skipped")
				continue
			}
			artifact := &contractx.Artifact{Kind: contractx.ArtifactStrategy, Payload: json.RawMessage(span)}
			if !r.emit(ctx, contractx.StreamChunk{Type: contractx.ChunkArtifact, Artifact: artifact}) {
				return nil, ctx.Err()
			}
		}
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: model returned an empty stream", contractx.ErrModelProtocol)
	}
	full, err := schema.ConcatMessages(frames)
	if err != nil {
		return nil, fmt.Errorf("%w: concat stream frames: %v", contractx.ErrModelProtocol, err)
	}
	return full, nil
}

// executeCalls runs one batch of tool calls in order, emitting call and
// result chunks and appending both sides to the conversation.
func (r *run) executeCalls(ctx context.Context, calls []schema.ToolCall) error {
	for _, raw := range calls {
		call, err := toToolCall(raw)
		if err != nil {
			return err
		}
		if spent := r.turn.RecordToolCall(); spent > r.cfg.MaxToolCalls {
			return fmt.Errorf("%w: turn exceeded %d tool calls", contractx.ErrToolLoopExceeded, r.cfg.MaxToolCalls)
		}
		if !r.emit(ctx, contractx.StreamChunk{Type: contractx.ChunkToolCall, ToolCall: &call}) {
			return ctx.Err()
		}

		tctx, cancel := context.WithTimeout(ctx, r.cfg.ToolTimeout)
		res, err := r.session.Dispatch(tctx, call)
		cancel()
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return ctx.Err()
			case errors.Is(err, context.DeadlineExceeded):
				return fmt.Errorf("%w: tool %s: %v", contractx.ErrUpstreamTimeout, call.Name, err)
			default:
				return err
			}
		}

		if !r.emit(ctx, contractx.StreamChunk{Type: contractx.ChunkToolResult, ToolResult: &res}) {
			return ctx.Err()
		}

		stopRetrying := false
		if res.Failed() {
			if r.turn.RecordFailure(call.Name) > 1 {
				stopRetrying = true
				if !r.emit(ctx, contractx.StreamChunk{Type: contractx.ChunkError, Err: res.Error}) {
					return ctx.Err()
				}
			}
		} else if res.Artifact != nil {
			if !r.emit(ctx, contractx.StreamChunk{Type: contractx.ChunkArtifact, Artifact: res.Artifact}) {
				return ctx.Err()
			}
		}

		content, err := resultContent(res, stopRetrying)
		if err != nil {
			return err
		}
		if err := r.conv.AppendToolResult(call.ID, content); err != nil {
			return fmt.Errorf("%w: %v", contractx.ErrModelProtocol, err)
		}
	}
	return nil
}

func (r *run) modelErr(ctx context.Context, err error, op string) error {
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s: %v", contractx.ErrUpstreamTimeout, op, err)
	default:
		return fmt.Errorf("%w: %s: %v", contractx.ErrModelInvoke, op, err)
	}
}

// fail moves the turn to its failed state. When the caller is still there it
// sees exactly one error chunk followed by the done signal; after
// cancellation nothing is emitted.
func (r *run) fail(ctx context.Context, err error) {
	_ = r.turn.Transition(statex.TurnFailed)
	if ctx.Err() != nil {
		log.Warn().Err(err).Str("turn_id", r.turn.ID).Msg("turn cancelled")
		return
	}
	log.Warn().Err(err).Str("turn_id", r.turn.ID).Int("tool_calls", r.turn.ToolCalls).Msg("turn failed")
	if !r.emit(ctx, contractx.StreamChunk{Type: contractx.ChunkError, Err: err.Error()}) {
		return
	}
	r.emit(ctx, contractx.StreamChunk{Type: contractx.ChunkDone, FinishReason: contractx.FinishError})
}

// emit sends one chunk unless the caller has gone away.
func (r *run) emit(ctx context.Context, chunk contractx.StreamChunk) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case r.out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// toToolCall normalizes a model tool call. A missing name or an undecodable
// argument envelope is a protocol violation, not a recoverable tool error.
func toToolCall(raw schema.ToolCall) (contractx.ToolCall, error) {
	name := strings.TrimSpace(raw.Function.Name)
	if name == "" {
		return contractx.ToolCall{}, fmt.Errorf("%w: tool call without a name", contractx.ErrModelProtocol)
	}
	args := strings.TrimSpace(raw.Function.Arguments)
	if args == "" {
		args = "{}"
	}
	if !json.Valid([]byte(args)) {
		return contractx.ToolCall{}, fmt.Errorf("%w: undecodable arguments for tool=%s", contractx.ErrModelProtocol, name)
	}
	return contractx.ToolCall{ID: strings.TrimSpace(raw.ID), Name: name, Arguments: args}, nil
}

// resultContent renders the tool message reinjected into the conversation.
// Failures go back as an error object; after a second failure the object also
// tells the model to stop retrying.
func resultContent(res contractx.ToolResult, stopRetrying bool) (string, error) {
	if res.Failed() {
		payload := map[string]string{"error": res.Error}
		if stopRetrying {
			payload["instruction"] = "This tool already failed twice this turn. Do not call it again; explain the problem to the user."
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("%w: marshal tool error for %s: %v", contractx.ErrToolExecution, res.Tool, err)
		}
		return string(raw), nil
	}
	raw, err := json.Marshal(res.Payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal tool result for %s: %v", contractx.ErrToolExecution, res.Tool, err)
	}
	return string(raw), nil
}
