package state

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
)

var (
	ErrNilMessage      = errors.New("nil message")
	ErrEmptyCallID     = errors.New("tool call id is empty")
	ErrEmptyToolName   = errors.New("tool call name is empty")
	ErrUnpairedResult  = errors.New("tool result without matching call")
	ErrDuplicateResult = errors.New("duplicate tool result")
)

// Conversation is the append-only message log for one loop run. The caller
// supplies prior history per turn; nothing here persists across turns. Tool
// results pair 1:1 with tool calls by call id, and a call is always appended
// before its result so a failed run still shows the call that failed.
type Conversation struct {
	messages []*schema.Message
	pending  map[string]string // call id -> tool name
}

// NewConversation seeds the log with the system prompt, the caller-supplied
// history and the new user message. History messages run through the same
// pairing checks as live appends.
func NewConversation(systemPrompt string, history []*schema.Message, userMessage string) (*Conversation, error) {
	if strings.TrimSpace(userMessage) == "" {
		return nil, errors.New("user message is empty")
	}
	c := &Conversation{
		messages: make([]*schema.Message, 0, len(history)+2),
		pending:  make(map[string]string, 4),
	}
	if strings.TrimSpace(systemPrompt) != "" {
		c.messages = append(c.messages, schema.SystemMessage(systemPrompt))
	}
	for i, msg := range history {
		if err := c.Append(msg); err != nil {
			return nil, fmt.Errorf("history message %d: %w", i, err)
		}
	}
	if err := c.Append(schema.UserMessage(userMessage)); err != nil {
		return nil, err
	}
	return c, nil
}

// Append adds one message to the log, enforcing the pairing invariants.
func (c *Conversation) Append(msg *schema.Message) error {
	if msg == nil {
		return ErrNilMessage
	}
	switch msg.Role {
	case schema.Assistant:
		for _, call := range msg.ToolCalls {
			id := strings.TrimSpace(call.ID)
			name := strings.TrimSpace(call.Function.Name)
			if id == "" {
				return ErrEmptyCallID
			}
			if name == "" {
				return fmt.Errorf("%w: call %s", ErrEmptyToolName, id)
			}
			c.pending[id] = name
		}
	case schema.Tool:
		id := strings.TrimSpace(msg.ToolCallID)
		if id == "" {
			return ErrEmptyCallID
		}
		if _, ok := c.pending[id]; !ok {
			if c.seen(id) {
				return fmt.Errorf("%w: call %s", ErrDuplicateResult, id)
			}
			return fmt.Errorf("%w: call %s", ErrUnpairedResult, id)
		}
		delete(c.pending, id)
	}
	c.messages = append(c.messages, msg)
	return nil
}

// AppendToolResult pairs a result with its call and appends it.
func (c *Conversation) AppendToolResult(callID, content string) error {
	return c.Append(&schema.Message{
		Role:       schema.Tool,
		Content:    content,
		ToolCallID: callID,
	})
}

func (c *Conversation) seen(callID string) bool {
	for _, msg := range c.messages {
		if msg.Role == schema.Tool && msg.ToolCallID == callID {
			return true
		}
	}
	return false
}

// Messages returns a snapshot of the log for a model invocation. The slice is
// fresh; the messages themselves are shared and treated as immutable.
func (c *Conversation) Messages() []*schema.Message {
	return append([]*schema.Message(nil), c.messages...)
}

func (c *Conversation) Len() int {
	return len(c.messages)
}

// PendingCalls lists call ids that have no result yet, in log order.
func (c *Conversation) PendingCalls() []string {
	if len(c.pending) == 0 {
		return nil
	}
	out := make([]string, 0, len(c.pending))
	for _, msg := range c.messages {
		if msg.Role != schema.Assistant {
			continue
		}
		for _, call := range msg.ToolCalls {
			if _, ok := c.pending[call.ID]; ok {
				out = append(out, call.ID)
			}
		}
	}
	return out
}

// Validate re-checks the pairing invariants over the whole log.
func (c *Conversation) Validate() error {
	calls := make(map[string]bool, 8)
	resolved := make(map[string]bool, 8)
	for i, msg := range c.messages {
		if msg == nil {
			return fmt.Errorf("message %d: %w", i, ErrNilMessage)
		}
		switch msg.Role {
		case schema.Assistant:
			for _, call := range msg.ToolCalls {
				if call.ID == "" {
					return fmt.Errorf("message %d: %w", i, ErrEmptyCallID)
				}
				calls[call.ID] = true
			}
		case schema.Tool:
			if !calls[msg.ToolCallID] {
				return fmt.Errorf("message %d: %w: call %s", i, ErrUnpairedResult, msg.ToolCallID)
			}
			if resolved[msg.ToolCallID] {
				return fmt.Errorf("message %d: %w: call %s", i, ErrDuplicateResult, msg.ToolCallID)
			}
			resolved[msg.ToolCallID] = true
		}
	}
	return nil
}
