package state

import (
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func assistantCall(callID, tool, args string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			{ID: callID, Function: schema.FunctionCall{Name: tool, Arguments: args}},
		},
	}
}

func TestNewConversationSeedsLog(t *testing.T) {
	t.Parallel()

	history := []*schema.Message{
		schema.UserMessage("hi"),
		{Role: schema.Assistant, Content: "hello, what are we launching?"},
	}
	conv, err := NewConversation("you are a campaign strategist", history, "launch the earbuds")
	if err != nil {
		t.Fatalf("NewConversation() error = %v", err)
	}

	msgs := conv.Messages()
	if len(msgs) != 4 {
		t.Fatalf("len(messages) = %d, want 4", len(msgs))
	}
	if msgs[0].Role != schema.System {
		t.Fatalf("messages[0].Role = %s, want system", msgs[0].Role)
	}
	if msgs[3].Role != schema.User || msgs[3].Content != "launch the earbuds" {
		t.Fatalf("messages[3] = %+v, want the new user message", msgs[3])
	}
}

func TestNewConversationRejectsEmptyUserMessage(t *testing.T) {
	t.Parallel()

	if _, err := NewConversation("sys", nil, "   "); err == nil {
		t.Fatal("expected error for blank user message")
	}
}

func TestAppendPairsToolResults(t *testing.T) {
	t.Parallel()

	conv, err := NewConversation("sys", nil, "segment my contacts")
	if err != nil {
		t.Fatalf("NewConversation() error = %v", err)
	}

	if err := conv.Append(assistantCall("call_1", "segment_contacts", "{}")); err != nil {
		t.Fatalf("Append(call) error = %v", err)
	}
	if got := conv.PendingCalls(); len(got) != 1 || got[0] != "call_1" {
		t.Fatalf("PendingCalls() = %v, want [call_1]", got)
	}

	if err := conv.AppendToolResult("call_1", `{"cohorts":3}`); err != nil {
		t.Fatalf("AppendToolResult() error = %v", err)
	}
	if got := conv.PendingCalls(); len(got) != 0 {
		t.Fatalf("PendingCalls() after result = %v, want empty", got)
	}
	if err := conv.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestAppendRejectsUnpairedResult(t *testing.T) {
	t.Parallel()

	conv, err := NewConversation("sys", nil, "hi")
	if err != nil {
		t.Fatalf("NewConversation() error = %v", err)
	}

	err = conv.AppendToolResult("call_missing", "{}")
	if !errors.Is(err, ErrUnpairedResult) {
		t.Fatalf("error = %v, want ErrUnpairedResult", err)
	}
}

func TestAppendRejectsDuplicateResult(t *testing.T) {
	t.Parallel()

	conv, err := NewConversation("sys", nil, "hi")
	if err != nil {
		t.Fatalf("NewConversation() error = %v", err)
	}
	if err := conv.Append(assistantCall("call_1", "get_account_context", "{}")); err != nil {
		t.Fatalf("Append(call) error = %v", err)
	}
	if err := conv.AppendToolResult("call_1", "{}"); err != nil {
		t.Fatalf("first result error = %v", err)
	}

	err = conv.AppendToolResult("call_1", "{}")
	if !errors.Is(err, ErrDuplicateResult) {
		t.Fatalf("error = %v, want ErrDuplicateResult", err)
	}
}

func TestAppendRejectsAnonymousCalls(t *testing.T) {
	t.Parallel()

	conv, err := NewConversation("sys", nil, "hi")
	if err != nil {
		t.Fatalf("NewConversation() error = %v", err)
	}

	if err := conv.Append(assistantCall("", "get_account_context", "{}")); !errors.Is(err, ErrEmptyCallID) {
		t.Fatalf("error = %v, want ErrEmptyCallID", err)
	}
	if err := conv.Append(assistantCall("call_1", "", "{}")); !errors.Is(err, ErrEmptyToolName) {
		t.Fatalf("error = %v, want ErrEmptyToolName", err)
	}
}

func TestFailedCallStaysInLog(t *testing.T) {
	t.Parallel()

	conv, err := NewConversation("sys", nil, "hi")
	if err != nil {
		t.Fatalf("NewConversation() error = %v", err)
	}
	if err := conv.Append(assistantCall("call_1", "get_account_context", "{}")); err != nil {
		t.Fatalf("Append(call) error = %v", err)
	}

	// A turn that dies before the result keeps the call for audit.
	if got := len(conv.PendingCalls()); got != 1 {
		t.Fatalf("PendingCalls() = %d, want 1", got)
	}
	msgs := conv.Messages()
	last := msgs[len(msgs)-1]
	if len(last.ToolCalls) != 1 || last.ToolCalls[0].ID != "call_1" {
		t.Fatalf("last message = %+v, want the failed call", last)
	}
}

func TestMessagesSnapshotIsIndependent(t *testing.T) {
	t.Parallel()

	conv, err := NewConversation("sys", nil, "hi")
	if err != nil {
		t.Fatalf("NewConversation() error = %v", err)
	}
	snap := conv.Messages()
	if err := conv.Append(&schema.Message{Role: schema.Assistant, Content: "on it"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if len(snap) == conv.Len() {
		t.Fatal("snapshot grew with the conversation")
	}
}
