package contract

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// Dispatcher executes model-requested tool calls for one session. An
// implementation owns the session's account-context cache and the most recent
// segmentation, so the registry itself stays stateless.
type Dispatcher interface {
	Specs() []*schema.ToolInfo
	// Dispatch runs one call. Recoverable failures come back inside the
	// result so the model can react to them; a non-nil error is fatal and
	// ends the turn.
	Dispatch(ctx context.Context, call ToolCall) (ToolResult, error)
}

// SessionSource mints a fresh Dispatcher per loop run.
type SessionSource interface {
	Session(accountID string) Dispatcher
}
