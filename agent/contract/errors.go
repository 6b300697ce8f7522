package contract

import "errors"

var (
	ErrUnknownTool           = errors.New("unknown tool")
	ErrInvalidArguments      = errors.New("invalid tool arguments")
	ErrToolExecution         = errors.New("tool execution failed")
	ErrAccountNotFound       = errors.New("account not found")
	ErrDataSourceUnavailable = errors.New("data source unavailable")
	ErrInsufficientContext   = errors.New("insufficient context")
	ErrToolLoopExceeded      = errors.New("tool call limit exceeded")
	ErrUpstreamTimeout       = errors.New("upstream timeout")
	ErrModelProtocol         = errors.New("model protocol violation")
	ErrModelInvoke           = errors.New("model invoke failed")
)

// IsFatal reports whether err fails the whole turn. Non-fatal tool errors are
// reinjected into the conversation as error-carrying tool results instead.
func IsFatal(err error) bool {
	return errors.Is(err, ErrToolLoopExceeded) ||
		errors.Is(err, ErrUpstreamTimeout) ||
		errors.Is(err, ErrModelProtocol) ||
		errors.Is(err, ErrModelInvoke) ||
		errors.Is(err, ErrDataSourceUnavailable)
}
