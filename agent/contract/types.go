package contract

type ChunkType string

const (
	ChunkText       ChunkType = "text"
	ChunkToolCall   ChunkType = "tool_call"
	ChunkToolResult ChunkType = "tool_result"
	ChunkArtifact   ChunkType = "artifact"
	ChunkError      ChunkType = "error"
	ChunkDone       ChunkType = "done"
)

type ArtifactKind string

const (
	ArtifactStrategy   ArtifactKind = "strategy"
	ArtifactCampaign   ArtifactKind = "campaign_draft"
	ArtifactAutomation ArtifactKind = "automation_draft"
	ArtifactSegment    ArtifactKind = "segment"
)

const (
	FinishStop  = "stop"
	FinishError = "error"
)

type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type ToolResult struct {
	CallID  string `json:"call_id"`
	Tool    string `json:"tool"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`

	// Artifact rides along when the call produced one. It is streamed to the
	// caller as its own chunk and never reinjected into the model history.
	Artifact *Artifact `json:"-"`
}

func (r ToolResult) Failed() bool { return r.Error != "" }

type Artifact struct {
	Kind    ArtifactKind `json:"kind"`
	ID      string       `json:"id,omitempty"`
	Payload any          `json:"payload"`
}

// StreamChunk is one ordered unit of turn output. The field matching Type is
// set; text chunks may be interleaved with tool and artifact chunks but never
// reordered.
type StreamChunk struct {
	Type         ChunkType   `json:"type"`
	Text         string      `json:"text,omitempty"`
	ToolCall     *ToolCall   `json:"tool_call,omitempty"`
	ToolResult   *ToolResult `json:"tool_result,omitempty"`
	Artifact     *Artifact   `json:"artifact,omitempty"`
	Err          string      `json:"error,omitempty"`
	FinishReason string      `json:"finish_reason,omitempty"`
}
