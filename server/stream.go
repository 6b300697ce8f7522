package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	contractx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/contract"
)

// Part prefixes of the Vercel AI SDK data stream protocol (v1). Every line is
// `<prefix>:<json>\n`.
const (
	partText       = "0"
	partData       = "2"
	partError      = "3"
	partToolCall   = "9"
	partToolResult = "a"
	partStepFinish = "e"
	partDone       = "d"
)

// DataStreamHeader marks a response as an AI SDK data stream.
const DataStreamHeader = "x-vercel-ai-data-stream"

type toolCallPart struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Args       json.RawMessage `json:"args"`
}

type toolResultPart struct {
	ToolCallID string `json:"toolCallId"`
	ToolName   string `json:"toolName"`
	Result     any    `json:"result"`
}

type finishPart struct {
	FinishReason string `json:"finishReason"`
	Usage        usage  `json:"usage"`
}

type usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

type donePart struct {
	FinishReason string `json:"finishReason"`
}

// artifactPart is the data-part body for one artifact. Data parts carry a
// JSON array, so artifacts are wrapped one per line.
type artifactPart struct {
	Type    string                 `json:"type"`
	Kind    contractx.ArtifactKind `json:"kind"`
	ID      string                 `json:"id,omitempty"`
	Payload any                    `json:"payload"`
}

// dataStream writes turn chunks in the AI SDK wire format and flushes after
// every line so the frontend renders incrementally.
type dataStream struct {
	w       io.Writer
	flusher http.Flusher
}

func newDataStream(w http.ResponseWriter) *dataStream {
	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set(DataStreamHeader, "v1")

	flusher, _ := w.(http.Flusher)
	return &dataStream{w: w, flusher: flusher}
}

func (s *dataStream) writePart(prefix string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s part: %w", prefix, err)
	}
	if _, err := fmt.Fprintf(s.w, "%s:%s\n", prefix, raw); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// writeChunk maps one StreamChunk onto the wire. Done chunks expand into a
// step-finish part followed by the done signal.
func (s *dataStream) writeChunk(chunk contractx.StreamChunk) error {
	switch chunk.Type {
	case contractx.ChunkText:
		return s.writePart(partText, chunk.Text)

	case contractx.ChunkToolCall:
		call := chunk.ToolCall
		return s.writePart(partToolCall, toolCallPart{
			ToolCallID: call.ID,
			ToolName:   call.Name,
			Args:       json.RawMessage(call.Arguments),
		})

	case contractx.ChunkToolResult:
		res := chunk.ToolResult
		result := res.Payload
		if res.Failed() {
			result = map[string]string{"error": res.Error}
		}
		return s.writePart(partToolResult, toolResultPart{
			ToolCallID: res.CallID,
			ToolName:   res.Tool,
			Result:     result,
		})

	case contractx.ChunkArtifact:
		art := chunk.Artifact
		return s.writePart(partData, []artifactPart{{
			Type:    "artifact",
			Kind:    art.Kind,
			ID:      art.ID,
			Payload: art.Payload,
		}})

	case contractx.ChunkError:
		return s.writePart(partError, chunk.Err)

	case contractx.ChunkDone:
		reason := chunk.FinishReason
		if reason == "" {
			reason = contractx.FinishStop
		}
		if err := s.writePart(partStepFinish, finishPart{FinishReason: reason}); err != nil {
			return err
		}
		return s.writePart(partDone, donePart{FinishReason: reason})
	}
	return fmt.Errorf("unknown chunk type %q", chunk.Type)
}
