package tactician

import "strings"

const (
	strategyOpen  = "<strategy>"
	strategyClose = "</strategy>"
)

// strategyScanner watches streamed model text for <strategy>…</strategy>
// spans. Text is never held back; the scanner only lifts a copy of each
// completed span so it can go out as a structured artifact as well.
type strategyScanner struct {
	pending string
	span    strings.Builder
	inSpan  bool
}

// feed consumes one text delta and returns the bodies of any spans it
// completed. Tags split across deltas are handled by carrying a small tail of
// unscanned text between calls.
func (s *strategyScanner) feed(delta string) []string {
	if delta == "" {
		return nil
	}
	s.pending += delta

	var done []string
	for {
		if !s.inSpan {
			idx := strings.Index(s.pending, strategyOpen)
			if idx < 0 {
				s.pending = tailOf(s.pending, len(strategyOpen)-1)
				return done
			}
			s.pending = s.pending[idx+len(strategyOpen):]
			s.span.Reset()
			s.inSpan = true
			continue
		}

		idx := strings.Index(s.pending, strategyClose)
		if idx < 0 {
			hold := len(strategyClose) - 1
			if cut := len(s.pending) - hold; cut > 0 {
				s.span.WriteString(s.pending[:cut])
				s.pending = s.pending[cut:]
			}
			return done
		}
		s.span.WriteString(s.pending[:idx])
		done = append(done, strings.TrimSpace(s.span.String()))
		s.pending = s.pending[idx+len(strategyClose):]
		s.inSpan = false
	}
}

func tailOf(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
