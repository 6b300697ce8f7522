package tactician

import "testing"

func feedAll(s *strategyScanner, deltas ...string) []string {
	var spans []string
	for _, d := range deltas {
		spans = append(spans, s.feed(d)...)
	}
	return spans
}

func TestStrategyScanner(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		deltas []string
		want   []string
	}{
		{
			name:   "single delta",
			deltas: []string{`before <strategy>{"a":1}</strategy> after`},
			want:   []string{`{"a":1}`},
		},
		{
			name:   "tags split across deltas",
			deltas: []string{"intro <strat", `egy>{"a":`, `1}</strat`, "egy> outro"},
			want:   []string{`{"a":1}`},
		},
		{
			name:   "two spans",
			deltas: []string{`<strategy>{"a":1}</strategy> mid <strategy>{"b":2}</strategy>`},
			want:   []string{`{"a":1}`, `{"b":2}`},
		},
		{
			name:   "body trimmed",
			deltas: []string{"<strategy>\n  {\"a\":1}\n</strategy>"},
			want:   []string{`{"a":1}`},
		},
		{
			name:   "unterminated span",
			deltas: []string{`<strategy>{"a":1}`, " still open"},
			want:   nil,
		},
		{
			name:   "partial open tag never completed",
			deltas: []string{"text <strat", "tional thinking"},
			want:   nil,
		},
		{
			name:   "plain text",
			deltas: []string{"no tags ", "anywhere"},
			want:   nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := feedAll(&strategyScanner{}, tt.deltas...)
			if len(got) != len(tt.want) {
				t.Fatalf("spans = %q, want %q", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("span[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestStrategyScannerKeepsSmallTail(t *testing.T) {
	t.Parallel()

	s := &strategyScanner{}
	for i := 0; i < 100; i++ {
		s.feed("plain text with no tags at all ")
	}
	if len(s.pending) >= len(strategyOpen) {
		t.Fatalf("pending window = %d bytes, want < %d", len(s.pending), len(strategyOpen))
	}
}
