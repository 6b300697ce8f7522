package prompt

import (
	_ "embed"
	"strings"
)

//go:embed template/tactician.txt
var tacticianRaw string

// System returns the Tactician system prompt.
func System() string {
	return strings.TrimSpace(tacticianRaw)
}
