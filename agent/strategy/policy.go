package strategy

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	segmentx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/segment"
)

//go:embed policy.yaml
var policyYAML []byte

// IntentInfo describes one intent category: whether it implies a lifecycle
// journey and which automation trigger backs it.
type IntentInfo struct {
	Lifecycle         bool   `yaml:"lifecycle"`
	AutomationTrigger string `yaml:"automation_trigger"`
	TriggerValue      string `yaml:"trigger_value"`
	AutomationName    string `yaml:"automation_name"`
}

// Rule is one row of the (tier, intent) policy matrix.
type Rule struct {
	Tier       string   `yaml:"tier"`
	Intent     string   `yaml:"intent"`
	Channels   []string `yaml:"channels"`
	Schedule   string   `yaml:"schedule"`
	Automation bool     `yaml:"automation"`
	Tone       string   `yaml:"tone"`
	Offer      string   `yaml:"offer"`
}

type ruleKey struct {
	tier   string
	intent string
}

// Policy is the loaded strategy table. It is immutable after load and safe to
// share across sessions.
type Policy struct {
	Intents map[string]IntentInfo `yaml:"intent_categories"`
	Rules   []Rule                `yaml:"rules"`

	index map[ruleKey]Rule
}

// LoadPolicy parses the embedded table and verifies it covers every
// (tier, intent) pair exactly once.
func LoadPolicy() (*Policy, error) {
	return loadPolicy(policyYAML)
}

func loadPolicy(raw []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if len(p.Intents) == 0 {
		return nil, fmt.Errorf("policy has no intent categories")
	}

	p.index = make(map[ruleKey]Rule, len(p.Rules))
	for _, r := range p.Rules {
		if _, ok := p.Intents[r.Intent]; !ok {
			return nil, fmt.Errorf("policy rule references unknown intent %q", r.Intent)
		}
		if len(r.Channels) == 0 {
			return nil, fmt.Errorf("policy rule (%s, %s) has no channels", r.Tier, r.Intent)
		}
		key := ruleKey{tier: r.Tier, intent: r.Intent}
		if _, dup := p.index[key]; dup {
			return nil, fmt.Errorf("duplicate policy rule (%s, %s)", r.Tier, r.Intent)
		}
		p.index[key] = r
	}

	for intent := range p.Intents {
		for _, tier := range []segmentx.Tier{segmentx.TierHigh, segmentx.TierMid, segmentx.TierStandard} {
			if _, ok := p.index[ruleKey{tier: string(tier), intent: intent}]; !ok {
				return nil, fmt.Errorf("policy missing rule (%s, %s)", tier, intent)
			}
		}
	}
	return &p, nil
}

// Rule returns the policy row for a tier and intent category.
func (p *Policy) Rule(tier segmentx.Tier, intent string) (Rule, bool) {
	if p == nil {
		return Rule{}, false
	}
	r, ok := p.index[ruleKey{tier: string(tier), intent: intent}]
	return r, ok
}

func (p *Policy) Intent(category string) (IntentInfo, bool) {
	if p == nil {
		return IntentInfo{}, false
	}
	info, ok := p.Intents[category]
	return info, ok
}

// Categories lists the known intent categories in stable order. The tool
// catalog uses this as the enum for build_strategy.
func (p *Policy) Categories() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.Intents))
	for c := range p.Intents {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
