package strategy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	accountx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/account"
	contractx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/contract"
	segmentx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/segment"
)

const (
	StatusDraft    = "draft"
	StatusApproved = "approved"
)

const (
	ScheduleIndividual = "individual_optimal"
	ScheduleSegment    = "segment_optimal"
	ScheduleBatch      = "batch"
)

const (
	TriggerNoPurchaseDays = "no_purchase_days"
	TriggerCartAbandoned  = "cart_abandoned"
	TriggerOrderCompleted = "order_completed"
	TriggerContactCreated = "contact_created"
	TriggerDateBased      = "date_based"
)

var (
	validChannels = map[string]bool{
		accountx.ChannelEmail:    true,
		accountx.ChannelSMS:      true,
		accountx.ChannelWhatsApp: true,
	}
	validSchedules = map[string]bool{
		ScheduleIndividual: true,
		ScheduleSegment:    true,
		ScheduleBatch:      true,
	}
	validTriggers = map[string]bool{
		TriggerNoPurchaseDays: true,
		TriggerCartAbandoned:  true,
		TriggerOrderCompleted: true,
		TriggerContactCreated: true,
		TriggerDateBased:      true,
	}
	validCohorts = map[string]bool{
		"high_value": true,
		"mid_value":  true,
		"standard":   true,
	}
)

type Content struct {
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
	CTA     string `json:"cta"`
	Offer   string `json:"offer,omitempty"`
}

type Schedule struct {
	Type string `json:"type"`
}

// CampaignDraft is a single-send proposal for one cohort. Identity, preview
// URL and timestamps are assigned by the draft store at persist time; the
// assembler keeps its output reproducible.
type CampaignDraft struct {
	Name         string   `json:"name"`
	Channel      string   `json:"channel"`
	Cohort       string   `json:"cohort"`
	AudienceSize int      `json:"audience_size"`
	Content      Content  `json:"content"`
	Schedule     Schedule `json:"schedule"`
	Status       string   `json:"status"`
}

type Trigger struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

type AutomationStep struct {
	Order     int     `json:"order"`
	Channel   string  `json:"channel"`
	Delay     string  `json:"delay"`
	Condition string  `json:"condition,omitempty"`
	Content   Content `json:"content"`
}

type AutomationDraft struct {
	Name           string           `json:"name"`
	Cohort         string           `json:"cohort"`
	Trigger        Trigger          `json:"trigger"`
	Steps          []AutomationStep `json:"steps"`
	ExitConditions []string         `json:"exit_conditions"`
	Status         string           `json:"status"`
}

// CohortPlan is one per-cohort recommendation inside a strategy.
type CohortPlan struct {
	Cohort     segmentx.Cohort  `json:"cohort"`
	Approach   string           `json:"approach"`
	Channels   []string         `json:"channels"`
	Schedule   string           `json:"schedule"`
	Campaign   *CampaignDraft   `json:"campaign,omitempty"`
	Automation *AutomationDraft `json:"automation,omitempty"`
	Note       string           `json:"note,omitempty"`
}

type StrategyArtifact struct {
	Intent          string       `json:"intent"`
	IntentCategory  string       `json:"intent_category"`
	CampaignName    string       `json:"campaign_name"`
	Audience        string       `json:"audience"`
	Axis            string       `json:"axis"`
	TotalContacts   int          `json:"total_contacts"`
	Summary         string       `json:"summary"`
	Recommendations []CohortPlan `json:"recommendations"`
}

// Assembler turns segmented audiences into strategies and drafts by reading
// the policy table. It holds no per-session state.
type Assembler struct {
	policy *Policy
}

func NewAssembler(policy *Policy) (*Assembler, error) {
	if policy == nil {
		return nil, errors.New("nil policy")
	}
	return &Assembler{policy: policy}, nil
}

func (a *Assembler) Policy() *Policy { return a.policy }

// BuildStrategy produces the per-tier plan for an intent. Cohorts are taken
// in engine order (high, mid, standard); empty cohorts stay listed but get no
// drafts.
func (a *Assembler) BuildStrategy(intent, category, campaignName string, seg *segmentx.Segmentation) (*StrategyArtifact, error) {
	if a == nil {
		return nil, errors.New("nil assembler")
	}
	if seg == nil || len(seg.Cohorts) == 0 {
		return nil, fmt.Errorf("%w: segmentation has not run for this session", contractx.ErrInsufficientContext)
	}
	if _, ok := a.policy.Intent(category); !ok {
		return nil, fmt.Errorf("%w: unknown intent category %q", contractx.ErrInvalidArguments, category)
	}

	name := strings.TrimSpace(campaignName)
	if name == "" {
		name = titleCase(category) + " campaign"
	}

	art := &StrategyArtifact{
		Intent:          strings.TrimSpace(intent),
		IntentCategory:  category,
		CampaignName:    name,
		Audience:        seg.Audience,
		Axis:            seg.Axis,
		TotalContacts:   seg.TotalContacts,
		Recommendations: make([]CohortPlan, 0, len(seg.Cohorts)),
	}

	for _, cohort := range seg.Cohorts {
		rule, ok := a.policy.Rule(cohort.Tier, category)
		if !ok {
			return nil, fmt.Errorf("policy missing rule (%s, %s)", cohort.Tier, category)
		}
		art.Recommendations = append(art.Recommendations, a.planCohort(name, category, cohort, rule))
	}

	art.Summary = a.summarize(art)
	return art, nil
}

func (a *Assembler) planCohort(name, category string, cohort segmentx.Cohort, rule Rule) CohortPlan {
	plan := CohortPlan{
		Cohort:   cohort,
		Schedule: rule.Schedule,
		Channels: []string{},
	}
	if cohort.Size == 0 {
		plan.Note = "no contacts in this tier, skipping drafts"
		return plan
	}

	plan.Channels = effectiveChannels(rule.Channels, cohort.Channels)
	primary := plan.Channels[0]
	plan.Approach = fmt.Sprintf("%s (%d contacts): %s via %s, %s sends",
		cohortLabel(cohort.Key), cohort.Size, rule.Tone, strings.Join(plan.Channels, " + "), scheduleLabel(rule.Schedule))

	plan.Campaign = &CampaignDraft{
		Name:         fmt.Sprintf("%s - %s", name, cohortLabel(cohort.Key)),
		Channel:      primary,
		Cohort:       cohort.Key,
		AudienceSize: cohort.Size,
		Content:      a.campaignContent(name, category, cohort, rule),
		Schedule:     Schedule{Type: rule.Schedule},
		Status:       StatusDraft,
	}

	info, _ := a.policy.Intent(category)
	if rule.Automation && info.AutomationTrigger != "" {
		plan.Automation = a.automationDraft(category, cohort, rule, plan.Channels, info)
	}
	return plan
}

func (a *Assembler) campaignContent(name, category string, cohort segmentx.Cohort, rule Rule) Content {
	body := fmt.Sprintf("%s for the %s cohort (%d contacts). Angle: %s.",
		name, cohortLabel(cohort.Key), cohort.Size, rule.Tone)
	if rule.Offer != "" {
		body += fmt.Sprintf(" Offer: %s.", rule.Offer)
	}
	return Content{
		Subject: fmt.Sprintf("%s - %s", name, cohortLabel(cohort.Key)),
		Body:    body,
		CTA:     ctaFor(category),
		Offer:   rule.Offer,
	}
}

func (a *Assembler) automationDraft(category string, cohort segmentx.Cohort, rule Rule, channels []string, info IntentInfo) *AutomationDraft {
	primary := channels[0]
	followUp := primary
	if len(channels) > 1 {
		followUp = channels[1]
	}

	steps := []AutomationStep{
		{
			Order:   1,
			Channel: primary,
			Delay:   "0d",
			Content: Content{
				Subject: info.AutomationName,
				Body:    fmt.Sprintf("Step 1 of %s for the %s cohort: %s.", info.AutomationName, cohortLabel(cohort.Key), rule.Tone),
				CTA:     ctaFor(category),
			},
		},
		{
			Order:     2,
			Channel:   followUp,
			Delay:     "3d",
			Condition: "not_converted",
			Content: Content{
				Subject: info.AutomationName + " reminder",
				Body:    fmt.Sprintf("Follow-up for the %s cohort, sent when the first touch did not convert.", cohortLabel(cohort.Key)),
				CTA:     ctaFor(category),
			},
		},
	}

	return &AutomationDraft{
		Name:           fmt.Sprintf("%s - %s", info.AutomationName, cohortLabel(cohort.Key)),
		Cohort:         cohort.Key,
		Trigger:        Trigger{Type: info.AutomationTrigger, Value: info.TriggerValue},
		Steps:          steps,
		ExitConditions: []string{"purchase_completed", "unsubscribed"},
		Status:         StatusDraft,
	}
}

func (a *Assembler) summarize(art *StrategyArtifact) string {
	parts := make([]string, 0, len(art.Recommendations))
	for _, rec := range art.Recommendations {
		if rec.Cohort.Size == 0 {
			parts = append(parts, fmt.Sprintf("%s empty", rec.Cohort.Key))
			continue
		}
		desc := strings.Join(rec.Channels, "+")
		if rec.Automation != nil {
			desc += " with automation"
		}
		parts = append(parts, fmt.Sprintf("%s %s", rec.Cohort.Key, desc))
	}
	return fmt.Sprintf("%s plan for %d contacts: %s.", titleCase(art.IntentCategory), art.TotalContacts, strings.Join(parts, "; "))
}

// CampaignParams are the arguments of create_campaign_draft.
type CampaignParams struct {
	Name         string   `json:"name"`
	Channel      string   `json:"channel"`
	Cohort       string   `json:"cohort"`
	AudienceSize int      `json:"audience_size"`
	Content      Content  `json:"content"`
	Schedule     Schedule `json:"schedule"`
}

// DraftCampaign validates params and builds an unpersisted campaign draft.
func (a *Assembler) DraftCampaign(p CampaignParams) (*CampaignDraft, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: campaign name is required", contractx.ErrInvalidArguments)
	}
	if !validChannels[p.Channel] {
		return nil, fmt.Errorf("%w: unknown channel %q", contractx.ErrInvalidArguments, p.Channel)
	}
	if !validCohorts[p.Cohort] {
		return nil, fmt.Errorf("%w: unknown cohort %q", contractx.ErrInvalidArguments, p.Cohort)
	}
	if p.AudienceSize < 0 {
		return nil, fmt.Errorf("%w: audience_size must be >= 0", contractx.ErrInvalidArguments)
	}
	if strings.TrimSpace(p.Content.Body) == "" || strings.TrimSpace(p.Content.CTA) == "" {
		return nil, fmt.Errorf("%w: content body and cta are required", contractx.ErrInvalidArguments)
	}
	schedule := p.Schedule.Type
	if schedule == "" {
		schedule = ScheduleBatch
	}
	if !validSchedules[schedule] {
		return nil, fmt.Errorf("%w: unknown schedule type %q", contractx.ErrInvalidArguments, schedule)
	}

	return &CampaignDraft{
		Name:         strings.TrimSpace(p.Name),
		Channel:      p.Channel,
		Cohort:       p.Cohort,
		AudienceSize: p.AudienceSize,
		Content:      p.Content,
		Schedule:     Schedule{Type: schedule},
		Status:       StatusDraft,
	}, nil
}

// AutomationParams are the arguments of create_automation_draft.
type AutomationParams struct {
	Name           string           `json:"name"`
	Cohort         string           `json:"cohort"`
	Trigger        Trigger          `json:"trigger"`
	Steps          []AutomationStep `json:"steps"`
	ExitConditions []string         `json:"exit_conditions"`
}

// DraftAutomation validates params and builds an unpersisted workflow draft.
// Steps are normalized into ascending order.
func (a *Assembler) DraftAutomation(p AutomationParams) (*AutomationDraft, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: automation name is required", contractx.ErrInvalidArguments)
	}
	if !validCohorts[p.Cohort] {
		return nil, fmt.Errorf("%w: unknown cohort %q", contractx.ErrInvalidArguments, p.Cohort)
	}
	if !validTriggers[p.Trigger.Type] {
		return nil, fmt.Errorf("%w: unknown trigger type %q", contractx.ErrInvalidArguments, p.Trigger.Type)
	}
	if len(p.Steps) == 0 {
		return nil, fmt.Errorf("%w: at least one step is required", contractx.ErrInvalidArguments)
	}

	steps := append([]AutomationStep(nil), p.Steps...)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })
	seen := make(map[int]bool, len(steps))
	for _, step := range steps {
		if !validChannels[step.Channel] {
			return nil, fmt.Errorf("%w: step %d has unknown channel %q", contractx.ErrInvalidArguments, step.Order, step.Channel)
		}
		if seen[step.Order] {
			return nil, fmt.Errorf("%w: duplicate step order %d", contractx.ErrInvalidArguments, step.Order)
		}
		seen[step.Order] = true
	}

	exits := p.ExitConditions
	if len(exits) == 0 {
		exits = []string{"unsubscribed"}
	}

	return &AutomationDraft{
		Name:           strings.TrimSpace(p.Name),
		Cohort:         p.Cohort,
		Trigger:        p.Trigger,
		Steps:          steps,
		ExitConditions: exits,
		Status:         StatusDraft,
	}, nil
}

func effectiveChannels(ruleChannels, cohortChannels []string) []string {
	available := make(map[string]bool, len(cohortChannels))
	for _, ch := range cohortChannels {
		available[ch] = true
	}
	out := make([]string, 0, len(ruleChannels))
	for _, ch := range ruleChannels {
		if available[ch] {
			out = append(out, ch)
		}
	}
	if len(out) == 0 {
		out = append(out, accountx.ChannelEmail)
	}
	return out
}

func cohortLabel(key string) string {
	switch key {
	case "high_value":
		return "High-value"
	case "mid_value":
		return "Mid-value"
	default:
		return "Standard"
	}
}

func scheduleLabel(schedule string) string {
	switch schedule {
	case ScheduleIndividual:
		return "per-recipient optimal"
	case ScheduleSegment:
		return "segment-optimal"
	default:
		return "single batch"
	}
}

func ctaFor(category string) string {
	switch category {
	case "product_launch":
		return "Shop the new collection"
	case "promotion":
		return "Claim your offer"
	case "win_back":
		return "See what's new"
	case "onboarding":
		return "Get started"
	default:
		return "Read the latest"
	}
}

func titleCase(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
