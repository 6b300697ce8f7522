package strategy

import (
	"errors"
	"reflect"
	"testing"

	contractx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/contract"
	segmentx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/segment"
)

func newTestAssembler(t *testing.T) *Assembler {
	t.Helper()
	policy, err := LoadPolicy()
	if err != nil {
		t.Fatalf("LoadPolicy() error = %v", err)
	}
	asm, err := NewAssembler(policy)
	if err != nil {
		t.Fatalf("NewAssembler() error = %v", err)
	}
	return asm
}

func demoSegmentation() *segmentx.Segmentation {
	return &segmentx.Segmentation{
		Audience:      "all_customers",
		Axis:          "ltv",
		TotalContacts: 48500,
		Cohorts: []segmentx.Cohort{
			{Tier: segmentx.TierHigh, Key: "high_value", Size: 5000, Channels: []string{"email", "sms", "whatsapp"}, AvgLTV: 762.4},
			{Tier: segmentx.TierMid, Key: "mid_value", Size: 10000, Channels: []string{"email", "sms"}, AvgLTV: 354.6},
			{Tier: segmentx.TierStandard, Key: "standard", Size: 33500, Channels: []string{"email"}, AvgLTV: 93.6},
		},
	}
}

func TestBuildStrategyLaunchShape(t *testing.T) {
	t.Parallel()

	asm := newTestAssembler(t)
	art, err := asm.BuildStrategy("Launch a campaign for our new wireless earbuds", "product_launch", "Wireless earbuds launch", demoSegmentation())
	if err != nil {
		t.Fatalf("BuildStrategy() error = %v", err)
	}

	if len(art.Recommendations) != 3 {
		t.Fatalf("len(recommendations) = %d, want 3", len(art.Recommendations))
	}

	high := art.Recommendations[0]
	if high.Campaign == nil || high.Automation == nil {
		t.Fatalf("high tier campaign/automation = %v/%v, want draft pair", high.Campaign, high.Automation)
	}
	if high.Campaign.Channel != "whatsapp" {
		t.Fatalf("high tier campaign channel = %q, want whatsapp", high.Campaign.Channel)
	}
	if high.Campaign.Schedule.Type != ScheduleIndividual {
		t.Fatalf("high tier schedule = %q, want %q", high.Campaign.Schedule.Type, ScheduleIndividual)
	}
	if high.Automation.Trigger.Type != TriggerOrderCompleted {
		t.Fatalf("high tier automation trigger = %q, want %q", high.Automation.Trigger.Type, TriggerOrderCompleted)
	}

	standard := art.Recommendations[2]
	if standard.Campaign == nil {
		t.Fatal("standard tier has no campaign draft")
	}
	if standard.Automation != nil {
		t.Fatal("standard tier got an automation draft")
	}
	if standard.Campaign.Channel != "email" {
		t.Fatalf("standard tier channel = %q, want email", standard.Campaign.Channel)
	}
	if !reflect.DeepEqual(standard.Channels, []string{"email"}) {
		t.Fatalf("standard tier channels = %v, want [email]", standard.Channels)
	}
	if standard.Campaign.Schedule.Type != ScheduleBatch {
		t.Fatalf("standard tier schedule = %q, want %q", standard.Campaign.Schedule.Type, ScheduleBatch)
	}
}

func TestBuildStrategyRespectsCohortOptIns(t *testing.T) {
	t.Parallel()

	// High tier without whatsapp opt-ins must not get whatsapp sends even
	// though the policy prefers it.
	seg := demoSegmentation()
	seg.Cohorts[0].Channels = []string{"email", "sms"}

	asm := newTestAssembler(t)
	art, err := asm.BuildStrategy("launch", "product_launch", "", seg)
	if err != nil {
		t.Fatalf("BuildStrategy() error = %v", err)
	}
	high := art.Recommendations[0]
	if !reflect.DeepEqual(high.Channels, []string{"email"}) {
		t.Fatalf("high tier channels = %v, want [email]", high.Channels)
	}
	if high.Campaign.Channel != "email" {
		t.Fatalf("high tier campaign channel = %q, want email", high.Campaign.Channel)
	}
}

func TestBuildStrategySkipsEmptyCohorts(t *testing.T) {
	t.Parallel()

	seg := demoSegmentation()
	seg.Cohorts[1].Size = 0
	seg.Cohorts[1].Channels = nil
	seg.TotalContacts = 38500

	asm := newTestAssembler(t)
	art, err := asm.BuildStrategy("bring back lapsed buyers", "win_back", "", seg)
	if err != nil {
		t.Fatalf("BuildStrategy() error = %v", err)
	}

	mid := art.Recommendations[1]
	if mid.Campaign != nil || mid.Automation != nil {
		t.Fatal("empty cohort received drafts")
	}
	if mid.Note == "" {
		t.Fatal("empty cohort has no explanatory note")
	}
	if art.Recommendations[0].Campaign == nil {
		t.Fatal("non-empty cohort lost its draft")
	}
}

func TestBuildStrategyWithoutSegmentation(t *testing.T) {
	t.Parallel()

	asm := newTestAssembler(t)
	_, err := asm.BuildStrategy("launch", "product_launch", "", nil)
	if !errors.Is(err, contractx.ErrInsufficientContext) {
		t.Fatalf("BuildStrategy() error = %v, want ErrInsufficientContext", err)
	}
}

func TestBuildStrategyUnknownCategory(t *testing.T) {
	t.Parallel()

	asm := newTestAssembler(t)
	_, err := asm.BuildStrategy("launch", "world_domination", "", demoSegmentation())
	if !errors.Is(err, contractx.ErrInvalidArguments) {
		t.Fatalf("BuildStrategy() error = %v, want ErrInvalidArguments", err)
	}
}

func TestBuildStrategyDeterministic(t *testing.T) {
	t.Parallel()

	asm := newTestAssembler(t)
	first, err := asm.BuildStrategy("re-engage", "win_back", "Comeback fall", demoSegmentation())
	if err != nil {
		t.Fatalf("BuildStrategy() error = %v", err)
	}
	second, err := asm.BuildStrategy("re-engage", "win_back", "Comeback fall", demoSegmentation())
	if err != nil {
		t.Fatalf("BuildStrategy() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("BuildStrategy() not deterministic")
	}
}

func TestDraftCampaignValidation(t *testing.T) {
	t.Parallel()

	asm := newTestAssembler(t)
	valid := CampaignParams{
		Name:         "Earbuds launch",
		Channel:      "email",
		Cohort:       "mid_value",
		AudienceSize: 10000,
		Content:      Content{Body: "New earbuds are here", CTA: "Shop now"},
	}

	draft, err := asm.DraftCampaign(valid)
	if err != nil {
		t.Fatalf("DraftCampaign() error = %v", err)
	}
	if draft.Status != StatusDraft {
		t.Fatalf("Status = %q, want %q", draft.Status, StatusDraft)
	}
	if draft.Schedule.Type != ScheduleBatch {
		t.Fatalf("Schedule = %q, want batch default", draft.Schedule.Type)
	}

	bad := valid
	bad.Channel = "carrier_pigeon"
	if _, err := asm.DraftCampaign(bad); !errors.Is(err, contractx.ErrInvalidArguments) {
		t.Fatalf("DraftCampaign(bad channel) error = %v, want ErrInvalidArguments", err)
	}

	bad = valid
	bad.Content.CTA = ""
	if _, err := asm.DraftCampaign(bad); !errors.Is(err, contractx.ErrInvalidArguments) {
		t.Fatalf("DraftCampaign(no cta) error = %v, want ErrInvalidArguments", err)
	}
}

func TestDraftAutomationNormalizesSteps(t *testing.T) {
	t.Parallel()

	asm := newTestAssembler(t)
	params := AutomationParams{
		Name:    "Win-back journey",
		Cohort:  "high_value",
		Trigger: Trigger{Type: TriggerNoPurchaseDays, Value: "60"},
		Steps: []AutomationStep{
			{Order: 2, Channel: "email", Delay: "3d", Content: Content{Body: "still thinking it over?", CTA: "Come back"}},
			{Order: 1, Channel: "whatsapp", Delay: "0d", Content: Content{Body: "we miss you", CTA: "Come back"}},
		},
	}

	draft, err := asm.DraftAutomation(params)
	if err != nil {
		t.Fatalf("DraftAutomation() error = %v", err)
	}
	if draft.Steps[0].Order != 1 || draft.Steps[1].Order != 2 {
		t.Fatalf("steps not sorted: %v", draft.Steps)
	}
	if len(draft.ExitConditions) == 0 {
		t.Fatal("exit conditions defaulted to empty")
	}

	params.Steps[0].Order = 1
	if _, err := asm.DraftAutomation(params); !errors.Is(err, contractx.ErrInvalidArguments) {
		t.Fatalf("DraftAutomation(duplicate order) error = %v, want ErrInvalidArguments", err)
	}

	params.Steps = nil
	if _, err := asm.DraftAutomation(params); !errors.Is(err, contractx.ErrInvalidArguments) {
		t.Fatalf("DraftAutomation(no steps) error = %v, want ErrInvalidArguments", err)
	}
}
