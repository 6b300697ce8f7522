package draft

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	strategyx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/strategy"
)

const (
	KindCampaign   = "campaign"
	KindAutomation = "automation"
)

// Record is a persisted draft artifact. Exactly one of Campaign/Automation is
// set, matching Kind.
type Record struct {
	bun.BaseModel `bun:"table:drafts,alias:d" json:"-"`

	ID         string                     `bun:"id,pk" json:"id"`
	Kind       string                     `bun:"kind,notnull" json:"kind"`
	Name       string                     `bun:"name,notnull" json:"name"`
	Cohort     string                     `bun:"cohort" json:"cohort"`
	Status     string                     `bun:"status,notnull" json:"status"`
	PreviewURL string                     `bun:"preview_url" json:"preview_url"`
	Campaign   *strategyx.CampaignDraft   `bun:"campaign,type:jsonb,nullzero" json:"campaign,omitempty"`
	Automation *strategyx.AutomationDraft `bun:"automation,type:jsonb,nullzero" json:"automation,omitempty"`
	CreatedAt  time.Time                  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt  time.Time                  `bun:"updated_at,notnull" json:"updated_at"`
}

// newDraftID mints ids in the draft_<8 hex> / wf_draft_<8 hex> format the
// preview frontend expects.
func newDraftID(kind string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if kind == KindAutomation {
		return "wf_draft_" + hex
	}
	return "draft_" + hex
}

func previewURL(base, kind, id string) string {
	base = strings.TrimRight(base, "/")
	if kind == KindAutomation {
		return fmt.Sprintf("%s/automations/%s/preview", base, id)
	}
	return fmt.Sprintf("%s/campaigns/%s/preview", base, id)
}

func newCampaignRecord(d *strategyx.CampaignDraft, base string, now time.Time) *Record {
	id := newDraftID(KindCampaign)
	clone := *d
	clone.Status = strategyx.StatusDraft
	return &Record{
		ID:         id,
		Kind:       KindCampaign,
		Name:       clone.Name,
		Cohort:     clone.Cohort,
		Status:     strategyx.StatusDraft,
		PreviewURL: previewURL(base, KindCampaign, id),
		Campaign:   &clone,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}
}

func newAutomationRecord(d *strategyx.AutomationDraft, base string, now time.Time) *Record {
	id := newDraftID(KindAutomation)
	clone := *d
	clone.Status = strategyx.StatusDraft
	return &Record{
		ID:         id,
		Kind:       KindAutomation,
		Name:       clone.Name,
		Cohort:     clone.Cohort,
		Status:     strategyx.StatusDraft,
		PreviewURL: previewURL(base, KindAutomation, id),
		Automation: &clone,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}
}
