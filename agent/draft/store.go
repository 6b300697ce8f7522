package draft

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	strategyx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/strategy"
)

var (
	ErrNotFound          = errors.New("draft not found")
	ErrInvalidTransition = errors.New("invalid draft status transition")
)

const defaultPreviewBase = "https://app.tactician.example"

type Config struct {
	DSN            string `envconfig:"DSN" split_words:"true"`
	PreviewBaseURL string `envconfig:"PREVIEW_BASE_URL" split_words:"true" default:"https://app.tactician.example"`
}

// Store persists draft artifacts. Approval is the only path that moves a
// draft out of the draft status.
type Store interface {
	SaveCampaign(ctx context.Context, d *strategyx.CampaignDraft) (*Record, error)
	SaveAutomation(ctx context.Context, d *strategyx.AutomationDraft) (*Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	SetStatus(ctx context.Context, id, status string) (*Record, error)
	List(ctx context.Context, status string) ([]Record, error)
}

func validTransition(from, to string) error {
	if to != strategyx.StatusDraft && to != strategyx.StatusApproved {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if from == strategyx.StatusApproved && to == strategyx.StatusDraft {
		return fmt.Errorf("%w: approved drafts cannot be reverted", ErrInvalidTransition)
	}
	return nil
}

// MemoryStore keeps records in process memory. Default backend when no
// Postgres DSN is configured; also the test double for the bun store.
type MemoryStore struct {
	mu          sync.RWMutex
	records     map[string]*Record
	previewBase string

	now func() time.Time
}

func NewMemoryStore(previewBase string) *MemoryStore {
	if previewBase == "" {
		previewBase = defaultPreviewBase
	}
	return &MemoryStore{
		records:     make(map[string]*Record, 16),
		previewBase: previewBase,
		now:         time.Now,
	}
}

func (s *MemoryStore) SaveCampaign(_ context.Context, d *strategyx.CampaignDraft) (*Record, error) {
	if d == nil {
		return nil, errors.New("nil campaign draft")
	}
	rec := newCampaignRecord(d, s.previewBase, s.now())
	s.put(rec)
	return cloneRecord(rec), nil
}

func (s *MemoryStore) SaveAutomation(_ context.Context, d *strategyx.AutomationDraft) (*Record, error) {
	if d == nil {
		return nil, errors.New("nil automation draft")
	}
	rec := newAutomationRecord(d, s.previewBase, s.now())
	s.put(rec)
	return cloneRecord(rec), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) SetStatus(_ context.Context, id, status string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := validTransition(rec.Status, status); err != nil {
		return nil, err
	}
	rec.Status = status
	rec.UpdatedAt = s.now().UTC()
	if rec.Campaign != nil {
		rec.Campaign.Status = status
	}
	if rec.Automation != nil {
		rec.Automation.Status = status
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) List(_ context.Context, status string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		if status != "" && rec.Status != status {
			continue
		}
		out = append(out, *cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) put(rec *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
}

func cloneRecord(rec *Record) *Record {
	clone := *rec
	if rec.Campaign != nil {
		c := *rec.Campaign
		clone.Campaign = &c
	}
	if rec.Automation != nil {
		a := *rec.Automation
		a.Steps = append([]strategyx.AutomationStep(nil), rec.Automation.Steps...)
		a.ExitConditions = append([]string(nil), rec.Automation.ExitConditions...)
		clone.Automation = &a
	}
	return &clone
}
