package account

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	contractx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/contract"
)

//go:embed fixtures/*.json
var fixtureFS embed.FS

const (
	defaultHistoryLimit = 10

	fileAccountContext  = "account_context.json"
	fileCampaignHistory = "campaign_history.json"
	fileAutomations     = "automations.json"
	fileValueSignals    = "value_signals.json"
	filePerformance     = "performance.json"
)

// Source is the account-data capability behind the read tools. Implementations
// must wrap contract.ErrAccountNotFound for unknown account ids and
// contract.ErrDataSourceUnavailable when the backing data cannot be reached.
type Source interface {
	AccountContext(ctx context.Context, accountID string) (*AccountContext, error)
	ValueSignals(ctx context.Context, accountID string, filter BaseFilter) (*ValueSignals, error)
	CampaignHistory(ctx context.Context, accountID string, limit int) ([]CampaignRecord, error)
	ActiveAutomations(ctx context.Context, accountID string) ([]AutomationRecord, error)
	Performance(ctx context.Context, accountID string, period string) (*PerformanceReport, error)
}

// MockOption customizes MockSource.
type MockOption func(*MockSource)

// WithDataDir loads fixtures from dir instead of the embedded set. Files keep
// the embedded names; missing files fall back to the embedded copy.
func WithDataDir(dir string) MockOption {
	return func(s *MockSource) {
		s.dataDir = strings.TrimSpace(dir)
	}
}

// MockSource serves account data from JSON fixtures. Safe for concurrent use;
// ReloadFile lets a directory watcher swap fixtures at runtime.
type MockSource struct {
	mu      sync.RWMutex
	dataDir string

	context     *AccountContext
	history     []CampaignRecord
	automations []AutomationRecord
	signals     map[string]*ValueSignals
	performance map[string]*PerformanceReport
}

func NewMockSource(opts ...MockOption) (*MockSource, error) {
	s := &MockSource{
		signals:     make(map[string]*ValueSignals, 2),
		performance: make(map[string]*PerformanceReport, 3),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	for _, name := range []string{fileAccountContext, fileCampaignHistory, fileAutomations, fileValueSignals, filePerformance} {
		data, err := s.readFixture(name)
		if err != nil {
			return nil, err
		}
		if err := s.apply(name, data); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// DataDir returns the override directory, empty when running on embedded data.
func (s *MockSource) DataDir() string {
	return s.dataDir
}

func (s *MockSource) readFixture(name string) ([]byte, error) {
	if s.dataDir != "" {
		data, err := os.ReadFile(filepath.Join(s.dataDir, name))
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read fixture %s: %w", name, err)
		}
	}
	data, err := fixtureFS.ReadFile("fixtures/" + name)
	if err != nil {
		return nil, fmt.Errorf("read embedded fixture %s: %w", name, err)
	}
	return data, nil
}

// ReloadFile re-parses one fixture file in place. The base name selects the
// dataset; unknown names are ignored.
func (s *MockSource) ReloadFile(path string) error {
	name := filepath.Base(path)
	switch name {
	case fileAccountContext, fileCampaignHistory, fileAutomations, fileValueSignals, filePerformance:
	default:
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reload fixture %s: %w", name, err)
	}
	return s.apply(name, data)
}

func (s *MockSource) apply(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case fileAccountContext:
		var ctx AccountContext
		if err := json.Unmarshal(data, &ctx); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		if strings.TrimSpace(ctx.AccountID) == "" {
			return fmt.Errorf("parse %s: account_id is empty", name)
		}
		s.context = &ctx
	case fileCampaignHistory:
		var records []CampaignRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].SentAt.After(records[j].SentAt)
		})
		s.history = records
	case fileAutomations:
		var records []AutomationRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		s.automations = records
	case fileValueSignals:
		var sets map[string]*ValueSignals
		if err := json.Unmarshal(data, &sets); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		for audience, set := range sets {
			if set == nil || len(set.Buckets) == 0 {
				return fmt.Errorf("parse %s: audience %s has no buckets", name, audience)
			}
			total := 0
			for _, b := range set.Buckets {
				total += b.Contacts
			}
			if set.TotalContacts != total {
				return fmt.Errorf("parse %s: audience %s total %d != bucket sum %d", name, audience, set.TotalContacts, total)
			}
			set.Audience = audience
		}
		s.signals = sets
	case filePerformance:
		var reports map[string]*PerformanceReport
		if err := json.Unmarshal(data, &reports); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		for period, r := range reports {
			if r != nil {
				r.Period = period
			}
		}
		s.performance = reports
	}
	return nil
}

func (s *MockSource) AccountContext(_ context.Context, accountID string) (*AccountContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkAccount(accountID); err != nil {
		return nil, err
	}
	clone := *s.context
	return &clone, nil
}

func (s *MockSource) ValueSignals(_ context.Context, accountID string, filter BaseFilter) (*ValueSignals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkAccount(accountID); err != nil {
		return nil, err
	}
	set, ok := s.signals[filter.AudienceKey()]
	if !ok {
		return nil, fmt.Errorf("%w: no value signals for audience %s", contractx.ErrDataSourceUnavailable, filter.AudienceKey())
	}
	clone := *set
	clone.Buckets = append([]SignalBucket(nil), set.Buckets...)
	return &clone, nil
}

func (s *MockSource) CampaignHistory(_ context.Context, accountID string, limit int) ([]CampaignRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkAccount(accountID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > len(s.history) {
		limit = len(s.history)
	}
	return append([]CampaignRecord(nil), s.history[:limit]...), nil
}

func (s *MockSource) ActiveAutomations(_ context.Context, accountID string) ([]AutomationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkAccount(accountID); err != nil {
		return nil, err
	}
	active := make([]AutomationRecord, 0, len(s.automations))
	for _, a := range s.automations {
		if a.Status == "active" {
			active = append(active, a)
		}
	}
	return active, nil
}

func (s *MockSource) Performance(_ context.Context, accountID string, period string) (*PerformanceReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkAccount(accountID); err != nil {
		return nil, err
	}
	report, ok := s.performance[period]
	if !ok {
		return nil, fmt.Errorf("%w: no performance data for period %s", contractx.ErrDataSourceUnavailable, period)
	}
	clone := *report
	return &clone, nil
}

func (s *MockSource) checkAccount(accountID string) error {
	if s.context == nil {
		return fmt.Errorf("%w: account context fixture not loaded", contractx.ErrDataSourceUnavailable)
	}
	if accountID != s.context.AccountID {
		return fmt.Errorf("%w: %s", contractx.ErrAccountNotFound, accountID)
	}
	return nil
}
