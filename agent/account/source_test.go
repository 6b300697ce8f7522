package account

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	contractx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/contract"
)

const testAccountID = "acct_demo"

func newTestSource(t *testing.T, opts ...MockOption) *MockSource {
	t.Helper()
	src, err := NewMockSource(opts...)
	if err != nil {
		t.Fatalf("NewMockSource() error = %v", err)
	}
	return src
}

func TestMockSourceAccountContext(t *testing.T) {
	t.Parallel()

	src := newTestSource(t)
	got, err := src.AccountContext(context.Background(), testAccountID)
	if err != nil {
		t.Fatalf("AccountContext() error = %v", err)
	}
	if got.AccountID != testAccountID {
		t.Fatalf("AccountID = %q, want %q", got.AccountID, testAccountID)
	}
	if got.TotalContacts != 48500 {
		t.Fatalf("TotalContacts = %d, want 48500", got.TotalContacts)
	}
	if len(got.Channels) != 3 {
		t.Fatalf("len(Channels) = %d, want 3", len(got.Channels))
	}
}

func TestMockSourceUnknownAccount(t *testing.T) {
	t.Parallel()

	src := newTestSource(t)
	_, err := src.AccountContext(context.Background(), "acct_missing")
	if !errors.Is(err, contractx.ErrAccountNotFound) {
		t.Fatalf("AccountContext() error = %v, want ErrAccountNotFound", err)
	}
}

func TestMockSourceCampaignHistoryLimit(t *testing.T) {
	t.Parallel()

	src := newTestSource(t)

	defaulted, err := src.CampaignHistory(context.Background(), testAccountID, 0)
	if err != nil {
		t.Fatalf("CampaignHistory() error = %v", err)
	}
	if len(defaulted) != defaultHistoryLimit {
		t.Fatalf("len(history) = %d, want %d", len(defaulted), defaultHistoryLimit)
	}

	limited, err := src.CampaignHistory(context.Background(), testAccountID, 3)
	if err != nil {
		t.Fatalf("CampaignHistory() error = %v", err)
	}
	if len(limited) != 3 {
		t.Fatalf("len(history) = %d, want 3", len(limited))
	}
	for i := 1; i < len(limited); i++ {
		if limited[i].SentAt.After(limited[i-1].SentAt) {
			t.Fatalf("history not sorted newest-first at index %d", i)
		}
	}
}

func TestMockSourceValueSignalsAudience(t *testing.T) {
	t.Parallel()

	src := newTestSource(t)

	lapsed, err := src.ValueSignals(context.Background(), testAccountID, BaseFilter{Type: "no_purchase", Days: 90})
	if err != nil {
		t.Fatalf("ValueSignals() error = %v", err)
	}
	if lapsed.Audience != AudienceNoPurchase90 {
		t.Fatalf("Audience = %q, want %q", lapsed.Audience, AudienceNoPurchase90)
	}

	all, err := src.ValueSignals(context.Background(), testAccountID, BaseFilter{Type: "all_subscribers"})
	if err != nil {
		t.Fatalf("ValueSignals() error = %v", err)
	}
	if all.Audience != AudienceAllCustomers {
		t.Fatalf("Audience = %q, want %q", all.Audience, AudienceAllCustomers)
	}

	sum := 0
	for _, b := range all.Buckets {
		sum += b.Contacts
	}
	if sum != all.TotalContacts {
		t.Fatalf("bucket sum = %d, want %d", sum, all.TotalContacts)
	}
}

func TestMockSourceActiveAutomationsFiltersInactive(t *testing.T) {
	t.Parallel()

	src := newTestSource(t)
	got, err := src.ActiveAutomations(context.Background(), testAccountID)
	if err != nil {
		t.Fatalf("ActiveAutomations() error = %v", err)
	}
	for _, a := range got {
		if a.Status != "active" {
			t.Fatalf("automation %s has status %q, want active", a.ID, a.Status)
		}
	}
	if len(got) != 2 {
		t.Fatalf("len(automations) = %d, want 2", len(got))
	}
}

func TestMockSourcePerformanceUnknownPeriod(t *testing.T) {
	t.Parallel()

	src := newTestSource(t)
	_, err := src.Performance(context.Background(), testAccountID, "last_365d")
	if !errors.Is(err, contractx.ErrDataSourceUnavailable) {
		t.Fatalf("Performance() error = %v, want ErrDataSourceUnavailable", err)
	}
}

func TestMockSourceDataDirOverrideAndReload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	override := []byte(`{
		"account_id": "acct_demo",
		"business_name": "Override Goods",
		"industry": "ecommerce",
		"total_contacts": 100,
		"channels": [{"channel": "email", "enabled": true, "opted_in": 100}]
	}`)
	path := filepath.Join(dir, "account_context.json")
	if err := os.WriteFile(path, override, 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	src := newTestSource(t, WithDataDir(dir))
	got, err := src.AccountContext(context.Background(), testAccountID)
	if err != nil {
		t.Fatalf("AccountContext() error = %v", err)
	}
	if got.BusinessName != "Override Goods" {
		t.Fatalf("BusinessName = %q, want override", got.BusinessName)
	}

	// Files absent from the directory fall back to the embedded fixtures.
	history, err := src.CampaignHistory(context.Background(), testAccountID, 1)
	if err != nil {
		t.Fatalf("CampaignHistory() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("len(history) = %d, want 1", len(history))
	}

	updated := []byte(`{
		"account_id": "acct_demo",
		"business_name": "Reloaded Goods",
		"industry": "ecommerce",
		"total_contacts": 100,
		"channels": [{"channel": "email", "enabled": true, "opted_in": 100}]
	}`)
	if err := os.WriteFile(path, updated, 0o644); err != nil {
		t.Fatalf("rewrite override: %v", err)
	}
	if err := src.ReloadFile(path); err != nil {
		t.Fatalf("ReloadFile() error = %v", err)
	}

	got, err = src.AccountContext(context.Background(), testAccountID)
	if err != nil {
		t.Fatalf("AccountContext() error = %v", err)
	}
	if got.BusinessName != "Reloaded Goods" {
		t.Fatalf("BusinessName = %q, want reloaded", got.BusinessName)
	}
}
