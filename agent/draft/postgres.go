package draft

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	strategyx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/strategy"
)

// BunStore persists drafts in Postgres. The drafts table is created on first
// start so a fresh database works without a migration step.
type BunStore struct {
	db          *bun.DB
	previewBase string

	now func() time.Time
}

func NewBunStore(ctx context.Context, cfg Config) (*BunStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres dsn is required")
	}
	base := cfg.PreviewBaseURL
	if base == "" {
		base = defaultPreviewBase
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	db := bun.NewDB(sqldb, pgdialect.New())

	store := &BunStore{db: db, previewBase: base, now: time.Now}
	if _, err := db.NewCreateTable().Model((*Record)(nil)).IfNotExists().Exec(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create drafts table: %w", err)
	}
	return store, nil
}

func (s *BunStore) Close() error {
	return s.db.Close()
}

func (s *BunStore) SaveCampaign(ctx context.Context, d *strategyx.CampaignDraft) (*Record, error) {
	if d == nil {
		return nil, errors.New("nil campaign draft")
	}
	rec := newCampaignRecord(d, s.previewBase, s.now())
	if _, err := s.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert campaign draft: %w", err)
	}
	return rec, nil
}

func (s *BunStore) SaveAutomation(ctx context.Context, d *strategyx.AutomationDraft) (*Record, error) {
	if d == nil {
		return nil, errors.New("nil automation draft")
	}
	rec := newAutomationRecord(d, s.previewBase, s.now())
	if _, err := s.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert automation draft: %w", err)
	}
	return rec, nil
}

func (s *BunStore) Get(ctx context.Context, id string) (*Record, error) {
	rec := new(Record)
	err := s.db.NewSelect().Model(rec).Where("d.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select draft: %w", err)
	}
	return rec, nil
}

func (s *BunStore) SetStatus(ctx context.Context, id, status string) (*Record, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
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

	if _, err := s.db.NewUpdate().
		Model(rec).
		Column("status", "campaign", "automation", "updated_at").
		WherePK().
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("update draft status: %w", err)
	}
	return rec, nil
}

func (s *BunStore) List(ctx context.Context, status string) ([]Record, error) {
	var records []Record
	q := s.db.NewSelect().Model(&records).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	return records, nil
}
