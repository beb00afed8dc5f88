package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/insights/issue-tracker/internal/core/domain"
)

type SnapshotRepository struct {
	db DBTX
}

func NewSnapshotRepository(db DBTX) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) FindByDate(ctx context.Context, date time.Time) (*domain.DailySnapshot, error) {
	snap, err := scanSnapshot(r.db.QueryRow(ctx,
		`SELECT date, counts, created_at FROM daily_snapshots WHERE date = $1`,
		domain.SnapshotDate(date),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("find snapshot: %w", err)
	}
	return snap, nil
}

// CreateIfAbsent relies on the date primary key; a single INSERT is atomic,
// so a row is either written whole or not at all.
func (r *SnapshotRepository) CreateIfAbsent(ctx context.Context, snapshot *domain.DailySnapshot) (bool, error) {
	counts, err := json.Marshal(snapshot.Counts)
	if err != nil {
		return false, fmt.Errorf("encode counts: %w", err)
	}
	tag, err := r.db.Exec(ctx, `
		INSERT INTO daily_snapshots (date, counts, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (date) DO NOTHING`,
		domain.SnapshotDate(snapshot.Date), counts, snapshot.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert snapshot: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *SnapshotRepository) List(ctx context.Context, from, to time.Time) ([]*domain.DailySnapshot, error) {
	var fromArg, toArg any
	if !from.IsZero() {
		fromArg = domain.SnapshotDate(from)
	}
	if !to.IsZero() {
		toArg = domain.SnapshotDate(to)
	}

	rows, err := r.db.Query(ctx, `
		SELECT date, counts, created_at FROM daily_snapshots
		WHERE ($1::date IS NULL OR date >= $1::date)
		  AND ($2::date IS NULL OR date <= $2::date)
		ORDER BY date`,
		fromArg, toArg,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []*domain.DailySnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSnapshot(row pgx.Row) (*domain.DailySnapshot, error) {
	var (
		s   domain.DailySnapshot
		raw []byte
	)
	if err := row.Scan(&s.Date, &raw, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.Counts = domain.NewStatusCounts()
	if err := json.Unmarshal(raw, &s.Counts); err != nil {
		return nil, fmt.Errorf("decode counts: %w", err)
	}
	s.Date = domain.SnapshotDate(s.Date)
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}
