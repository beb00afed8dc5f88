package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/insights/issue-tracker/internal/core/domain"
)

const issueColumns = `id, title, description, severity, status, owner_id, created_at, updated_at, version`

type IssueRepository struct {
	db DBTX
}

func NewIssueRepository(db DBTX) *IssueRepository {
	return &IssueRepository{db: db}
}

func (r *IssueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	issue.Version = 1
	_, err := r.db.Exec(ctx, `
		INSERT INTO issues (`+issueColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		issue.ID, issue.Title, issue.Description, string(issue.Severity), string(issue.Status),
		issue.OwnerID, issue.CreatedAt, issue.UpdatedAt, issue.Version,
	)
	if err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}
	return nil
}

func (r *IssueRepository) FindByID(ctx context.Context, id string) (*domain.Issue, error) {
	issue, err := scanIssue(r.db.QueryRow(ctx, `SELECT `+issueColumns+` FROM issues WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIssueNotFound
		}
		return nil, fmt.Errorf("find issue: %w", err)
	}
	return issue, nil
}

// List returns issues newest first. An empty OwnerID matches every owner.
func (r *IssueRepository) List(ctx context.Context, f domain.IssueFilter) ([]*domain.Issue, error) {
	page := f.Page.Normalize()
	rows, err := r.db.Query(ctx, `
		SELECT `+issueColumns+` FROM issues
		WHERE ($1 = '' OR owner_id = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`,
		f.OwnerID, page.Limit, page.Skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	var issues []*domain.Issue
	for rows.Next() {
		i, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, i)
	}
	return issues, rows.Err()
}

// Update is a compare-and-set on the version column.
func (r *IssueRepository) Update(ctx context.Context, issue *domain.Issue) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE issues
		SET title = $3, description = $4, severity = $5, status = $6, updated_at = $7, version = version + 1
		WHERE id = $1 AND version = $2`,
		issue.ID, issue.Version, issue.Title, issue.Description,
		string(issue.Severity), string(issue.Status), issue.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update issue: %w", err)
	}
	if tag.RowsAffected() == 1 {
		issue.Version++
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM issues WHERE id = $1)`, issue.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check issue: %w", err)
	}
	if !exists {
		return domain.ErrIssueNotFound
	}
	return domain.ErrStaleWrite
}

func (r *IssueRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM issues WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIssueNotFound
	}
	return nil
}

func (r *IssueRepository) CountByStatus(ctx context.Context) (domain.StatusCounts, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM issues GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count issues: %w", err)
	}
	defer rows.Close()

	counts := domain.NewStatusCounts()
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[domain.IssueStatus(status)] = n
	}
	return counts, rows.Err()
}

func scanIssue(row pgx.Row) (*domain.Issue, error) {
	var (
		i                domain.Issue
		severity, status string
	)
	err := row.Scan(&i.ID, &i.Title, &i.Description, &severity, &status,
		&i.OwnerID, &i.CreatedAt, &i.UpdatedAt, &i.Version)
	if err != nil {
		return nil, err
	}
	i.Severity = domain.Severity(severity)
	i.Status = domain.IssueStatus(status)
	i.CreatedAt = i.CreatedAt.UTC()
	i.UpdatedAt = i.UpdatedAt.UTC()
	return &i, nil
}
