package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/insights/issue-tracker/internal/core/domain"
)

type IssueRepository struct {
	coll *mongo.Collection
}

func NewIssueRepository(db *mongo.Database) *IssueRepository {
	return &IssueRepository{coll: db.Collection(collectionIssues)}
}

type mongoIssue struct {
	ID          string    `bson:"_id"`
	Title       string    `bson:"title"`
	Description string    `bson:"description,omitempty"`
	Severity    string    `bson:"severity"`
	Status      string    `bson:"status"`
	OwnerID     string    `bson:"owner_id"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
	Version     int64     `bson:"version"`
}

func (m mongoIssue) domain() *domain.Issue {
	return &domain.Issue{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Severity:    domain.Severity(m.Severity),
		Status:      domain.IssueStatus(m.Status),
		OwnerID:     m.OwnerID,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
		Version:     m.Version,
	}
}

func (r *IssueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	issue.Version = 1
	_, err := r.coll.InsertOne(ctx, mongoIssue{
		ID:          issue.ID,
		Title:       issue.Title,
		Description: issue.Description,
		Severity:    string(issue.Severity),
		Status:      string(issue.Status),
		OwnerID:     issue.OwnerID,
		CreatedAt:   issue.CreatedAt.UTC(),
		UpdatedAt:   issue.UpdatedAt.UTC(),
		Version:     issue.Version,
	})
	if err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}
	return nil
}

func (r *IssueRepository) FindByID(ctx context.Context, id string) (*domain.Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mi mongoIssue
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&mi); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrIssueNotFound
		}
		return nil, fmt.Errorf("find issue: %w", err)
	}
	return mi.domain(), nil
}

// List returns issues newest first.
// When OwnerID is non-empty, an additional filter by owner_id is applied.
func (r *IssueRepository) List(ctx context.Context, f domain.IssueFilter) ([]*domain.Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.OwnerID != "" {
		filter["owner_id"] = f.OwnerID
	}
	page := f.Page.Normalize()
	cur, err := r.coll.Find(ctx, filter, findOptions(page.Skip, page.Limit, bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoIssue
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode issues: %w", err)
	}
	issues := make([]*domain.Issue, 0, len(docs))
	for _, d := range docs {
		issues = append(issues, d.domain())
	}
	return issues, nil
}

// Update matches on both _id and version so a concurrent writer makes the
// filter miss and the call reports a stale write.
func (r *IssueRepository) Update(ctx context.Context, issue *domain.Issue) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": issue.ID, "version": issue.Version},
		bson.M{
			"$set": bson.M{
				"title":       issue.Title,
				"description": issue.Description,
				"severity":    string(issue.Severity),
				"status":      string(issue.Status),
				"updated_at":  issue.UpdatedAt.UTC(),
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("update issue: %w", err)
	}
	if res.MatchedCount == 1 {
		issue.Version++
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": issue.ID})
	if err != nil {
		return fmt.Errorf("check issue: %w", err)
	}
	if n == 0 {
		return domain.ErrIssueNotFound
	}
	return domain.ErrStaleWrite
}

func (r *IssueRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrIssueNotFound
	}
	return nil
}

func (r *IssueRepository) CountByStatus(ctx context.Context) (domain.StatusCounts, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("count issues: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode counts: %w", err)
	}

	counts := domain.NewStatusCounts()
	for _, row := range rows {
		counts[domain.IssueStatus(row.Status)] = row.Count
	}
	return counts, nil
}
