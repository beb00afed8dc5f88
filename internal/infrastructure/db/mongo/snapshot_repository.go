package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/insights/issue-tracker/internal/core/domain"
)

type SnapshotRepository struct {
	coll *mongo.Collection
}

func NewSnapshotRepository(db *mongo.Database) *SnapshotRepository {
	return &SnapshotRepository{coll: db.Collection(collectionSnapshots)}
}

type mongoSnapshot struct {
	Date      time.Time        `bson:"date"`
	Counts    map[string]int64 `bson:"counts"`
	CreatedAt time.Time        `bson:"created_at"`
}

func (m mongoSnapshot) domain() *domain.DailySnapshot {
	counts := domain.NewStatusCounts()
	for k, v := range m.Counts {
		counts[domain.IssueStatus(k)] = v
	}
	return &domain.DailySnapshot{
		Date:      domain.SnapshotDate(m.Date),
		Counts:    counts,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

func (r *SnapshotRepository) FindByDate(ctx context.Context, date time.Time) (*domain.DailySnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ms mongoSnapshot
	if err := r.coll.FindOne(ctx, bson.M{"date": domain.SnapshotDate(date)}).Decode(&ms); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("find snapshot: %w", err)
	}
	return ms.domain(), nil
}

// CreateIfAbsent leans on the unique date index: a losing concurrent insert
// fails with a duplicate key and is reported as not written.
func (r *SnapshotRepository) CreateIfAbsent(ctx context.Context, snapshot *domain.DailySnapshot) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	counts := make(map[string]int64, len(snapshot.Counts))
	for k, v := range snapshot.Counts {
		counts[string(k)] = v
	}
	_, err := r.coll.InsertOne(ctx, mongoSnapshot{
		Date:      domain.SnapshotDate(snapshot.Date),
		Counts:    counts,
		CreatedAt: snapshot.CreatedAt.UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert snapshot: %w", err)
	}
	return true, nil
}

func (r *SnapshotRepository) List(ctx context.Context, from, to time.Time) ([]*domain.DailySnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	bounds := bson.M{}
	if !from.IsZero() {
		bounds["$gte"] = domain.SnapshotDate(from)
	}
	if !to.IsZero() {
		bounds["$lte"] = domain.SnapshotDate(to)
	}
	filter := bson.M{}
	if len(bounds) > 0 {
		filter["date"] = bounds
	}

	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoSnapshot
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode snapshots: %w", err)
	}
	out := make([]*domain.DailySnapshot, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.domain())
	}
	return out, nil
}
