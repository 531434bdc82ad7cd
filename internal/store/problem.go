package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/Gustavoab019/startia/internal/model"
)

type ProblemStore struct {
	problems *mongo.Collection
}

func NewProblemStore(ctx context.Context, db *MongoDB) (*ProblemStore, error) {
	problems := db.Collection("problems")

	if _, err := problems.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "site_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "work_item_id", Value: 1}}},
	}); err != nil {
		return nil, fmt.Errorf("create problems indexes: %w", err)
	}

	return &ProblemStore{problems: problems}, nil
}

// Create inserts a new report and sets the ID on the struct.
func (s *ProblemStore) Create(ctx context.Context, p *model.ProblemReport) error {
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	res, err := s.problems.InsertOne(ctx, p)
	if err != nil {
		return translateWriteErr(err)
	}
	p.ID = res.InsertedID.(bson.ObjectID)
	return nil
}

func (s *ProblemStore) GetByID(ctx context.Context, id bson.ObjectID) (*model.ProblemReport, error) {
	var p model.ProblemReport
	err := s.problems.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find problem: %w", err)
	}
	return &p, nil
}

func (s *ProblemStore) List(ctx context.Context, f ProblemFilter) ([]*model.ProblemReport, error) {
	cursor, err := s.problems.Find(ctx, problemQuery(f),
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find problems: %w", err)
	}
	var results []*model.ProblemReport
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode problems: %w", err)
	}
	return results, nil
}

func (s *ProblemStore) Count(ctx context.Context, f ProblemFilter) (int64, error) {
	n, err := s.problems.CountDocuments(ctx, problemQuery(f))
	if err != nil {
		return 0, fmt.Errorf("count problems: %w", err)
	}
	return n, nil
}

func (s *ProblemStore) SetStatus(ctx context.Context, id bson.ObjectID, status model.ProblemStatus) (*model.ProblemReport, error) {
	var p model.ProblemReport
	err := s.problems.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update problem status: %w", err)
	}
	return &p, nil
}

func problemQuery(f ProblemFilter) bson.M {
	q := bson.M{}
	if f.SiteID != nil {
		q["site_id"] = *f.SiteID
	}
	if f.ReporterID != nil {
		q["reporter_id"] = *f.ReporterID
	}
	if len(f.Statuses) > 0 {
		q["status"] = bson.M{"$in": f.Statuses}
	}
	return q
}
