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

type WorkItemStore struct {
	items *mongo.Collection
}

func NewWorkItemStore(ctx context.Context, db *MongoDB) (*WorkItemStore, error) {
	items := db.Collection("work_items")

	if _, err := items.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "site_id", Value: 1}, {Key: "status", Value: 1}, {Key: "holder_id", Value: 1}}},
		{Keys: bson.D{{Key: "holder_id", Value: 1}, {Key: "status", Value: 1}}},
	}); err != nil {
		return nil, fmt.Errorf("create work_items indexes: %w", err)
	}

	return &WorkItemStore{items: items}, nil
}

// CreateMany inserts a batch and sets the IDs on the structs.
func (s *WorkItemStore) CreateMany(ctx context.Context, items []*model.WorkItem) error {
	if len(items) == 0 {
		return nil
	}
	now := time.Now()
	docs := make([]any, len(items))
	for i, it := range items {
		it.CreatedAt = now
		it.UpdatedAt = now
		docs[i] = it
	}
	res, err := s.items.InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("insert work items: %w", err)
	}
	for i, id := range res.InsertedIDs {
		items[i].ID = id.(bson.ObjectID)
	}
	return nil
}

func (s *WorkItemStore) GetByID(ctx context.Context, id bson.ObjectID) (*model.WorkItem, error) {
	var item model.WorkItem
	err := s.items.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find work item: %w", err)
	}
	return &item, nil
}

func (s *WorkItemStore) List(ctx context.Context, f WorkItemFilter) ([]*model.WorkItem, error) {
	cursor, err := s.items.Find(ctx, workItemQuery(f),
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find work items: %w", err)
	}
	var results []*model.WorkItem
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode work items: %w", err)
	}
	return results, nil
}

func (s *WorkItemStore) Count(ctx context.Context, f WorkItemFilter) (int64, error) {
	n, err := s.items.CountDocuments(ctx, workItemQuery(f))
	if err != nil {
		return 0, fmt.Errorf("count work items: %w", err)
	}
	return n, nil
}

func (s *WorkItemStore) UpdateIf(ctx context.Context, id bson.ObjectID, t WorkItemTransition) (*model.WorkItem, error) {
	filter := bson.M{"_id": id, "status": t.FromStatus, "holder_id": nil}
	if t.FromHolder != nil {
		filter["holder_id"] = *t.FromHolder
	}

	set := bson.M{
		"status":     t.ToStatus,
		"holder_id":  t.ToHolder,
		"updated_at": t.At,
	}
	switch t.ToStatus {
	case model.WorkItemInProgress:
		set["claimed_at"] = t.At
	case model.WorkItemCompleted:
		set["completed_at"] = t.At
	}

	var item model.WorkItem
	err := s.items.FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&item)
	if isNoDocuments(err) {
		return nil, ErrConditionFailed
	}
	if err != nil {
		return nil, fmt.Errorf("update work item: %w", err)
	}
	return &item, nil
}

func workItemQuery(f WorkItemFilter) bson.M {
	q := bson.M{}
	if f.SiteID != nil {
		q["site_id"] = *f.SiteID
	}
	if f.HolderID != nil {
		q["holder_id"] = *f.HolderID
	} else if f.Unheld {
		q["holder_id"] = nil
	}
	if len(f.Statuses) > 0 {
		q["status"] = bson.M{"$in": f.Statuses}
	}
	return q
}
