package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/Gustavoab019/startia/internal/model"
)

type ActorStore struct {
	actors *mongo.Collection
}

func NewActorStore(ctx context.Context, db *MongoDB) (*ActorStore, error) {
	actors := db.Collection("actors")

	if _, err := actors.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "sites", Value: 1}}},
	}); err != nil {
		return nil, fmt.Errorf("create actors indexes: %w", err)
	}

	return &ActorStore{actors: actors}, nil
}

func (s *ActorStore) GetOrCreate(ctx context.Context, phone, nameHint string) (*model.Actor, error) {
	now := time.Now()
	insert := bson.M{
		"role":          model.RoleWorker,
		"state":         model.StateNew,
		"scratch":       model.Scratch{},
		"sites":         bson.A{},
		"last_activity": now,
		"created_at":    now,
		"updated_at":    now,
	}
	if nameHint != "" {
		insert["name"] = nameHint
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var actor model.Actor
	err := s.actors.FindOneAndUpdate(ctx,
		bson.M{"phone": phone},
		bson.M{"$setOnInsert": insert},
		opts,
	).Decode(&actor)
	// Two first messages racing on the upsert: the loser sees the unique index and re-reads.
	if mongo.IsDuplicateKeyError(err) {
		return s.GetByPhone(ctx, phone)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert actor: %w", err)
	}
	return &actor, nil
}

func (s *ActorStore) GetByID(ctx context.Context, id bson.ObjectID) (*model.Actor, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *ActorStore) GetByPhone(ctx context.Context, phone string) (*model.Actor, error) {
	return s.findOne(ctx, bson.M{"phone": phone})
}

func (s *ActorStore) findOne(ctx context.Context, filter bson.M) (*model.Actor, error) {
	var actor model.Actor
	err := s.actors.FindOne(ctx, filter).Decode(&actor)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find actor: %w", err)
	}
	return &actor, nil
}

func (s *ActorStore) ListByIDs(ctx context.Context, ids []bson.ObjectID) ([]*model.Actor, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := s.actors.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find actors: %w", err)
	}
	var results []*model.Actor
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode actors: %w", err)
	}
	return results, nil
}

// Create inserts a pre-registered actor and sets the ID on the struct.
func (s *ActorStore) Create(ctx context.Context, a *model.Actor) error {
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	if a.Sites == nil {
		a.Sites = []bson.ObjectID{}
	}
	res, err := s.actors.InsertOne(ctx, a)
	if err != nil {
		return translateWriteErr(err)
	}
	a.ID = res.InsertedID.(bson.ObjectID)
	return nil
}

func (s *ActorStore) SaveSession(ctx context.Context, a *model.Actor) error {
	a.UpdatedAt = time.Now()
	res, err := s.actors.UpdateOne(ctx, bson.M{"_id": a.ID}, bson.M{"$set": bson.M{
		"state":         a.State,
		"sub_state":     a.SubState,
		"scratch":       a.Scratch,
		"name":          a.Name,
		"locale":        a.Locale,
		"last_activity": a.LastActivity,
		"updated_at":    a.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if res.MatchedCount == 0 {
		return errors.New("save session: actor not found")
	}
	return nil
}

func (s *ActorStore) AddSite(ctx context.Context, actorID, siteID bson.ObjectID) error {
	_, err := s.actors.UpdateOne(ctx, bson.M{"_id": actorID}, bson.M{
		"$addToSet": bson.M{"sites": siteID},
		"$set":      bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("add site to actor: %w", err)
	}
	return nil
}

func (s *ActorStore) DeleteNew(ctx context.Context, id bson.ObjectID) error {
	if _, err := s.actors.DeleteOne(ctx, bson.M{"_id": id, "state": model.StateNew}); err != nil {
		return fmt.Errorf("delete actor: %w", err)
	}
	return nil
}
