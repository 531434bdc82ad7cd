package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/Gustavoab019/startia/internal/model"
)

type SiteStore struct {
	sites *mongo.Collection
}

func NewSiteStore(ctx context.Context, db *MongoDB) (*SiteStore, error) {
	sites := db.Collection("sites")

	if _, err := sites.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "access_code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		{Keys: bson.D{{Key: "members", Value: 1}}},
	}); err != nil {
		return nil, fmt.Errorf("create sites indexes: %w", err)
	}

	return &SiteStore{sites: sites}, nil
}

// Create inserts a new site and sets the ID on the struct. A taken access code yields ErrDuplicate.
func (s *SiteStore) Create(ctx context.Context, site *model.Site) error {
	site.AccessCode = strings.ToUpper(site.AccessCode)
	site.CreatedAt = time.Now()
	site.UpdatedAt = site.CreatedAt
	res, err := s.sites.InsertOne(ctx, site)
	if err != nil {
		return translateWriteErr(err)
	}
	site.ID = res.InsertedID.(bson.ObjectID)
	return nil
}

func (s *SiteStore) GetByID(ctx context.Context, id bson.ObjectID) (*model.Site, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *SiteStore) GetByAccessCode(ctx context.Context, code string) (*model.Site, error) {
	return s.findOne(ctx, bson.M{"access_code": strings.ToUpper(strings.TrimSpace(code))})
}

func (s *SiteStore) findOne(ctx context.Context, filter bson.M) (*model.Site, error) {
	var site model.Site
	err := s.sites.FindOne(ctx, filter).Decode(&site)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find site: %w", err)
	}
	return &site, nil
}

func (s *SiteStore) ListByIDs(ctx context.Context, ids []bson.ObjectID) ([]*model.Site, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := s.sites.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find sites: %w", err)
	}
	var results []*model.Site
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode sites: %w", err)
	}
	return results, nil
}

func (s *SiteStore) AddMember(ctx context.Context, siteID, actorID bson.ObjectID) error {
	_, err := s.sites.UpdateOne(ctx, bson.M{"_id": siteID}, bson.M{
		"$addToSet": bson.M{"members": actorID},
		"$set":      bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("add site member: %w", err)
	}
	return nil
}

func (s *SiteStore) Delete(ctx context.Context, id bson.ObjectID) error {
	if _, err := s.sites.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete site: %w", err)
	}
	return nil
}
