package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"
)

type MongoDB struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoDB(uri, database string, logger *zap.Logger) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	logger.Info("connected to mongodb", zap.String("database", database))

	return &MongoDB{
		client: client,
		db:     client.Database(database),
	}, nil
}

func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.db.Collection(name)
}

// Ping checks that the primary is reachable.
func (m *MongoDB) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// NewGateway builds every repository, creating its indexes.
func NewGateway(ctx context.Context, db *MongoDB) (*Gateway, error) {
	actors, err := NewActorStore(ctx, db)
	if err != nil {
		return nil, err
	}
	sites, err := NewSiteStore(ctx, db)
	if err != nil {
		return nil, err
	}
	items, err := NewWorkItemStore(ctx, db)
	if err != nil {
		return nil, err
	}
	attendance, err := NewAttendanceStore(ctx, db)
	if err != nil {
		return nil, err
	}
	problems, err := NewProblemStore(ctx, db)
	if err != nil {
		return nil, err
	}
	return &Gateway{
		Actors:     actors,
		Sites:      sites,
		WorkItems:  items,
		Attendance: attendance,
		Problems:   problems,
	}, nil
}

func translateWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
