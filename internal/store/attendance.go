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

type AttendanceStore struct {
	attendance *mongo.Collection
}

func NewAttendanceStore(ctx context.Context, db *MongoDB) (*AttendanceStore, error) {
	attendance := db.Collection("attendance")

	if _, err := attendance.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			// at most one open record per actor, site and day
			Keys: bson.D{{Key: "actor_id", Value: 1}, {Key: "site_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": model.AttendanceOpen}).
				SetName("one_open_per_day"),
		},
		{Keys: bson.D{{Key: "actor_id", Value: 1}, {Key: "site_id", Value: 1}, {Key: "check_in", Value: -1}}},
		{Keys: bson.D{{Key: "site_id", Value: 1}, {Key: "date", Value: 1}}},
	}); err != nil {
		return nil, fmt.Errorf("create attendance indexes: %w", err)
	}

	return &AttendanceStore{attendance: attendance}, nil
}

// Create inserts a new attendance record and sets the ID on the struct.
func (s *AttendanceStore) Create(ctx context.Context, r *model.AttendanceRecord) error {
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	res, err := s.attendance.InsertOne(ctx, r)
	if err != nil {
		return translateWriteErr(err)
	}
	r.ID = res.InsertedID.(bson.ObjectID)
	return nil
}

func (s *AttendanceStore) FindOpen(ctx context.Context, actorID, siteID bson.ObjectID) (*model.AttendanceRecord, error) {
	return s.latest(ctx, bson.M{"actor_id": actorID, "site_id": siteID, "status": model.AttendanceOpen})
}

func (s *AttendanceStore) Latest(ctx context.Context, actorID, siteID bson.ObjectID, date string) (*model.AttendanceRecord, error) {
	return s.latest(ctx, bson.M{"actor_id": actorID, "site_id": siteID, "date": date})
}

func (s *AttendanceStore) latest(ctx context.Context, filter bson.M) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := s.attendance.FindOne(ctx, filter,
		options.FindOne().SetSort(bson.D{{Key: "check_in", Value: -1}}),
	).Decode(&record)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return &record, nil
}

func (s *AttendanceStore) Close(ctx context.Context, r *model.AttendanceRecord) error {
	r.UpdatedAt = time.Now()
	res, err := s.attendance.UpdateOne(ctx,
		bson.M{"_id": r.ID, "status": model.AttendanceOpen},
		bson.M{"$set": bson.M{
			"check_out":      r.CheckOut,
			"status":         model.AttendanceClosed,
			"worked_hours":   r.WorkedHours,
			"break_deducted": r.BreakDeducted,
			"anomaly":        r.Anomaly,
			"updated_at":     r.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("close attendance: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrConditionFailed
	}
	r.Status = model.AttendanceClosed
	return nil
}

func (s *AttendanceStore) List(ctx context.Context, f AttendanceFilter) ([]*model.AttendanceRecord, error) {
	cursor, err := s.attendance.Find(ctx, attendanceQuery(f),
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "check_in", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	var results []*model.AttendanceRecord
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode attendance: %w", err)
	}
	return results, nil
}

func (s *AttendanceStore) Count(ctx context.Context, f AttendanceFilter) (int64, error) {
	n, err := s.attendance.CountDocuments(ctx, attendanceQuery(f))
	if err != nil {
		return 0, fmt.Errorf("count attendance: %w", err)
	}
	return n, nil
}

func attendanceQuery(f AttendanceFilter) bson.M {
	q := bson.M{}
	if f.ActorID != nil {
		q["actor_id"] = *f.ActorID
	}
	if f.SiteID != nil {
		q["site_id"] = *f.SiteID
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	date := bson.M{}
	if f.From != "" {
		date["$gte"] = f.From
	}
	if f.To != "" {
		date["$lte"] = f.To
	}
	if len(date) > 0 {
		q["date"] = date
	}
	return q
}
