package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type WorkItemStatus string

const (
	WorkItemPending    WorkItemStatus = "pending"
	WorkItemInProgress WorkItemStatus = "in_progress"
	WorkItemCompleted  WorkItemStatus = "completed"
)

// WorkItem is held by an actor iff its status is in_progress or completed.
type WorkItem struct {
	ID          bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	SiteID      bson.ObjectID  `bson:"site_id" json:"site_id"`
	Title       string         `bson:"title" json:"title"`
	Unit        string         `bson:"unit,omitempty" json:"unit,omitempty"`
	Floor       int            `bson:"floor" json:"floor"` // -1 when the unit is not numeric
	Phase       string         `bson:"phase,omitempty" json:"phase,omitempty"`
	Deadline    *time.Time     `bson:"deadline,omitempty" json:"deadline,omitempty"`
	Status      WorkItemStatus `bson:"status" json:"status"`
	HolderID    *bson.ObjectID `bson:"holder_id" json:"holder_id,omitempty"`
	CreatedBy   bson.ObjectID  `bson:"created_by" json:"created_by"`
	ClaimedAt   *time.Time     `bson:"claimed_at,omitempty" json:"claimed_at,omitempty"`
	CompletedAt *time.Time     `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CreatedAt   time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `bson:"updated_at" json:"updated_at"`
}

func (w *WorkItem) HeldBy(actorID bson.ObjectID) bool {
	return w.HolderID != nil && *w.HolderID == actorID
}
