package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type ProblemStatus string

const (
	ProblemOpen     ProblemStatus = "open"
	ProblemInReview ProblemStatus = "in_review"
	ProblemResolved ProblemStatus = "resolved"
)

type ProblemReport struct {
	ID          bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	SiteID      bson.ObjectID  `bson:"site_id" json:"site_id"`
	WorkItemID  *bson.ObjectID `bson:"work_item_id,omitempty" json:"work_item_id,omitempty"`
	ReporterID  bson.ObjectID  `bson:"reporter_id" json:"reporter_id"`
	Description string         `bson:"description" json:"description"`
	PhotoURL    string         `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	Status      ProblemStatus  `bson:"status" json:"status"`
	CreatedAt   time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `bson:"updated_at" json:"updated_at"`
}
