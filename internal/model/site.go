package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type SiteStatus string

const (
	SiteStatusActive    SiteStatus = "active"
	SiteStatusCompleted SiteStatus = "completed"
	SiteStatusSuspended SiteStatus = "suspended"
)

type Site struct {
	ID         bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name       string          `bson:"name" json:"name"`
	Address    string          `bson:"address" json:"address"`
	AccessCode string          `bson:"access_code" json:"access_code"` // upper case
	OwnerID    bson.ObjectID   `bson:"owner_id" json:"owner_id"`
	Members    []bson.ObjectID `bson:"members" json:"members"`
	BreakStart string          `bson:"break_start" json:"break_start"` // HH:MM
	BreakEnd   string          `bson:"break_end" json:"break_end"`     // HH:MM
	// BreakMinutes is derived from BreakStart/BreakEnd when the site is created.
	BreakMinutes int        `bson:"break_minutes" json:"break_minutes"`
	Status       SiteStatus `bson:"status" json:"status"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updated_at"`
}
