package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type AttendanceStatus string

const (
	AttendanceOpen   AttendanceStatus = "open"
	AttendanceClosed AttendanceStatus = "closed"
)

type AttendanceRecord struct {
	ID       bson.ObjectID    `bson:"_id,omitempty" json:"id"`
	ActorID  bson.ObjectID    `bson:"actor_id" json:"actor_id"`
	SiteID   bson.ObjectID    `bson:"site_id" json:"site_id"`
	Date     string           `bson:"date" json:"date"` // YYYY-MM-DD of check-in, site time zone
	CheckIn  time.Time        `bson:"check_in" json:"check_in"`
	CheckOut *time.Time       `bson:"check_out,omitempty" json:"check_out,omitempty"`
	Status   AttendanceStatus `bson:"status" json:"status"`
	// WorkedHours is rounded to 2 decimals and net of the break when BreakDeducted.
	WorkedHours   float64   `bson:"worked_hours" json:"worked_hours"`
	BreakDeducted bool      `bson:"break_deducted" json:"break_deducted"`
	Anomaly       bool      `bson:"anomaly,omitempty" json:"anomaly,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}
