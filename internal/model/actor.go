package model

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Role string

const (
	RoleWorker     Role = "worker"
	RoleSupervisor Role = "supervisor"
)

type Actor struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Phone     string        `bson:"phone" json:"phone"` // identity key, digits only
	Name      string        `bson:"name,omitempty" json:"name,omitempty"`
	Role      Role          `bson:"role" json:"role"`
	Specialty string        `bson:"specialty,omitempty" json:"specialty,omitempty"`
	Locale    string        `bson:"locale,omitempty" json:"locale,omitempty"`
	State     State         `bson:"state" json:"state"`
	// SubState points at the active site (hex ObjectID) or is empty.
	SubState     string          `bson:"sub_state,omitempty" json:"sub_state,omitempty"`
	Scratch      Scratch         `bson:"scratch" json:"scratch"`
	Sites        []bson.ObjectID `bson:"sites" json:"sites"`
	LastActivity time.Time       `bson:"last_activity" json:"last_activity"`
	CreatedAt    time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `bson:"updated_at" json:"updated_at"`
}

// ActiveSite parses SubState; ok is false when no site is selected.
func (a *Actor) ActiveSite() (bson.ObjectID, bool) {
	if a.SubState == "" {
		return bson.ObjectID{}, false
	}
	id, err := bson.ObjectIDFromHex(a.SubState)
	if err != nil {
		return bson.ObjectID{}, false
	}
	return id, true
}

func (a *Actor) SetActiveSite(id bson.ObjectID) {
	a.SubState = id.Hex()
}

func (a *Actor) BelongsTo(siteID bson.ObjectID) bool {
	return slices.Contains(a.Sites, siteID)
}

func (a *Actor) IsSupervisor() bool {
	return a.Role == RoleSupervisor
}

// DisplayName falls back to the phone when no name was collected.
func (a *Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Phone
}
