package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/Gustavoab019/startia/internal/model"
)

var (
	// ErrDuplicate is returned when an insert violates a unique index.
	ErrDuplicate = errors.New("duplicate key")
	// ErrConditionFailed is returned when a conditional update matched no document.
	ErrConditionFailed = errors.New("update condition not met")
)

// Gateway groups the per-entity repositories. Lookups return (nil, nil) when
// the entity does not exist.
type Gateway struct {
	Actors     ActorRepo
	Sites      SiteRepo
	WorkItems  WorkItemRepo
	Attendance AttendanceRepo
	Problems   ProblemRepo
}

type ActorRepo interface {
	// GetOrCreate atomically returns the actor for phone, inserting it in state new on first contact.
	GetOrCreate(ctx context.Context, phone, nameHint string) (*model.Actor, error)
	GetByID(ctx context.Context, id bson.ObjectID) (*model.Actor, error)
	GetByPhone(ctx context.Context, phone string) (*model.Actor, error)
	ListByIDs(ctx context.Context, ids []bson.ObjectID) ([]*model.Actor, error)
	Create(ctx context.Context, a *model.Actor) error
	// SaveSession writes the conversation fields only: state, sub-state, scratch, name, locale and activity.
	SaveSession(ctx context.Context, a *model.Actor) error
	AddSite(ctx context.Context, actorID, siteID bson.ObjectID) error
	// DeleteNew removes the actor only while it is still in state new.
	DeleteNew(ctx context.Context, id bson.ObjectID) error
}

type SiteRepo interface {
	Create(ctx context.Context, s *model.Site) error
	GetByID(ctx context.Context, id bson.ObjectID) (*model.Site, error)
	// GetByAccessCode matches case-insensitively.
	GetByAccessCode(ctx context.Context, code string) (*model.Site, error)
	ListByIDs(ctx context.Context, ids []bson.ObjectID) ([]*model.Site, error)
	AddMember(ctx context.Context, siteID, actorID bson.ObjectID) error
	Delete(ctx context.Context, id bson.ObjectID) error
}

type WorkItemFilter struct {
	SiteID   *bson.ObjectID
	HolderID *bson.ObjectID
	Unheld   bool
	Statuses []model.WorkItemStatus
}

// WorkItemTransition is a compare-and-set on (status, holder). A nil FromHolder
// requires the item to have no holder.
type WorkItemTransition struct {
	FromStatus model.WorkItemStatus
	FromHolder *bson.ObjectID
	ToStatus   model.WorkItemStatus
	ToHolder   bson.ObjectID
	At         time.Time
}

type WorkItemRepo interface {
	CreateMany(ctx context.Context, items []*model.WorkItem) error
	GetByID(ctx context.Context, id bson.ObjectID) (*model.WorkItem, error)
	// List returns matches oldest first.
	List(ctx context.Context, f WorkItemFilter) ([]*model.WorkItem, error)
	Count(ctx context.Context, f WorkItemFilter) (int64, error)
	// UpdateIf applies t as a single conditional update and returns the updated
	// item, or ErrConditionFailed when the item is missing or does not match.
	UpdateIf(ctx context.Context, id bson.ObjectID, t WorkItemTransition) (*model.WorkItem, error)
}

type AttendanceFilter struct {
	ActorID *bson.ObjectID
	SiteID  *bson.ObjectID
	From    string // YYYY-MM-DD inclusive
	To      string // YYYY-MM-DD inclusive
	Status  model.AttendanceStatus
}

type AttendanceRepo interface {
	// Create fails with ErrDuplicate when an open record exists for the same actor, site and date.
	Create(ctx context.Context, r *model.AttendanceRecord) error
	// FindOpen returns the most recent open record for the actor at the site.
	FindOpen(ctx context.Context, actorID, siteID bson.ObjectID) (*model.AttendanceRecord, error)
	// Latest returns the most recent record of the given date.
	Latest(ctx context.Context, actorID, siteID bson.ObjectID, date string) (*model.AttendanceRecord, error)
	// Close sets the check-out of an open record; ErrConditionFailed if it is no longer open.
	Close(ctx context.Context, r *model.AttendanceRecord) error
	// List returns matches ordered by date then check-in.
	List(ctx context.Context, f AttendanceFilter) ([]*model.AttendanceRecord, error)
	Count(ctx context.Context, f AttendanceFilter) (int64, error)
}

type ProblemFilter struct {
	SiteID     *bson.ObjectID
	ReporterID *bson.ObjectID
	Statuses   []model.ProblemStatus
}

type ProblemRepo interface {
	Create(ctx context.Context, p *model.ProblemReport) error
	GetByID(ctx context.Context, id bson.ObjectID) (*model.ProblemReport, error)
	// List returns matches newest first.
	List(ctx context.Context, f ProblemFilter) ([]*model.ProblemReport, error)
	Count(ctx context.Context, f ProblemFilter) (int64, error)
	SetStatus(ctx context.Context, id bson.ObjectID, status model.ProblemStatus) (*model.ProblemReport, error)
}
