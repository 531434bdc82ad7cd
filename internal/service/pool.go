package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/Gustavoab019/startia/internal/model"
	"github.com/Gustavoab019/startia/internal/store"
)

// PoolService creates work items and hands them out. Claims are a single
// conditional update so concurrent claimers cannot both win.
type PoolService struct {
	items  store.WorkItemRepo
	opts   Options
	logger *zap.Logger
}

func NewPoolService(gw *store.Gateway, opts Options, logger *zap.Logger) *PoolService {
	return &PoolService{items: gw.WorkItems, opts: opts.withDefaults(), logger: logger}
}

// CreateBatch creates one pending, unheld work item per unit of the draft.
func (s *PoolService) CreateBatch(ctx context.Context, siteID, creatorID bson.ObjectID, d model.WorkItemDraft) ([]*model.WorkItem, error) {
	if len(strings.TrimSpace(d.Title)) < 2 {
		return nil, invalid("title", "validation.title_short")
	}
	units := d.Units
	if len(units) == 0 {
		units = []string{""}
	}

	items := make([]*model.WorkItem, 0, len(units))
	for _, u := range units {
		items = append(items, &model.WorkItem{
			SiteID:    siteID,
			Title:     strings.TrimSpace(d.Title),
			Unit:      u,
			Floor:     FloorOf(u),
			Phase:     d.Phase,
			Deadline:  d.Deadline,
			Status:    model.WorkItemPending,
			CreatedBy: creatorID,
		})
	}
	if err := s.items.CreateMany(ctx, items); err != nil {
		return nil, fmt.Errorf("create work items: %w", err)
	}
	s.logger.Info("work items created",
		zap.String("site_id", siteID.Hex()),
		zap.String("title", d.Title),
		zap.Int("count", len(items)))
	return items, nil
}

func (s *PoolService) Get(ctx context.Context, id bson.ObjectID) (*model.WorkItem, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

// Claim moves a pending, unheld item to in_progress held by actorID.
// A lost race or a missing item yields ErrUnavailable and changes nothing.
func (s *PoolService) Claim(ctx context.Context, itemID, actorID bson.ObjectID) (*model.WorkItem, error) {
	item, err := s.items.UpdateIf(ctx, itemID, store.WorkItemTransition{
		FromStatus: model.WorkItemPending,
		ToStatus:   model.WorkItemInProgress,
		ToHolder:   actorID,
		At:         s.opts.Now(),
	})
	if errors.Is(err, store.ErrConditionFailed) {
		return nil, ErrUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("claim work item: %w", err)
	}
	s.logger.Info("work item claimed", zap.String("item_id", itemID.Hex()), zap.String("actor_id", actorID.Hex()))
	return item, nil
}

// Complete finishes an item held by actorID. Completion is terminal.
func (s *PoolService) Complete(ctx context.Context, itemID, actorID bson.ObjectID) (*model.WorkItem, error) {
	holder := actorID
	item, err := s.items.UpdateIf(ctx, itemID, store.WorkItemTransition{
		FromStatus: model.WorkItemInProgress,
		FromHolder: &holder,
		ToStatus:   model.WorkItemCompleted,
		ToHolder:   actorID,
		At:         s.opts.Now(),
	})
	if err == nil {
		s.logger.Info("work item completed", zap.String("item_id", itemID.Hex()), zap.String("actor_id", actorID.Hex()))
		return item, nil
	}
	if !errors.Is(err, store.ErrConditionFailed) {
		return nil, fmt.Errorf("complete work item: %w", err)
	}

	// Classify the miss; the read is only for the error, never for a write decision.
	current, err := s.items.GetByID(ctx, itemID)
	switch {
	case err != nil:
		return nil, fmt.Errorf("get work item: %w", err)
	case current == nil:
		return nil, ErrNotFound
	case current.Status == model.WorkItemCompleted && current.HeldBy(actorID):
		return nil, ErrAlreadyTerminal
	default:
		return nil, ErrForbidden
	}
}

// ListPool returns the site's claimable items ordered by floor, unit and age.
func (s *PoolService) ListPool(ctx context.Context, siteID bson.ObjectID) ([]*model.WorkItem, error) {
	items, err := s.items.List(ctx, store.WorkItemFilter{
		SiteID:   &siteID,
		Unheld:   true,
		Statuses: []model.WorkItemStatus{model.WorkItemPending},
	})
	if err != nil {
		return nil, err
	}
	SortByLocation(items)
	return items, nil
}

// ListHeld returns the actor's in-progress items, optionally limited to one site.
func (s *PoolService) ListHeld(ctx context.Context, actorID bson.ObjectID, siteID *bson.ObjectID) ([]*model.WorkItem, error) {
	items, err := s.items.List(ctx, store.WorkItemFilter{
		SiteID:   siteID,
		HolderID: &actorID,
		Statuses: []model.WorkItemStatus{model.WorkItemInProgress},
	})
	if err != nil {
		return nil, err
	}
	SortByLocation(items)
	return items, nil
}

// SortByLocation orders items by floor, then unit in natural order, keeping
// creation order for ties. Items without a numeric floor go last.
func SortByLocation(items []*model.WorkItem) {
	slices.SortStableFunc(items, func(a, b *model.WorkItem) int {
		fa, fb := a.Floor, b.Floor
		if fa < 0 {
			fa = 1 << 30
		}
		if fb < 0 {
			fb = 1 << 30
		}
		if c := cmp.Compare(fa, fb); c != 0 {
			return c
		}
		return compareUnits(a.Unit, b.Unit)
	})
}

func compareUnits(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return cmp.Compare(na, nb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}

// DeadlineUrgency classifies a deadline relative to today in loc.
type DeadlineUrgency int

const (
	DeadlineNone DeadlineUrgency = iota
	DeadlineLater
	DeadlineSoon
	DeadlineToday
	DeadlineOverdue
)

func Urgency(deadline *time.Time, now time.Time, loc *time.Location) DeadlineUrgency {
	if deadline == nil {
		return DeadlineNone
	}
	today := dayStart(now, loc)
	due := dayStart(*deadline, loc)
	days := int(math.Round(due.Sub(today).Hours() / 24))
	switch {
	case days < 0:
		return DeadlineOverdue
	case days == 0:
		return DeadlineToday
	case days <= 3:
		return DeadlineSoon
	}
	return DeadlineLater
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
