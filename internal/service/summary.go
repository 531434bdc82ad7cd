package service

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/Gustavoab019/startia/internal/model"
	"github.com/Gustavoab019/startia/internal/store"
)

// Summary is the status view: the actor's own numbers plus, when a site is
// active, the site's.
type Summary struct {
	Actor        *model.Actor
	Site         *model.Site
	Held         int64
	Completed    int64
	Pool         int64
	OpenItems    int64
	ActiveToday  int64
	OpenProblems int64
	Presence     *Presence
}

type SummaryService struct {
	sites      *SiteService
	items      store.WorkItemRepo
	problems   store.ProblemRepo
	attendance *AttendanceService
}

func NewSummaryService(gw *store.Gateway, sites *SiteService, attendance *AttendanceService) *SummaryService {
	return &SummaryService{sites: sites, items: gw.WorkItems, problems: gw.Problems, attendance: attendance}
}

// Build runs the independent counts concurrently.
func (s *SummaryService) Build(ctx context.Context, actor *model.Actor) (*Summary, error) {
	sum := &Summary{Actor: actor}
	site, err := s.sites.Active(ctx, actor)
	switch {
	case err == nil:
		sum.Site = site
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotMember):
	default:
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, f store.WorkItemFilter) {
		g.Go(func() error {
			n, err := s.items.Count(gctx, f)
			*dst = n
			return err
		})
	}
	count(&sum.Held, store.WorkItemFilter{HolderID: &actor.ID, Statuses: []model.WorkItemStatus{model.WorkItemInProgress}})
	count(&sum.Completed, store.WorkItemFilter{HolderID: &actor.ID, Statuses: []model.WorkItemStatus{model.WorkItemCompleted}})

	if site := sum.Site; site != nil {
		count(&sum.Pool, store.WorkItemFilter{SiteID: &site.ID, Unheld: true, Statuses: []model.WorkItemStatus{model.WorkItemPending}})
		count(&sum.OpenItems, store.WorkItemFilter{SiteID: &site.ID, Statuses: []model.WorkItemStatus{model.WorkItemPending, model.WorkItemInProgress}})
		g.Go(func() error {
			n, err := s.attendance.ActiveToday(gctx, site.ID)
			sum.ActiveToday = n
			return err
		})
		g.Go(func() error {
			n, err := s.problems.Count(gctx, store.ProblemFilter{SiteID: &site.ID, Statuses: []model.ProblemStatus{model.ProblemOpen, model.ProblemInReview}})
			sum.OpenProblems = n
			return err
		})
		g.Go(func() error {
			p, err := s.attendance.Today(gctx, actor.ID, site.ID)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			sum.Presence = p
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sum, nil
}
