// Package report projects stored entities into flat, read-only rows for the
// HTTP report API and the crewctl CLI.
package report

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/sync/errgroup"

	"github.com/Gustavoab019/startia/internal/model"
	"github.com/Gustavoab019/startia/internal/store"
)

var (
	ErrSiteNotFound = errors.New("site not found")
	ErrBadFilter    = errors.New("invalid filter")
)

const dateLayout = "2006-01-02"

// Filter narrows a report. Zero fields match everything.
type Filter struct {
	Site   string // access code or hex id
	Actor  string // phone
	Status string
	From   string // YYYY-MM-DD inclusive
	To     string // YYYY-MM-DD inclusive
}

func (f Filter) validate() error {
	for _, d := range []string{f.From, f.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d); err != nil {
			return fmt.Errorf("%w: date %q, want YYYY-MM-DD", ErrBadFilter, d)
		}
	}
	if f.From != "" && f.To != "" && f.From > f.To {
		return fmt.Errorf("%w: from %s is after to %s", ErrBadFilter, f.From, f.To)
	}
	return nil
}

type Service struct {
	gw  *store.Gateway
	loc *time.Location
}

func NewService(gw *store.Gateway, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{gw: gw, loc: loc}
}

type WorkItemRow struct {
	Site        string     `json:"site"`
	Title       string     `json:"title"`
	Unit        string     `json:"unit,omitempty"`
	Phase       string     `json:"phase,omitempty"`
	Status      string     `json:"status"`
	Holder      string     `json:"holder,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type AttendanceRow struct {
	Date          string     `json:"date"`
	Site          string     `json:"site"`
	Actor         string     `json:"actor"`
	Phone         string     `json:"phone"`
	CheckIn       time.Time  `json:"check_in"`
	CheckOut      *time.Time `json:"check_out,omitempty"`
	Status        string     `json:"status"`
	WorkedHours   float64    `json:"worked_hours"`
	BreakDeducted bool       `json:"break_deducted"`
	Anomaly       bool       `json:"anomaly,omitempty"`
}

type ProblemRow struct {
	CreatedAt   time.Time `json:"created_at"`
	Site        string    `json:"site"`
	Reporter    string    `json:"reporter"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	WorkItem    string    `json:"work_item,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
}

// ActorTotal sums closed attendance for one actor.
type ActorTotal struct {
	Actor string  `json:"actor"`
	Phone string  `json:"phone"`
	Days  int     `json:"days"`
	Hours float64 `json:"hours"`
}

// resolveSite returns nil for an empty reference.
func (s *Service) resolveSite(ctx context.Context, ref string) (*model.Site, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}
	var (
		site *model.Site
		err  error
	)
	if id, perr := bson.ObjectIDFromHex(ref); perr == nil {
		site, err = s.gw.Sites.GetByID(ctx, id)
	} else {
		site, err = s.gw.Sites.GetByAccessCode(ctx, strings.ToUpper(ref))
	}
	if err != nil {
		return nil, fmt.Errorf("load site %s: %w", ref, err)
	}
	if site == nil {
		return nil, fmt.Errorf("%w: %s", ErrSiteNotFound, ref)
	}
	return site, nil
}

func (s *Service) resolveActor(ctx context.Context, phone string) (*model.Actor, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, nil
	}
	a, err := s.gw.Actors.GetByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("load actor %s: %w", phone, err)
	}
	if a == nil {
		return nil, fmt.Errorf("%w: unknown actor %s", ErrBadFilter, phone)
	}
	return a, nil
}

// names resolves actor and site display names concurrently.
type names struct {
	actors map[bson.ObjectID]*model.Actor
	sites  map[bson.ObjectID]*model.Site
}

func (s *Service) lookup(ctx context.Context, actorIDs, siteIDs []bson.ObjectID) (*names, error) {
	n := &names{actors: map[bson.ObjectID]*model.Actor{}, sites: map[bson.ObjectID]*model.Site{}}
	g, gctx := errgroup.WithContext(ctx)
	var (
		actors []*model.Actor
		sites  []*model.Site
	)
	if len(actorIDs) > 0 {
		g.Go(func() (err error) {
			actors, err = s.gw.Actors.ListByIDs(gctx, uniq(actorIDs))
			return err
		})
	}
	if len(siteIDs) > 0 {
		g.Go(func() (err error) {
			sites, err = s.gw.Sites.ListByIDs(gctx, uniq(siteIDs))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve names: %w", err)
	}
	for _, a := range actors {
		n.actors[a.ID] = a
	}
	for _, st := range sites {
		n.sites[st.ID] = st
	}
	return n, nil
}

func (n *names) actor(id bson.ObjectID) (name, phone string) {
	if a, ok := n.actors[id]; ok {
		return a.DisplayName(), a.Phone
	}
	return id.Hex(), ""
}

func (n *names) site(id bson.ObjectID) string {
	if st, ok := n.sites[id]; ok {
		return st.Name
	}
	return id.Hex()
}

func uniq(ids []bson.ObjectID) []bson.ObjectID {
	out := slices.Clone(ids)
	slices.SortFunc(out, func(a, b bson.ObjectID) int { return strings.Compare(a.Hex(), b.Hex()) })
	return slices.Compact(out)
}

// WorkItems lists items by site, status and holder. From/To match the creation date.
func (s *Service) WorkItems(ctx context.Context, f Filter) ([]WorkItemRow, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	site, err := s.resolveSite(ctx, f.Site)
	if err != nil {
		return nil, err
	}
	holder, err := s.resolveActor(ctx, f.Actor)
	if err != nil {
		return nil, err
	}

	q := store.WorkItemFilter{}
	if site != nil {
		q.SiteID = &site.ID
	}
	if holder != nil {
		q.HolderID = &holder.ID
	}
	if f.Status != "" {
		st := model.WorkItemStatus(f.Status)
		if !slices.Contains([]model.WorkItemStatus{model.WorkItemPending, model.WorkItemInProgress, model.WorkItemCompleted}, st) {
			return nil, fmt.Errorf("%w: work item status %q", ErrBadFilter, f.Status)
		}
		q.Statuses = []model.WorkItemStatus{st}
	}
	items, err := s.gw.WorkItems.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}
	items = slices.DeleteFunc(items, func(it *model.WorkItem) bool {
		return !s.inRange(it.CreatedAt, f)
	})

	var actorIDs, siteIDs []bson.ObjectID
	for _, it := range items {
		siteIDs = append(siteIDs, it.SiteID)
		if it.HolderID != nil {
			actorIDs = append(actorIDs, *it.HolderID)
		}
	}
	n, err := s.lookup(ctx, actorIDs, siteIDs)
	if err != nil {
		return nil, err
	}

	rows := make([]WorkItemRow, 0, len(items))
	for _, it := range items {
		row := WorkItemRow{
			Site:        n.site(it.SiteID),
			Title:       it.Title,
			Unit:        it.Unit,
			Phase:       it.Phase,
			Status:      string(it.Status),
			Deadline:    it.Deadline,
			ClaimedAt:   it.ClaimedAt,
			CompletedAt: it.CompletedAt,
		}
		if it.HolderID != nil {
			row.Holder, _ = n.actor(*it.HolderID)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Attendance lists attendance records by site, actor, status and date.
func (s *Service) Attendance(ctx context.Context, f Filter) ([]AttendanceRow, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	site, err := s.resolveSite(ctx, f.Site)
	if err != nil {
		return nil, err
	}
	actor, err := s.resolveActor(ctx, f.Actor)
	if err != nil {
		return nil, err
	}

	q := store.AttendanceFilter{From: f.From, To: f.To}
	if site != nil {
		q.SiteID = &site.ID
	}
	if actor != nil {
		q.ActorID = &actor.ID
	}
	switch model.AttendanceStatus(f.Status) {
	case "":
	case model.AttendanceOpen, model.AttendanceClosed:
		q.Status = model.AttendanceStatus(f.Status)
	default:
		return nil, fmt.Errorf("%w: attendance status %q", ErrBadFilter, f.Status)
	}
	recs, err := s.gw.Attendance.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}

	var actorIDs, siteIDs []bson.ObjectID
	for _, r := range recs {
		actorIDs = append(actorIDs, r.ActorID)
		siteIDs = append(siteIDs, r.SiteID)
	}
	n, err := s.lookup(ctx, actorIDs, siteIDs)
	if err != nil {
		return nil, err
	}

	rows := make([]AttendanceRow, 0, len(recs))
	for _, r := range recs {
		name, phone := n.actor(r.ActorID)
		rows = append(rows, AttendanceRow{
			Date:          r.Date,
			Site:          n.site(r.SiteID),
			Actor:         name,
			Phone:         phone,
			CheckIn:       r.CheckIn.In(s.loc),
			CheckOut:      s.localPtr(r.CheckOut),
			Status:        string(r.Status),
			WorkedHours:   r.WorkedHours,
			BreakDeducted: r.BreakDeducted,
			Anomaly:       r.Anomaly,
		})
	}
	return rows, nil
}

// Totals sums closed rows per actor, ordered by name.
func Totals(rows []AttendanceRow) []ActorTotal {
	byPhone := map[string]*ActorTotal{}
	days := map[string]map[string]bool{}
	for _, r := range rows {
		if r.Status != string(model.AttendanceClosed) {
			continue
		}
		key := r.Phone + "|" + r.Actor
		t, ok := byPhone[key]
		if !ok {
			t = &ActorTotal{Actor: r.Actor, Phone: r.Phone}
			byPhone[key] = t
			days[key] = map[string]bool{}
		}
		t.Hours += r.WorkedHours
		days[key][r.Date] = true
	}
	out := make([]ActorTotal, 0, len(byPhone))
	for key, t := range byPhone {
		t.Days = len(days[key])
		t.Hours = math.Round(t.Hours*100) / 100
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b ActorTotal) int {
		if c := strings.Compare(strings.ToLower(a.Actor), strings.ToLower(b.Actor)); c != 0 {
			return c
		}
		return strings.Compare(a.Phone, b.Phone)
	})
	return out
}

// Problems lists reports by site, reporter, status and creation date.
func (s *Service) Problems(ctx context.Context, f Filter) ([]ProblemRow, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	site, err := s.resolveSite(ctx, f.Site)
	if err != nil {
		return nil, err
	}
	reporter, err := s.resolveActor(ctx, f.Actor)
	if err != nil {
		return nil, err
	}

	q := store.ProblemFilter{}
	if site != nil {
		q.SiteID = &site.ID
	}
	if reporter != nil {
		q.ReporterID = &reporter.ID
	}
	if f.Status != "" {
		st := model.ProblemStatus(f.Status)
		if !slices.Contains([]model.ProblemStatus{model.ProblemOpen, model.ProblemInReview, model.ProblemResolved}, st) {
			return nil, fmt.Errorf("%w: problem status %q", ErrBadFilter, f.Status)
		}
		q.Statuses = []model.ProblemStatus{st}
	}
	problems, err := s.gw.Problems.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	problems = slices.DeleteFunc(problems, func(p *model.ProblemReport) bool {
		return !s.inRange(p.CreatedAt, f)
	})

	var actorIDs, siteIDs []bson.ObjectID
	for _, p := range problems {
		actorIDs = append(actorIDs, p.ReporterID)
		siteIDs = append(siteIDs, p.SiteID)
	}
	n, err := s.lookup(ctx, actorIDs, siteIDs)
	if err != nil {
		return nil, err
	}

	rows := make([]ProblemRow, 0, len(problems))
	for _, p := range problems {
		name, _ := n.actor(p.ReporterID)
		row := ProblemRow{
			CreatedAt:   p.CreatedAt.In(s.loc),
			Site:        n.site(p.SiteID),
			Reporter:    name,
			Description: p.Description,
			Status:      string(p.Status),
			PhotoURL:    p.PhotoURL,
		}
		if p.WorkItemID != nil {
			if it, err := s.gw.WorkItems.GetByID(ctx, *p.WorkItemID); err == nil && it != nil {
				row.WorkItem = strings.TrimSpace(it.Title + " " + it.Unit)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Service) inRange(t time.Time, f Filter) bool {
	d := t.In(s.loc).Format(dateLayout)
	return (f.From == "" || d >= f.From) && (f.To == "" || d <= f.To)
}

func (s *Service) localPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.In(s.loc)
	return &v
}
