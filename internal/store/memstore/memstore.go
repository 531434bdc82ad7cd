// Package memstore is an in-process implementation of the store gateway. It
// honors the same uniqueness and conditional-update rules as the MongoDB store
// and hands out copies, so callers never share memory with the stored state.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/Gustavoab019/startia/internal/model"
	"github.com/Gustavoab019/startia/internal/store"
)

type DB struct {
	mu         sync.Mutex
	actors     map[bson.ObjectID]*model.Actor
	sites      map[bson.ObjectID]*model.Site
	items      map[bson.ObjectID]*model.WorkItem
	attendance map[bson.ObjectID]*model.AttendanceRecord
	problems   map[bson.ObjectID]*model.ProblemReport
}

// New returns a gateway over a fresh empty database.
func New() *store.Gateway {
	return NewDB().Gateway()
}

func NewDB() *DB {
	return &DB{
		actors:     map[bson.ObjectID]*model.Actor{},
		sites:      map[bson.ObjectID]*model.Site{},
		items:      map[bson.ObjectID]*model.WorkItem{},
		attendance: map[bson.ObjectID]*model.AttendanceRecord{},
		problems:   map[bson.ObjectID]*model.ProblemReport{},
	}
}

func (db *DB) Gateway() *store.Gateway {
	return &store.Gateway{
		Actors:     actorRepo{db},
		Sites:      siteRepo{db},
		WorkItems:  workItemRepo{db},
		Attendance: attendanceRepo{db},
		Problems:   problemRepo{db},
	}
}

// clone round-trips through BSON so copies match what a MongoDB read returns.
func clone[T any](v *T) *T {
	data, err := bson.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("memstore: marshal %T: %v", v, err))
	}
	var out T
	if err := bson.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("memstore: unmarshal %T: %v", v, err))
	}
	return &out
}

func byCreated(a, b time.Time, ida, idb bson.ObjectID) int {
	if c := a.Compare(b); c != 0 {
		return c
	}
	return strings.Compare(ida.Hex(), idb.Hex())
}

// ── actors ──

type actorRepo struct{ db *DB }

func (r actorRepo) GetOrCreate(_ context.Context, phone, nameHint string) (*model.Actor, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, a := range r.db.actors {
		if a.Phone == phone {
			return clone(a), nil
		}
	}
	now := time.Now()
	a := &model.Actor{
		ID:           bson.NewObjectID(),
		Phone:        phone,
		Name:         nameHint,
		Role:         model.RoleWorker,
		State:        model.StateNew,
		Sites:        []bson.ObjectID{},
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.db.actors[a.ID] = a
	return clone(a), nil
}

func (r actorRepo) GetByID(_ context.Context, id bson.ObjectID) (*model.Actor, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if a, ok := r.db.actors[id]; ok {
		return clone(a), nil
	}
	return nil, nil
}

func (r actorRepo) GetByPhone(_ context.Context, phone string) (*model.Actor, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.db.actors {
		if a.Phone == phone {
			return clone(a), nil
		}
	}
	return nil, nil
}

func (r actorRepo) ListByIDs(_ context.Context, ids []bson.ObjectID) ([]*model.Actor, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.Actor
	for _, id := range ids {
		if a, ok := r.db.actors[id]; ok {
			out = append(out, clone(a))
		}
	}
	slices.SortStableFunc(out, func(a, b *model.Actor) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (r actorRepo) Create(_ context.Context, a *model.Actor) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.actors {
		if existing.Phone == a.Phone {
			return fmt.Errorf("%w: phone %s", store.ErrDuplicate, a.Phone)
		}
	}
	a.ID = bson.NewObjectID()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	if a.Sites == nil {
		a.Sites = []bson.ObjectID{}
	}
	r.db.actors[a.ID] = clone(a)
	return nil
}

func (r actorRepo) SaveSession(_ context.Context, a *model.Actor) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.actors[a.ID]
	if !ok {
		return fmt.Errorf("save session: actor %s not found", a.ID.Hex())
	}
	a.UpdatedAt = time.Now()
	fresh := clone(a)
	stored.State = fresh.State
	stored.SubState = fresh.SubState
	stored.Scratch = fresh.Scratch
	stored.Name = fresh.Name
	stored.Locale = fresh.Locale
	stored.LastActivity = fresh.LastActivity
	stored.UpdatedAt = fresh.UpdatedAt
	return nil
}

func (r actorRepo) AddSite(_ context.Context, actorID, siteID bson.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if a, ok := r.db.actors[actorID]; ok && !slices.Contains(a.Sites, siteID) {
		a.Sites = append(a.Sites, siteID)
		a.UpdatedAt = time.Now()
	}
	return nil
}

func (r actorRepo) DeleteNew(_ context.Context, id bson.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if a, ok := r.db.actors[id]; ok && a.State == model.StateNew {
		delete(r.db.actors, id)
	}
	return nil
}

// ── sites ──

type siteRepo struct{ db *DB }

func (r siteRepo) Create(_ context.Context, s *model.Site) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s.AccessCode = strings.ToUpper(s.AccessCode)
	for _, existing := range r.db.sites {
		if existing.AccessCode == s.AccessCode {
			return fmt.Errorf("%w: access code %s", store.ErrDuplicate, s.AccessCode)
		}
	}
	s.ID = bson.NewObjectID()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	r.db.sites[s.ID] = clone(s)
	return nil
}

func (r siteRepo) GetByID(_ context.Context, id bson.ObjectID) (*model.Site, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if s, ok := r.db.sites[id]; ok {
		return clone(s), nil
	}
	return nil, nil
}

func (r siteRepo) GetByAccessCode(_ context.Context, code string) (*model.Site, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, s := range r.db.sites {
		if s.AccessCode == code {
			return clone(s), nil
		}
	}
	return nil, nil
}

func (r siteRepo) ListByIDs(_ context.Context, ids []bson.ObjectID) ([]*model.Site, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.Site
	for _, id := range ids {
		if s, ok := r.db.sites[id]; ok {
			out = append(out, clone(s))
		}
	}
	slices.SortFunc(out, func(a, b *model.Site) int { return byCreated(a.CreatedAt, b.CreatedAt, a.ID, b.ID) })
	return out, nil
}

func (r siteRepo) AddMember(_ context.Context, siteID, actorID bson.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if s, ok := r.db.sites[siteID]; ok && !slices.Contains(s.Members, actorID) {
		s.Members = append(s.Members, actorID)
		s.UpdatedAt = time.Now()
	}
	return nil
}

func (r siteRepo) Delete(_ context.Context, id bson.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sites, id)
	return nil
}

// ── work items ──

type workItemRepo struct{ db *DB }

func (r workItemRepo) CreateMany(_ context.Context, items []*model.WorkItem) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	for _, it := range items {
		it.ID = bson.NewObjectID()
		it.CreatedAt = now
		it.UpdatedAt = now
		r.db.items[it.ID] = clone(it)
	}
	return nil
}

func (r workItemRepo) GetByID(_ context.Context, id bson.ObjectID) (*model.WorkItem, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if it, ok := r.db.items[id]; ok {
		return clone(it), nil
	}
	return nil, nil
}

func (r workItemRepo) List(_ context.Context, f store.WorkItemFilter) ([]*model.WorkItem, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.WorkItem
	for _, it := range r.db.items {
		if matchWorkItem(it, f) {
			out = append(out, clone(it))
		}
	}
	slices.SortFunc(out, func(a, b *model.WorkItem) int { return byCreated(a.CreatedAt, b.CreatedAt, a.ID, b.ID) })
	return out, nil
}

func (r workItemRepo) Count(_ context.Context, f store.WorkItemFilter) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, it := range r.db.items {
		if matchWorkItem(it, f) {
			n++
		}
	}
	return n, nil
}

func (r workItemRepo) UpdateIf(_ context.Context, id bson.ObjectID, t store.WorkItemTransition) (*model.WorkItem, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	it, ok := r.db.items[id]
	if !ok || it.Status != t.FromStatus {
		return nil, store.ErrConditionFailed
	}
	switch {
	case t.FromHolder == nil && it.HolderID != nil:
		return nil, store.ErrConditionFailed
	case t.FromHolder != nil && (it.HolderID == nil || *it.HolderID != *t.FromHolder):
		return nil, store.ErrConditionFailed
	}

	holder := t.ToHolder
	at := t.At
	it.Status = t.ToStatus
	it.HolderID = &holder
	it.UpdatedAt = at
	switch t.ToStatus {
	case model.WorkItemInProgress:
		it.ClaimedAt = &at
	case model.WorkItemCompleted:
		it.CompletedAt = &at
	}
	return clone(it), nil
}

func matchWorkItem(it *model.WorkItem, f store.WorkItemFilter) bool {
	if f.SiteID != nil && it.SiteID != *f.SiteID {
		return false
	}
	if f.HolderID != nil {
		if it.HolderID == nil || *it.HolderID != *f.HolderID {
			return false
		}
	} else if f.Unheld && it.HolderID != nil {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, it.Status) {
		return false
	}
	return true
}

// ── attendance ──

type attendanceRepo struct{ db *DB }

func (r attendanceRepo) Create(_ context.Context, rec *model.AttendanceRecord) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if rec.Status == model.AttendanceOpen {
		for _, existing := range r.db.attendance {
			if existing.Status == model.AttendanceOpen && existing.ActorID == rec.ActorID &&
				existing.SiteID == rec.SiteID && existing.Date == rec.Date {
				return fmt.Errorf("%w: open attendance for %s", store.ErrDuplicate, rec.Date)
			}
		}
	}
	rec.ID = bson.NewObjectID()
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	r.db.attendance[rec.ID] = clone(rec)
	return nil
}

func (r attendanceRepo) FindOpen(_ context.Context, actorID, siteID bson.ObjectID) (*model.AttendanceRecord, error) {
	return r.latest(func(rec *model.AttendanceRecord) bool {
		return rec.ActorID == actorID && rec.SiteID == siteID && rec.Status == model.AttendanceOpen
	}), nil
}

func (r attendanceRepo) Latest(_ context.Context, actorID, siteID bson.ObjectID, date string) (*model.AttendanceRecord, error) {
	return r.latest(func(rec *model.AttendanceRecord) bool {
		return rec.ActorID == actorID && rec.SiteID == siteID && rec.Date == date
	}), nil
}

func (r attendanceRepo) latest(match func(*model.AttendanceRecord) bool) *model.AttendanceRecord {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var best *model.AttendanceRecord
	for _, rec := range r.db.attendance {
		if match(rec) && (best == nil || rec.CheckIn.After(best.CheckIn)) {
			best = rec
		}
	}
	if best == nil {
		return nil
	}
	return clone(best)
}

func (r attendanceRepo) Close(_ context.Context, rec *model.AttendanceRecord) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.attendance[rec.ID]
	if !ok || stored.Status != model.AttendanceOpen {
		return store.ErrConditionFailed
	}
	rec.UpdatedAt = time.Now()
	rec.Status = model.AttendanceClosed
	fresh := clone(rec)
	stored.CheckOut = fresh.CheckOut
	stored.Status = model.AttendanceClosed
	stored.WorkedHours = fresh.WorkedHours
	stored.BreakDeducted = fresh.BreakDeducted
	stored.Anomaly = fresh.Anomaly
	stored.UpdatedAt = fresh.UpdatedAt
	return nil
}

func (r attendanceRepo) List(_ context.Context, f store.AttendanceFilter) ([]*model.AttendanceRecord, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.AttendanceRecord
	for _, rec := range r.db.attendance {
		if matchAttendance(rec, f) {
			out = append(out, clone(rec))
		}
	}
	slices.SortFunc(out, func(a, b *model.AttendanceRecord) int {
		if c := strings.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return a.CheckIn.Compare(b.CheckIn)
	})
	return out, nil
}

func (r attendanceRepo) Count(_ context.Context, f store.AttendanceFilter) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, rec := range r.db.attendance {
		if matchAttendance(rec, f) {
			n++
		}
	}
	return n, nil
}

func matchAttendance(rec *model.AttendanceRecord, f store.AttendanceFilter) bool {
	switch {
	case f.ActorID != nil && rec.ActorID != *f.ActorID:
		return false
	case f.SiteID != nil && rec.SiteID != *f.SiteID:
		return false
	case f.Status != "" && rec.Status != f.Status:
		return false
	case f.From != "" && rec.Date < f.From:
		return false
	case f.To != "" && rec.Date > f.To:
		return false
	}
	return true
}

// ── problems ──

type problemRepo struct{ db *DB }

func (r problemRepo) Create(_ context.Context, p *model.ProblemReport) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p.ID = bson.NewObjectID()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.db.problems[p.ID] = clone(p)
	return nil
}

func (r problemRepo) GetByID(_ context.Context, id bson.ObjectID) (*model.ProblemReport, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p, ok := r.db.problems[id]; ok {
		return clone(p), nil
	}
	return nil, nil
}

func (r problemRepo) List(_ context.Context, f store.ProblemFilter) ([]*model.ProblemReport, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.ProblemReport
	for _, p := range r.db.problems {
		if matchProblem(p, f) {
			out = append(out, clone(p))
		}
	}
	slices.SortFunc(out, func(a, b *model.ProblemReport) int { return byCreated(b.CreatedAt, a.CreatedAt, b.ID, a.ID) })
	return out, nil
}

func (r problemRepo) Count(_ context.Context, f store.ProblemFilter) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, p := range r.db.problems {
		if matchProblem(p, f) {
			n++
		}
	}
	return n, nil
}

func (r problemRepo) SetStatus(_ context.Context, id bson.ObjectID, status model.ProblemStatus) (*model.ProblemReport, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.problems[id]
	if !ok {
		return nil, nil
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	return clone(p), nil
}

func matchProblem(p *model.ProblemReport, f store.ProblemFilter) bool {
	switch {
	case f.SiteID != nil && p.SiteID != *f.SiteID:
		return false
	case f.ReporterID != nil && p.ReporterID != *f.ReporterID:
		return false
	case len(f.Statuses) > 0 && !slices.Contains(f.Statuses, p.Status):
		return false
	}
	return true
}

// Actor is a test hook returning the stored actor without copying through the repo interface.
func (db *DB) Actor(phone string) *model.Actor {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, a := range db.actors {
		if a.Phone == phone {
			return clone(a)
		}
	}
	return nil
}
