package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Gustavoab019/startia/internal/model"
	"github.com/Gustavoab019/startia/internal/store"
	"github.com/Gustavoab019/startia/internal/store/memstore"
)

var lisbon = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Lisbon")
	if err != nil {
		return time.UTC
	}
	return loc
}()

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(day int, hh, mm int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = time.Date(2025, time.March, day, hh, mm, 0, 0, lisbon)
}

type fixture struct {
	gw    *store.Gateway
	svc   *Services
	clock *clock
}

// newFixture builds services over an in-memory store. wrap may replace repos
// to inject faults.
func newFixture(t *testing.T, wrap ...func(*store.Gateway)) *fixture {
	t.Helper()
	c := &clock{}
	c.Set(10, 8, 0)
	gw := memstore.New()
	for _, w := range wrap {
		w(gw)
	}
	svc := New(gw, Options{
		Location:      lisbon,
		MaxBatchSpan:  50,
		UnitsPerFloor: 4,
		CountryCode:   "351",
		Now:           c.Now,
	}, zap.NewNop())
	return &fixture{gw: gw, svc: svc, clock: c}
}

func (f *fixture) actor(t *testing.T, phone, name string) *model.Actor {
	t.Helper()
	a, err := f.gw.Actors.GetOrCreate(context.Background(), phone, name)
	require.NoError(t, err)
	return a
}

func (f *fixture) site(t *testing.T, owner *model.Actor) *model.Site {
	t.Helper()
	site, err := f.svc.Sites.Create(context.Background(), owner, model.SiteDraft{
		Name:       "Edificio Aurora",
		Address:    "Rua das Flores 10",
		BreakStart: "12:00",
		BreakEnd:   "13:00",
	})
	require.NoError(t, err)
	return site
}
