package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/Gustavoab019/startia/internal/model"
	"github.com/Gustavoab019/startia/internal/store"
)

func TestSiteCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.actor(t, "351900000001", "Ana")

	site, err := f.svc.Sites.Create(ctx, owner, model.SiteDraft{Name: "Obra Norte", Address: "Av. Central 5", BreakStart: "9:30", BreakEnd: "10:00"})
	require.NoError(t, err)

	assert.Len(t, site.AccessCode, 6)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, site.AccessCode)
	assert.Equal(t, "09:30", site.BreakStart)
	assert.Equal(t, 30, site.BreakMinutes)
	assert.Equal(t, []bson.ObjectID{owner.ID}, site.Members)

	active, ok := owner.ActiveSite()
	require.True(t, ok)
	assert.Equal(t, site.ID, active)

	stored, err := f.gw.Actors.GetByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.True(t, stored.BelongsTo(site.ID))
}

// flakyActors fails AddSite a set number of times, as a dropped connection would.
type flakyActors struct {
	store.ActorRepo
	failAddSite int
}

func (a *flakyActors) AddSite(ctx context.Context, actorID, siteID bson.ObjectID) error {
	if a.failAddSite > 0 {
		a.failAddSite--
		return errors.New("connection reset by peer")
	}
	return a.ActorRepo.AddSite(ctx, actorID, siteID)
}

// createdSites remembers the id of every inserted site.
type createdSites struct {
	store.SiteRepo
	ids []bson.ObjectID
}

func (s *createdSites) Create(ctx context.Context, site *model.Site) error {
	if err := s.SiteRepo.Create(ctx, site); err != nil {
		return err
	}
	s.ids = append(s.ids, site.ID)
	return nil
}

func TestSiteCreate_OwnerLinkFailureLeavesNoSite(t *testing.T) {
	actors := &flakyActors{failAddSite: 1}
	sites := &createdSites{}
	f := newFixture(t, func(gw *store.Gateway) {
		actors.ActorRepo = gw.Actors
		gw.Actors = actors
		sites.SiteRepo = gw.Sites
		gw.Sites = sites
	})
	ctx := context.Background()
	owner := f.actor(t, "351900000001", "Ana")
	draft := model.SiteDraft{Name: "Obra Norte", Address: "Av. Central 5"}

	_, err := f.svc.Sites.Create(ctx, owner, draft)
	require.Error(t, err)
	assert.Empty(t, owner.Sites)

	site, err := f.svc.Sites.Create(ctx, owner, draft)
	require.NoError(t, err)

	stored, err := f.gw.Actors.GetByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, []bson.ObjectID{site.ID}, stored.Sites)

	require.Len(t, sites.ids, 2)
	orphan, err := f.gw.Sites.GetByID(ctx, sites.ids[0])
	require.NoError(t, err)
	assert.Nil(t, orphan)
}

func TestSiteCreate_DefaultBreak(t *testing.T) {
	f := newFixture(t)
	owner := f.actor(t, "351900000001", "Ana")

	site, err := f.svc.Sites.Create(context.Background(), owner, model.SiteDraft{Name: "Obra Sul", Address: "Rua Nova 12"})
	require.NoError(t, err)
	assert.Equal(t, "12:00", site.BreakStart)
	assert.Equal(t, "13:00", site.BreakEnd)
	assert.Equal(t, 60, site.BreakMinutes)
}

func TestSiteCreate_Validation(t *testing.T) {
	f := newFixture(t)
	owner := f.actor(t, "351900000001", "Ana")

	tests := []struct {
		draft model.SiteDraft
		msgID string
	}{
		{model.SiteDraft{Name: "AB", Address: "Rua Nova 12"}, "validation.site_name_short"},
		{model.SiteDraft{Name: "Obra", Address: "Rua"}, "validation.site_address_short"},
		{model.SiteDraft{Name: "Obra", Address: "Rua Nova 12", BreakStart: "12:00", BreakEnd: "17:00"}, "validation.break_range"},
		{model.SiteDraft{Name: "Obra", Address: "Rua Nova 12", BreakStart: "25:00", BreakEnd: "13:00"}, "validation.clock_format"},
	}
	for _, tt := range tests {
		_, err := f.svc.Sites.Create(context.Background(), owner, tt.draft)
		ve, ok := AsValidation(err)
		require.True(t, ok, "%+v: %v", tt.draft, err)
		assert.Equal(t, tt.msgID, ve.MessageID)
	}
}

func TestSiteCreate_RetriesTakenCodes(t *testing.T) {
	f := newFixture(t)
	owner := f.actor(t, "351900000001", "Ana")

	codes := []string{"AAAAAA", "AAAAAA", "AAAAAA", "BBBBBB"}
	f.svc.Sites.NewCode = func() string {
		c := codes[0]
		codes = codes[1:]
		return c
	}

	first := f.site(t, owner)
	assert.Equal(t, "AAAAAA", first.AccessCode)

	second := f.site(t, owner)
	assert.Equal(t, "BBBBBB", second.AccessCode)
}

func TestSiteCreate_GivesUpAfterAttempts(t *testing.T) {
	f := newFixture(t)
	owner := f.actor(t, "351900000001", "Ana")
	f.svc.Sites.NewCode = func() string { return "SAME00" }

	f.site(t, owner)
	_, err := f.svc.Sites.Create(context.Background(), owner, model.SiteDraft{Name: "Outra", Address: "Rua Nova 12"})
	assert.ErrorIs(t, err, ErrDuplicateCode)
}

func TestSiteJoin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.actor(t, "351900000001", "Ana")
	worker := f.actor(t, "351900000002", "Rui")
	site := f.site(t, owner)

	_, err := f.svc.Sites.Join(ctx, worker, "nope00")
	assert.ErrorIs(t, err, ErrNotFound)

	joined, err := f.svc.Sites.Join(ctx, worker, " "+strings.ToLower(site.AccessCode)+" ")
	require.NoError(t, err)
	assert.Equal(t, site.ID, joined.ID)

	active, err := f.svc.Sites.Active(ctx, worker)
	require.NoError(t, err)
	assert.Equal(t, site.ID, active.ID)

	members, err := f.svc.Sites.Members(ctx, mustGetSite(t, f, site))
	require.NoError(t, err)
	assert.Len(t, members, 2)

	assert.False(t, CanManage(worker, site))
	assert.True(t, CanManage(owner, site))
}

func TestHasSiteNamed(t *testing.T) {
	f := newFixture(t)
	owner := f.actor(t, "351900000001", "Ana")
	f.site(t, owner)

	dup, err := f.svc.Sites.HasSiteNamed(context.Background(), owner, "  edificio aurora")
	require.NoError(t, err)
	assert.True(t, dup)

	dup, err = f.svc.Sites.HasSiteNamed(context.Background(), owner, "Outro")
	require.NoError(t, err)
	assert.False(t, dup)
}

func mustGetSite(t *testing.T, f *fixture, s *model.Site) *model.Site {
	t.Helper()
	got, err := f.svc.Sites.Get(context.Background(), s.ID)
	require.NoError(t, err)
	return got
}
