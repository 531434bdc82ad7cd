package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gustavoab019/startia/internal/model"
)

func TestSummaryBuild(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.actor(t, "351900000001", "Ana")
	site := f.site(t, owner)

	items, err := f.svc.Pool.CreateBatch(ctx, site.ID, owner.ID, model.WorkItemDraft{Title: "Pintura", Units: []string{"1", "2", "3"}})
	require.NoError(t, err)
	_, err = f.svc.Pool.Claim(ctx, items[0].ID, owner.ID)
	require.NoError(t, err)
	_, err = f.svc.Pool.Claim(ctx, items[1].ID, owner.ID)
	require.NoError(t, err)
	_, err = f.svc.Pool.Complete(ctx, items[1].ID, owner.ID)
	require.NoError(t, err)
	_, err = f.svc.Attendance.CheckIn(ctx, owner.ID, site.ID)
	require.NoError(t, err)
	_, err = f.svc.Problems.Report(ctx, owner.ID, site.ID, model.ProblemDraft{Description: "Andaime solto"}, "")
	require.NoError(t, err)

	sum, err := f.svc.Summary.Build(ctx, owner)
	require.NoError(t, err)
	require.NotNil(t, sum.Site)
	assert.EqualValues(t, 1, sum.Held)
	assert.EqualValues(t, 1, sum.Completed)
	assert.EqualValues(t, 1, sum.Pool)
	assert.EqualValues(t, 2, sum.OpenItems)
	assert.EqualValues(t, 1, sum.ActiveToday)
	assert.EqualValues(t, 1, sum.OpenProblems)
	require.NotNil(t, sum.Presence)
	assert.True(t, sum.Presence.Working())
}

func TestSummaryBuild_NoSite(t *testing.T) {
	f := newFixture(t)
	a := f.actor(t, "351900000009", "")

	sum, err := f.svc.Summary.Build(context.Background(), a)
	require.NoError(t, err)
	assert.Nil(t, sum.Site)
	assert.Nil(t, sum.Presence)
	assert.Zero(t, sum.Held)
}

func TestSummaryBuild_IgnoresSiteActorDoesNotBelongTo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.actor(t, "351900000001", "Ana")
	site := f.site(t, owner)
	_, err := f.svc.Pool.CreateBatch(ctx, site.ID, owner.ID, model.WorkItemDraft{Title: "Pintura", Units: []string{"1"}})
	require.NoError(t, err)

	outsider := f.actor(t, "351900000002", "Rui")
	outsider.SetActiveSite(site.ID)

	sum, err := f.svc.Summary.Build(ctx, outsider)
	require.NoError(t, err)
	assert.Nil(t, sum.Site)
	assert.Zero(t, sum.Pool)
	assert.Nil(t, sum.Presence)
}
