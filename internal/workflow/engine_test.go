package workflow

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/Gustavoab019/startia/internal/i18n"
	"github.com/Gustavoab019/startia/internal/message"
	"github.com/Gustavoab019/startia/internal/model"
	"github.com/Gustavoab019/startia/internal/service"
	"github.com/Gustavoab019/startia/internal/store"
	"github.com/Gustavoab019/startia/internal/store/memstore"
)

func TestMain(m *testing.M) {
	if err := i18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

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

func (c *clock) Set(hh, mm int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = time.Date(2025, time.March, 10, hh, mm, 0, 0, lisbon)
}

type harness struct {
	db     *memstore.DB
	gw     *store.Gateway
	svc    *service.Services
	engine *Engine
	clock  *clock
}

const (
	ownerPhone  = "351910000001"
	workerPhone = "351910000002"
	otherPhone  = "351910000003"
)

// newHarness builds an engine over an in-memory store. wrap may replace repos
// to inject faults.
func newHarness(t *testing.T, wrap ...func(*store.Gateway)) *harness {
	t.Helper()
	c := &clock{}
	c.Set(8, 0)
	db := memstore.NewDB()
	gw := db.Gateway()
	for _, w := range wrap {
		w(gw)
	}
	svc := service.New(gw, service.Options{
		Location:      lisbon,
		MaxBatchSpan:  50,
		UnitsPerFloor: 4,
		CountryCode:   "351",
		Now:           c.Now,
	}, zap.NewNop())
	e := NewEngine(Deps{Store: gw, Services: svc, Logger: zap.NewNop()})
	return &harness{db: db, gw: gw, svc: svc, engine: e, clock: c}
}

func (h *harness) send(t *testing.T, in message.Inbound) string {
	t.Helper()
	out, err := h.engine.Handle(context.Background(), in)
	require.NoError(t, err)
	return message.Render(out)
}

func (h *harness) say(t *testing.T, phone, text string) string {
	t.Helper()
	return h.send(t, message.Inbound{ActorID: phone, Text: text})
}

// script sends each line in order and returns the last reply.
func (h *harness) script(t *testing.T, phone string, lines ...string) string {
	t.Helper()
	var reply string
	for _, l := range lines {
		reply = h.say(t, phone, l)
	}
	return reply
}

func (h *harness) actor(t *testing.T, phone string) *model.Actor {
	t.Helper()
	a := h.db.Actor(phone)
	require.NotNil(t, a, "actor %s", phone)
	return a
}

func (h *harness) activeSite(t *testing.T, phone string) *model.Site {
	t.Helper()
	id, ok := h.actor(t, phone).ActiveSite()
	require.True(t, ok)
	site, err := h.gw.Sites.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, site)
	return site
}

// withSite onboards the owner, creates a site with the default break and
// returns it.
func (h *harness) withSite(t *testing.T) *model.Site {
	t.Helper()
	reply := h.script(t, ownerPhone, "hi", "Olga", "1", "Edificio Aurora", "Rua das Flores 10", "2")
	require.Contains(t, reply, "Site *Edificio Aurora* created!")
	require.Equal(t, model.StateInSite, h.actor(t, ownerPhone).State)
	return h.activeSite(t, ownerPhone)
}

// withWorker joins a worker to the site using its access code.
func (h *harness) withWorker(t *testing.T, phone, name string, site *model.Site) {
	t.Helper()
	h.send(t, message.Inbound{ActorID: phone, Text: "ola", NameHint: name})
	reply := h.script(t, phone, "2", site.AccessCode)
	require.Contains(t, reply, "You joined *Edificio Aurora*.")
}

func (h *harness) withItems(t *testing.T, units string) {
	t.Helper()
	reply := h.script(t, ownerPhone, "6", "Install windows", units, "skip", "none", "1")
	require.Contains(t, reply, "added to the pool")
}

func assertScratchIsolated(t *testing.T, a *model.Actor) {
	t.Helper()
	d := a.Scratch.Draft
	if d == nil {
		return
	}
	w := a.State.Workflow()
	if !assert.NotEmpty(t, w, "draft of %s left behind in state %s", d.Workflow, a.State) {
		return
	}
	assert.Equal(t, w, d.Workflow, "state %s", a.State)
	variants := 0
	for _, set := range []bool{d.Site != nil, d.WorkItem != nil, d.Member != nil, d.Problem != nil} {
		if set {
			variants++
		}
	}
	assert.Equal(t, 1, variants, "state %s", a.State)
}

func TestOnboarding_AsksForName(t *testing.T) {
	h := newHarness(t)

	reply := h.say(t, workerPhone, "oi")
	assert.Contains(t, reply, "What is your name?")
	assert.Equal(t, model.StateCollectingName, h.actor(t, workerPhone).State)

	reply = h.say(t, workerPhone, "R")
	assert.Contains(t, reply, "at least 2 letters")
	assert.Equal(t, model.StateCollectingName, h.actor(t, workerPhone).State)

	reply = h.say(t, workerPhone, "Rui Costa")
	assert.Contains(t, reply, "Nice to meet you, Rui Costa!")
	a := h.actor(t, workerPhone)
	assert.Equal(t, model.StateMenu, a.State)
	assert.Equal(t, "Rui Costa", a.Name)
}

func TestOnboarding_NameHintSkipsQuestion(t *testing.T) {
	h := newHarness(t)

	reply := h.send(t, message.Inbound{ActorID: workerPhone, Text: "oi", NameHint: "Ana"})
	assert.Contains(t, reply, "Hello Ana!")
	assert.Contains(t, reply, "1. Create a site")
	assert.Equal(t, model.StateMenu, h.actor(t, workerPhone).State)
}

func TestHandle_RequiresActorID(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.Handle(context.Background(), message.Inbound{Text: "hi"})
	assert.Error(t, err)
}

func TestRegistry_CoversEveryState(t *testing.T) {
	h := newHarness(t)
	all := []model.State{
		model.StateCollectingName, model.StateMenu, model.StateInSite,
		model.StateJoiningSite, model.StateSelectingSite, model.StateRegisteringPresence,
		model.StateViewingMyItems, model.StateBrowsingPool, model.StateManagingItem,
		model.StateViewingProblems, model.StateViewingProblem, model.StateViewingCrew,
	}
	for _, w := range []model.Workflow{model.WorkflowSite, model.WorkflowWorkItem, model.WorkflowMember, model.WorkflowProblem} {
		all = append(all, model.WorkflowStates(w)...)
	}
	for _, s := range all {
		_, ok := h.engine.Registry().Lookup(s)
		assert.True(t, ok, "no handler for %s", s)
	}
	assert.Len(t, h.engine.Registry().States(), len(all))
}

func TestUnknownState_RecoversToMenu(t *testing.T) {
	h := newHarness(t)
	h.withSite(t)

	a := h.actor(t, ownerPhone)
	a.State = "creating_rocket"
	a.Scratch.Draft = model.NewDraft(model.WorkflowSite)
	a.Scratch.Draft.Site.Name = "half typed"
	a.Scratch.Navigation().ItemIDs = []bson.ObjectID{bson.NewObjectID()}
	require.NoError(t, h.gw.Actors.SaveSession(context.Background(), a))

	reply := h.say(t, ownerPhone, "1")
	assert.Contains(t, reply, "I lost track of our conversation")

	a = h.actor(t, ownerPhone)
	assert.Equal(t, model.StateMenu, a.State)
	assert.True(t, a.Scratch.Empty())
}

func TestHelpAndStatus_DoNotChangeState(t *testing.T) {
	h := newHarness(t)
	site := h.withSite(t)
	h.withItems(t, "101-103")
	h.withWorker(t, workerPhone, "Rui", site)

	positions := map[string][]string{
		ownerPhone:  {"1", "Obra Nova"}, // inside the site wizard, draft set
		workerPhone: {"4"},              // browsing the pool, nav set
	}
	for phone, lines := range positions {
		h.script(t, phone, lines...)
		before := h.actor(t, phone)
		for _, cmd := range []string{"help", "status", "?", "ajuda", "Status", "where am i", "help"} {
			h.say(t, phone, cmd)
			after := h.actor(t, phone)
			assert.Equal(t, before.State, after.State, "%s after %q", phone, cmd)
			assert.Equal(t, before.Scratch, after.Scratch, "%s after %q", phone, cmd)
			assert.Equal(t, before.SubState, after.SubState)
		}
	}
}

func TestHelp_ShowsBreadcrumb(t *testing.T) {
	h := newHarness(t)
	h.withSite(t)

	reply := h.script(t, ownerPhone, "6", "help")
	assert.Contains(t, reply, "Menu › New tasks › Title")
	assert.Contains(t, reply, "cancel")

	reply = h.script(t, ownerPhone, "cancel", "help")
	assert.Contains(t, reply, "Menu")
	assert.NotContains(t, reply, "abandon this form")
}

func TestStatus_SummarizesSite(t *testing.T) {
	h := newHarness(t)
	h.withSite(t)
	h.withItems(t, "101-105")

	reply := h.say(t, ownerPhone, "status")
	assert.Contains(t, reply, "Olga")
	assert.Contains(t, reply, "Site: *Edificio Aurora*")
	assert.Contains(t, reply, "Available tasks: 5")
	assert.Contains(t, reply, "You have not checked in today.")
}

func TestCancel_OnlyInsideWizards(t *testing.T) {
	h := newHarness(t)
	h.withSite(t)

	reply := h.script(t, ownerPhone, "1", "Obra Nova", "cancel")
	assert.Contains(t, reply, "Cancelled.")
	a := h.actor(t, ownerPhone)
	assert.Equal(t, model.StateMenu, a.State)
	assert.Nil(t, a.Scratch.Draft)

	// outside a wizard the word is ordinary input for the state handler
	reply = h.say(t, ownerPhone, "cancel")
	assert.Contains(t, reply, "I did not understand that option.")
}

func TestMenuCommand_ClearsNavigation(t *testing.T) {
	h := newHarness(t)
	h.withSite(t)
	h.withItems(t, "101-102")

	h.say(t, ownerPhone, "4")
	require.NotNil(t, h.actor(t, ownerPhone).Scratch.Nav)

	h.say(t, ownerPhone, "menu")
	a := h.actor(t, ownerPhone)
	assert.Equal(t, model.StateMenu, a.State)
	assert.Nil(t, a.Scratch.Nav)
}

// failingItems fails every list query, as an unreachable database would.
type failingItems struct{ store.WorkItemRepo }

func (failingItems) List(context.Context, store.WorkItemFilter) ([]*model.WorkItem, error) {
	return nil, errors.New("connection reset by peer")
}

func TestHandlerError_NothingPersisted(t *testing.T) {
	h := newHarness(t, func(gw *store.Gateway) { gw.WorkItems = failingItems{gw.WorkItems} })
	h.withSite(t)

	before := h.actor(t, ownerPhone)
	reply := h.say(t, ownerPhone, "4")
	assert.Contains(t, reply, "Something went wrong")

	after := h.actor(t, ownerPhone)
	assert.Equal(t, before.State, after.State)
	assert.Equal(t, before.Scratch, after.Scratch)
	assert.Equal(t, before.LastActivity, after.LastActivity)
}

type sent struct {
	to   string
	body string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (s *recordingSender) Send(_ context.Context, to string, m message.Outbound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sent{to: to, body: message.Render(m)})
	return s.err
}

func (s *recordingSender) bodies(to string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.sent {
		if m.to == to {
			out = append(out, m.body)
		}
	}
	return out
}

func TestProcess_DeliversReply(t *testing.T) {
	h := newHarness(t)
	sender := &recordingSender{}
	h.engine.sender = sender

	require.NoError(t, h.engine.Process(context.Background(), message.Inbound{ActorID: workerPhone, Text: "oi"}))
	bodies := sender.bodies(workerPhone)
	require.Len(t, bodies, 1)
	assert.Contains(t, bodies[0], "What is your name?")
}

func TestProcess_DeliveryFailureKeepsTransition(t *testing.T) {
	h := newHarness(t)
	h.engine.sender = &recordingSender{err: errors.New("gateway timeout")}

	require.NoError(t, h.engine.Process(context.Background(), message.Inbound{ActorID: workerPhone, Text: "oi"}))
	assert.Equal(t, model.StateCollectingName, h.actor(t, workerPhone).State)
}

func TestProcess_ConcurrentClaimsOneWinner(t *testing.T) {
	h := newHarness(t)
	site := h.withSite(t)
	h.withItems(t, "101")
	h.withWorker(t, workerPhone, "Rui", site)
	h.withWorker(t, otherPhone, "Ze", site)
	sender := &recordingSender{}
	h.engine.sender = sender

	ctx := context.Background()
	for _, p := range []string{workerPhone, otherPhone} {
		require.NoError(t, h.engine.Process(ctx, message.Inbound{ActorID: p, Text: "pool"}))
	}

	var wg sync.WaitGroup
	for _, p := range []string{workerPhone, otherPhone} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.engine.Process(ctx, message.Inbound{ActorID: p, Text: "1"}))
		}()
	}
	wg.Wait()

	wins := 0
	for _, p := range []string{workerPhone, otherPhone} {
		bodies := sender.bodies(p)
		last := bodies[len(bodies)-1]
		if assert.NotContains(t, last, "Something went wrong") && strings.Contains(last, "The task is yours") {
			wins++
		}
	}
	assert.Equal(t, 1, wins)

	items, err := h.gw.WorkItems.List(ctx, store.WorkItemFilter{SiteID: &site.ID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.WorkItemInProgress, items[0].Status)
	require.NotNil(t, items[0].HolderID)
}

// turnTracker counts turns that have loaded an actor and not yet saved it.
// Two open turns for one phone mean their read-modify-write cycles overlap.
type turnTracker struct {
	store.ActorRepo
	mu       sync.Mutex
	open     map[string]int
	overlaps int
}

func (t *turnTracker) GetOrCreate(ctx context.Context, phone, nameHint string) (*model.Actor, error) {
	t.mu.Lock()
	t.open[phone]++
	if t.open[phone] > 1 {
		t.overlaps++
	}
	t.mu.Unlock()
	time.Sleep(2 * time.Millisecond)
	return t.ActorRepo.GetOrCreate(ctx, phone, nameHint)
}

func (t *turnTracker) SaveSession(ctx context.Context, a *model.Actor) error {
	err := t.ActorRepo.SaveSession(ctx, a)
	t.mu.Lock()
	t.open[a.Phone]--
	t.mu.Unlock()
	return err
}

func TestProcess_SerializesSameActor(t *testing.T) {
	tracker := &turnTracker{open: map[string]int{}}
	h := newHarness(t, func(gw *store.Gateway) {
		tracker.ActorRepo = gw.Actors
		gw.Actors = tracker
	})
	sender := &recordingSender{}
	h.engine.sender = sender

	ctx := context.Background()
	require.NoError(t, h.engine.Process(ctx, message.Inbound{ActorID: ownerPhone, Text: "hi", NameHint: "Olga"}))
	require.Equal(t, model.StateMenu, h.actor(t, ownerPhone).State)

	// every turn moves the actor: 1 opens the site wizard, menu leaves it
	var wg sync.WaitGroup
	for i := range 16 {
		text := "1"
		if i%2 == 1 {
			text = "menu"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.engine.Process(ctx, message.Inbound{ActorID: ownerPhone, Text: text}))
		}()
	}
	wg.Wait()

	tracker.mu.Lock()
	assert.Zero(t, tracker.overlaps)
	assert.Zero(t, tracker.open[ownerPhone])
	tracker.mu.Unlock()

	assert.Len(t, sender.bodies(ownerPhone), 17)
	a := h.actor(t, ownerPhone)
	assert.Contains(t, []model.State{model.StateMenu, model.StateCreatingSiteName}, a.State)
	assertScratchIsolated(t, a)
}

func TestProcess_HandlerPanicRepliesGeneric(t *testing.T) {
	h := newHarness(t)
	site := h.withSite(t)
	sender := &recordingSender{}
	h.engine.sender = sender
	h.engine.Registry().Register(model.StateInSite, func(_ context.Context, req *Request) (message.Outbound, model.State, error) {
		req.Actor.State = model.StateBrowsingPool
		var a *model.Actor
		return message.Text{Body: a.Name}, model.StateMenu, nil
	})
	before := h.actor(t, ownerPhone)

	assert.NotPanics(t, func() {
		assert.NoError(t, h.engine.Process(context.Background(), message.Inbound{ActorID: ownerPhone, Text: "4"}))
	})
	bodies := sender.bodies(ownerPhone)
	require.Len(t, bodies, 1)
	assert.Contains(t, bodies[0], "Something went wrong")

	after := h.actor(t, ownerPhone)
	assert.Equal(t, model.StateInSite, after.State)
	assert.Equal(t, before.Scratch, after.Scratch)
	assert.Equal(t, before.LastActivity, after.LastActivity)
	id, ok := after.ActiveSite()
	require.True(t, ok)
	assert.Equal(t, site.ID, id)
}
