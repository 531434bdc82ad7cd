package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/Gustavoab019/startia/internal/model"
	"github.com/Gustavoab019/startia/internal/store"
	"github.com/Gustavoab019/startia/internal/worktime"
)

const (
	accessCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	accessCodeLength   = 6
	accessCodeAttempts = 20
)

type SiteService struct {
	sites  store.SiteRepo
	actors store.ActorRepo
	opts   Options
	logger *zap.Logger
	// NewCode generates candidate access codes.
	NewCode func() string
}

func NewSiteService(gw *store.Gateway, opts Options, logger *zap.Logger) *SiteService {
	return &SiteService{
		sites:   gw.Sites,
		actors:  gw.Actors,
		opts:    opts.withDefaults(),
		logger:  logger,
		NewCode: randomCode,
	}
}

func randomCode() string {
	var b strings.Builder
	for range accessCodeLength {
		b.WriteByte(accessCodeAlphabet[rand.IntN(len(accessCodeAlphabet))])
	}
	return b.String()
}

// DefaultBreak is the configured break window offered by the site wizard.
func (s *SiteService) DefaultBreak() (string, string) {
	return s.opts.BreakFrom, s.opts.BreakTo
}

func ValidateSiteName(name string) error {
	if len([]rune(strings.TrimSpace(name))) < 3 {
		return invalid("name", "validation.site_name_short")
	}
	return nil
}

func ValidateSiteAddress(address string) error {
	if len([]rune(strings.TrimSpace(address))) < 5 {
		return invalid("address", "validation.site_address_short")
	}
	return nil
}

// ValidateBreak checks a break window; the error carries the localized reason.
func ValidateBreak(start, end string) error {
	if _, err := worktime.ParseWindow(start, end); err != nil {
		if errors.Is(err, worktime.ErrBadClock) {
			return invalid("break", "validation.clock_format")
		}
		return invalid("break", "validation.break_range", map[string]any{"Max": worktime.MaxBreakMinutes / 60})
	}
	return nil
}

// Create stores the site owned by owner, allocating a unique access code, and
// makes it the owner's active site.
func (s *SiteService) Create(ctx context.Context, owner *model.Actor, d model.SiteDraft) (*model.Site, error) {
	if err := ValidateSiteName(d.Name); err != nil {
		return nil, err
	}
	if err := ValidateSiteAddress(d.Address); err != nil {
		return nil, err
	}
	if d.BreakStart == "" || d.BreakEnd == "" {
		d.BreakStart, d.BreakEnd = s.DefaultBreak()
	}
	window, err := worktime.ParseWindow(d.BreakStart, d.BreakEnd)
	if err != nil {
		return nil, ValidateBreak(d.BreakStart, d.BreakEnd)
	}

	site := &model.Site{
		Name:         strings.TrimSpace(d.Name),
		Address:      strings.TrimSpace(d.Address),
		OwnerID:      owner.ID,
		Members:      []bson.ObjectID{owner.ID},
		BreakStart:   worktime.FormatClock(window.Start),
		BreakEnd:     worktime.FormatClock(window.End),
		BreakMinutes: window.Minutes(),
		Status:       model.SiteStatusActive,
	}

	created := false
	for attempt := 1; attempt <= accessCodeAttempts; attempt++ {
		site.AccessCode = s.NewCode()
		err := s.sites.Create(ctx, site)
		if err == nil {
			created = true
			break
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("create site: %w", err)
		}
		s.logger.Debug("access code taken, retrying", zap.String("code", site.AccessCode), zap.Int("attempt", attempt))
	}
	if !created {
		return nil, ErrDuplicateCode
	}

	if err := s.actors.AddSite(ctx, owner.ID, site.ID); err != nil {
		// drop the unlinked site so a retry does not leave a second one behind
		if delErr := s.sites.Delete(context.WithoutCancel(ctx), site.ID); delErr != nil {
			s.logger.Error("remove unlinked site", zap.String("site_id", site.ID.Hex()), zap.Error(delErr))
		}
		return nil, fmt.Errorf("link site owner: %w", err)
	}
	owner.Sites = append(owner.Sites, site.ID)
	owner.SetActiveSite(site.ID)

	s.logger.Info("site created",
		zap.String("site_id", site.ID.Hex()),
		zap.String("owner", owner.Phone),
		zap.String("code", site.AccessCode))
	return site, nil
}

// HasSiteNamed reports whether the actor already belongs to a site with this name.
func (s *SiteService) HasSiteNamed(ctx context.Context, actor *model.Actor, name string) (bool, error) {
	sites, err := s.sites.ListByIDs(ctx, actor.Sites)
	if err != nil {
		return false, err
	}
	for _, site := range sites {
		if strings.EqualFold(strings.TrimSpace(site.Name), strings.TrimSpace(name)) {
			return true, nil
		}
	}
	return false, nil
}

// Join adds the actor to the site with the given access code and activates it.
func (s *SiteService) Join(ctx context.Context, actor *model.Actor, code string) (*model.Site, error) {
	site, err := s.sites.GetByAccessCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, ErrNotFound
	}
	if err := s.link(ctx, actor.ID, site.ID); err != nil {
		return nil, err
	}
	if !actor.BelongsTo(site.ID) {
		actor.Sites = append(actor.Sites, site.ID)
	}
	actor.SetActiveSite(site.ID)
	s.logger.Info("actor joined site", zap.String("site_id", site.ID.Hex()), zap.String("actor", actor.Phone))
	return site, nil
}

func (s *SiteService) link(ctx context.Context, actorID, siteID bson.ObjectID) error {
	if err := s.sites.AddMember(ctx, siteID, actorID); err != nil {
		return err
	}
	return s.actors.AddSite(ctx, actorID, siteID)
}

func (s *SiteService) Get(ctx context.Context, id bson.ObjectID) (*model.Site, error) {
	site, err := s.sites.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, ErrNotFound
	}
	return site, nil
}

// Active resolves the actor's active site. ErrNotFound means none is selected or
// it no longer exists; ErrNotMember means the actor lost access.
func (s *SiteService) Active(ctx context.Context, actor *model.Actor) (*model.Site, error) {
	id, ok := actor.ActiveSite()
	if !ok {
		return nil, ErrNotFound
	}
	site, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.BelongsTo(site.ID) && site.OwnerID != actor.ID {
		return nil, ErrNotMember
	}
	return site, nil
}

func (s *SiteService) Members(ctx context.Context, site *model.Site) ([]*model.Actor, error) {
	return s.actors.ListByIDs(ctx, site.Members)
}

// CanManage reports whether actor may create work, register crew and triage problems at site.
func CanManage(actor *model.Actor, site *model.Site) bool {
	return actor.IsSupervisor() || site.OwnerID == actor.ID
}

// List returns the sites the actor belongs to, by name.
func (s *SiteService) List(ctx context.Context, actor *model.Actor) ([]*model.Site, error) {
	sites, err := s.sites.ListByIDs(ctx, actor.Sites)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(sites, func(a, b *model.Site) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return sites, nil
}
