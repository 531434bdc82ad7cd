package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/Gustavoab019/startia/internal/model"
	"github.com/Gustavoab019/startia/internal/store"
)

type CrewService struct {
	actors store.ActorRepo
	sites  store.SiteRepo
	opts   Options
	logger *zap.Logger
}

func NewCrewService(gw *store.Gateway, opts Options, logger *zap.Logger) *CrewService {
	return &CrewService{actors: gw.Actors, sites: gw.Sites, opts: opts.withDefaults(), logger: logger}
}

func ValidatePersonName(name string) error {
	if len([]rune(strings.TrimSpace(name))) < 2 {
		return invalid("name", "validation.name_short")
	}
	return nil
}

// NormalizePhone keeps the digits of raw and prefixes the country code to
// national numbers, producing the identity key used for inbound messages.
func (s *CrewService) NormalizePhone(raw string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, raw)
	digits = strings.TrimPrefix(digits, "00")
	if len(digits) < 9 || len(digits) > 15 {
		return "", invalid("phone", "validation.phone")
	}
	cc := s.opts.CountryCode
	if cc != "" && len(digits) == 9 && !strings.HasPrefix(digits, cc) {
		digits = cc + digits
	}
	return digits, nil
}

// Register adds a crew member to the site. When the phone already belongs to an
// actor that actor is linked instead and linked is true.
func (s *CrewService) Register(ctx context.Context, siteID bson.ObjectID, d model.MemberDraft) (member *model.Actor, linked bool, err error) {
	if err := ValidatePersonName(d.Name); err != nil {
		return nil, false, err
	}
	phone, err := s.NormalizePhone(d.Phone)
	if err != nil {
		return nil, false, err
	}
	if d.Role != model.RoleWorker && d.Role != model.RoleSupervisor {
		return nil, false, invalid("role", "validation.role")
	}

	existing, err := s.actors.GetByPhone(ctx, phone)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		member = &model.Actor{
			Phone:     phone,
			Name:      strings.TrimSpace(d.Name),
			Role:      d.Role,
			Specialty: strings.TrimSpace(d.Specialty),
			State:     model.StateNew,
			Sites:     []bson.ObjectID{siteID},
		}
		err = s.actors.Create(ctx, member)
		if errors.Is(err, store.ErrDuplicate) {
			// registered concurrently through a first message
			existing, err = s.actors.GetByPhone(ctx, phone)
			if err == nil && existing == nil {
				err = store.ErrDuplicate
			}
		}
		if err != nil {
			return nil, false, fmt.Errorf("create member: %w", err)
		}
	}
	if existing != nil {
		member, linked = existing, true
		if err := s.actors.AddSite(ctx, member.ID, siteID); err != nil {
			return nil, false, err
		}
	}
	if err := s.sites.AddMember(ctx, siteID, member.ID); err != nil {
		if !linked {
			// a retry must find no half-registered member
			if delErr := s.actors.DeleteNew(context.WithoutCancel(ctx), member.ID); delErr != nil {
				s.logger.Error("remove unlinked member", zap.String("phone", phone), zap.Error(delErr))
			}
		}
		return nil, false, fmt.Errorf("add site member: %w", err)
	}

	s.logger.Info("crew member registered",
		zap.String("site_id", siteID.Hex()),
		zap.String("phone", phone),
		zap.Bool("linked", linked))
	return member, linked, nil
}
