package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/Gustavoab019/startia/internal/model"
	"github.com/Gustavoab019/startia/internal/store"
	"github.com/Gustavoab019/startia/internal/worktime"
)

type AttendanceService struct {
	attendance store.AttendanceRepo
	sites      store.SiteRepo
	opts       Options
	logger     *zap.Logger
}

func NewAttendanceService(gw *store.Gateway, opts Options, logger *zap.Logger) *AttendanceService {
	return &AttendanceService{attendance: gw.Attendance, sites: gw.Sites, opts: opts.withDefaults(), logger: logger}
}

// Presence is an actor's attendance at a site for the current day.
// Record is nil when the actor has not checked in.
type Presence struct {
	Record *model.AttendanceRecord
	// Hours is the running total for an open record and the stored total for a closed one.
	Hours float64
}

func (p *Presence) Working() bool {
	return p.Record != nil && p.Record.Status == model.AttendanceOpen
}

func (s *AttendanceService) today() string {
	return s.opts.Now().In(s.opts.Location).Format(time.DateOnly)
}

// CheckIn opens today's record. A second check-in before check-out fails with ErrAlreadyOpen.
func (s *AttendanceService) CheckIn(ctx context.Context, actorID, siteID bson.ObjectID) (*model.AttendanceRecord, error) {
	now := s.opts.Now()
	date := now.In(s.opts.Location).Format(time.DateOnly)

	open, err := s.attendance.FindOpen(ctx, actorID, siteID)
	if err != nil {
		return nil, fmt.Errorf("find open record: %w", err)
	}
	if open != nil && open.Date == date {
		return nil, ErrAlreadyOpen
	}
	if open != nil {
		s.logger.Warn("previous shift never checked out",
			zap.String("actor_id", actorID.Hex()),
			zap.String("site_id", siteID.Hex()),
			zap.String("date", open.Date))
	}

	record := &model.AttendanceRecord{
		ActorID: actorID,
		SiteID:  siteID,
		Date:    date,
		CheckIn: now,
		Status:  model.AttendanceOpen,
	}
	// the unique partial index settles a race the lookup above cannot see
	if err := s.attendance.Create(ctx, record); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrAlreadyOpen
		}
		return nil, fmt.Errorf("create record: %w", err)
	}
	return record, nil
}

// CheckOut closes the latest open record, which may have started the day before,
// and stores the worked hours net of the site break.
func (s *AttendanceService) CheckOut(ctx context.Context, actorID, siteID bson.ObjectID) (*model.AttendanceRecord, error) {
	record, err := s.attendance.FindOpen(ctx, actorID, siteID)
	if err != nil {
		return nil, fmt.Errorf("find open record: %w", err)
	}
	if record == nil {
		return nil, ErrNoOpenRecord
	}
	window, err := s.breakWindow(ctx, siteID)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	res := worktime.Compute(record.CheckIn, now, window, s.opts.Location)
	if res.Anomaly {
		s.logger.Warn("check-out not after check-in",
			zap.String("record_id", record.ID.Hex()),
			zap.Time("check_in", record.CheckIn),
			zap.Time("check_out", now))
	}

	record.CheckOut = &now
	record.WorkedHours = res.Hours
	record.BreakDeducted = res.BreakDeducted
	record.Anomaly = res.Anomaly
	if err := s.attendance.Close(ctx, record); err != nil {
		if errors.Is(err, store.ErrConditionFailed) {
			return nil, ErrNoOpenRecord
		}
		return nil, fmt.Errorf("close record: %w", err)
	}
	return record, nil
}

// Today reports the actor's presence: an open shift (even one started yesterday)
// takes precedence over today's closed record.
func (s *AttendanceService) Today(ctx context.Context, actorID, siteID bson.ObjectID) (*Presence, error) {
	record, err := s.attendance.FindOpen(ctx, actorID, siteID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record, err = s.attendance.Latest(ctx, actorID, siteID, s.today())
		if err != nil {
			return nil, err
		}
	}
	if record == nil {
		return &Presence{}, nil
	}
	if record.Status == model.AttendanceClosed {
		return &Presence{Record: record, Hours: record.WorkedHours}, nil
	}

	window, err := s.breakWindow(ctx, siteID)
	if err != nil {
		return nil, err
	}
	res := worktime.Compute(record.CheckIn, s.opts.Now(), window, s.opts.Location)
	return &Presence{Record: record, Hours: res.Hours}, nil
}

// ActiveToday counts open records at the site dated today.
func (s *AttendanceService) ActiveToday(ctx context.Context, siteID bson.ObjectID) (int64, error) {
	today := s.today()
	return s.attendance.Count(ctx, store.AttendanceFilter{
		SiteID: &siteID,
		Status: model.AttendanceOpen,
		From:   today,
		To:     today,
	})
}

func (s *AttendanceService) breakWindow(ctx context.Context, siteID bson.ObjectID) (worktime.Window, error) {
	site, err := s.sites.GetByID(ctx, siteID)
	if err != nil {
		return worktime.Window{}, fmt.Errorf("get site: %w", err)
	}
	if site == nil {
		return worktime.Window{}, ErrNotFound
	}
	w, err := worktime.ParseWindow(site.BreakStart, site.BreakEnd)
	if err != nil {
		// sites predating break validation are treated as having no break
		s.logger.Warn("site has invalid break window",
			zap.String("site_id", siteID.Hex()),
			zap.String("break_start", site.BreakStart),
			zap.String("break_end", site.BreakEnd))
		return worktime.Window{}, nil
	}
	return w, nil
}
