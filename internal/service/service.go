// Package service holds the application use cases.  Services depend on
// small store interfaces satisfied by the MySQL repositories so that the
// business rules can be exercised with in-memory fakes.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/habit-coach/internal/logger"
	"github.com/iliyamo/habit-coach/internal/model"
	"github.com/iliyamo/habit-coach/internal/repository"
)

// Messenger hands an SMS to the delivery pipeline.  kind labels the
// message for logs (see queue.Kind*).
type Messenger interface {
	Send(ctx context.Context, to, body, kind string) error
}

type UserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByMobile(ctx context.Context, mobile string) (model.User, error)
	CreateWithProfile(ctx context.Context, name, mobile, tz string, scores map[uint64]int) (uint64, error)
}

type FactorStore interface {
	List(ctx context.Context) ([]model.Factor, error)
	CreateProfile(ctx context.Context, userID uint64, scores map[uint64]int) (uint64, error)
	LatestScores(ctx context.Context, userID uint64) (model.UserProfile, []model.FactorScore, error)
}

type HabitCatalog interface {
	List(ctx context.Context) ([]model.Habit, error)
	GetByID(ctx context.Context, id uint64) (model.Habit, error)
}

type UserHabitStore interface {
	Activate(ctx context.Context, nh model.NewUserHabit) (uint64, error)
	Current(ctx context.Context, userID uint64) (model.UserHabit, error)
	GetByID(ctx context.Context, id uint64) (model.UserHabit, error)
	UpdateState(ctx context.Context, id uint64, from, to model.HabitState) error
	ListDueForNudge(ctx context.Context, hour int) ([]repository.NudgeTarget, error)
}

type SuccessStore interface {
	Create(ctx context.Context, userHabitID uint64, localDate string, loggedAt time.Time) error
	ListDates(ctx context.Context, userHabitID uint64) ([]string, error)
	Exists(ctx context.Context, userHabitID uint64, localDate string) (bool, error)
}

type PartnerStore interface {
	Create(ctx context.Context, userID uint64, name, mobile string) (uint64, error)
	GetForUser(ctx context.Context, id, userID uint64) (model.Partner, error)
}

// notify sends a message and only logs failures.  Messaging never fails
// the operation that triggered it.
func notify(ctx context.Context, m Messenger, log *logger.Logger, to, body, kind string) {
	if m == nil || to == "" {
		return
	}
	if err := m.Send(ctx, to, body, kind); err != nil {
		log.Warn("sms not queued", "kind", kind, "error", err)
	}
}

func nopIfNil(l *logger.Logger) *logger.Logger {
	if l == nil {
		return logger.Nop()
	}
	return l
}

func nowUTC() time.Time { return time.Now().UTC() }
