package service

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/habit-coach/internal/logger"
	"github.com/iliyamo/habit-coach/internal/model"
	"github.com/iliyamo/habit-coach/internal/queue"
	"github.com/iliyamo/habit-coach/internal/streak"
)

// Nudger sends the daily reminder of every active habit at its start
// hour, unless a success was already logged that local day.  Each
// (habit, day) pair is nudged at most once, across replicas when the
// Marker is shared.
type Nudger struct {
	UserHabits UserHabitStore
	Successes  SuccessStore
	Messenger  Messenger
	Marker     Marker
	Prefix     string
	Interval   time.Duration
	Log        *logger.Logger
	Now        func() time.Time
}

// Run ticks until ctx is cancelled.
func (n *Nudger) Run(ctx context.Context) {
	log := nopIfNil(n.Log).With("component", "nudger")
	interval := n.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	log.Info("nudger started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			log.Info("nudger stopped")
			return
		case <-t.C:
			if sent, err := n.Tick(ctx); err != nil {
				log.Error("nudge tick failed", "error", err)
			} else if sent > 0 {
				log.Info("nudges sent", "count", sent)
			}
		}
	}
}

// Tick sends the reminders due in the current UTC hour and returns how
// many were queued.
func (n *Nudger) Tick(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	if n.Now != nil {
		now = n.Now().UTC()
	}
	log := nopIfNil(n.Log)
	targets, err := n.UserHabits.ListDueForNudge(ctx, now.Hour())
	if err != nil {
		return 0, fmt.Errorf("list due habits: %w", err)
	}
	sent := 0
	for _, t := range targets {
		loc := model.User{TZ: t.TZ}.Location()
		day := streak.DayOf(now, loc).String()
		done, err := n.Successes.Exists(ctx, t.UserHabitID, day)
		if err != nil {
			log.Warn("nudge success lookup failed", "user_habit_id", t.UserHabitID, "error", err)
			continue
		}
		if done {
			continue
		}
		key := fmt.Sprintf("%s:%d:%s", n.Prefix, t.UserHabitID, day)
		first, err := n.Marker.MarkOnce(ctx, key, 36*time.Hour)
		if err != nil {
			log.Warn("nudge marker failed", "key", key, "error", err)
			continue
		}
		if !first {
			continue
		}
		notify(ctx, n.Messenger, log, t.Mobile,
			fmt.Sprintf("Hi %s, it's time for %q. Text me \"success\" once you've done it today!", t.Name, t.Title),
			queue.KindNudge)
		sent++
	}
	return sent, nil
}
