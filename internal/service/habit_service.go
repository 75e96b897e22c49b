package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/habit-coach/internal/logger"
	"github.com/iliyamo/habit-coach/internal/model"
	"github.com/iliyamo/habit-coach/internal/queue"
	"github.com/iliyamo/habit-coach/internal/repository"
	"github.com/iliyamo/habit-coach/internal/streak"
	"github.com/iliyamo/habit-coach/internal/utils"
)

// AlreadyTrackedMessage answers a second success on the same local day.
const AlreadyTrackedMessage = "I've already tracked a success for you today, but I'm thrilled to hear you were successful again. Keep up the great work."

// HabitService owns the life of a user's current habit: activation,
// pause/resume, success tracking and the statistics derived from it.
type HabitService struct {
	Users      UserStore
	Habits     HabitCatalog
	UserHabits UserHabitStore
	Successes  SuccessStore
	Partners   PartnerStore
	Factors    FactorStore
	Messenger  Messenger
	Log        *logger.Logger
	Now        func() time.Time
}

func (s *HabitService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return nowUTC()
}

func (s *HabitService) log() *logger.Logger { return nopIfNil(s.Log) }

// SuccessResult is the outcome of a success report.  Recorded is false
// when a success already existed for that local day; nothing was written
// in that case.
type SuccessResult struct {
	Recorded bool         `json:"recorded"`
	Message  string       `json:"message"`
	Stats    streak.Stats `json:"stats"`
}

// ProcessSuccess records a success for the user's current habit on the
// local calendar day of ts.  A zero ts means now.  repository.ErrNotFound
// is returned when the user or a current habit does not exist.
func (s *HabitService) ProcessSuccess(ctx context.Context, userID uint64, ts time.Time) (SuccessResult, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return SuccessResult{}, fmt.Errorf("load user: %w", err)
	}
	uh, err := s.UserHabits.Current(ctx, userID)
	if err != nil {
		return SuccessResult{}, fmt.Errorf("current habit: %w", err)
	}
	if ts.IsZero() {
		ts = s.now()
	}
	loc := user.Location()
	day := streak.DayOf(ts, loc)

	err = s.Successes.Create(ctx, uh.ID, day.String(), ts.UTC())
	if errors.Is(err, repository.ErrDuplicateSuccess) {
		st, serr := s.statsFor(ctx, uh.ID, loc)
		if serr != nil {
			return SuccessResult{}, serr
		}
		return SuccessResult{Recorded: false, Message: AlreadyTrackedMessage, Stats: st}, nil
	}
	if err != nil {
		return SuccessResult{}, fmt.Errorf("record success: %w", err)
	}

	st, err := s.statsFor(ctx, uh.ID, loc)
	if err != nil {
		return SuccessResult{}, err
	}
	s.log().Info("success recorded", "user_id", userID, "user_habit_id", uh.ID, "date", day.String(), "streak", st.CurrentStreak)

	if uh.PartnerID != nil && s.Partners != nil {
		if p, perr := s.Partners.GetForUser(ctx, *uh.PartnerID, userID); perr == nil {
			notify(ctx, s.Messenger, s.log(), p.Mobile,
				fmt.Sprintf("%s just checked in a success on %q. That's %s in a row!", user.Name, uh.Title, days(st.CurrentStreak)),
				queue.KindPartner)
		}
	}
	return SuccessResult{Recorded: true, Message: congratsMessage(user.Name, uh.Title, st.CurrentStreak), Stats: st}, nil
}

func congratsMessage(name, title string, current int) string {
	if current <= 1 {
		return fmt.Sprintf("Great job, %s! I've logged your success on %q. Every streak starts with day one.", name, title)
	}
	return fmt.Sprintf("Great job, %s! That's %s in a row of %q. Keep it going!", name, days(current), title)
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

// Unpause resumes the user's paused habit and returns the confirmation
// to speak back.  A habit that is not paused is left untouched.
func (s *HabitService) Unpause(ctx context.Context, userID uint64) (string, error) {
	uh, err := s.UserHabits.Current(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("current habit: %w", err)
	}
	notPaused := func(title string) string {
		return fmt.Sprintf("%q isn't paused, so there's nothing to resume. Keep it up!", title)
	}
	to, err := model.Transition(uh.State, model.EventResume)
	if err != nil {
		return notPaused(uh.Title), nil
	}
	if err := s.UserHabits.UpdateState(ctx, uh.ID, uh.State, to); err != nil {
		// lost a race with another pause/resume/replace: report where it landed
		if cur, ok := s.settled(ctx, userID, err, model.StatePaused); ok {
			return notPaused(cur.Title), nil
		}
		return "", fmt.Errorf("resume habit: %w", err)
	}
	s.log().Info("habit resumed", "user_id", userID, "user_habit_id", uh.ID)
	return fmt.Sprintf("Welcome back! %q is active again and your daily reminders are back on.", uh.Title), nil
}

// Pause stops reminders for the user's active habit.  Successes can still
// be reported while paused.
func (s *HabitService) Pause(ctx context.Context, userID uint64) (string, error) {
	uh, err := s.UserHabits.Current(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("current habit: %w", err)
	}
	alreadyPaused := func(title string) string {
		return fmt.Sprintf("%q is already paused. Say \"unpause\" when you're ready to pick it up again.", title)
	}
	to, err := model.Transition(uh.State, model.EventPause)
	if err != nil {
		return alreadyPaused(uh.Title), nil
	}
	if err := s.UserHabits.UpdateState(ctx, uh.ID, uh.State, to); err != nil {
		if cur, ok := s.settled(ctx, userID, err, model.StateActive); ok {
			return alreadyPaused(cur.Title), nil
		}
		return "", fmt.Errorf("pause habit: %w", err)
	}
	s.log().Info("habit paused", "user_id", userID, "user_habit_id", uh.ID)
	return fmt.Sprintf("Got it, I've paused reminders for %q. Say \"unpause\" whenever you're ready.", uh.Title), nil
}

// settled re-reads the current habit after UpdateState lost a race.  ok is
// true when the habit has already left state from, so the caller's
// request is a no-op.
func (s *HabitService) settled(ctx context.Context, userID uint64, err error, from model.HabitState) (model.UserHabit, bool) {
	if !errors.Is(err, repository.ErrConflict) {
		return model.UserHabit{}, false
	}
	cur, cerr := s.UserHabits.Current(ctx, userID)
	if cerr != nil || cur.State == from {
		return model.UserHabit{}, false
	}
	return cur, true
}

// CurrentHabit returns the user's ACTIVE or PAUSED habit.
func (s *HabitService) CurrentHabit(ctx context.Context, userID uint64) (model.UserHabit, error) {
	return s.UserHabits.Current(ctx, userID)
}

// GetStats computes streak statistics of a user habit as of the owner's
// local today.
func (s *HabitService) GetStats(ctx context.Context, userHabitID uint64) (streak.Stats, error) {
	uh, err := s.UserHabits.GetByID(ctx, userHabitID)
	if err != nil {
		return streak.Stats{}, err
	}
	user, err := s.Users.GetByID(ctx, uh.UserID)
	if err != nil {
		return streak.Stats{}, err
	}
	return s.statsFor(ctx, uh.ID, user.Location())
}

func (s *HabitService) loadDays(ctx context.Context, userHabitID uint64) ([]streak.Day, error) {
	raw, err := s.Successes.ListDates(ctx, userHabitID)
	if err != nil {
		return nil, fmt.Errorf("list successes: %w", err)
	}
	out := make([]streak.Day, 0, len(raw))
	for _, r := range raw {
		d, err := streak.ParseDay(r)
		if err != nil {
			return nil, fmt.Errorf("stored success date %q: %w", r, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *HabitService) statsFor(ctx context.Context, userHabitID uint64, loc *time.Location) (streak.Stats, error) {
	ds, err := s.loadDays(ctx, userHabitID)
	if err != nil {
		return streak.Stats{}, err
	}
	return streak.Compute(ds, streak.DayOf(s.now(), loc)), nil
}

// StatsMessage summarises the current habit's statistics in one sentence
// for the conversational agent.
func (s *HabitService) StatsMessage(ctx context.Context, userID uint64) (string, streak.Stats, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return "", streak.Stats{}, err
	}
	uh, err := s.UserHabits.Current(ctx, userID)
	if err != nil {
		return "", streak.Stats{}, fmt.Errorf("current habit: %w", err)
	}
	st, err := s.statsFor(ctx, uh.ID, user.Location())
	if err != nil {
		return "", streak.Stats{}, err
	}
	msg := fmt.Sprintf("You're on a %d-day streak with %q. Your longest streak is %s and you've logged %d successes in total.",
		st.CurrentStreak, uh.Title, days(st.LongestStreak), st.Total)
	if st.Total == 0 {
		msg = fmt.Sprintf("No successes logged for %q yet. Today is a great day to start!", uh.Title)
	}
	return msg, st, nil
}

// WeekDay is one point of the dashboard's seven-day graph.
type WeekDay struct {
	Date    string `json:"date"`
	Success bool   `json:"success"`
}

// HabitStats is the statistics view of the current habit.
type HabitStats struct {
	Habit model.UserHabit `json:"-"`
	Stats streak.Stats    `json:"stats"`
	Week  []WeekDay       `json:"week"`
}

// CurrentStats returns the statistics and seven-day series of the user's
// current habit.
func (s *HabitService) CurrentStats(ctx context.Context, userID uint64) (HabitStats, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return HabitStats{}, err
	}
	uh, err := s.UserHabits.Current(ctx, userID)
	if err != nil {
		return HabitStats{}, fmt.Errorf("current habit: %w", err)
	}
	return s.habitStats(ctx, uh, user.Location())
}

func (s *HabitService) habitStats(ctx context.Context, uh model.UserHabit, loc *time.Location) (HabitStats, error) {
	ds, err := s.loadDays(ctx, uh.ID)
	if err != nil {
		return HabitStats{}, err
	}
	today := streak.DayOf(s.now(), loc)
	marks := streak.Week(ds, today)
	week := make([]WeekDay, len(marks))
	for i, ok := range marks {
		d := time.Time(today).AddDate(0, 0, i-(len(marks)-1))
		week[i] = WeekDay{Date: d.Format(model.DateLayout), Success: ok}
	}
	return HabitStats{Habit: uh, Stats: streak.Compute(ds, today), Week: week}, nil
}

// Dashboard is the signed-in landing view.
type Dashboard struct {
	User   model.User
	Habit  *model.UserHabit
	Stats  *HabitStats
	Scores []model.FactorScore
}

// Dashboard gathers the current habit with its statistics and the
// latest factor scores.  Users without a current habit or a profile get
// the corresponding parts left empty.
func (s *HabitService) Dashboard(ctx context.Context, userID uint64) (Dashboard, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	d := Dashboard{User: user, Scores: []model.FactorScore{}}
	uh, err := s.UserHabits.Current(ctx, userID)
	switch {
	case err == nil:
		hs, err := s.habitStats(ctx, uh, user.Location())
		if err != nil {
			return Dashboard{}, err
		}
		d.Habit, d.Stats = &uh, &hs
	case !errors.Is(err, repository.ErrNotFound):
		return Dashboard{}, fmt.Errorf("current habit: %w", err)
	}
	if s.Factors != nil {
		_, scores, err := s.Factors.LatestScores(ctx, userID)
		switch {
		case err == nil:
			d.Scores = scores
		case !errors.Is(err, repository.ErrNotFound):
			return Dashboard{}, fmt.Errorf("latest scores: %w", err)
		}
	}
	return d, nil
}

// AddNewHabit atomically makes nh the user's only current habit.  A
// concurrency conflict is retried once with a fresh transaction; a second
// conflict is returned to the caller.
func (s *HabitService) AddNewHabit(ctx context.Context, nh model.NewUserHabit) (uint64, error) {
	id, err := s.UserHabits.Activate(ctx, nh)
	if errors.Is(err, repository.ErrConcurrencyConflict) {
		s.log().Warn("habit activation conflict; retrying", "user_id", nh.UserID)
		id, err = s.UserHabits.Activate(ctx, nh)
	}
	if err != nil {
		return 0, fmt.Errorf("activate habit: %w", err)
	}
	return id, nil
}

// StartHabitRequest is a user's choice of habit from the recommendations.
type StartHabitRequest struct {
	HabitID      uint64
	Hour         int
	BreakHabitID *uint64
	PartnerID    *uint64
}

// StartHabit validates a habit choice, converts the chosen local hour to
// UTC, activates the habit and sends the introduction messages.
func (s *HabitService) StartHabit(ctx context.Context, userID uint64, req StartHabitRequest) (model.UserHabit, error) {
	if req.Hour < 0 || req.Hour > 23 {
		return model.UserHabit{}, ErrInvalidHour
	}
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return model.UserHabit{}, err
	}
	if _, err := s.Habits.GetByID(ctx, req.HabitID); err != nil {
		return model.UserHabit{}, fmt.Errorf("habit %d: %w", req.HabitID, err)
	}
	if req.BreakHabitID != nil {
		if *req.BreakHabitID == req.HabitID {
			return model.UserHabit{}, ErrSameHabit
		}
		if _, err := s.Habits.GetByID(ctx, *req.BreakHabitID); err != nil {
			return model.UserHabit{}, fmt.Errorf("break habit %d: %w", *req.BreakHabitID, err)
		}
	}
	var partner *model.Partner
	if req.PartnerID != nil {
		p, err := s.Partners.GetForUser(ctx, *req.PartnerID, userID)
		if err != nil {
			return model.UserHabit{}, fmt.Errorf("partner %d: %w", *req.PartnerID, err)
		}
		partner = &p
	}

	start, err := model.StartTimeFor(req.Hour, user.Location(), s.now())
	if err != nil {
		return model.UserHabit{}, ErrInvalidHour
	}
	id, err := s.AddNewHabit(ctx, model.NewUserHabit{
		UserID:       userID,
		HabitID:      req.HabitID,
		BreakHabitID: req.BreakHabitID,
		StartTime:    start,
		PartnerID:    req.PartnerID,
	})
	if err != nil {
		return model.UserHabit{}, err
	}
	uh, err := s.UserHabits.GetByID(ctx, id)
	if err != nil {
		return model.UserHabit{}, err
	}

	notify(ctx, s.Messenger, s.log(), user.Mobile,
		fmt.Sprintf("Hi %s! You're starting %q. I'll check in every day at %02d:00. Text me \"success\" whenever you've done it.", user.Name, uh.Title, req.Hour),
		queue.KindIntro)
	if partner != nil {
		notify(ctx, s.Messenger, s.log(), partner.Mobile,
			fmt.Sprintf("Hi %s! %s picked you as an accountability partner for %q. I'll let you know how it's going.", partner.Name, user.Name, uh.Title),
			queue.KindPartner)
	}
	return uh, nil
}

// AddPartner registers an accountability partner for the user.
func (s *HabitService) AddPartner(ctx context.Context, userID uint64, name, rawMobile, countryCode string) (model.Partner, error) {
	if name == "" {
		return model.Partner{}, ErrInvalidName
	}
	mobile, err := utils.FormatMobile(rawMobile, countryCode)
	if err != nil {
		return model.Partner{}, err
	}
	id, err := s.Partners.Create(ctx, userID, name, mobile)
	if err != nil {
		return model.Partner{}, err
	}
	return model.Partner{ID: id, UserID: userID, Name: name, Mobile: mobile}, nil
}
