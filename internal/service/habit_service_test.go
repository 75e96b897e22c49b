package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/habit-coach/internal/model"
	"github.com/iliyamo/habit-coach/internal/queue"
	"github.com/iliyamo/habit-coach/internal/repository"
)

func u64(v uint64) *uint64 { return &v }

func fixedNow(s string) func() time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

type habitFixture struct {
	svc        *HabitService
	userHabits *fakeUserHabits
	successes  *fakeSuccesses
	messenger  *fakeMessenger
}

func newHabitFixture(now string, uhs ...model.UserHabit) habitFixture {
	f := habitFixture{
		userHabits: newFakeUserHabits(uhs...),
		successes:  newFakeSuccesses(),
		messenger:  &fakeMessenger{},
	}
	f.svc = &HabitService{
		Users: newFakeUsers(
			model.User{ID: 1, Name: "Ana", Mobile: "+18028253270", TZ: "America/New_York"},
			model.User{ID: 2, Name: "Ben", Mobile: "+442079460958", TZ: "UTC"},
		),
		Habits: &fakeCatalog{habits: []model.Habit{
			{ID: 10, Title: "Walk"}, {ID: 11, Title: "Read"}, {ID: 12, Title: "Doomscroll"},
		}},
		UserHabits: f.userHabits,
		Successes:  f.successes,
		Partners: &fakePartners{rows: map[uint64]model.Partner{
			7: {ID: 7, UserID: 1, Name: "Cleo", Mobile: "+18025550100"},
			8: {ID: 8, UserID: 2, Name: "Dan", Mobile: "+18025550101"},
		}},
		Factors:   &fakeFactors{latest: map[uint64][]model.FactorScore{}},
		Messenger: f.messenger,
		Now:       fixedNow(now),
	}
	return f
}

func TestProcessSuccess_RecordsOnLocalDate(t *testing.T) {
	f := newHabitFixture("2024-03-10T03:00:00Z",
		model.UserHabit{ID: 5, UserID: 1, HabitID: 10, State: model.StateActive, Title: "Walk"})
	ctx := context.Background()

	// 02:00 UTC on the 10th is still the evening of the 9th in New York.
	ts := time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC)
	res, err := f.svc.ProcessSuccess(ctx, 1, ts)
	require.NoError(t, err)
	assert.True(t, res.Recorded)
	assert.Contains(t, f.successes.dates[5], "2024-03-09")
	assert.Equal(t, 1, res.Stats.CurrentStreak)
	assert.Contains(t, res.Message, "Walk")
}

func TestProcessSuccess_DuplicateDoesNotMutate(t *testing.T) {
	f := newHabitFixture("2024-03-09T20:00:00Z",
		model.UserHabit{ID: 5, UserID: 1, HabitID: 10, State: model.StateActive, Title: "Walk"})
	ctx := context.Background()
	first := time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC)

	_, err := f.svc.ProcessSuccess(ctx, 1, first)
	require.NoError(t, err)
	res, err := f.svc.ProcessSuccess(ctx, 1, first.Add(3*time.Hour))
	require.NoError(t, err)
	assert.False(t, res.Recorded)
	assert.Equal(t, AlreadyTrackedMessage, res.Message)
	assert.Len(t, f.successes.dates[5], 1)
	assert.Equal(t, first, f.successes.dates[5]["2024-03-09"])
}

func TestProcessSuccess_StreakGrows(t *testing.T) {
	f := newHabitFixture("2024-03-12T15:00:00Z",
		model.UserHabit{ID: 5, UserID: 2, HabitID: 10, State: model.StateActive, Title: "Walk"})
	ctx := context.Background()
	for _, d := range []int{10, 11, 12} {
		_, err := f.svc.ProcessSuccess(ctx, 2, time.Date(2024, 3, d, 9, 0, 0, 0, time.UTC))
		require.NoError(t, err)
	}
	st, err := f.svc.GetStats(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, st.CurrentStreak)
	assert.Equal(t, 3, st.LongestStreak)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, "2024-03-12", st.LastSuccess)
}

func TestProcessSuccess_AllowedWhilePaused(t *testing.T) {
	f := newHabitFixture("2024-03-12T15:00:00Z",
		model.UserHabit{ID: 5, UserID: 2, HabitID: 10, State: model.StatePaused, Title: "Walk"})
	res, err := f.svc.ProcessSuccess(context.Background(), 2, time.Time{})
	require.NoError(t, err)
	assert.True(t, res.Recorded)
	assert.Contains(t, f.successes.dates[5], "2024-03-12")
}

func TestProcessSuccess_NotifiesPartner(t *testing.T) {
	f := newHabitFixture("2024-03-12T15:00:00Z",
		model.UserHabit{ID: 5, UserID: 1, HabitID: 10, PartnerID: u64(7), State: model.StateActive, Title: "Walk"})
	_, err := f.svc.ProcessSuccess(context.Background(), 1, time.Time{})
	require.NoError(t, err)
	require.Len(t, f.messenger.sent, 1)
	assert.Equal(t, "+18025550100", f.messenger.sent[0].to)
	assert.Equal(t, queue.KindPartner, f.messenger.sent[0].kind)
}

func TestProcessSuccess_NoCurrentHabit(t *testing.T) {
	f := newHabitFixture("2024-03-12T15:00:00Z",
		model.UserHabit{ID: 5, UserID: 1, HabitID: 10, State: model.StateInactive})
	_, err := f.svc.ProcessSuccess(context.Background(), 1, time.Time{})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, f.successes.dates)
}

func TestUnpause(t *testing.T) {
	f := newHabitFixture("2024-03-12T15:00:00Z",
		model.UserHabit{ID: 5, UserID: 1, HabitID: 10, State: model.StatePaused, Title: "Walk"})
	ctx := context.Background()

	msg, err := f.svc.Unpause(ctx, 1)
	require.NoError(t, err)
	assert.Contains(t, msg, "active again")
	assert.Equal(t, model.StateActive, f.userHabits.rows[5].State)

	msg, err = f.svc.Unpause(ctx, 1)
	require.NoError(t, err)
	assert.Contains(t, msg, "isn't paused")
	assert.Equal(t, 1, f.userHabits.updates)

	_, err = f.svc.Unpause(ctx, 2)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUnpause_ConcurrentResumeIsNoop(t *testing.T) {
	f := newHabitFixture("2024-03-12T15:00:00Z",
		model.UserHabit{ID: 5, UserID: 1, HabitID: 10, State: model.StatePaused, Title: "Walk"})
	f.userHabits.beforeUpdate = func(uh *model.UserHabit) { uh.State = model.StateActive }

	msg, err := f.svc.Unpause(context.Background(), 1)
	require.NoError(t, err)
	assert.Contains(t, msg, "isn't paused")
	assert.Equal(t, model.StateActive, f.userHabits.rows[5].State)
}

func TestPause_ConcurrentPauseIsNoop(t *testing.T) {
	f := newHabitFixture("2024-03-12T15:00:00Z",
		model.UserHabit{ID: 5, UserID: 1, HabitID: 10, State: model.StateActive, Title: "Walk"})
	f.userHabits.beforeUpdate = func(uh *model.UserHabit) { uh.State = model.StatePaused }

	msg, err := f.svc.Pause(context.Background(), 1)
	require.NoError(t, err)
	assert.Contains(t, msg, "already paused")
}

func TestUnpause_ReplacedMidwaySurfacesConflict(t *testing.T) {
	f := newHabitFixture("2024-03-12T15:00:00Z",
		model.UserHabit{ID: 5, UserID: 1, HabitID: 10, State: model.StatePaused, Title: "Walk"})
	f.userHabits.beforeUpdate = func(uh *model.UserHabit) { uh.State = model.StateInactive }

	_, err := f.svc.Unpause(context.Background(), 1)
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestPause(t *testing.T) {
	f := newHabitFixture("2024-03-12T15:00:00Z",
		model.UserHabit{ID: 5, UserID: 1, HabitID: 10, State: model.StateActive, Title: "Walk"})
	ctx := context.Background()

	msg, err := f.svc.Pause(ctx, 1)
	require.NoError(t, err)
	assert.Contains(t, msg, "paused reminders")
	assert.Equal(t, model.StatePaused, f.userHabits.rows[5].State)

	msg, err = f.svc.Pause(ctx, 1)
	require.NoError(t, err)
	assert.Contains(t, msg, "already paused")
}

func TestAddNewHabit_RetriesOnceOnConflict(t *testing.T) {
	f := newHabitFixture("2024-03-12T15:00:00Z")
	f.userHabits.activateErr = []error{repository.ErrConcurrencyConflict, nil}

	id, err := f.svc.AddNewHabit(context.Background(), model.NewUserHabit{UserID: 1, HabitID: 10})
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Equal(t, 2, f.userHabits.activations)
}

func TestAddNewHabit_SecondConflictSurfaces(t *testing.T) {
	f := newHabitFixture("2024-03-12T15:00:00Z")
	f.userHabits.activateErr = []error{repository.ErrConcurrencyConflict, repository.ErrConcurrencyConflict}

	_, err := f.svc.AddNewHabit(context.Background(), model.NewUserHabit{UserID: 1, HabitID: 10})
	assert.ErrorIs(t, err, repository.ErrConcurrencyConflict)
	assert.Equal(t, 2, f.userHabits.activations)
}

func TestAddNewHabit_OtherErrorsNotRetried(t *testing.T) {
	f := newHabitFixture("2024-03-12T15:00:00Z")
	boom := errors.New("boom")
	f.userHabits.activateErr = []error{boom}

	_, err := f.svc.AddNewHabit(context.Background(), model.NewUserHabit{UserID: 1, HabitID: 10})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, f.userHabits.activations)
}

func TestStartHabit_ReplacesCurrentAndSendsIntro(t *testing.T) {
	f := newHabitFixture("2024-07-01T12:00:00Z",
		model.UserHabit{ID: 5, UserID: 1, HabitID: 11, State: model.StatePaused, Title: "Read"})

	uh, err := f.svc.StartHabit(context.Background(), 1, StartHabitRequest{
		HabitID: 10, Hour: 8, BreakHabitID: u64(12), PartnerID: u64(7),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StateActive, uh.State)
	// 08:00 in New York during DST is 12:00 UTC.
	assert.Equal(t, time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC), uh.StartTime)
	assert.Equal(t, model.StateInactive, f.userHabits.rows[5].State)

	current := 0
	for _, r := range f.userHabits.rows {
		if r.UserID == 1 && r.State.IsCurrent() {
			current++
		}
	}
	assert.Equal(t, 1, current)

	require.Len(t, f.messenger.sent, 2)
	assert.Equal(t, queue.KindIntro, f.messenger.sent[0].kind)
	assert.Equal(t, "+18028253270", f.messenger.sent[0].to)
	assert.Equal(t, "+18025550100", f.messenger.sent[1].to)
}

func TestStartHabit_Validation(t *testing.T) {
	f := newHabitFixture("2024-07-01T12:00:00Z")
	ctx := context.Background()

	_, err := f.svc.StartHabit(ctx, 1, StartHabitRequest{HabitID: 10, Hour: 24})
	assert.ErrorIs(t, err, ErrInvalidHour)

	_, err = f.svc.StartHabit(ctx, 1, StartHabitRequest{HabitID: 10, Hour: 8, BreakHabitID: u64(10)})
	assert.ErrorIs(t, err, ErrSameHabit)

	_, err = f.svc.StartHabit(ctx, 1, StartHabitRequest{HabitID: 99, Hour: 8})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.svc.StartHabit(ctx, 1, StartHabitRequest{HabitID: 10, Hour: 8, PartnerID: u64(8)})
	assert.ErrorIs(t, err, repository.ErrForbidden)

	assert.Zero(t, f.userHabits.activations)
}

func TestCurrentStats_Week(t *testing.T) {
	f := newHabitFixture("2024-03-12T15:00:00Z",
		model.UserHabit{ID: 5, UserID: 2, HabitID: 10, State: model.StateActive, Title: "Walk"})
	f.successes.dates[5] = map[string]time.Time{"2024-03-06": {}, "2024-03-11": {}, "2024-03-12": {}}

	hs, err := f.svc.CurrentStats(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, hs.Week, 7)
	assert.Equal(t, WeekDay{Date: "2024-03-06", Success: true}, hs.Week[0])
	assert.Equal(t, WeekDay{Date: "2024-03-10", Success: false}, hs.Week[4])
	assert.Equal(t, WeekDay{Date: "2024-03-12", Success: true}, hs.Week[6])
	assert.Equal(t, 2, hs.Stats.CurrentStreak)
}

func TestDashboard_WithoutHabitOrProfile(t *testing.T) {
	f := newHabitFixture("2024-03-12T15:00:00Z")
	d, err := f.svc.Dashboard(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, d.Habit)
	assert.Nil(t, d.Stats)
	assert.Empty(t, d.Scores)
	assert.Equal(t, "Ana", d.User.Name)
}

func TestStatsMessage(t *testing.T) {
	f := newHabitFixture("2024-03-12T15:00:00Z",
		model.UserHabit{ID: 5, UserID: 2, HabitID: 10, State: model.StateActive, Title: "Walk"})
	msg, _, err := f.svc.StatsMessage(context.Background(), 2)
	require.NoError(t, err)
	assert.Contains(t, msg, "No successes")

	f.successes.dates[5] = map[string]time.Time{"2024-03-11": {}, "2024-03-12": {}}
	msg, st, err := f.svc.StatsMessage(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, st.CurrentStreak)
	assert.Contains(t, msg, "2-day streak")
}

func TestAddPartner(t *testing.T) {
	f := newHabitFixture("2024-03-12T15:00:00Z")
	p, err := f.svc.AddPartner(context.Background(), 1, "Eve", "(802) 825-3271", "US")
	require.NoError(t, err)
	assert.Equal(t, "+18028253271", p.Mobile)

	_, err = f.svc.AddPartner(context.Background(), 1, "", "(802) 825-3271", "US")
	assert.ErrorIs(t, err, ErrInvalidName)
}
