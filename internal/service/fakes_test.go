package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/habit-coach/internal/model"
	"github.com/iliyamo/habit-coach/internal/repository"
)

type sentSMS struct{ to, body, kind string }

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentSMS
	err  error
}

func (m *fakeMessenger) Send(_ context.Context, to, body, kind string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentSMS{to, body, kind})
	return m.err
}

type fakeUsers struct {
	byID    map[uint64]model.User
	nextID  uint64
	created []string
	err     error
}

func newFakeUsers(us ...model.User) *fakeUsers {
	f := &fakeUsers{byID: map[uint64]model.User{}, nextID: 100}
	for _, u := range us {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return u, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByMobile(_ context.Context, mobile string) (model.User, error) {
	for _, u := range f.byID {
		if u.Mobile == mobile {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) CreateWithProfile(_ context.Context, name, mobile, tz string, _ map[uint64]int) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.nextID++
	f.byID[f.nextID] = model.User{ID: f.nextID, Name: name, Mobile: mobile, TZ: tz}
	f.created = append(f.created, mobile)
	return f.nextID, nil
}

type fakeFactors struct {
	factors []model.Factor
	latest  map[uint64][]model.FactorScore
	created []map[uint64]int
}

func (f *fakeFactors) List(context.Context) ([]model.Factor, error) { return f.factors, nil }

func (f *fakeFactors) CreateProfile(_ context.Context, _ uint64, scores map[uint64]int) (uint64, error) {
	f.created = append(f.created, scores)
	return uint64(len(f.created)), nil
}

func (f *fakeFactors) LatestScores(_ context.Context, userID uint64) (model.UserProfile, []model.FactorScore, error) {
	s, ok := f.latest[userID]
	if !ok {
		return model.UserProfile{}, nil, repository.ErrNotFound
	}
	return model.UserProfile{ID: 1, UserID: userID}, s, nil
}

type fakeCatalog struct{ habits []model.Habit }

func (f *fakeCatalog) List(context.Context) ([]model.Habit, error) { return f.habits, nil }

func (f *fakeCatalog) GetByID(_ context.Context, id uint64) (model.Habit, error) {
	for _, h := range f.habits {
		if h.ID == id {
			return h, nil
		}
	}
	return model.Habit{}, repository.ErrNotFound
}

type fakeUserHabits struct {
	rows        map[uint64]*model.UserHabit
	nextID      uint64
	activateErr []error
	activations int
	due         []repository.NudgeTarget
	updates     int
	// beforeUpdate runs inside UpdateState, standing in for a concurrent writer.
	beforeUpdate func(uh *model.UserHabit)
}

func newFakeUserHabits(uhs ...model.UserHabit) *fakeUserHabits {
	f := &fakeUserHabits{rows: map[uint64]*model.UserHabit{}, nextID: 500}
	for i := range uhs {
		uh := uhs[i]
		f.rows[uh.ID] = &uh
	}
	return f
}

func (f *fakeUserHabits) Activate(_ context.Context, nh model.NewUserHabit) (uint64, error) {
	f.activations++
	if len(f.activateErr) > 0 {
		err := f.activateErr[0]
		f.activateErr = f.activateErr[1:]
		if err != nil {
			return 0, err
		}
	}
	for _, uh := range f.rows {
		if uh.UserID == nh.UserID && uh.State.IsCurrent() {
			uh.State = model.StateInactive
		}
	}
	f.nextID++
	f.rows[f.nextID] = &model.UserHabit{
		ID: f.nextID, UserID: nh.UserID, HabitID: nh.HabitID, BreakHabitID: nh.BreakHabitID,
		PartnerID: nh.PartnerID, StartTime: nh.StartTime, State: model.StateActive, Title: "Habit",
	}
	return f.nextID, nil
}

func (f *fakeUserHabits) Current(_ context.Context, userID uint64) (model.UserHabit, error) {
	for _, uh := range f.rows {
		if uh.UserID == userID && uh.State.IsCurrent() {
			return *uh, nil
		}
	}
	return model.UserHabit{}, repository.ErrNotFound
}

func (f *fakeUserHabits) GetByID(_ context.Context, id uint64) (model.UserHabit, error) {
	uh, ok := f.rows[id]
	if !ok {
		return model.UserHabit{}, repository.ErrNotFound
	}
	return *uh, nil
}

func (f *fakeUserHabits) UpdateState(_ context.Context, id uint64, from, to model.HabitState) error {
	f.updates++
	uh, ok := f.rows[id]
	if ok && f.beforeUpdate != nil {
		f.beforeUpdate(uh)
	}
	if !ok || uh.State != from {
		return repository.ErrConflict
	}
	uh.State = to
	return nil
}

func (f *fakeUserHabits) ListDueForNudge(context.Context, int) ([]repository.NudgeTarget, error) {
	return f.due, nil
}

type fakeSuccesses struct {
	dates map[uint64]map[string]time.Time
}

func newFakeSuccesses() *fakeSuccesses { return &fakeSuccesses{dates: map[uint64]map[string]time.Time{}} }

func (f *fakeSuccesses) Create(_ context.Context, uhID uint64, day string, at time.Time) error {
	if f.dates[uhID] == nil {
		f.dates[uhID] = map[string]time.Time{}
	}
	if _, dup := f.dates[uhID][day]; dup {
		return repository.ErrDuplicateSuccess
	}
	f.dates[uhID][day] = at
	return nil
}

func (f *fakeSuccesses) ListDates(_ context.Context, uhID uint64) ([]string, error) {
	out := make([]string, 0, len(f.dates[uhID]))
	for d := range f.dates[uhID] {
		out = append(out, d)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeSuccesses) Exists(_ context.Context, uhID uint64, day string) (bool, error) {
	_, ok := f.dates[uhID][day]
	return ok, nil
}

type fakePartners struct{ rows map[uint64]model.Partner }

func (f *fakePartners) Create(_ context.Context, userID uint64, name, mobile string) (uint64, error) {
	id := uint64(len(f.rows) + 1)
	f.rows[id] = model.Partner{ID: id, UserID: userID, Name: name, Mobile: mobile}
	return id, nil
}

func (f *fakePartners) GetForUser(_ context.Context, id, userID uint64) (model.Partner, error) {
	p, ok := f.rows[id]
	if !ok {
		return p, repository.ErrNotFound
	}
	if p.UserID != userID {
		return model.Partner{}, repository.ErrForbidden
	}
	return p, nil
}
