package handler

import (
	"context"
	"time"

	"github.com/iliyamo/habit-coach/internal/model"
	"github.com/iliyamo/habit-coach/internal/service"
	"github.com/iliyamo/habit-coach/internal/streak"
	"github.com/iliyamo/habit-coach/internal/utils"
)

// The interfaces below are the slices of the services each handler
// needs.  *service.HabitService and friends satisfy them.

type Onboarding interface {
	SendCode(ctx context.Context, rawMobile, countryCode string) (string, error)
	SignIn(ctx context.Context, rawMobile, countryCode, code string) (service.SignInResult, error)
	Signup(ctx context.Context, req service.SignupRequest) (model.User, utils.AccessToken, error)
}

type AgentActions interface {
	ProcessSuccess(ctx context.Context, userID uint64, ts time.Time) (service.SuccessResult, error)
	Unpause(ctx context.Context, userID uint64) (string, error)
	Pause(ctx context.Context, userID uint64) (string, error)
	StatsMessage(ctx context.Context, userID uint64) (string, streak.Stats, error)
}

type HabitActions interface {
	AgentActions
	StartHabit(ctx context.Context, userID uint64, req service.StartHabitRequest) (model.UserHabit, error)
	CurrentHabit(ctx context.Context, userID uint64) (model.UserHabit, error)
	CurrentStats(ctx context.Context, userID uint64) (service.HabitStats, error)
	Dashboard(ctx context.Context, userID uint64) (service.Dashboard, error)
	AddPartner(ctx context.Context, userID uint64, name, rawMobile, countryCode string) (model.Partner, error)
}

type Recommender interface {
	Recommend(ctx context.Context, userID uint64, cursor int) (service.RecommendationPage, error)
}

type Profiles interface {
	List(ctx context.Context) ([]model.Factor, error)
	Submit(ctx context.Context, userID uint64, scores map[uint64]int) (uint64, error)
	Latest(ctx context.Context, userID uint64) (model.UserProfile, []model.FactorScore, error)
}

type Catalog interface {
	List(ctx context.Context) ([]model.Habit, error)
	GetByID(ctx context.Context, id uint64) (model.Habit, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByMobile(ctx context.Context, mobile string) (model.User, error)
}
