package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/habit-coach/internal/recommend"
	"github.com/iliyamo/habit-coach/internal/repository"
)

// RecommendationService ranks the habit catalog against a user's latest
// factor profile.
type RecommendationService struct {
	Users   UserStore
	Habits  HabitCatalog
	Factors FactorStore
}

// RecommendationPage is one page of ranked habits and the cursor of the
// page to request next.
type RecommendationPage struct {
	Habits     []recommend.Ranked `json:"habits"`
	NextCursor int                `json:"next_cursor"`
}

// Recommend returns the page ending at cursor.  Users without a profile
// see the catalog in id order with every score zero; an unknown user is
// repository.ErrNotFound.
func (s *RecommendationService) Recommend(ctx context.Context, userID uint64, cursor int) (RecommendationPage, error) {
	if _, err := s.Users.GetByID(ctx, userID); err != nil {
		return RecommendationPage{}, fmt.Errorf("user: %w", err)
	}
	profile, err := s.profile(ctx, userID)
	if err != nil {
		return RecommendationPage{}, err
	}
	catalog, err := s.Habits.List(ctx)
	if err != nil {
		return RecommendationPage{}, fmt.Errorf("list habits: %w", err)
	}
	items, next := recommend.Page(recommend.Rank(catalog, profile), cursor)
	return RecommendationPage{Habits: items, NextCursor: next}, nil
}

func (s *RecommendationService) profile(ctx context.Context, userID uint64) (recommend.Profile, error) {
	p := recommend.Profile{}
	_, scores, err := s.Factors.LatestScores(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest scores: %w", err)
	}
	for _, fs := range scores {
		p[fs.FactorID] = fs.Score
	}
	return p, nil
}
