package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/habit-coach/internal/model"
	"github.com/iliyamo/habit-coach/internal/repository"
)

// ProfileService records factor self-assessments.
type ProfileService struct {
	Factors FactorStore
}

// List returns the factor catalog.
func (s *ProfileService) List(ctx context.Context) ([]model.Factor, error) {
	return s.Factors.List(ctx)
}

// Submit validates scores against the factor catalog and stores them as
// the user's newest profile.
func (s *ProfileService) Submit(ctx context.Context, userID uint64, scores map[uint64]int) (uint64, error) {
	if err := s.Validate(ctx, scores); err != nil {
		return 0, err
	}
	return s.Factors.CreateProfile(ctx, userID, scores)
}

// Latest returns the user's most recent profile and its scores.
func (s *ProfileService) Latest(ctx context.Context, userID uint64) (model.UserProfile, []model.FactorScore, error) {
	return s.Factors.LatestScores(ctx, userID)
}

// Validate checks that scores rate every factor exactly once within the
// allowed range.
func (s *ProfileService) Validate(ctx context.Context, scores map[uint64]int) error {
	factors, err := s.Factors.List(ctx)
	if err != nil {
		return fmt.Errorf("list factors: %w", err)
	}
	return validateScores(factors, scores)
}

func validateScores(factors []model.Factor, scores map[uint64]int) error {
	known := make(map[uint64]struct{}, len(factors))
	for _, f := range factors {
		known[f.ID] = struct{}{}
		if _, ok := scores[f.ID]; !ok {
			return fmt.Errorf("%w: factor %d (%s) not rated", repository.ErrIncompleteProfile, f.ID, f.Name)
		}
	}
	for id, v := range scores {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("%w: %d", ErrUnknownFactor, id)
		}
		if v < model.MinFactorScore || v > model.MaxFactorScore {
			return fmt.Errorf("%w: factor %d = %d", ErrInvalidScore, id, v)
		}
	}
	return nil
}
