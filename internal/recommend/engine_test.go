package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/habit-coach/internal/model"
)

func catalogOf(n int) []model.Habit {
	out := make([]model.Habit, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, model.Habit{ID: uint64(i), Title: "h"})
	}
	return out
}

func ids(rs []Ranked) []uint64 {
	out := make([]uint64, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func TestRank_WeightedSum(t *testing.T) {
	catalog := []model.Habit{
		{ID: 1, Title: "A", Ratings: []model.FactorHabitRating{{FactorID: 1, Weight: 3}}},
		{ID: 2, Title: "B", Ratings: []model.FactorHabitRating{{FactorID: 1, Weight: 1}, {FactorID: 2, Weight: 5}}},
	}
	got := Rank(catalog, Profile{1: 4, 2: 0})

	require.Len(t, got, 2)
	assert.Equal(t, []uint64{1, 2}, ids(got))
	assert.Equal(t, 12, got[0].Score)
	assert.Equal(t, 4, got[1].Score)
}

func TestRank_EmptyProfileKeepsCatalogOrder(t *testing.T) {
	catalog := []model.Habit{
		{ID: 3, Ratings: []model.FactorHabitRating{{FactorID: 1, Weight: 9}}},
		{ID: 1},
		{ID: 2, Ratings: []model.FactorHabitRating{{FactorID: 2, Weight: 2}}},
	}
	got := Rank(catalog, nil)

	assert.Equal(t, []uint64{1, 2, 3}, ids(got))
	for _, r := range got {
		assert.Zero(t, r.Score)
	}
}

func TestRank_TiesByAscendingIDAndZeroScoresLast(t *testing.T) {
	catalog := []model.Habit{
		{ID: 5, Ratings: []model.FactorHabitRating{{FactorID: 1, Weight: 2}}},
		{ID: 4},
		{ID: 2, Ratings: []model.FactorHabitRating{{FactorID: 1, Weight: 2}}},
		{ID: 9, Ratings: []model.FactorHabitRating{{FactorID: 7, Weight: 2}}},
		{ID: 1, Ratings: []model.FactorHabitRating{{FactorID: 1, Weight: 1}, {FactorID: 2, Weight: 3}}},
	}
	got := Rank(catalog, Profile{1: 3, 2: 1})

	// scores: 5->6, 4->0, 2->6, 9->0 (factor missing from profile), 1->6
	assert.Equal(t, []uint64{1, 2, 5, 4, 9}, ids(got))
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
}

func TestScore_MissingFactorsCountAsZero(t *testing.T) {
	ratings := []model.FactorHabitRating{{FactorID: 1, Weight: 2}, {FactorID: 2, Weight: 10}}
	assert.Equal(t, 4, Score(Profile{1: 2}, ratings))
	assert.Equal(t, 0, Score(Profile{}, ratings))
}

func TestPage_FirstPageForMissingCursor(t *testing.T) {
	ranked := Rank(catalogOf(10), nil)
	for _, c := range []int{0, -3, 2} {
		page, next := Page(ranked, c)
		assert.Equal(t, []uint64{1, 2, 3, 4}, ids(page))
		assert.Equal(t, 8, next)
	}
}

// The last full page is followed by the first page; the trailing partial
// page (items 9 and 10) is never served.  This mirrors the behaviour users
// have today and is pinned here on purpose.
func TestPage_WrapsAtLastFullPageBoundary(t *testing.T) {
	ranked := Rank(catalogOf(10), nil)

	page, next := Page(ranked, 0)
	assert.Equal(t, []uint64{1, 2, 3, 4}, ids(page))
	require.Equal(t, 8, next)

	page, next = Page(ranked, next)
	assert.Equal(t, []uint64{5, 6, 7, 8}, ids(page))
	require.Equal(t, 4, next, "boundary index 8 wraps")

	page, _ = Page(ranked, next)
	assert.Equal(t, []uint64{1, 2, 3, 4}, ids(page))
}

func TestPage_ExactMultipleWrapsAtEnd(t *testing.T) {
	ranked := Rank(catalogOf(8), nil)

	_, next := Page(ranked, 0)
	page, next := Page(ranked, next)
	assert.Equal(t, []uint64{5, 6, 7, 8}, ids(page))
	assert.Equal(t, 4, next)
}

func TestPage_NeverMoreThanPageSize(t *testing.T) {
	for n := 0; n <= 13; n++ {
		ranked := Rank(catalogOf(n), nil)
		cursor := 0
		for i := 0; i < 6; i++ {
			page, next := Page(ranked, cursor)
			assert.LessOrEqual(t, len(page), PageSize)
			if n > 0 {
				assert.NotEmpty(t, page, "n=%d call=%d", n, i)
			}
			cursor = next
		}
	}
}

func TestPage_ShortCatalog(t *testing.T) {
	ranked := Rank(catalogOf(3), nil)

	page, next := Page(ranked, 0)
	assert.Equal(t, []uint64{1, 2, 3}, ids(page))
	assert.Equal(t, PageSize, next)

	page, next = Page(ranked, next)
	assert.Equal(t, []uint64{1, 2, 3}, ids(page))
	assert.Equal(t, PageSize, next)
}

func TestPage_NextNeverPointsPastEnd(t *testing.T) {
	for n := 1; n <= 13; n++ {
		ranked := Rank(catalogOf(n), nil)
		cursor := 0
		for i := 0; i < 6; i++ {
			_, next := Page(ranked, cursor)
			assert.LessOrEqual(t, next-PageSize, n-1, "n=%d call=%d next=%d", n, i, next)
			cursor = next
		}
	}
}

func TestPage_StaleCursorResets(t *testing.T) {
	ranked := Rank(catalogOf(6), nil)
	page, next := Page(ranked, 40)
	assert.Equal(t, []uint64{1, 2, 3, 4}, ids(page))
	assert.Equal(t, 4, next) // 4 == 6 - 6%4
}

func TestPage_Empty(t *testing.T) {
	page, next := Page(nil, 0)
	assert.Empty(t, page)
	assert.Equal(t, PageSize, next)
}
