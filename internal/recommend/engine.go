// Package recommend ranks catalog habits against a user's factor profile
// and slices the ranking into fixed-size pages addressed by an explicit
// cursor.
package recommend

import (
	"sort"

	"github.com/iliyamo/habit-coach/internal/model"
)

// PageSize is the number of habits served per recommendation page.
const PageSize = 4

// Profile maps factor id to the user's score for that factor.  A nil or
// empty profile is valid and scores every habit as zero.
type Profile map[uint64]int

// Ranked is a catalog habit together with its match score.
type Ranked struct {
	ID          uint64 `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Score       int    `json:"score"`
}

// Score returns the match score of a habit: the sum of
// user score × habit weight over the factors present in both the profile
// and the habit's ratings.  Factors missing from the profile count as 0.
func Score(p Profile, ratings []model.FactorHabitRating) int {
	total := 0
	for _, r := range ratings {
		if s, ok := p[r.FactorID]; ok {
			total += s * r.Weight
		}
	}
	return total
}

// Rank scores every habit of the catalog and orders the result by
// descending score, breaking ties by ascending catalog id.  Zero-score
// habits are kept and end up last.
func Rank(catalog []model.Habit, p Profile) []Ranked {
	out := make([]Ranked, 0, len(catalog))
	for _, h := range catalog {
		out = append(out, Ranked{
			ID:          h.ID,
			Title:       h.Title,
			Description: h.Description,
			Score:       Score(p, h.Ratings),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Page returns the page of ranked addressed by cursor and the cursor of
// the following call.  A cursor is the exclusive end index of the page;
// values below PageSize address the first page.
//
// The wrap rule is inherited from the first version of the product: once
// the served page reaches the end of the list, or the cursor equals the
// start of the trailing partial page (len - len%PageSize), the next call
// goes back to the first page.
// That means the last full page is followed by the first page again and a
// trailing partial page is never shown.  Cursors pointing past the end are
// reset to the first page.
func Page(ranked []Ranked, cursor int) ([]Ranked, int) {
	n := len(ranked)
	if n == 0 {
		return []Ranked{}, PageSize
	}
	if cursor < PageSize || cursor-PageSize >= n {
		cursor = PageSize
	}
	end := cursor
	if end > n {
		end = n
	}
	page := make([]Ranked, end-(cursor-PageSize))
	copy(page, ranked[cursor-PageSize:end])

	next := cursor + PageSize
	if cursor >= n || cursor == n-n%PageSize {
		next = PageSize
	}
	return page, next
}
