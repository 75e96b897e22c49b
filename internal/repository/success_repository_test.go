package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var insertSuccessQ = regexp.QuoteMeta("INSERT INTO successes (user_habit_id, local_date, logged_at) VALUES (?,?,?)")

func TestSuccessRepo_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSuccessRepo(db)
	at := time.Date(2024, 5, 10, 13, 0, 0, 0, time.UTC)

	mock.ExpectExec(insertSuccessQ).
		WithArgs(9, "2024-05-10", at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), 9, "2024-05-10", at))
	expectationsMet(t, mock)
}

func TestSuccessRepo_CreateDuplicateDay(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSuccessRepo(db)

	mock.ExpectExec(insertSuccessQ).
		WithArgs(9, "2024-05-10", sqlmock.AnyArg()).
		WillReturnError(mysqlErr(errDupEntry))

	err := repo.Create(context.Background(), 9, "2024-05-10", time.Now())
	assert.ErrorIs(t, err, ErrDuplicateSuccess)
	expectationsMet(t, mock)
}

func TestSuccessRepo_CreateUnknownHabit(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSuccessRepo(db)

	mock.ExpectExec(insertSuccessQ).WillReturnError(mysqlErr(errNoReferenced))

	err := repo.Create(context.Background(), 404, "2024-05-10", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSuccessRepo_ListDates(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSuccessRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM successes WHERE user_habit_id=? ORDER BY local_date")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"d"}).AddRow("2024-05-01").AddRow("2024-05-02"))

	got, err := repo.ListDates(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-01", "2024-05-02"}, got)
	expectationsMet(t, mock)
}

func TestSuccessRepo_Exists(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSuccessRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM successes")).
		WithArgs(3, "2024-05-02").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))

	ok, err := repo.Exists(context.Background(), 3, "2024-05-02")
	require.NoError(t, err)
	assert.True(t, ok)
}
