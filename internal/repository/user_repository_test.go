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

func TestUserRepo_CreateWithProfile(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (name, mobile, tz) VALUES (?,?,?)")).
		WithArgs("Ana", "+15555550100", "America/New_York").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_profiles (user_id) VALUES (?)")).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO factor_scores")).
		WithArgs(11, 1, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := repo.CreateWithProfile(context.Background(), " Ana ", "+15555550100", "America/New_York", map[uint64]int{1: 3})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)
	expectationsMet(t, mock)
}

func TestUserRepo_CreateWithProfileDuplicateMobile(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).WillReturnError(mysqlErr(errDupEntry))
	mock.ExpectRollback()

	_, err := repo.CreateWithProfile(context.Background(), "Ana", "+15555550100", "UTC", map[uint64]int{1: 3})
	assert.ErrorIs(t, err, ErrMobileExists)
	expectationsMet(t, mock)
}

func TestUserRepo_GetByMobile(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE mobile=? LIMIT 1")).
		WithArgs("+15555550100").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "mobile", "tz", "created_at"}).
			AddRow(7, "Ana", "+15555550100", "America/New_York", created))

	u, err := repo.GetByMobile(context.Background(), "+15555550100")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), u.ID)
	assert.Equal(t, "America/New_York", u.TZ)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE mobile=? LIMIT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "mobile", "tz", "created_at"}))
	_, err = repo.GetByMobile(context.Background(), "+15555550199")
	assert.ErrorIs(t, err, ErrNotFound)
}
