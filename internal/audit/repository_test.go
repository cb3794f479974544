package audit

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRepo_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO emergency_calls")).
		WithArgs("id-1", "+2348000000000", "call_1", nil, `{"lat":1}`, "1.2.3.4", nil, "curl", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewPostgresRepo(db).Insert(context.Background(), EmergencyCallRecord{
		ID:        "id-1",
		ToNumber:  "+2348000000000",
		CallID:    StringPtr("call_1"),
		Coords:    json.RawMessage(`{"lat":1}`),
		IP:        StringPtr("1.2.3.4"),
		UserAgent: StringPtr("curl"),
		CreatedAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_CountRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	since := time.Now().Add(-5 * time.Minute)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*)")).
		WithArgs(since, "+2348000000000", "1.2.3.4").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := NewPostgresRepo(db).CountRecent(context.Background(), "1.2.3.4", "+2348000000000", since)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_ListAppliesFiltersAndPaging(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM emergency_calls WHERE to_number ILIKE '%' || $1 || '%' AND source ILIKE '%' || $2 || '%'")).
		WithArgs("+234", "home").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT $3 OFFSET $4")).
		WithArgs("+234", "home", 20, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "to_number", "call_id", "source", "coords", "ip", "user_id", "user_agent", "created_at"}).
			AddRow("id-21", "+2348000000000", "call_21", "home", []byte(`{"lat":1}`), nil, nil, nil, created))

	rows, total, err := NewPostgresRepo(db).List(context.Background(), ListFilter{ToNumber: "+234", Source: "home", Limit: 20, Offset: 20})
	require.NoError(t, err)
	assert.Equal(t, 21, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "call_21", *rows[0].CallID)
	assert.Nil(t, rows[0].IP)
	assert.True(t, rows[0].HasCoords())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_ListSince(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	since := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	until := since.Add(30 * 24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at ASC")).
		WithArgs(since, until, 2000).
		WillReturnRows(sqlmock.NewRows([]string{"id", "to_number", "call_id", "source", "coords", "ip", "user_id", "user_agent", "created_at"}))

	rows, err := NewPostgresRepo(db).ListSince(context.Background(), since, until, 2000)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
