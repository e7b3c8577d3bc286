package lock

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	getLockSQL     = regexp.QuoteMeta("SELECT GET_LOCK(?, ?)")
	releaseLockSQL = regexp.QuoteMeta("SELECT RELEASE_LOCK(?)")
)

func lockRows(v any) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"result"}).AddRow(v)
}

func TestDatabaseLockName(t *testing.T) {
	tests := []struct {
		database string
		expected string
	}{
		{"app", "goanonymize:db:app"},
		{"app_staging-2", "goanonymize:db:app_staging-2"},
		{"app.db", "goanonymize:db:app_db"},
		{"a b/c", "goanonymize:db:a_b_c"},
		{"", "goanonymize:db:"},
	}
	for _, tt := range tests {
		t.Run(tt.database, func(t *testing.T) {
			assert.Equal(t, tt.expected, DatabaseLockName(tt.database))
		})
	}
}

func TestAdvisoryLock_AcquireAndRelease(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(getLockSQL).WithArgs("goanonymize:db:app", 1).WillReturnRows(lockRows(1))
	mock.ExpectQuery(releaseLockSQL).WithArgs("goanonymize:db:app").WillReturnRows(lockRows(1))

	l := NewDatabaseLock(db, "app")
	ctx := context.Background()

	require.NoError(t, l.AcquireOrFail(ctx))
	assert.True(t, l.IsHeld())

	// Already held: no second GET_LOCK.
	acquired, err := l.AcquireLock(ctx, TimeoutShort)
	require.NoError(t, err)
	assert.True(t, acquired)

	released, err := l.ReleaseLock(ctx)
	require.NoError(t, err)
	assert.True(t, released)
	assert.False(t, l.IsHeld())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvisoryLock_HeldElsewhere(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(getLockSQL).WillReturnRows(lockRows(0))

	l := NewDatabaseLock(db, "app")
	err = l.AcquireOrFail(context.Background())
	assert.True(t, errors.Is(err, ErrLockTimeout))
	assert.False(t, l.IsHeld())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvisoryLock_NullResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(getLockSQL).WillReturnRows(lockRows(nil))

	l := NewAdvisoryLock(db, "x")
	acquired, err := l.TryAcquire(context.Background())
	assert.Error(t, err)
	assert.False(t, acquired)
}

func TestAdvisoryLock_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(getLockSQL).WillReturnError(errors.New("connection reset"))

	l := NewAdvisoryLock(db, "x")
	_, err = l.TryAcquire(context.Background())
	assert.ErrorContains(t, err, "connection reset")
}

func TestAdvisoryLock_ReleaseNotHeld(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	l := NewAdvisoryLock(db, "x")
	released, err := l.ReleaseLock(context.Background())
	assert.NoError(t, err)
	assert.False(t, released)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvisoryLock_WithLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(getLockSQL).WillReturnRows(lockRows(1))
	mock.ExpectQuery(releaseLockSQL).WillReturnRows(lockRows(1))

	l := NewAdvisoryLock(db, "x")
	called := false
	err = l.WithLock(context.Background(), TimeoutShort, func() error {
		called = true
		assert.True(t, l.IsHeld())
		return errors.New("boom")
	})

	assert.EqualError(t, err, "boom")
	assert.True(t, called)
	assert.False(t, l.IsHeld())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvisoryLock_WithLockReleasesOnPanic(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(getLockSQL).WillReturnRows(lockRows(1))
	mock.ExpectQuery(releaseLockSQL).WillReturnRows(lockRows(1))

	l := NewAdvisoryLock(db, "x")
	assert.Panics(t, func() {
		_ = l.WithLock(context.Background(), TimeoutShort, func() error { panic("bad") })
	})
	assert.False(t, l.IsHeld())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvisoryLock_WithLockTimeout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(getLockSQL).WillReturnRows(lockRows(0))

	l := NewAdvisoryLock(db, "x")
	err = l.WithLock(context.Background(), TimeoutImmediate, func() error {
		t.Fatal("must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestIsRunning(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(getLockSQL).WithArgs("goanonymize:db:app", 0).WillReturnRows(lockRows(1))
	mock.ExpectQuery(releaseLockSQL).WillReturnRows(lockRows(1))
	mock.ExpectQuery(getLockSQL).WithArgs("goanonymize:db:app", 0).WillReturnRows(lockRows(0))

	running, err := IsRunning(context.Background(), db, "app")
	require.NoError(t, err)
	assert.False(t, running)

	running, err = IsRunning(context.Background(), db, "app")
	require.NoError(t, err)
	assert.True(t, running)

	assert.NoError(t, mock.ExpectationsWereMet())
}
