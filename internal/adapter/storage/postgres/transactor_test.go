package postgres

import (
	"context"
	"errors"
	"testing"

	"court-reservation-engine/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pgError(code string) error {
	return &pgconn.PgError{Code: code, Message: "test"}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"serialization failure", pgError(sqlStateSerializationFailure), true},
		{"deadlock", pgError(sqlStateDeadlockDetected), true},
		{"exclusion violation", pgError(sqlStateExclusionViolation), true},
		{"lock timeout", pgError(sqlStateLockNotAvailable), true},
		{"unique violation", pgError("23505"), false},
		{"plain error", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.Equal(t, tt.retryable, errors.Is(got, ports.ErrConcurrencyConflict))
			assert.ErrorIs(t, got, tt.err, "original error stays reachable")
		})
	}
	assert.NoError(t, classify(nil))
}

func TestTransactor_BeginIsSerializable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable})
	mock.ExpectCommit()

	tx, err := NewTransactor(mock).Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Commit(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_CommitSerializationFailureIsRetryable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable})
	mock.ExpectCommit().WillReturnError(pgError(sqlStateSerializationFailure))

	tx, err := NewTransactor(mock).Begin(context.Background())
	require.NoError(t, err)

	err = tx.Commit(context.Background())
	assert.ErrorIs(t, err, ports.ErrConcurrencyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_BeginFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable}).WillReturnError(errors.New("pool closed"))

	_, err = NewTransactor(mock).Begin(context.Background())
	assert.ErrorContains(t, err, "begin serializable tx")
}

func TestHealthCheck(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing()
	mock.ExpectQuery("SELECT to_regclass").
		WillReturnRows(pgxmock.NewRows([]string{"present"}).AddRow(true))
	hc := NewHealthCheck(mock)
	assert.Equal(t, "postgresql", hc.Name())
	assert.NoError(t, hc.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck_SchemaMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing()
	mock.ExpectQuery("SELECT to_regclass").
		WillReturnRows(pgxmock.NewRows([]string{"present"}).AddRow(false))
	assert.ErrorContains(t, NewHealthCheck(mock).Ping(context.Background()), "migrations not applied")
}

func TestHealthCheck_PingFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Error(t, NewHealthCheck(mock).Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_AppliesEmbeddedSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS bookings").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, Migrate(context.Background(), mock, zerolog.Nop()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
