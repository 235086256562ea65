package db

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestDialectByType(t *testing.T) {
	for _, typ := range []string{"postgres", "mysql", "sqlite", "SQLite", ""} {
		d, err := Dialect(Config{Type: typ, Name: "x"})
		require.NoError(t, err, typ)
		assert.NotNil(t, d)
	}

	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)
}

func TestOpenSQLiteInMemory(t *testing.T) {
	conn, err := Open(Config{Type: "sqlite", Name: "file::memory:", MaxOpenConn: 1}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(conn) })

	var one int
	require.NoError(t, conn.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: source_records.id")))
	assert.False(t, IsDuplicateKeyErr(errors.New("no such table")))
}

func TestCloseNil(t *testing.T) {
	assert.NoError(t, Close(nil))
}
