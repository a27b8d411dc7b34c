package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/angelmondragon/elibrary-backend/pkg/config"
	"github.com/angelmondragon/elibrary-backend/pkg/logger"
)

func TestQueryLoggerOnlyReportsFailuresAndSlowQueries(t *testing.T) {
	var buf bytes.Buffer
	q := newQueryLogger(logger.New(logger.Options{ServiceName: "test", Output: &buf}), 100*time.Millisecond)
	stmt := func() (string, int64) { return "SELECT * FROM books", 3 }
	ctx := context.Background()

	q.Trace(ctx, time.Now(), stmt, nil)
	q.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
	assert.Zero(t, buf.Len())

	q.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	assert.Contains(t, buf.String(), "slow query")
	assert.Contains(t, buf.String(), "SELECT * FROM books")

	buf.Reset()
	q.Trace(ctx, time.Now(), stmt, errors.New("syntax error"))
	assert.Contains(t, buf.String(), "query failed")
	assert.Contains(t, buf.String(), "syntax error")
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := openDialector(normalizeDriver("mysql"), config.DBConfig{DSN: "x"})
	assert.Error(t, err)
	assert.Equal(t, DriverPostgres, normalizeDriver(" PostgreSQL "))
}
