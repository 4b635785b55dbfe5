package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatements_CoversAllTables(t *testing.T) {
	stmts := Statements()
	require.Len(t, stmts, 7)
	for i, table := range []string{"users", "refresh_tokens", "events", "tickets", "payments", "favorites", "bookmarks"} {
		assert.True(t, strings.HasPrefix(stmts[i], "CREATE TABLE IF NOT EXISTS "+table+" "), "statement %d", i)
	}
}

func TestStatements_PaymentsCascadeFromTickets(t *testing.T) {
	var payments string
	for _, s := range Statements() {
		if strings.Contains(s, "TABLE IF NOT EXISTS payments") {
			payments = s
		}
	}
	require.NotEmpty(t, payments)
	assert.Contains(t, payments, "REFERENCES tickets(id) ON DELETE CASCADE")
	assert.Contains(t, payments, "UNIQUE KEY uq_payments_ticket (ticket_id)")
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range Statements() {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_StopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnError(errors.New("boom"))
	err = Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate statement 1")
}

func TestDSN_SessionPinnedToUTC(t *testing.T) {
	dsn := DSN("app", "p@ss:word", "db.internal", "3306", "meethub")
	assert.Contains(t, dsn, "charset=utf8mb4")
	assert.Contains(t, dsn, "time_zone=%27%2B00%3A00%27")

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.User)
	assert.Equal(t, "p@ss:word", cfg.Passwd)
	assert.Equal(t, "db.internal:3306", cfg.Addr)
	assert.Equal(t, "meethub", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, time.UTC, cfg.Loc)
	assert.Equal(t, "'+00:00'", cfg.Params["time_zone"], "CURRENT_TIMESTAMP must be evaluated in UTC")
}

func TestDSN_NoPassword(t *testing.T) {
	cfg, err := mysql.ParseDSN(DSN("root", "", "localhost", "3306", "meethub"))
	require.NoError(t, err)
	assert.Equal(t, "root", cfg.User)
	assert.Empty(t, cfg.Passwd)
}
