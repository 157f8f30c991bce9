package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycollect/internal/domain"
	"paycollect/internal/repository/sqlite"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payments.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", path)

	out, err := runCLI(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema ready (sqlite)")

	ctx := context.Background()
	db, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, sqlite.NewPaymentRepository(db).Create(ctx, &domain.Payment{
		TransactionReference: "tx-jane-1-a",
		Status:               domain.PaymentStatusPending,
		Amount:               decimal.RequireFromString("250.5"),
		Currency:             "UGX",
		Contact:              domain.Contact{Name: "Jane"},
		CreatedAt:            time.Now(),
	}))
	require.NoError(t, db.Close())

	out, err = runCLI(t, "show", "tx-jane-1-a")
	require.NoError(t, err)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "tx-jane-1-a", view["tx_ref"])
	assert.Equal(t, "pending", view["status"])
	assert.Equal(t, "250.50", view["amount"])
	assert.Equal(t, "Jane", view["name"])
}

func TestShowUnknownPayment(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "payments.db"))

	_, err := runCLI(t, "migrate")
	require.NoError(t, err)

	_, err = runCLI(t, "show", "tx-missing")
	assert.Error(t, err)
}

func TestVerifyRequiresProcessorCredentials(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "payments.db"))
	t.Setenv("FLUTTERWAVE_SECRET_KEY", "")

	_, err := runCLI(t, "verify", "tx-any")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FLUTTERWAVE_SECRET_KEY")
}
