package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/diewo77/invoice-tracker/internal/config"
	"github.com/diewo77/invoice-tracker/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewApp_ServesSeededData(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "app.db")},
	}
	log := zap.NewNop()
	conn, err := db.Open(cfg.Database, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(conn) })
	require.NoError(t, db.Migrate(conn, "", false, log))
	require.NoError(t, db.Seed(context.Background(), conn, log, nil))

	app := NewApp(cfg, conn, log)
	t.Cleanup(func() { assert.NoError(t, app.Close()) })

	for _, path := range []string{"/healthz", "/invoices", "/settings", "/dashboard", "/agencies"} {
		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
