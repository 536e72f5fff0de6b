package main

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/medguide/backend/internal/config"
	"github.com/zhouzirui/medguide/backend/internal/service/chat"
)

func TestOpenStore(t *testing.T) {
	memory, err := openStore(config.StoreConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &chat.MemoryStore{}, memory)

	sqlite, err := openStore(config.StoreConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "db", "medguide.db")})
	require.NoError(t, err)
	assert.IsType(t, &chat.SQLiteStore{}, sqlite)
	require.NoError(t, sqlite.Close())
}

func TestRunServerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
