// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Lifecycle(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	server := NewServer("127.0.0.1:0", h, slog.New(slog.DiscardHandler))
	assert.Empty(t, server.Addr())

	errCh, err := server.Start()
	require.NoError(t, err)

	_, err = server.Start()
	require.Error(t, err)

	resp, err := http.Get("http://" + server.Addr() + "/") //nolint:noctx // test
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))
	require.NoError(t, server.Stop(ctx))

	_, open := <-errCh
	assert.False(t, open)
}

func TestServer_ListenError(t *testing.T) {
	server := NewServer("256.0.0.1:bad", http.NotFoundHandler(), slog.New(slog.DiscardHandler))
	_, err := server.Start()
	require.Error(t, err)
	assert.NoError(t, server.Stop(context.Background()))
}
