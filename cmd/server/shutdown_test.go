package main

import (
	"context"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingServer struct {
	mu    sync.Mutex
	calls *[]string
}

func (s *recordingServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.calls = append(*s.calls, "server")
	return nil
}

func TestOnSignal_StopsWorkBeforeServer(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	record := func(name string) func() {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, name)
		}
	}

	sig := make(chan os.Signal, 1)
	done := onSignal(sig, &recordingServer{calls: &calls}, time.Second, record("manager"), record("pool"))

	select {
	case <-done:
		t.Fatal("shutdown ran without a signal")
	case <-time.After(20 * time.Millisecond):
	}

	sig <- syscall.SIGTERM
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not finish")
	}
	require.Equal(t, []string{"manager", "pool", "server"}, calls)
}

func TestOnSignal_DoneWaitsForSlowDrain(t *testing.T) {
	var calls []string
	release := make(chan struct{})
	drained := false

	sig := make(chan os.Signal, 1)
	done := onSignal(sig, &recordingServer{calls: &calls}, time.Second, func() {
		<-release
		drained = true
	})
	sig <- syscall.SIGINT

	select {
	case <-done:
		t.Fatal("done closed before the drain finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-done
	require.True(t, drained)
	require.Equal(t, []string{"server"}, calls)
}
