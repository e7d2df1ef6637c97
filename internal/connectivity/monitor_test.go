package connectivity

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheck_ReachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMonitor(Options{URL: srv.URL, Logger: log.New(io.Discard, "", 0)})
	if !m.Check(context.Background()) {
		t.Error("reachable backend reported offline")
	}
	if !m.Online() {
		t.Error("Online() disagrees with the probe")
	}
}

func TestCheck_ErrorStatusStillCountsAsOnline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m := NewMonitor(Options{URL: srv.URL, Logger: log.New(io.Discard, "", 0)})
	if !m.Check(context.Background()) {
		t.Error("an HTTP answer of any status proves reachability")
	}
}

func TestCheck_UnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	m := NewMonitor(Options{URL: srv.URL, Logger: log.New(io.Discard, "", 0)})
	if m.Check(context.Background()) {
		t.Error("closed server reported online")
	}
	if m.Online() {
		t.Error("Online() disagrees with the probe")
	}
}

func TestOnReconnect_FiresOnTransitionOnly(t *testing.T) {
	up := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !up {
			// Hijack and drop to simulate an unreachable host.
			hj, ok := w.(http.Hijacker)
			if ok {
				conn, _, _ := hj.Hijack()
				conn.Close()
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMonitor(Options{URL: srv.URL, Logger: log.New(io.Discard, "", 0)})
	fired := 0
	m.OnReconnect(func() { fired++ })
	ctx := context.Background()

	m.Check(ctx) // online
	if fired != 0 {
		t.Fatal("first probe must not fire reconnect")
	}
	up = false
	m.Check(ctx) // offline
	m.Check(ctx) // still offline
	up = true
	m.Check(ctx) // back online
	if fired != 1 {
		t.Errorf("reconnect fired %d times, want 1", fired)
	}
	m.Check(ctx) // staying online fires nothing
	if fired != 1 {
		t.Errorf("steady online fired reconnect, count=%d", fired)
	}
}

func TestOnline_OptimisticBeforeFirstProbe(t *testing.T) {
	m := NewMonitor(Options{URL: "http://127.0.0.1:0", Logger: log.New(io.Discard, "", 0)})
	if !m.Online() {
		t.Error("unprobed monitor should report online")
	}
}
