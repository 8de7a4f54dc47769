package connectivity

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestProberOnline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Even an error status counts as reachable.
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewProber(ProberConfig{
		ProbeURL: server.URL,
		Interval: time.Hour, // only the synchronous initial probe matters here
		Logger:   quietLogger(),
	})
	p.Start()
	defer p.Stop()

	if !p.Online() {
		t.Error("Expected online after initial probe")
	}
}

func TestProberOffline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	p := NewProber(ProberConfig{
		ProbeURL: server.URL,
		Interval: time.Hour,
		Timeout:  time.Second,
		Logger:   quietLogger(),
	})
	p.Start()
	defer p.Stop()

	if p.Online() {
		t.Error("Expected offline when server is unreachable")
	}
}

func TestProberOnChange(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	p := NewProber(ProberConfig{
		ProbeURL: server.URL,
		Interval: time.Hour,
		Logger:   quietLogger(),
		OnChange: func(online bool) {
			if online {
				calls.Add(1)
			}
		},
	})
	p.Start()
	defer p.Stop()

	if calls.Load() != 1 {
		t.Errorf("Expected one online callback, got %d", calls.Load())
	}
}

func TestManualObserver(t *testing.T) {
	m := NewManual(false)

	if m.Online() {
		t.Error("Expected initial offline state")
	}

	m.SetOnline(true)
	if !m.Online() {
		t.Error("Expected online after SetOnline(true)")
	}

	select {
	case online := <-m.Changes():
		if !online {
			t.Error("Expected online flip event")
		}
	case <-time.After(time.Second):
		t.Fatal("Expected a change event")
	}

	// Setting the same state again is not a flip.
	m.SetOnline(true)
	select {
	case <-m.Changes():
		t.Error("Expected no event for a non-flip")
	case <-time.After(50 * time.Millisecond):
	}
}
