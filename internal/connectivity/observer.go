// Package connectivity tracks whether the remote API is reachable.
//
// The sync engine consults Online() before every cycle and treats an
// offline-to-online transition as a cue to sync immediately. The production
// implementation is a periodic HTTP probe; tests and one-shot commands use
// the Manual observer.
package connectivity

import (
	"context"
	"log"
	"net/http"
	"os"
	"sync"
	"time"
)

// Observer exposes the current online state and its transitions.
type Observer interface {
	// Online reports the most recently observed reachability.
	Online() bool

	// Changes delivers the new state on every flip. The channel is
	// buffered; slow consumers miss intermediate flips, never the latest
	// state via Online().
	Changes() <-chan bool
}

// ProberConfig configures the probe poller.
type ProberConfig struct {
	// ProbeURL is the endpoint hit to decide reachability. Any response,
	// regardless of status code, counts as online: the server answered.
	ProbeURL string

	// Interval between probes (default: 10s).
	Interval time.Duration

	// Timeout for each probe request (default: 5s).
	Timeout time.Duration

	// Logger for state transitions.
	Logger *log.Logger

	// OnChange, when set, is called on every flip in addition to the
	// Changes channel. It runs on the probe goroutine and must not block.
	OnChange func(online bool)
}

// Prober polls an HTTP endpoint and reports reachability flips.
type Prober struct {
	probeURL   string
	interval   time.Duration
	httpClient *http.Client
	logger     *log.Logger
	onChange   func(bool)

	mu      sync.Mutex
	online  bool
	started bool

	changes chan bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewProber creates a probe poller. Call Start to begin probing.
func NewProber(config ProberConfig) *Prober {
	if config.Interval <= 0 {
		config.Interval = 10 * time.Second
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[connectivity] ", log.LstdFlags)
	}

	return &Prober{
		probeURL:   config.ProbeURL,
		interval:   config.Interval,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     config.Logger,
		onChange:   config.OnChange,
		changes:    make(chan bool, 8),
	}
}

// Start probes once synchronously to establish the initial state, then
// polls in the background until Stop is called.
func (p *Prober) Start() {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	p.setOnline(p.probe())

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.wg.Add(1)
	go p.loop(ctx)
}

// Stop halts background probing.
func (p *Prober) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}

// Online implements Observer.
func (p *Prober) Online() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

// Changes implements Observer.
func (p *Prober) Changes() <-chan bool {
	return p.changes
}

func (p *Prober) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.setOnline(p.probe())
		}
	}
}

// probe performs one reachability check.
func (p *Prober) probe() bool {
	req, err := http.NewRequest(http.MethodHead, p.probeURL, nil)
	if err != nil {
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

// setOnline records the state and emits a transition event on a flip.
func (p *Prober) setOnline(online bool) {
	p.mu.Lock()
	changed := online != p.online
	p.online = online
	p.mu.Unlock()

	if !changed {
		return
	}

	if online {
		p.logger.Printf("Connection restored")
	} else {
		p.logger.Printf("Connection lost")
	}

	if p.onChange != nil {
		p.onChange(online)
	}

	select {
	case p.changes <- online:
	default:
		// Buffer full; Online() still reflects the latest state.
	}
}

// Manual is an Observer whose state is set directly. One-shot commands use
// it to assert the state they were invoked under, and tests use it to
// script transitions.
type Manual struct {
	mu      sync.Mutex
	online  bool
	changes chan bool
}

// NewManual creates a Manual observer with the given initial state.
func NewManual(online bool) *Manual {
	return &Manual{
		online:  online,
		changes: make(chan bool, 8),
	}
}

// Online implements Observer.
func (m *Manual) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Changes implements Observer.
func (m *Manual) Changes() <-chan bool {
	return m.changes
}

// SetOnline flips the state, emitting a transition event if it changed.
func (m *Manual) SetOnline(online bool) {
	m.mu.Lock()
	changed := online != m.online
	m.online = online
	m.mu.Unlock()

	if !changed {
		return
	}

	select {
	case m.changes <- online:
	default:
	}
}
