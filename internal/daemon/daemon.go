// Package daemon schedules sync cycles for the prodhub client.
//
// The daemon:
//  1. Runs one immediate cycle on start
//  2. Runs a cycle on a fixed interval while connectivity is up
//  3. Runs an extra cycle whenever connectivity comes back
//  4. Handles graceful shutdown
//
// The engine itself guarantees at most one cycle in flight, so overlapping
// triggers collapse into no-ops rather than queued work.
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	gosync "sync"
	"time"

	"github.com/prodhub/prodhub/internal/connectivity"
	"github.com/prodhub/prodhub/internal/sync"
)

// Config holds configuration for the daemon.
type Config struct {
	// SyncInterval is the period of the background sync timer.
	SyncInterval time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SyncInterval: 30 * time.Second,
		Logger:       log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon drives the sync engine from timer ticks and connectivity events.
type Daemon struct {
	engine sync.Engine
	conn   connectivity.Observer
	config *Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     gosync.WaitGroup
}

// New creates a Daemon. Use Start to begin scheduling.
func New(engine sync.Engine, conn connectivity.Observer, config *Config) (*Daemon, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if conn == nil {
		return nil, fmt.Errorf("connectivity observer cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.SyncInterval <= 0 {
		config.SyncInterval = 30 * time.Second
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		engine: engine,
		conn:   conn,
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start runs the daemon until ctx is cancelled.
//
// One cycle runs immediately; after that the periodic timer and the
// reconnect watcher keep the store converging in the background.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Printf("Starting sync daemon (interval %v)", d.config.SyncInterval)

	if err := d.engine.RunCycle(ctx); err != nil {
		d.config.Logger.Printf("Initial cycle error: %v", err)
	}

	d.wg.Add(2)
	go d.periodicLoop()
	go d.reconnectLoop()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop cancels the timers and waits for in-flight work to finish. After
// Stop returns no further automatic cycles occur until the daemon is
// started again.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping sync daemon")
	d.cancel()
	d.wg.Wait()
	d.config.Logger.Println("Sync daemon stopped")
	return nil
}

// periodicLoop runs a cycle on every tick while connectivity is up.
func (d *Daemon) periodicLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			if !d.conn.Online() {
				continue
			}
			if err := d.engine.RunCycle(d.ctx); err != nil {
				d.config.Logger.Printf("Periodic cycle error: %v", err)
			}
		}
	}
}

// reconnectLoop runs an immediate cycle when connectivity returns, cutting
// the post-reconnect sync latency below the timer period.
func (d *Daemon) reconnectLoop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case online, ok := <-d.conn.Changes():
			if !ok {
				return
			}
			if !online {
				continue
			}
			d.config.Logger.Println("Connectivity restored, syncing now")
			if err := d.engine.RunCycle(d.ctx); err != nil {
				d.config.Logger.Printf("Reconnect cycle error: %v", err)
			}
		}
	}
}
