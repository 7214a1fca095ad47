// Package daemon provides the long-running process that feeds drain
// triggers to the sync manager.
//
// The daemon owns no sync logic of its own. It runs three trigger
// sources and forwards each firing to Manager.Drain:
//  1. A connectivity monitor probing the remote store's health
//     endpoint; online/offline transitions flip the manager's online
//     flag, and regaining connectivity triggers a drain.
//  2. A periodic ticker (default 5 minutes).
//  3. An fsnotify watcher on the data directory, so a mutation
//     enqueued by another process (the CLI) wakes the daemon without
//     waiting for the next tick. Events are debounced.
//
// SIGUSR1 is also accepted as a manual "session resumed" trigger.
// Overlapping triggers are harmless: the manager guarantees at most
// one drain cycle in flight and drops the rest.
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sys/unix"

	"github.com/kessler/pocketbook/internal/repo"
	"github.com/kessler/pocketbook/internal/schema"
	syncmgr "github.com/kessler/pocketbook/internal/sync"
)

// Config holds configuration for the daemon.
type Config struct {
	// ProbeInterval is how often connectivity is probed.
	ProbeInterval time.Duration

	// TickInterval is the periodic drain timer.
	TickInterval time.Duration

	// DebounceInterval is how long to wait before reacting to data
	// directory activity, batching rapid changes together.
	DebounceInterval time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ProbeInterval:    30 * time.Second,
		TickInterval:     5 * time.Minute,
		DebounceInterval: 500 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon orchestrates trigger sources around one sync manager.
type Daemon struct {
	manager *syncmgr.Manager
	repos   *repo.Repos
	dataDir string
	config  *Config

	watcher *fsnotify.Watcher

	activityMu sync.Mutex
	activityAt time.Time

	unsubscribe []func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Daemon instance. repos may be nil when no live
// remote view is wanted (subscriptions are then skipped).
func New(manager *syncmgr.Manager, repos *repo.Repos, dataDir string, config *Config) (*Daemon, error) {
	if manager == nil {
		return nil, fmt.Errorf("manager cannot be nil")
	}
	if dataDir == "" {
		return nil, fmt.Errorf("dataDir cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		manager: manager,
		repos:   repos,
		dataDir: dataDir,
		config:  config,
		watcher: watcher,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start begins the daemon's operation and blocks until ctx is
// cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	if err := d.watcher.Add(d.dataDir); err != nil {
		return fmt.Errorf("failed to watch data directory: %w", err)
	}
	d.config.Logger.Printf("Watching: %s", d.dataDir)

	// Establish initial connectivity state before the first probe tick.
	d.probe()

	d.wg.Add(4)
	go d.connectivityLoop()
	go d.tickLoop()
	go d.watchActivity()
	go d.processActivity()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, unix.SIGUSR1)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			d.config.Logger.Println("Shutdown signal received")
			return d.Stop()
		case <-d.ctx.Done():
			return nil
		case <-sigCh:
			d.fire(TriggerVisible)
		}
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	d.cancel()
	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}
	d.wg.Wait()
	d.dropSubscriptions()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// fire forwards a trigger to the manager. Offline carries no drain.
func (d *Daemon) fire(t Trigger) {
	d.config.Logger.Printf("Trigger: %s", t)
	if t == TriggerOffline {
		return
	}
	if err := d.manager.Drain(d.ctx); err != nil {
		d.config.Logger.Printf("Drain error: %v", err)
	}
}

// connectivityLoop probes the remote store and reports transitions.
func (d *Daemon) connectivityLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.probe()
		}
	}
}

// probe performs one connectivity check and fires online/offline
// transitions.
func (d *Daemon) probe() {
	wasOnline := d.manager.Online()
	online := d.ping()

	if online == wasOnline {
		return
	}

	d.manager.SetOnline(online)
	if online {
		d.config.Logger.Println("Connectivity regained")
		d.startSubscriptions()
		d.fire(TriggerOnline)
	} else {
		d.config.Logger.Println("Connectivity lost")
		d.dropSubscriptions()
		d.fire(TriggerOffline)
	}
}

func (d *Daemon) ping() bool {
	client := d.manager.Client()
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(d.ctx, d.config.ProbeInterval)
	defer cancel()
	return client.Ping(ctx) == nil
}

// tickLoop fires the periodic drain trigger.
func (d *Daemon) tickLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.fire(TriggerTick)
		}
	}
}

// watchActivity records data-directory events for the debouncer.
func (d *Daemon) watchActivity() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove) == 0 {
				continue
			}
			d.activityMu.Lock()
			d.activityAt = time.Now()
			d.activityMu.Unlock()

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// processActivity fires a focus trigger once activity has settled for
// a debounce interval.
func (d *Daemon) processActivity() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.activityMu.Lock()
			at := d.activityAt
			pending := !at.IsZero() && time.Since(at) >= d.config.DebounceInterval
			if pending {
				d.activityAt = time.Time{}
			}
			d.activityMu.Unlock()

			if pending {
				d.fire(TriggerFocus)
			}
		}
	}
}

// startSubscriptions opens the live remote views for every entity
// kind, feeding collection changes back into the local cache.
func (d *Daemon) startSubscriptions() {
	if d.repos == nil {
		return
	}
	d.dropSubscriptions()

	subs := []struct {
		kind schema.Kind
		open func(context.Context) (func(), error)
	}{
		{schema.KindTransaction, d.repos.Transactions.Subscribe},
		{schema.KindCategory, d.repos.Categories.Subscribe},
		{schema.KindSettings, d.repos.Settings.Subscribe},
	}
	for _, s := range subs {
		stop, err := s.open(d.ctx)
		if err != nil {
			d.config.Logger.Printf("Warning: failed to subscribe to %s changes: %v", s.kind, err)
			continue
		}
		d.unsubscribe = append(d.unsubscribe, stop)
	}
}

// dropSubscriptions closes any open remote views.
func (d *Daemon) dropSubscriptions() {
	for _, stop := range d.unsubscribe {
		stop()
	}
	d.unsubscribe = nil
}
