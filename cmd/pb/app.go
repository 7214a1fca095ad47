package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kessler/pocketbook/internal/cache"
	"github.com/kessler/pocketbook/internal/config"
	"github.com/kessler/pocketbook/internal/pocketbook"
	"github.com/kessler/pocketbook/internal/queue"
	"github.com/kessler/pocketbook/internal/remote"
	"github.com/kessler/pocketbook/internal/repo"
	syncmgr "github.com/kessler/pocketbook/internal/sync"
)

// cacheFile is the cache database name inside the data directory.
const cacheFile = "pocketbook.db"

// app bundles the wired-up components a CLI command needs. Construct
// with openApp and Close when done.
type app struct {
	dataDir string
	cfg     *config.Config
	store   *cache.SQLiteStore
	queue   *queue.Queue
	client  *remote.HTTPClient
	manager *syncmgr.Manager
	repos   *repo.Repos
}

// openApp loads config, opens the cache, restores the queue, and
// constructs the sync manager and repositories.
//
// When a server is configured, connectivity is probed once with a
// short deadline so one-shot commands can write through when the
// store is reachable.
func openApp() (*app, error) {
	dataDir := pocketbook.FindDataDir()

	cfg, err := config.Load(dataDir)
	if err != nil {
		return nil, err
	}

	store, err := cache.Open(filepath.Join(dataDir, cacheFile))
	if err != nil {
		return nil, err
	}

	q, err := queue.Load(store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	identity, err := remote.LoadIdentity(dataDir)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	a := &app{
		dataDir: dataDir,
		cfg:     cfg,
		store:   store,
		queue:   q,
	}

	if cfg.ServerURL != "" {
		a.client = remote.NewHTTPClient(cfg.ServerURL, identity, nil)
		a.manager = syncmgr.New(q, a.client, store, nil)
	} else {
		a.manager = syncmgr.New(q, nil, store, nil)
	}
	a.manager.SetIdentity(identity)

	if a.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		a.manager.SetOnline(a.client.Ping(ctx) == nil)
		cancel()
	}

	if a.client != nil {
		a.repos = repo.New(store, a.manager, a.client, nil)
	} else {
		a.repos = repo.New(store, a.manager, nil, nil)
	}

	return a, nil
}

// Close releases the cache database.
func (a *app) Close() {
	_ = a.store.Close()
}
