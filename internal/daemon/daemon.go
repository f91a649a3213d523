// Package daemon wires the configuration store, preferences manager, event
// bus and API server into the long-running fabriclensd process.
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fabriclens/fabriclens/internal/config"
	configstore "github.com/fabriclens/fabriclens/internal/config/store"
	"github.com/fabriclens/fabriclens/internal/eventbus"
	"github.com/fabriclens/fabriclens/internal/prefs"
	"github.com/fabriclens/fabriclens/internal/procutil"
	"github.com/fabriclens/fabriclens/internal/server"
)

const shutdownTimeout = 5 * time.Second

// Options configures daemon construction.
type Options struct {
	// Store is the configuration store. When nil, the default instance
	// store is opened during Start.
	Store *configstore.Store

	// InstanceName selects the instance when Store is nil.
	InstanceName string
}

// Daemon owns the services that make up a running fabriclensd instance.
type Daemon struct {
	opts        Options
	store       *configstore.Store
	ownsStore   bool
	bus         *eventbus.Bus
	manager     *prefs.Manager
	apiServer   *server.APIServer
	runtimeInfo *RuntimeInfo
	lifecycle   *lifecycle
	paths       config.InstancePaths
}

// New constructs a daemon from the given options.
func New(opts Options) *Daemon {
	return &Daemon{
		opts:        opts,
		store:       opts.Store,
		runtimeInfo: &RuntimeInfo{},
		lifecycle:   newLifecycle(),
	}
}

// Run starts all services and blocks until ctx is cancelled or Shutdown is
// called, then tears everything down.
func (d *Daemon) Run(ctx context.Context) error {
	paths, err := config.EnsureInstanceDirs(d.opts.InstanceName)
	if err != nil {
		return fmt.Errorf("daemon: ensure instance dirs: %w", err)
	}
	d.paths = paths

	if err := writePIDFile(paths.Lock, os.Getpid()); err != nil {
		return err
	}
	defer removePIDFile(paths.Lock)

	if d.store == nil {
		store, err := configstore.Open(configstore.Options{InstanceName: d.opts.InstanceName})
		if err != nil {
			return err
		}
		d.store = store
		d.ownsStore = true
	}

	d.bus = eventbus.New()
	d.manager = prefs.NewManager()
	d.manager.UseEventBus(d.bus)

	apiServer, err := server.NewAPIServer(d.manager, d.store, d.runtimeInfo)
	if err != nil {
		return err
	}
	apiServer.SetEventBus(d.bus)
	d.apiServer = apiServer

	transport, err := apiServer.Prepare(ctx)
	if err != nil {
		return fmt.Errorf("daemon: prepare transport: %w", err)
	}

	serviceCtx, cancelServices := context.WithCancel(ctx)
	defer cancelServices()

	go apiServer.WSServer().Run(serviceCtx)
	go apiServer.WSServer().RunEvents(serviceCtx, d.bus)
	go d.manager.RunReaper(serviceCtx)

	port, err := apiServer.Start(ctx, transport)
	if err != nil {
		return err
	}

	apiServer.UpdateActualPort(ctx, port)
	d.runtimeInfo.SetPort(port)
	d.runtimeInfo.SetStartTime(time.Now())
	log.Printf("[Daemon] fabriclensd ready on port %d (auth required: %v)", port, apiServer.AuthRequired())

	select {
	case <-ctx.Done():
	case <-d.lifecycle.Done():
	}

	log.Printf("[Daemon] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Daemon] api server shutdown: %v", err)
	}

	cancelServices()
	d.bus.Shutdown()

	if d.ownsStore {
		if err := d.store.Close(); err != nil {
			log.Printf("[Daemon] close config store: %v", err)
		}
	}

	return nil
}

// Shutdown requests a graceful stop of a running daemon.
func (d *Daemon) Shutdown() {
	d.lifecycle.Shutdown()
}

// RuntimeInfo exposes the runtime metadata provider.
func (d *Daemon) RuntimeInfo() *RuntimeInfo {
	return d.runtimeInfo
}

// IsRunning reports whether a daemon for the given instance appears to be
// alive, based on the lock file. Stale lock files are removed.
func IsRunning(instanceName string) bool {
	paths := config.GetInstancePaths(instanceName)

	data, err := os.ReadFile(paths.Lock)
	if err != nil {
		return false
	}

	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		os.Remove(paths.Lock)
		return false
	}

	if !procutil.IsProcessAlive(pid) {
		os.Remove(paths.Lock)
		return false
	}

	return true
}

// RunningPID returns the PID recorded in the instance lock file, or 0 when
// no live daemon is found.
func RunningPID(instanceName string) int {
	if !IsRunning(instanceName) {
		return 0
	}

	paths := config.GetInstancePaths(instanceName)
	data, err := os.ReadFile(paths.Lock)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
