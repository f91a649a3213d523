package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// lifecycle coordinates shutdown signalling across daemon services.
type lifecycle struct {
	shutdownOnce sync.Once
	shutdownChan chan struct{}
}

func newLifecycle() *lifecycle {
	return &lifecycle{shutdownChan: make(chan struct{})}
}

// Done returns a channel that is closed when the lifecycle is shutting down.
func (l *lifecycle) Done() <-chan struct{} {
	return l.shutdownChan
}

// Shutdown signals all listeners that the lifecycle is terminating.
func (l *lifecycle) Shutdown() {
	l.shutdownOnce.Do(func() { close(l.shutdownChan) })
}

// writePIDFile writes the given PID into the provided file path with secure permissions.
func writePIDFile(pidFile string, pid int) error {
	if pidFile == "" {
		return fmt.Errorf("daemon: pid file path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(pidFile), 0o755); err != nil {
		return fmt.Errorf("daemon: create pid directory: %w", err)
	}

	data := []byte(strconv.Itoa(pid))
	if err := os.WriteFile(pidFile, data, 0o600); err != nil {
		return fmt.Errorf("daemon: write pid file: %w", err)
	}

	return nil
}

// removePIDFile removes the pid file if it exists.
func removePIDFile(pidFile string) {
	if pidFile == "" {
		return
	}
	_ = os.Remove(pidFile)
}
