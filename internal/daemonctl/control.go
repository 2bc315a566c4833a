// Package daemonctl controls a running scenecast daemon from the CLI using the
// lock and pid files it keeps in paths.log_dir.
package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"scenecast/internal/daemon"
	"scenecast/internal/daemonrun"
)

// ErrDaemonNotRunning indicates no process holds the daemon lock.
var ErrDaemonNotRunning = errors.New("daemon not running")

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// Paths returns the lock and pid file locations for a log directory.
func Paths(logDir string) (lockPath, pidPath string) {
	return filepath.Join(logDir, daemon.LockFileName), filepath.Join(logDir, daemonrun.PIDFileName)
}

// ProcessInfo reports whether a daemon holds the lock and its pid when the
// pid file is readable.
func ProcessInfo(logDir string) (bool, int, error) {
	lockPath, pidPath := Paths(logDir)
	running, err := lockHeld(lockPath)
	if err != nil || !running {
		return false, 0, err
	}
	pid, err := readPID(pidPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return true, 0, err
	}
	return true, pid, nil
}

// WaitForShutdown polls the daemon lock until it is released or timeout elapses.
func WaitForShutdown(logDir string, timeout time.Duration) error {
	lockPath, _ := Paths(logDir)
	deadline := time.Now().Add(timeout)
	for {
		held, err := lockHeld(lockPath)
		if err != nil {
			return err
		}
		if !held {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("daemon did not stop within %s", timeout)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

// StopAndTerminate sends SIGTERM to the daemon and force-kills it if the lock
// is still held after gracePeriod.
func StopAndTerminate(logDir string, gracePeriod time.Duration) (StopResult, error) {
	running, pid, err := ProcessInfo(logDir)
	if err != nil {
		return StopResult{}, err
	}
	if !running {
		return StopResult{}, ErrDaemonNotRunning
	}
	if pid <= 0 {
		return StopResult{}, fmt.Errorf("daemon is running but pid file is missing in %s", logDir)
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return StopResult{}, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return StopResult{}, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}
	result := StopResult{PID: pid}
	if WaitForShutdown(logDir, gracePeriod) == nil {
		return result, nil
	}
	if _, err := ForceKillProcess(logDir, pid); err != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", err)
	}
	result.ForcedKill = true
	return result, nil
}

// ForceKillProcess sends SIGKILL to the daemon and cleans up its pid file.
// The pid file wins over fallbackPID when it is readable.
func ForceKillProcess(logDir string, fallbackPID int) (int, error) {
	_, pidPath := Paths(logDir)
	pid := fallbackPID
	if parsed, err := readPID(pidPath); err == nil && parsed > 0 {
		pid = parsed
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, err
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	return pid, nil
}

func lockHeld(lockPath string) (bool, error) {
	if _, err := os.Stat(lockPath); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe daemon lock: %w", err)
	}
	if locked {
		_ = lock.Unlock()
		return false, nil
	}
	return true, nil
}

func readPID(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse daemon pid file %q: %w", pidPath, err)
	}
	return pid, nil
}
