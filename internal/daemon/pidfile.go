// Package daemon tracks the `revu serve` process through a PID file so a
// second server refuses to start and `revu serve stop` can find it.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrAlreadyRunning is returned by Acquire when a live process owns the file.
	ErrAlreadyRunning = errors.New("server already running")
	// ErrNotRunning is returned by Stop when no live process owns the file.
	ErrNotRunning = errors.New("server not running")
)

// PIDFile manages a PID file for daemon process tracking.
type PIDFile struct {
	Path string
}

// NewPIDFile creates a PIDFile manager for the given path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// WritePID writes the given PID to the file.
func (p *PIDFile) WritePID(pid int) error {
	return os.WriteFile(p.Path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// Read reads the PID from the file.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file content: %w", err)
	}
	return pid, nil
}

// Acquire records the current process in the file. A stale file left by
// a dead process is taken over.
func (p *PIDFile) Acquire() error {
	if pid, running := p.IsRunning(); running && pid != os.Getpid() {
		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}
	return p.WritePID(os.Getpid())
}

// Release removes the file if it still names the current process.
func (p *PIDFile) Release() error {
	pid, err := p.Read()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if pid != os.Getpid() {
		return nil
	}
	return os.Remove(p.Path)
}

// Stop asks the recorded process to terminate and waits up to timeout
// before killing it. The file is removed once the process is gone.
func (p *PIDFile) Stop(timeout time.Duration) error {
	pid, running := p.IsRunning()
	if !running {
		if pid != 0 {
			_ = os.Remove(p.Path)
		}
		return ErrNotRunning
	}
	if err := p.Signal(termSignal()); err != nil {
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, alive := p.IsRunning(); !alive {
			_ = os.Remove(p.Path)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	if err := p.Signal(killSignal()); err != nil {
		return fmt.Errorf("kill pid %d: %w", pid, err)
	}
	_ = os.Remove(p.Path)
	return nil
}
