// Package daemon tracks a background `revdash serve` process.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// PIDFile records a background server. The first line holds the PID, the
// optional second line the address it listens on.
type PIDFile struct {
	Path string
}

// NewPIDFile creates a PIDFile manager for the given path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// Write records the current process listening on addr.
func (p *PIDFile) Write(addr string) error {
	return p.WriteRecord(os.Getpid(), addr)
}

// WriteRecord records pid listening on addr.
func (p *PIDFile) WriteRecord(pid int, addr string) error {
	content := strconv.Itoa(pid) + "\n"
	if addr != "" {
		content += addr + "\n"
	}
	return os.WriteFile(p.Path, []byte(content), 0o644)
}

func (p *PIDFile) lines() ([]string, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n"), nil
}

// Read reads the PID from the file.
func (p *PIDFile) Read() (int, error) {
	lines, err := p.lines()
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID file content: %q", lines[0])
	}
	return pid, nil
}

// Addr returns the recorded listen address, or "" if none was recorded.
func (p *PIDFile) Addr() string {
	lines, err := p.lines()
	if err != nil || len(lines) < 2 {
		return ""
	}
	return strings.TrimSpace(lines[1])
}

// Remove deletes the PID file. A missing file is not an error.
func (p *PIDFile) Remove() error {
	if err := os.Remove(p.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// WaitExit polls until the recorded process is gone or timeout elapses.
// It reports whether the process exited.
func (p *PIDFile) WaitExit(timeout, interval time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if _, running := p.IsRunning(); !running {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(interval)
	}
}
