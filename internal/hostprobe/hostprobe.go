// Package hostprobe implements the host probes rules evaluate against:
// filesystem stat and listing, one-shot shell commands with a bounded
// wall-clock timeout, and process-table lookup by exact name.
package hostprobe

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrTimeout is returned when a command probe exceeds its wall-clock
// bound. The rule layer treats it like any other probe failure.
var ErrTimeout = errors.New("command timed out")

// DefaultCommandTimeout bounds rule command probes.
const DefaultCommandTimeout = 10 * time.Second

// Host probes the local machine.
type Host struct {
	// CommandTimeout bounds Command. Zero means DefaultCommandTimeout.
	CommandTimeout time.Duration
}

func New() *Host {
	return &Host{CommandTimeout: DefaultCommandTimeout}
}

// FileExists reports whether a regular file exists at path. A directory
// at path is an error: the rule asked about the wrong filesystem type.
func (h *Host) FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, fmt.Errorf("is a directory: %s", path)
	}
	return true, nil
}

// ReadFile returns the content of a regular file.
func (h *Host) ReadFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DirExists reports whether a directory exists at path. A non-directory
// at path is an error.
func (h *Host) DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !info.IsDir() {
		return false, fmt.Errorf("not a directory: %s", path)
	}
	return true, nil
}

// ListDir returns the names of regular files directly under path,
// non-recursive.
func (h *Host) ListDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
