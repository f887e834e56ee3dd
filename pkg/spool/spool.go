// Package spool stores captured test-suite output on disk, one log per
// tested mutant, and hands back relocatable references for reports.
package spool

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// logDirName is the subdirectory created under the report directory.
const logDirName = "output"

// Spool persists raw test output keyed by mutation ID.
type Spool interface {
	// Put writes one mutant's output and returns a reference relative to
	// the spool's parent directory.
	Put(id string, output []byte) (string, error)

	// Get reads the output a previous Put stored under ref.
	Get(ref string) ([]byte, error)

	// Dir is the absolute directory holding the logs.
	Dir() string
}

type fileSpool struct {
	parent string
	dir    string
	mu     sync.Mutex
}

// New creates the log directory under parent and returns a Spool over it.
func New(parent string) (Spool, error) {
	dir := filepath.Join(parent, logDirName)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		slog.Error("failed to create spool directory", "path", dir, "error", err)
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}

	slog.Debug("created spool", "path", dir)

	return &fileSpool{parent: parent, dir: dir}, nil
}

// Put implements Spool.
func (s *fileSpool) Put(id string, output []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		return "", fmt.Errorf("empty spool id")
	}

	name := id + ".log"

	if err := os.WriteFile(filepath.Join(s.dir, name), output, 0o600); err != nil {
		slog.Error("failed to write spooled output", "id", id, "error", err)
		return "", fmt.Errorf("failed to write spooled output: %w", err)
	}

	slog.Debug("spooled output", "id", id, "bytes", len(output))

	return filepath.ToSlash(filepath.Join(logDirName, name)), nil
}

// Get implements Spool.
func (s *fileSpool) Get(ref string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clean := filepath.Clean(filepath.FromSlash(ref))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("spool ref %q escapes the report directory", ref)
	}

	content, err := os.ReadFile(filepath.Join(s.parent, clean))
	if err != nil {
		slog.Error("failed to read spooled output", "ref", ref, "error", err)
		return nil, fmt.Errorf("failed to read spooled output: %w", err)
	}

	return content, nil
}

// Dir implements Spool.
func (s *fileSpool) Dir() string {
	return s.dir
}
