// Package domain provides the core mutation-testing logic for mutest.
package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/openshift-eng/mutest/internal/adapter"
	m "github.com/openshift-eng/mutest/internal/model"
)

// ScanFilter narrows the set of source files selected for mutation.
type ScanFilter struct {
	// Controller restricts scanning to files whose relative path contains
	// the given substring. Empty means no restriction.
	Controller string

	// Exclude holds regular expressions matched against the slash-separated
	// relative path of each candidate file.
	Exclude []string
}

// Scanner discovers the controller source files eligible for mutation under
// an operator repository root.
type Scanner interface {
	Scan(root m.Path, filter ScanFilter) ([]m.SourceFile, error)
}

type scanner struct {
	adapter.SourceFSAdapter
}

// NewScanner creates a Scanner backed by the given filesystem adapter.
func NewScanner(fsAdapter adapter.SourceFSAdapter) Scanner {
	return &scanner{SourceFSAdapter: fsAdapter}
}

// skippedDirs are never descended into during a scan.
var skippedDirs = map[string]bool{
	"vendor":       true,
	"third_party":  true,
	"node_modules": true,
	".git":         true,
	"testdata":     true,
}

// generatedHeader matches the marker that Kubernetes code generators place
// ahead of the package clause.
var generatedHeader = regexp.MustCompile(`(?m)^// Code generated .* DO NOT EDIT\.$`)

// Scan walks the repository root and returns eligible controller sources
// sorted by relative path. The returned paths are slash-separated and
// relative to root so manifests stay stable across machines.
func (s *scanner) Scan(root m.Path, filter ScanFilter) ([]m.SourceFile, error) {
	info, err := s.FileInfo(root)
	if err != nil {
		return nil, fmt.Errorf("scan root %s: %w", root, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", root)
	}

	excludes, err := compileExcludes(filter.Exclude)
	if err != nil {
		return nil, err
	}

	var files []m.SourceFile

	err = s.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if skippedDirs[info.Name()] {
				return filepath.SkipDir
			}

			return nil
		}

		rel, err := filepath.Rel(string(root), path)
		if err != nil {
			return err
		}

		rel = filepath.ToSlash(rel)

		if !eligibleSourceName(rel) {
			return nil
		}

		if filter.Controller != "" && !strings.Contains(rel, filter.Controller) {
			return nil
		}

		for _, re := range excludes {
			if re.MatchString(rel) {
				slog.Debug("Excluding source by pattern", "file", rel, "pattern", re.String())
				return nil
			}
		}

		content, err := s.ReadFile(m.Path(path))
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}

		if isGeneratedSource(content) {
			slog.Debug("Skipping generated source", "file", rel)
			return nil
		}

		files = append(files, m.SourceFile{
			Path:   m.Path(rel),
			Digest: contentDigest(content),
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	slog.Debug("Discovered controller sources", "root", root, "count", len(files))

	return files, nil
}

// eligibleSourceName reports whether a relative path names a non-test,
// non-generated Go file inside a controller tree.
func eligibleSourceName(rel string) bool {
	base := rel
	if idx := strings.LastIndex(rel, "/"); idx >= 0 {
		base = rel[idx+1:]
	}

	if !strings.HasSuffix(base, ".go") || strings.HasSuffix(base, "_test.go") {
		return false
	}

	if strings.HasPrefix(base, "zz_generated") || strings.HasSuffix(base, "_generated.go") {
		return false
	}

	return inControllerTree(rel)
}

// inControllerTree reports whether any path segment mentions a controller.
// This covers both controllers/ packages and files such as foo_controller.go
// living outside one.
func inControllerTree(rel string) bool {
	for _, segment := range strings.Split(rel, "/") {
		if strings.Contains(segment, "controller") {
			return true
		}
	}

	return false
}

// isGeneratedSource detects the DO NOT EDIT marker in the comment block
// preceding the package clause.
func isGeneratedSource(content []byte) bool {
	head := content
	if idx := bytes.Index(content, []byte("\npackage ")); idx >= 0 {
		head = content[:idx]
	}

	return generatedHeader.Match(head)
}

// contentDigest returns the hex-encoded sha256 of a file body.
func contentDigest(content []byte) string {
	sum := sha256.Sum256(content)

	return hex.EncodeToString(sum[:])
}

func compileExcludes(patterns []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))

	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}

		res = append(res, re)
	}

	return res, nil
}
