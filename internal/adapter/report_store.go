package adapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	m "github.com/openshift-eng/mutest/internal/model"
)

// Artifact file names inside a reports directory.
const (
	ManifestFileName = "manifest.json"
	ResultsFileName  = "results.jsonl"
	ScoreFileName    = "score.json"
)

// ReportStore reads and writes the JSON artifacts of a run: the mutation
// manifest, the incremental results log, and the final score report.
type ReportStore interface {
	Dir() m.Path
	WriteManifest(manifest m.Manifest) error
	LoadManifest() (m.Manifest, error)
	AppendResult(res m.MutantResult) error
	ResetResults() error
	LoadResults() ([]m.MutantResult, error)
	WriteScore(report m.ScoreReport) error
	LoadScore() (m.ScoreReport, error)
}

// FileReportStore keeps run artifacts as JSON files under one directory.
type FileReportStore struct {
	dir m.Path
}

// NewFileReportStore creates the reports directory if needed and returns a
// store rooted there.
func NewFileReportStore(dir m.Path) (*FileReportStore, error) {
	if err := os.MkdirAll(string(dir), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}

	return &FileReportStore{dir: dir}, nil
}

// Dir returns the directory the store writes into.
func (s *FileReportStore) Dir() m.Path {
	return s.dir
}

func (s *FileReportStore) path(name string) string {
	return filepath.Join(string(s.dir), name)
}

// WriteManifest stores the manifest as indented JSON.
func (s *FileReportStore) WriteManifest(manifest m.Manifest) error {
	return s.writeJSON(ManifestFileName, manifest)
}

// LoadManifest reads a previously written manifest.
func (s *FileReportStore) LoadManifest() (m.Manifest, error) {
	var manifest m.Manifest
	err := s.readJSON(ManifestFileName, &manifest)

	return manifest, err
}

// AppendResult adds one result line to the results log. Each line is a
// complete JSON object, so the log stays usable after a crash.
func (s *FileReportStore) AppendResult(res m.MutantResult) error {
	f, err := os.OpenFile(s.path(ResultsFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("failed to open results log: %w", err)
	}

	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(res); err != nil {
		return fmt.Errorf("failed to append result %s: %w", res.MutationID, err)
	}

	return nil
}

// ResetResults truncates the results log. Called when a run starts from
// scratch rather than resuming, so stale lines never mix with new ones.
func (s *FileReportStore) ResetResults() error {
	if err := os.WriteFile(s.path(ResultsFileName), nil, 0o640); err != nil {
		return fmt.Errorf("failed to reset results log: %w", err)
	}

	return nil
}

// LoadResults reads every line of the results log.
func (s *FileReportStore) LoadResults() ([]m.MutantResult, error) {
	f, err := os.Open(s.path(ResultsFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open results log: %w", err)
	}

	defer func() { _ = f.Close() }()

	var results []m.MutantResult

	dec := json.NewDecoder(f)
	for {
		var res m.MutantResult
		if err := dec.Decode(&res); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, fmt.Errorf("failed to decode results log: %w", err)
		}

		results = append(results, res)
	}

	return results, nil
}

// WriteScore stores the final report as indented JSON.
func (s *FileReportStore) WriteScore(report m.ScoreReport) error {
	return s.writeJSON(ScoreFileName, report)
}

// LoadScore reads a previously written score report.
func (s *FileReportStore) LoadScore() (m.ScoreReport, error) {
	var report m.ScoreReport
	err := s.readJSON(ScoreFileName, &report)

	return report, err
}

func (s *FileReportStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	data = append(data, '\n')

	if err := os.WriteFile(s.path(name), data, 0o640); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	return nil
}

func (s *FileReportStore) readJSON(name string, v any) error {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}

	return nil
}
