package domain

import (
	"context"
	"fmt"
	"go/token"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/sync/errgroup"

	"github.com/openshift-eng/mutest/internal/adapter"
	"github.com/openshift-eng/mutest/internal/domain/operators"
	m "github.com/openshift-eng/mutest/internal/model"
)

// GenerateArgs carries one generation request.
type GenerateArgs struct {
	Root m.Path

	// Files are the scanner's eligible sources, relative to Root.
	Files []m.SourceFile

	// Categories restricts the manifest to these operator categories.
	// Empty means all of them.
	Categories []m.Category

	// Workers bounds how many files are analyzed concurrently.
	Workers int
}

// Generator turns eligible source files into an ordered mutation manifest.
type Generator interface {
	Generate(ctx context.Context, args GenerateArgs) (m.Manifest, error)
}

type generator struct {
	adapter.SourceFSAdapter
	adapter.GoFileAdapter

	cache *adapter.GenCache
}

// NewGenerator creates a Generator. The cache may be nil, in which case
// every file is re-analyzed.
func NewGenerator(fsAdapter adapter.SourceFSAdapter, goAdapter adapter.GoFileAdapter, cache *adapter.GenCache) Generator {
	return &generator{
		SourceFSAdapter: fsAdapter,
		GoFileAdapter:   goAdapter,
		cache:           cache,
	}
}

// Generate analyzes every file with the full operator set and assembles the
// manifest. Candidates are generated for all categories regardless of the
// requested filter so cached entries and mutation IDs stay stable across
// differently filtered runs; the filter is applied afterwards.
func (g *generator) Generate(ctx context.Context, args GenerateArgs) (m.Manifest, error) {
	perFile := make([][]m.Mutation, len(args.Files))
	skippedPerFile := make([]*m.SkippedFile, len(args.Files))

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(normalizeWorkers(args.Workers))

	for i, file := range args.Files {
		i, file := i, file
		grp.Go(func() error {
			if err := grpCtx.Err(); err != nil {
				return err
			}

			mutations, skipped, err := g.fileMutations(args.Root, file)
			if err != nil {
				return err
			}

			perFile[i] = mutations
			skippedPerFile[i] = skipped

			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return m.Manifest{}, err
	}

	var manifest m.Manifest

	keep := categorySet(args.Categories)

	for i := range args.Files {
		if skippedPerFile[i] != nil {
			manifest.SkippedFiles = append(manifest.SkippedFiles, *skippedPerFile[i])
			continue
		}

		for _, mu := range perFile[i] {
			if keep != nil {
				if _, ok := keep[mu.Category]; !ok {
					continue
				}
			}

			manifest.Mutations = append(manifest.Mutations, mu)
		}
	}

	sortManifest(manifest.Mutations)

	manifest.TotalMutations = len(manifest.Mutations)

	if manifest.TotalMutations == 0 {
		return m.Manifest{}, fmt.Errorf("%w: no candidates produced for %d source files",
			m.ErrGenerationFailure, len(args.Files))
	}

	slog.Debug("Generated mutation manifest",
		"files", len(args.Files),
		"mutations", manifest.TotalMutations,
		"skipped", len(manifest.SkippedFiles))

	return manifest, nil
}

// fileMutations produces the complete, ordered candidate list for one file.
// A parse failure is reported as a skip, not an error.
func (g *generator) fileMutations(root m.Path, file m.SourceFile) ([]m.Mutation, *m.SkippedFile, error) {
	if g.cache != nil {
		if cached, ok := g.cache.Get(file.Path, file.Digest); ok {
			slog.Debug("Reusing cached mutations", "file", file.Path, "count", len(cached))

			return cached, nil, nil
		}
	}

	fullPath := m.Path(filepath.Join(string(root), filepath.FromSlash(string(file.Path))))

	content, err := g.ReadFile(fullPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", file.Path, err)
	}

	fset := token.NewFileSet()

	parsed, err := g.Parse(fset, string(file.Path), content)
	if err != nil {
		slog.Warn("Skipping unparsable source", "file", file.Path, "error", err)

		return nil, &m.SkippedFile{File: file.Path, Reason: err.Error()}, nil
	}

	ignores := buildIgnoreIndex(parsed, fset, content)

	var candidates []m.Mutation

	for _, op := range operators.All() {
		category := op.Category()

		for _, site := range op.Sites(parsed, fset, content) {
			if ignores.ignoredAt(category, site.Line) {
				continue
			}

			candidates = append(candidates, m.Mutation{
				Category:    category,
				File:        file.Path,
				Line:        site.Line,
				Column:      site.Column,
				Description: site.Description,
				Anchor:      site.Anchor,
				Replacement: site.Replacement,
				StartOffset: site.StartOffset,
				EndOffset:   site.EndOffset,
				Diff:        diffPreview(file.Path, content, site),
			})
		}
	}

	candidates = dedupeMutations(candidates)
	assignIdentity(candidates)

	if g.cache != nil {
		if err := g.cache.Put(file.Path, file.Digest, candidates); err != nil {
			slog.Warn("Failed to cache mutations", "file", file.Path, "error", err)
		}
	}

	return candidates, nil, nil
}

// dedupeMutations collapses candidates that share span, category and
// replacement. Different operators may target the same expression.
func dedupeMutations(mutations []m.Mutation) []m.Mutation {
	type key struct {
		start       int
		end         int
		category    m.Category
		replacement string
	}

	seen := make(map[key]struct{}, len(mutations))
	out := mutations[:0]

	for _, mu := range mutations {
		k := key{mu.StartOffset, mu.EndOffset, mu.Category, mu.Replacement}
		if _, ok := seen[k]; ok {
			continue
		}

		seen[k] = struct{}{}
		out = append(out, mu)
	}

	return out
}

// assignIdentity orders one file's candidates and derives their IDs. The
// sequence index separates sibling mutations at the same location, such as
// the alternative operators of one arithmetic expression.
func assignIdentity(mutations []m.Mutation) {
	rank := categoryRank()

	sort.SliceStable(mutations, func(i, j int) bool {
		a, b := mutations[i], mutations[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		if rank[a.Category] != rank[b.Category] {
			return rank[a.Category] < rank[b.Category]
		}

		return a.Replacement < b.Replacement
	})

	type location struct {
		line     int
		column   int
		category m.Category
	}

	seq := make(map[location]int, len(mutations))

	for i := range mutations {
		mu := &mutations[i]
		loc := location{mu.Line, mu.Column, mu.Category}

		mu.Seq = seq[loc]
		seq[loc]++

		mu.ID = m.MutationID(mu.File, mu.Line, mu.Column, mu.StartOffset, mu.EndOffset, mu.Category, mu.Seq)
	}
}

// sortManifest fixes the global manifest order: file, then line, column,
// category and sequence.
func sortManifest(mutations []m.Mutation) {
	rank := categoryRank()

	sort.SliceStable(mutations, func(i, j int) bool {
		a, b := mutations[i], mutations[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		if rank[a.Category] != rank[b.Category] {
			return rank[a.Category] < rank[b.Category]
		}

		return a.Seq < b.Seq
	})
}

func categoryRank() map[m.Category]int {
	rank := make(map[m.Category]int)

	for i, c := range m.AllCategories() {
		rank[c] = i
	}

	return rank
}

func categorySet(categories []m.Category) map[m.Category]struct{} {
	if len(categories) == 0 {
		return nil
	}

	set := make(map[m.Category]struct{}, len(categories))
	for _, c := range categories {
		set[c] = struct{}{}
	}

	return set
}

func normalizeWorkers(workers int) int {
	if workers <= 0 {
		return 1
	}

	return workers
}

// diffPreview renders a short unified diff of the mutation applied to the
// original file content.
func diffPreview(file m.Path, original []byte, site operators.Site) string {
	mutated := spliceSpan(original, site.StartOffset, site.EndOffset, site.Replacement)

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(original)),
		B:        difflib.SplitLines(string(mutated)),
		FromFile: "a/" + string(file),
		ToFile:   "b/" + string(file),
		Context:  2,
	})
	if err != nil {
		return ""
	}

	return diff
}
