package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshift-eng/mutest/internal/adapter"
	m "github.com/openshift-eng/mutest/internal/model"
)

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanner_FindsControllerSources(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "controllers/foo_controller.go", "package controllers\n")
	writeSource(t, root, "controllers/bar_controller.go", "package controllers\n")
	writeSource(t, root, "internal/controller/baz.go", "package controller\n")
	writeSource(t, root, "pkg/util/helper.go", "package util\n")
	writeSource(t, root, "machine_controller.go", "package main\n")

	scanner := NewScanner(adapter.NewLocalSourceFSAdapter())

	files, err := scanner.Scan(m.Path(root), ScanFilter{})
	require.NoError(t, err)

	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, string(f.Path))
	}

	assert.Equal(t, []string{
		"controllers/bar_controller.go",
		"controllers/foo_controller.go",
		"internal/controller/baz.go",
		"machine_controller.go",
	}, paths)
}

func TestScanner_ComputesContentDigest(t *testing.T) {
	root := t.TempDir()
	content := "package controllers\n\nfunc reconcile() {}\n"
	writeSource(t, root, "controllers/app.go", content)

	scanner := NewScanner(adapter.NewLocalSourceFSAdapter())

	files, err := scanner.Scan(m.Path(root), ScanFilter{})
	require.NoError(t, err)
	require.Len(t, files, 1)

	sum := sha256.Sum256([]byte(content))
	assert.Equal(t, hex.EncodeToString(sum[:]), files[0].Digest)
}

func TestScanner_SkipsTestsAndGeneratedFiles(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "controllers/app.go", "package controllers\n")
	writeSource(t, root, "controllers/app_test.go", "package controllers\n")
	writeSource(t, root, "controllers/zz_generated.deepcopy.go", "package controllers\n")
	writeSource(t, root, "controllers/types_generated.go", "package controllers\n")
	writeSource(t, root, "controllers/client.go",
		"// Code generated by client-gen. DO NOT EDIT.\n\npackage controllers\n")
	writeSource(t, root, "controllers/notes.txt", "not go\n")

	scanner := NewScanner(adapter.NewLocalSourceFSAdapter())

	files, err := scanner.Scan(m.Path(root), ScanFilter{})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, m.Path("controllers/app.go"), files[0].Path)
}

func TestScanner_SkipsVendoredTrees(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "controllers/app.go", "package controllers\n")
	writeSource(t, root, "vendor/controllers/dep.go", "package controllers\n")
	writeSource(t, root, "third_party/controllers/dep.go", "package controllers\n")
	writeSource(t, root, "controllers/testdata/fixture_controller.go", "package fixture\n")

	scanner := NewScanner(adapter.NewLocalSourceFSAdapter())

	files, err := scanner.Scan(m.Path(root), ScanFilter{})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, m.Path("controllers/app.go"), files[0].Path)
}

func TestScanner_ControllerFilter(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "controllers/machine_controller.go", "package controllers\n")
	writeSource(t, root, "controllers/cluster_controller.go", "package controllers\n")

	scanner := NewScanner(adapter.NewLocalSourceFSAdapter())

	files, err := scanner.Scan(m.Path(root), ScanFilter{Controller: "machine"})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, m.Path("controllers/machine_controller.go"), files[0].Path)
}

func TestScanner_ExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "controllers/machine_controller.go", "package controllers\n")
	writeSource(t, root, "controllers/suite_helpers_controller.go", "package controllers\n")

	scanner := NewScanner(adapter.NewLocalSourceFSAdapter())

	files, err := scanner.Scan(m.Path(root), ScanFilter{Exclude: []string{`suite_.*\.go$`}})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, m.Path("controllers/machine_controller.go"), files[0].Path)
}

func TestScanner_InvalidExcludePattern(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "controllers/app.go", "package controllers\n")

	scanner := NewScanner(adapter.NewLocalSourceFSAdapter())

	_, err := scanner.Scan(m.Path(root), ScanFilter{Exclude: []string{"(unclosed"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid exclude pattern")
}

func TestScanner_RootErrors(t *testing.T) {
	scanner := NewScanner(adapter.NewLocalSourceFSAdapter())

	_, err := scanner.Scan(m.Path(filepath.Join(t.TempDir(), "missing")), ScanFilter{})
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "root.go")
	require.NoError(t, os.WriteFile(file, []byte("package x\n"), 0o644))

	_, err = scanner.Scan(m.Path(file), ScanFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestScanner_EmptyTree(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "pkg/util/helper.go", "package util\n")

	scanner := NewScanner(adapter.NewLocalSourceFSAdapter())

	files, err := scanner.Scan(m.Path(root), ScanFilter{})
	require.NoError(t, err)
	assert.Empty(t, files)
}
