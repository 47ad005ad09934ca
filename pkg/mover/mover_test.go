package mover

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/moyu-x/file-sorter/internal"
)

func setup(t *testing.T) (afero.Fs, string, string) {
	t.Helper()
	tempDir := t.TempDir()
	sourceDir := filepath.Join(tempDir, "source")
	destDir := filepath.Join(tempDir, "dest")
	if err := os.MkdirAll(sourceDir, 0755); err != nil {
		t.Fatalf("Failed to create source directory: %v", err)
	}
	return afero.NewOsFs(), sourceDir, destDir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

func TestMover_Move(t *testing.T) {
	fs, sourceDir, destDir := setup(t)
	src := filepath.Join(sourceDir, "file.txt")
	writeFile(t, src, "test content")

	m := New(fs, internal.StrategyRename, false)
	res, err := m.Move(src, destDir)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}

	if res.Outcome != internal.OutcomeMoved {
		t.Errorf("Expected outcome moved, got %s", res.Outcome)
	}
	if res.Destination != filepath.Join(destDir, "file.txt") {
		t.Errorf("Unexpected destination %s", res.Destination)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("Expected source file to be moved (no longer exist)")
	}
	if got := readFile(t, res.Destination); got != "test content" {
		t.Errorf("Expected destination content to match source, got %q", got)
	}
}

func TestMover_Move_Skip(t *testing.T) {
	fs, sourceDir, destDir := setup(t)
	src := filepath.Join(sourceDir, "file.txt")
	writeFile(t, src, "new")
	writeFile(t, filepath.Join(destDir, "file.txt"), "existing")

	res, err := New(fs, internal.StrategySkip, false).Move(src, destDir)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}

	if res.Outcome != internal.OutcomeSkipped {
		t.Errorf("Expected outcome skipped, got %s", res.Outcome)
	}
	if got := readFile(t, src); got != "new" {
		t.Error("Expected source to be left untouched")
	}
	if got := readFile(t, filepath.Join(destDir, "file.txt")); got != "existing" {
		t.Error("Expected destination to be left untouched")
	}
}

func TestMover_Move_Rename(t *testing.T) {
	fs, sourceDir, destDir := setup(t)
	src := filepath.Join(sourceDir, "file.txt")
	writeFile(t, src, "new")
	writeFile(t, filepath.Join(destDir, "file.txt"), "existing")
	writeFile(t, filepath.Join(destDir, "file_1.txt"), "existing too")

	res, err := New(fs, internal.StrategyRename, false).Move(src, destDir)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}

	want := filepath.Join(destDir, "file_2.txt")
	if res.Outcome != internal.OutcomeRenamed || res.Destination != want {
		t.Errorf("Expected renamed to %s, got %s (%s)", want, res.Destination, res.Outcome)
	}
	if got := readFile(t, want); got != "new" {
		t.Errorf("Expected renamed file content, got %q", got)
	}
	if got := readFile(t, filepath.Join(destDir, "file.txt")); got != "existing" {
		t.Error("Expected original destination to be preserved")
	}
}

func TestMover_Move_RenameWithoutExtension(t *testing.T) {
	fs, sourceDir, destDir := setup(t)
	src := filepath.Join(sourceDir, "README")
	writeFile(t, src, "new")
	writeFile(t, filepath.Join(destDir, "README"), "existing")

	res, err := New(fs, internal.StrategyRename, false).Move(src, destDir)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if res.Destination != filepath.Join(destDir, "README_1") {
		t.Errorf("Unexpected destination %s", res.Destination)
	}
}

func TestMover_Move_Replace(t *testing.T) {
	fs, sourceDir, destDir := setup(t)
	src := filepath.Join(sourceDir, "file.txt")
	writeFile(t, src, "new")
	writeFile(t, filepath.Join(destDir, "file.txt"), "existing")

	res, err := New(fs, internal.StrategyReplace, false).Move(src, destDir)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}

	if res.Outcome != internal.OutcomeReplaced {
		t.Errorf("Expected outcome replaced, got %s", res.Outcome)
	}
	if got := readFile(t, filepath.Join(destDir, "file.txt")); got != "new" {
		t.Errorf("Expected destination to hold the replacing content, got %q", got)
	}
	entries, _ := os.ReadDir(destDir)
	if len(entries) != 1 {
		t.Errorf("Expected exactly one file in destination, got %d", len(entries))
	}
}

func TestMover_Move_ReplaceDirectory(t *testing.T) {
	fs, sourceDir, destDir := setup(t)
	src := filepath.Join(sourceDir, "file.txt")
	writeFile(t, src, "new")
	if err := os.MkdirAll(filepath.Join(destDir, "file.txt"), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	_, err := New(fs, internal.StrategyReplace, false).Move(src, destDir)
	if !errors.Is(err, ErrNotAFile) {
		t.Errorf("Expected ErrNotAFile, got %v", err)
	}
	if got := readFile(t, src); got != "new" {
		t.Error("Expected source to be left untouched")
	}
}

func TestMover_Move_SkipIdentical(t *testing.T) {
	fs, sourceDir, destDir := setup(t)
	src := filepath.Join(sourceDir, "file.txt")
	writeFile(t, src, "same")
	writeFile(t, filepath.Join(destDir, "file.txt"), "same")

	m := New(fs, internal.StrategyRename, false)
	m.SkipIdentical = true

	res, err := m.Move(src, destDir)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if res.Outcome != internal.OutcomeSkipped {
		t.Errorf("Expected identical file to be skipped, got %s", res.Outcome)
	}

	other := filepath.Join(sourceDir, "other", "file.txt")
	writeFile(t, other, "different")
	res, err = m.Move(other, destDir)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if res.Outcome != internal.OutcomeRenamed {
		t.Errorf("Expected different content to be renamed, got %s", res.Outcome)
	}
}

func TestMover_Move_DryRun(t *testing.T) {
	fs, sourceDir, destDir := setup(t)
	first := filepath.Join(sourceDir, "a", "file.txt")
	second := filepath.Join(sourceDir, "b", "file.txt")
	writeFile(t, first, "first")
	writeFile(t, second, "second")

	m := New(fs, internal.StrategyRename, true)

	res, err := m.Move(first, destDir)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if res.Outcome != internal.OutcomeMoved || !res.DryRun {
		t.Errorf("Expected dry-run move, got %+v", res)
	}

	res, err = m.Move(second, destDir)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if res.Outcome != internal.OutcomeRenamed || res.Destination != filepath.Join(destDir, "file_1.txt") {
		t.Errorf("Expected preview to report the in-run collision, got %+v", res)
	}

	if _, err := os.Stat(destDir); !os.IsNotExist(err) {
		t.Error("Dry run must not create the destination directory")
	}
	if readFile(t, first) != "first" || readFile(t, second) != "second" {
		t.Error("Dry run must not touch source files")
	}
}

func TestMover_Move_SourceMissing(t *testing.T) {
	fs, sourceDir, destDir := setup(t)

	_, err := New(fs, internal.StrategyRename, false).Move(filepath.Join(sourceDir, "gone.txt"), destDir)
	if !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("Expected ErrSourceNotFound, got %v", err)
	}
}

func TestMover_Move_DestinationCreateFailure(t *testing.T) {
	fs, sourceDir, _ := setup(t)
	src := filepath.Join(sourceDir, "file.txt")
	writeFile(t, src, "content")

	// 目标目录的父路径是一个文件
	blocker := filepath.Join(sourceDir, "blocker")
	writeFile(t, blocker, "x")

	_, err := New(fs, internal.StrategyRename, false).Move(src, filepath.Join(blocker, "Documents"))
	if err == nil {
		t.Fatal("Expected error when destination directory cannot be created")
	}
	if got := readFile(t, src); got != "content" {
		t.Error("Expected source to be left untouched")
	}
}

func TestRelocate_MemMapFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/src/a.txt", []byte("a"), 0644)
	afero.WriteFile(fs, "/dst/a.txt", []byte("old"), 0644)

	if err := Relocate(fs, "/src/a.txt", "/dst/a.txt"); err != nil {
		t.Fatalf("Relocate() error = %v", err)
	}

	data, err := afero.ReadFile(fs, "/dst/a.txt")
	if err != nil || string(data) != "a" {
		t.Errorf("Expected overwritten destination, got %q (%v)", data, err)
	}
	if exists, _ := afero.Exists(fs, "/src/a.txt"); exists {
		t.Error("Expected source to be removed")
	}
}

func TestCopyFile_PreservesModTime(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/src/a.txt", []byte("a"), 0600)

	info, _ := fs.Stat("/src/a.txt")
	if err := copyFile(fs, "/src/a.txt", "/dst/a.txt"); err != nil {
		t.Fatalf("copyFile() error = %v", err)
	}

	copied, err := fs.Stat("/dst/a.txt")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if !copied.ModTime().Equal(info.ModTime()) {
		t.Error("Expected modification time to be preserved")
	}
}

func TestMover_Move_CreatedDirs(t *testing.T) {
	fs, sourceDir, destDir := setup(t)
	src := filepath.Join(sourceDir, "clip.mp4")
	writeFile(t, src, "video")

	target := filepath.Join(destDir, "Videos", "2024")
	res, err := New(fs, internal.StrategyRename, false).Move(src, target)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}

	want := []string{target, filepath.Join(destDir, "Videos"), destDir}
	if len(res.CreatedDirs) != len(want) {
		t.Fatalf("CreatedDirs = %v, want %v", res.CreatedDirs, want)
	}
	for i := range want {
		if res.CreatedDirs[i] != want[i] {
			t.Errorf("CreatedDirs[%d] = %s, want %s", i, res.CreatedDirs[i], want[i])
		}
	}

	// 目录已存在时不记录
	other := filepath.Join(sourceDir, "other.mp4")
	writeFile(t, other, "video")
	res, err = New(fs, internal.StrategyRename, false).Move(other, target)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if len(res.CreatedDirs) != 0 {
		t.Errorf("Expected no created dirs for existing destination, got %v", res.CreatedDirs)
	}
}

func TestMover_Move_DryRunCreatesNothing(t *testing.T) {
	fs, sourceDir, destDir := setup(t)
	src := filepath.Join(sourceDir, "file.txt")
	writeFile(t, src, "content")

	res, err := New(fs, internal.StrategyRename, true).Move(src, filepath.Join(destDir, "Documents"))
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if len(res.CreatedDirs) != 0 {
		t.Errorf("Expected no created dirs in dry run, got %v", res.CreatedDirs)
	}
}

// stuckFs 模拟跨设备移动且原文件无法删除
type stuckFs struct {
	afero.Fs
	stuck string
}

func (s *stuckFs) Rename(oldname, newname string) error {
	return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: errors.New("cross-device link")}
}

func (s *stuckFs) Remove(name string) error {
	if name == s.stuck {
		return &os.PathError{Op: "remove", Path: name, Err: os.ErrPermission}
	}
	return s.Fs.Remove(name)
}

func TestRelocate_RemoveSourceFailureRollsBack(t *testing.T) {
	mem := afero.NewMemMapFs()
	afero.WriteFile(mem, "/src/a.txt", []byte("a"), 0644)
	mem.MkdirAll("/dst", 0755)
	fs := &stuckFs{Fs: mem, stuck: "/src/a.txt"}

	err := Relocate(fs, "/src/a.txt", "/dst/a.txt")
	if err == nil {
		t.Fatal("Expected error when source cannot be removed")
	}
	if !errors.Is(err, os.ErrPermission) {
		t.Errorf("Expected wrapped permission error, got %v", err)
	}
	if !strings.Contains(err.Error(), "已删除复制到 /dst/a.txt 的副本") || !strings.Contains(err.Error(), "文件仍在 /src/a.txt") {
		t.Errorf("Expected error to describe rollback, got %q", err.Error())
	}
	if exists, _ := afero.Exists(mem, "/dst/a.txt"); exists {
		t.Error("Expected copied destination to be removed")
	}
	if data, _ := afero.ReadFile(mem, "/src/a.txt"); string(data) != "a" {
		t.Errorf("Expected source to be kept, got %q", data)
	}
}
