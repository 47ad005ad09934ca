package oplog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/moyu-x/file-sorter/internal"
)

type opener func(t *testing.T, path string) Log

func backends() map[string]struct {
	open opener
	file string
} {
	return map[string]struct {
		open opener
		file string
	}{
		"jsonl": {
			open: func(t *testing.T, path string) Log {
				l, err := OpenFile(path)
				if err != nil {
					t.Fatalf("OpenFile() error = %v", err)
				}
				return l
			},
			file: "history.jsonl",
		},
		"sqlite": {
			open: func(t *testing.T, path string) Log {
				l, err := OpenSQLite(path)
				if err != nil {
					t.Fatalf("OpenSQLite() error = %v", err)
				}
				return l
			},
			file: "history.db",
		},
		"memory": {
			open: func(t *testing.T, path string) Log {
				return NewMemory()
			},
			file: "",
		},
	}
}

func appendN(t *testing.T, l Log, n int) []Operation {
	t.Helper()
	ops := make([]Operation, 0, n)
	for i := 0; i < n; i++ {
		op := NewOperation(
			fmt.Sprintf("/src/file%d.txt", i),
			fmt.Sprintf("/src/Documents/file%d.txt", i),
			"/src", "Documents", internal.OutcomeMoved,
		)
		if err := l.Append(context.Background(), op); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		ops = append(ops, op)
	}
	return ops
}

func ids(ops []Operation) []string {
	out := make([]string, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.ID)
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLog_RecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			l := b.open(t, filepath.Join(t.TempDir(), "log", b.file))
			defer l.Close()

			ops := appendN(t, l, 5)

			recent, err := l.Recent(ctx, 3)
			if err != nil {
				t.Fatalf("Recent() error = %v", err)
			}
			want := []string{ops[4].ID, ops[3].ID, ops[2].ID}
			if !equalIDs(ids(recent), want) {
				t.Errorf("Recent(3) = %v, want %v", ids(recent), want)
			}
			if recent[0].Source != ops[4].Source || recent[0].Outcome != internal.OutcomeMoved {
				t.Errorf("Unexpected record content: %+v", recent[0])
			}
			if recent[0].Root != "/src" || recent[0].Category != "Documents" {
				t.Errorf("Expected root and category to round trip, got %+v", recent[0])
			}

			all, err := l.Recent(ctx, 100)
			if err != nil {
				t.Fatalf("Recent() error = %v", err)
			}
			if len(all) != 5 {
				t.Errorf("Expected 5 records, got %d", len(all))
			}

			none, err := l.Recent(ctx, 0)
			if err != nil {
				t.Fatalf("Recent(0) error = %v", err)
			}
			if len(none) != 0 {
				t.Errorf("Expected no records for n=0, got %d", len(none))
			}
		})
	}
}

func TestLog_RemoveTail(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			l := b.open(t, filepath.Join(t.TempDir(), b.file))
			defer l.Close()

			ops := appendN(t, l, 4)

			if err := l.RemoveTail(ctx, 2); err != nil {
				t.Fatalf("RemoveTail() error = %v", err)
			}

			n, err := l.Len(ctx)
			if err != nil {
				t.Fatalf("Len() error = %v", err)
			}
			if n != 2 {
				t.Errorf("Expected 2 records, got %d", n)
			}

			recent, _ := l.Recent(ctx, 10)
			want := []string{ops[1].ID, ops[0].ID}
			if !equalIDs(ids(recent), want) {
				t.Errorf("Recent() = %v, want %v", ids(recent), want)
			}

			if err := l.RemoveTail(ctx, 10); err != nil {
				t.Fatalf("RemoveTail() error = %v", err)
			}
			if n, _ := l.Len(ctx); n != 0 {
				t.Errorf("Expected empty log, got %d", n)
			}
		})
	}
}

func TestLog_RemoveByID(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			l := b.open(t, filepath.Join(t.TempDir(), b.file))
			defer l.Close()

			ops := appendN(t, l, 4)

			if err := l.Remove(ctx, []string{ops[3].ID, ops[1].ID}); err != nil {
				t.Fatalf("Remove() error = %v", err)
			}
			if err := l.Remove(ctx, nil); err != nil {
				t.Fatalf("Remove(nil) error = %v", err)
			}

			recent, _ := l.Recent(ctx, 10)
			want := []string{ops[2].ID, ops[0].ID}
			if !equalIDs(ids(recent), want) {
				t.Errorf("Recent() = %v, want %v", ids(recent), want)
			}
		})
	}
}

func TestLog_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends() {
		if b.file == "" {
			continue
		}
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), b.file)

			l := b.open(t, path)
			ops := appendN(t, l, 3)
			if err := l.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}

			reopened := b.open(t, path)
			defer reopened.Close()

			recent, err := reopened.Recent(ctx, 3)
			if err != nil {
				t.Fatalf("Recent() error = %v", err)
			}
			want := []string{ops[2].ID, ops[1].ID, ops[0].ID}
			if !equalIDs(ids(recent), want) {
				t.Errorf("Recent() after reopen = %v, want %v", ids(recent), want)
			}
		})
	}
}

func TestFile_SkipsMalformedLines(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.jsonl")

	l, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer l.Close()

	ops := appendN(t, l, 1)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("Failed to open log: %v", err)
	}
	f.WriteString("{not json\n\n")
	f.Close()

	more := appendN(t, l, 1)

	recent, err := l.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	want := []string{more[0].ID, ops[0].ID}
	if !equalIDs(ids(recent), want) {
		t.Errorf("Recent() = %v, want %v", ids(recent), want)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(BackendJSONL, filepath.Join(dir, "a.jsonl"))
	if err != nil {
		t.Fatalf("Open(jsonl) error = %v", err)
	}
	if _, ok := l.(*File); !ok {
		t.Errorf("Expected *File, got %T", l)
	}
	l.Close()

	l, err = Open(BackendSQLite, filepath.Join(dir, "a.db"))
	if err != nil {
		t.Fatalf("Open(sqlite) error = %v", err)
	}
	if _, ok := l.(*SQLite); !ok {
		t.Errorf("Expected *SQLite, got %T", l)
	}
	l.Close()

	if _, err := Open("bolt", filepath.Join(dir, "a.bolt")); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestLog_CreatedDirsRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), b.file)
			l := b.open(t, path)

			created := NewOperation("/src/clip.mp4", "/src/Videos/2024/clip.mp4", "/src", "Videos", internal.OutcomeMoved)
			created.CreatedDirs = []string{"/src/Videos/2024", "/src/Videos"}
			plain := NewOperation("/src/a.txt", "/src/Documents/a.txt", "/src", "Documents", internal.OutcomeMoved)
			for _, op := range []Operation{created, plain} {
				if err := l.Append(ctx, op); err != nil {
					t.Fatalf("Append() error = %v", err)
				}
			}

			if b.file != "" {
				l.Close()
				l = b.open(t, path)
			}
			defer l.Close()

			recent, err := l.Recent(ctx, 2)
			if err != nil {
				t.Fatalf("Recent() error = %v", err)
			}
			if len(recent) != 2 {
				t.Fatalf("Expected 2 records, got %d", len(recent))
			}
			if len(recent[0].CreatedDirs) != 0 {
				t.Errorf("Expected no created dirs, got %v", recent[0].CreatedDirs)
			}
			if !equalIDs(recent[1].CreatedDirs, created.CreatedDirs) {
				t.Errorf("CreatedDirs = %v, want %v", recent[1].CreatedDirs, created.CreatedDirs)
			}
		})
	}
}
