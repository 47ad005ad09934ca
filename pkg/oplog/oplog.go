package oplog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/moyu-x/file-sorter/internal"
)

const (
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// Operation 一次已执行的移动
type Operation struct {
	ID          string           `json:"id"`
	Source      string           `json:"source"`
	Destination string           `json:"destination"`
	Root        string           `json:"root,omitempty"` // 目标根目录，撤销时不会被删除
	Category    string           `json:"category,omitempty"`
	Outcome     internal.Outcome `json:"outcome"`
	Timestamp   time.Time        `json:"timestamp"`

	// CreatedDirs 移动时新建的目录，撤销时只清理这些目录
	CreatedDirs []string `json:"created_dirs,omitempty"`
}

// NewOperation 创建带唯一 ID 的操作记录
func NewOperation(source, destination, root, category string, outcome internal.Outcome) Operation {
	return Operation{
		ID:          uuid.NewString(),
		Source:      source,
		Destination: destination,
		Root:        root,
		Category:    category,
		Outcome:     outcome,
		Timestamp:   time.Now(),
	}
}

// Log 按执行顺序追加的操作日志
// 记录追加后不再修改或重排，只能从尾部移除（撤销时）
type Log interface {
	// Append 持久化一条记录后返回
	Append(ctx context.Context, op Operation) error
	// Recent 按时间倒序返回最近 n 条记录
	Recent(ctx context.Context, n int) ([]Operation, error)
	// RemoveTail 删除最近追加的 n 条记录
	RemoveTail(ctx context.Context, n int) error
	// Remove 按 ID 删除记录，其余记录保持原顺序
	Remove(ctx context.Context, ids []string) error
	Len(ctx context.Context) (int, error)
	Close() error
}

// Open 按后端类型打开操作日志
func Open(backend, path string) (Log, error) {
	switch backend {
	case BackendJSONL, "":
		return OpenFile(path)
	case BackendSQLite:
		return OpenSQLite(path)
	}
	return nil, fmt.Errorf("未知的操作日志类型: %q", backend)
}

// newestFirst 返回 ops 末尾 n 条的倒序副本
func newestFirst(ops []Operation, n int) []Operation {
	if n <= 0 {
		return nil
	}
	if n > len(ops) {
		n = len(ops)
	}
	out := make([]Operation, 0, n)
	for i := len(ops) - 1; i >= len(ops)-n; i-- {
		out = append(out, ops[i])
	}
	return out
}

func dropTail(ops []Operation, n int) []Operation {
	if n <= 0 {
		return ops
	}
	if n > len(ops) {
		n = len(ops)
	}
	return ops[:len(ops)-n]
}

func dropIDs(ops []Operation, ids []string) []Operation {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := make([]Operation, 0, len(ops))
	for _, op := range ops {
		if !drop[op.ID] {
			kept = append(kept, op)
		}
	}
	return kept
}
