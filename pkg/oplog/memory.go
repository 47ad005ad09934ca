package oplog

import (
	"context"
	"sync"
)

// Memory 内存中的操作日志，用于测试和预览
type Memory struct {
	mu  sync.Mutex
	ops []Operation
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(_ context.Context, op Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
	return nil
}

func (m *Memory) Recent(_ context.Context, n int) ([]Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return newestFirst(m.ops, n), nil
}

func (m *Memory) RemoveTail(_ context.Context, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = dropTail(m.ops, n)
	return nil
}

func (m *Memory) Remove(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = dropIDs(m.ops, ids)
	return nil
}

func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ops), nil
}

// All 按追加顺序返回所有记录
func (m *Memory) All() []Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Operation(nil), m.ops...)
}

func (m *Memory) Close() error {
	return nil
}
