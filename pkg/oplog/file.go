package oplog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/moyu-x/file-sorter/pkg/logger"
)

// File 以 JSON Lines 格式保存的操作日志，每行一条记录
// 读写通过 .lock 文件加锁，避免多个进程同时改写
type File struct {
	path string
	lock *flock.Flock
}

func OpenFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("操作日志路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("创建操作日志目录失败: %w", err)
	}

	// 确保文件存在
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("打开操作日志失败: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	logger.Get().Debug().Str("path", path).Msg("打开操作日志")
	return &File{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Path 操作日志文件路径
func (l *File) Path() string {
	return l.path
}

func (l *File) Append(_ context.Context, op Operation) error {
	line, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("序列化操作记录失败: %w", err)
	}

	if err := l.lock.Lock(); err != nil {
		return fmt.Errorf("锁定操作日志失败: %w", err)
	}
	defer l.lock.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("打开操作日志失败: %w", err)
	}

	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("写入操作日志失败: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("刷新操作日志失败: %w", err)
	}
	return f.Close()
}

func (l *File) Recent(_ context.Context, n int) ([]Operation, error) {
	if err := l.lock.RLock(); err != nil {
		return nil, fmt.Errorf("锁定操作日志失败: %w", err)
	}
	defer l.lock.Unlock()

	ops, err := l.readAll()
	if err != nil {
		return nil, err
	}
	return newestFirst(ops, n), nil
}

func (l *File) RemoveTail(_ context.Context, n int) error {
	return l.rewrite(func(ops []Operation) []Operation {
		return dropTail(ops, n)
	})
}

func (l *File) Remove(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return l.rewrite(func(ops []Operation) []Operation {
		return dropIDs(ops, ids)
	})
}

func (l *File) Len(_ context.Context) (int, error) {
	if err := l.lock.RLock(); err != nil {
		return 0, fmt.Errorf("锁定操作日志失败: %w", err)
	}
	defer l.lock.Unlock()

	ops, err := l.readAll()
	if err != nil {
		return 0, err
	}
	return len(ops), nil
}

func (l *File) Close() error {
	return l.lock.Close()
}

// readAll 读取全部记录，跳过无法解析的行
func (l *File) readAll() ([]Operation, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取操作日志失败: %w", err)
	}

	var ops []Operation
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var op Operation
		if err := json.Unmarshal(line, &op); err != nil {
			logger.Get().Warn().Err(err).Str("path", l.path).Int("line", lineNo).Msg("跳过无法解析的操作记录")
			continue
		}
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("解析操作日志失败: %w", err)
	}
	return ops, nil
}

// rewrite 在锁内读取、过滤并通过临时文件原子替换日志
func (l *File) rewrite(filter func([]Operation) []Operation) error {
	if err := l.lock.Lock(); err != nil {
		return fmt.Errorf("锁定操作日志失败: %w", err)
	}
	defer l.lock.Unlock()

	ops, err := l.readAll()
	if err != nil {
		return err
	}
	ops = filter(ops)

	tmp, err := os.CreateTemp(filepath.Dir(l.path), filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, op := range ops {
		if err := enc.Encode(op); err != nil {
			tmp.Close()
			return fmt.Errorf("写入操作日志失败: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("写入操作日志失败: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("刷新操作日志失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("替换操作日志失败: %w", err)
	}
	return nil
}
