package undo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/moyu-x/file-sorter/pkg/logger"
	"github.com/moyu-x/file-sorter/pkg/mover"
	"github.com/moyu-x/file-sorter/pkg/oplog"
)

var (
	ErrConflict     = errors.New("撤销冲突")
	ErrInvalidCount = errors.New("撤销数量必须大于 0")
)

// Conflict 无法撤销的记录，保留在操作日志中以便重试
type Conflict struct {
	Operation oplog.Operation
	Err       error
}

// Result 撤销结果
type Result struct {
	Requested int
	Reversed  []oplog.Operation
	Conflicts []Conflict
}

// Engine 按时间倒序回滚操作日志中的移动
type Engine struct {
	fs  afero.Fs
	log oplog.Log
}

func New(fs afero.Fs, log oplog.Log) *Engine {
	return &Engine{fs: fs, log: log}
}

// Undo 回滚最近 count 条操作；单条失败不影响其他记录
// 只有成功回滚的记录会从日志中删除
func (e *Engine) Undo(ctx context.Context, count int) (*Result, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}

	ops, err := e.log.Recent(ctx, count)
	if err != nil {
		return nil, fmt.Errorf("读取操作日志失败: %w", err)
	}

	result := &Result{Requested: count}
	if len(ops) == 0 {
		logger.Get().Info().Msg("没有可撤销的操作")
		return result, nil
	}

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			break
		}
		if err := e.reverse(op); err != nil {
			result.Conflicts = append(result.Conflicts, Conflict{Operation: op, Err: err})
			logger.Get().Warn().
				Err(err).
				Str("source", op.Source).
				Str("destination", op.Destination).
				Msg("无法撤销该操作")
			continue
		}
		result.Reversed = append(result.Reversed, op)
	}

	if err := e.forget(ctx, ops, result.Reversed); err != nil {
		return result, err
	}

	logger.Get().Info().
		Int("reversed", len(result.Reversed)).
		Int("conflicts", len(result.Conflicts)).
		Msg("撤销完成")

	return result, ctx.Err()
}

// reverse 将文件从记录的目标位置移回原位置
func (e *Engine) reverse(op oplog.Operation) error {
	if !op.Outcome.Mutated() {
		// 跳过的文件没有移动过
		return nil
	}

	info, err := e.fs.Stat(op.Destination)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: 目标文件已不存在: %s", ErrConflict, op.Destination)
		}
		return fmt.Errorf("读取目标文件信息失败: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: 目标位置是目录: %s", ErrConflict, op.Destination)
	}

	exists, err := afero.Exists(e.fs, op.Source)
	if err != nil {
		return fmt.Errorf("检查原位置失败: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: 原位置已被占用: %s", ErrConflict, op.Source)
	}

	if err := e.fs.MkdirAll(filepath.Dir(op.Source), 0755); err != nil {
		return fmt.Errorf("创建原目录失败: %w", err)
	}
	if err := mover.Relocate(e.fs, op.Destination, op.Source); err != nil {
		return fmt.Errorf("移回文件失败: %w", err)
	}

	logger.Get().Debug().Str("from", op.Destination).Str("to", op.Source).Msg("文件已移回")
	e.prune(op)
	return nil
}

// prune 自下而上删除整理时新建且已经变空的目录
// 整理前就存在的目录和目标根目录本身不会被删除
func (e *Engine) prune(op oplog.Operation) {
	if op.Root == "" || len(op.CreatedDirs) == 0 {
		return
	}
	root := filepath.Clean(op.Root)

	dirs := make([]string, 0, len(op.CreatedDirs))
	for _, dir := range op.CreatedDirs {
		dir = filepath.Clean(dir)
		if strings.HasPrefix(dir, root+string(filepath.Separator)) {
			dirs = append(dirs, dir)
		}
	}
	// 深的目录先删
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })

	for _, dir := range dirs {
		empty, err := afero.IsEmpty(e.fs, dir)
		if err != nil || !empty {
			return
		}
		if err := e.fs.Remove(dir); err != nil {
			return
		}
		logger.Get().Debug().Str("dir", dir).Msg("删除空目录")
	}
}

// forget 从日志中删除已回滚的记录
func (e *Engine) forget(ctx context.Context, attempted, reversed []oplog.Operation) error {
	if len(reversed) == 0 {
		return nil
	}

	// 日志写入不应被取消打断，否则会与文件系统状态不一致
	ctx = context.WithoutCancel(ctx)

	var err error
	if len(reversed) == len(attempted) {
		err = e.log.RemoveTail(ctx, len(reversed))
	} else {
		ids := make([]string, 0, len(reversed))
		for _, op := range reversed {
			ids = append(ids, op.ID)
		}
		err = e.log.Remove(ctx, ids)
	}
	if err != nil {
		logger.Get().Error().Err(err).Int("count", len(reversed)).Msg("更新操作日志失败，已撤销的记录仍在日志中")
		return fmt.Errorf("更新操作日志失败: %w", err)
	}
	return nil
}
