package mover

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/moyu-x/file-sorter/internal"
	"github.com/moyu-x/file-sorter/pkg/hasher"
	"github.com/moyu-x/file-sorter/pkg/logger"
)

var (
	ErrSourceNotFound = errors.New("源文件不存在")
	ErrNotAFile       = errors.New("目标位置已被目录占用")
)

// Result 单次移动的结果
type Result struct {
	Source      string
	Destination string
	Outcome     internal.Outcome
	DryRun      bool
	Reason      string // 跳过原因

	// CreatedDirs 本次移动新建的目录，由深到浅
	CreatedDirs []string
}

// Mover 负责单个文件的重定位
type Mover struct {
	Fs            afero.Fs
	Strategy      internal.Strategy
	DryRun        bool
	SkipIdentical bool

	// 预览模式下记录已被占用的目标路径
	claimed map[string]bool
}

func New(fs afero.Fs, strategy internal.Strategy, dryRun bool) *Mover {
	if strategy == "" {
		strategy = internal.StrategyRename
	}
	return &Mover{
		Fs:       fs,
		Strategy: strategy,
		DryRun:   dryRun,
		claimed:  make(map[string]bool),
	}
}

// Move 将 src 移动到 destDir 下，按策略处理同名冲突
func (m *Mover) Move(src, destDir string) (Result, error) {
	name := filepath.Base(src)
	dest := filepath.Join(destDir, name)
	res := Result{Source: src, Destination: dest, Outcome: internal.OutcomeMoved, DryRun: m.DryRun}

	if _, err := m.Fs.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return res, fmt.Errorf("%w: %s", ErrSourceNotFound, src)
		}
		return res, fmt.Errorf("读取源文件信息失败: %w", err)
	}

	exists, err := m.occupied(dest)
	if err != nil {
		return res, err
	}

	if exists {
		if m.SkipIdentical && m.identical(src, dest) {
			res.Outcome = internal.OutcomeSkipped
			res.Reason = "目标文件内容相同"
			logger.Get().Debug().Str("source", src).Str("destination", dest).Msg("目标文件内容相同，跳过")
			return res, nil
		}

		switch m.Strategy {
		case internal.StrategySkip:
			res.Outcome = internal.OutcomeSkipped
			res.Reason = "目标文件已存在"
			logger.Get().Debug().Str("source", src).Str("destination", dest).Msg("文件名冲突，跳过")
			return res, nil
		case internal.StrategyReplace:
			if info, err := m.Fs.Stat(dest); err == nil && info.IsDir() {
				return res, fmt.Errorf("%w: %s", ErrNotAFile, dest)
			}
			res.Outcome = internal.OutcomeReplaced
		default:
			newDest, err := m.freeName(dest)
			if err != nil {
				return res, err
			}
			logger.Get().Debug().Str("original_path", dest).Str("new_path", newDest).Msg("文件名冲突，自动重命名")
			res.Destination = newDest
			res.Outcome = internal.OutcomeRenamed
		}
	}

	if m.DryRun {
		m.claimed[res.Destination] = true
		return res, nil
	}

	missing, err := m.missingDirs(destDir)
	if err != nil {
		return res, err
	}
	if err := m.Fs.MkdirAll(destDir, 0755); err != nil {
		return res, fmt.Errorf("创建目录失败: %w", err)
	}
	res.CreatedDirs = missing
	if err := Relocate(m.Fs, src, res.Destination); err != nil {
		return res, fmt.Errorf("移动文件失败: %w", err)
	}
	return res, nil
}

// missingDirs 返回 dir 及其尚不存在的上级目录，由深到浅
func (m *Mover) missingDirs(dir string) ([]string, error) {
	var missing []string
	for dir = filepath.Clean(dir); ; dir = filepath.Dir(dir) {
		exists, err := afero.Exists(m.Fs, dir)
		if err != nil {
			return nil, fmt.Errorf("检查目录是否存在失败: %w", err)
		}
		if exists {
			return missing, nil
		}
		missing = append(missing, dir)
		if parent := filepath.Dir(dir); parent == dir {
			return missing, nil
		}
	}
}

// occupied 目标路径是否已存在（包括本次预览中已分配的路径）
func (m *Mover) occupied(path string) (bool, error) {
	if m.claimed[path] {
		return true, nil
	}
	exists, err := afero.Exists(m.Fs, path)
	if err != nil {
		return false, fmt.Errorf("检查文件是否存在失败: %w", err)
	}
	return exists, nil
}

// freeName 追加自增序号直到找到未被占用的文件名
func (m *Mover) freeName(dest string) (string, error) {
	ext := filepath.Ext(dest)
	base := strings.TrimSuffix(dest, ext)

	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		exists, err := m.occupied(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
}

func (m *Mover) identical(a, b string) bool {
	if m.claimed[b] {
		// 仅在预览中被分配，磁盘上不存在
		if exists, _ := afero.Exists(m.Fs, b); !exists {
			return false
		}
	}
	ha, err := hasher.CalculateHash(m.Fs, a)
	if err != nil {
		return false
	}
	hb, err := hasher.CalculateHash(m.Fs, b)
	if err != nil {
		return false
	}
	return ha == hb
}

// Relocate 使用 rename 将文件从 src 移动到 dst，目标已存在时被覆盖
// rename 失败（例如跨设备）时回退到复制后删除
func Relocate(fs afero.Fs, src, dst string) error {
	err := fs.Rename(src, dst)
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		return err
	}

	logger.Get().Debug().
		Err(err).
		Str("source", src).
		Str("destination", dst).
		Msg("直接重命名失败，尝试复制后删除")

	if err := copyFile(fs, src, dst); err != nil {
		return err
	}

	if err := fs.Remove(src); err != nil {
		// 保持只有一份文件
		if rmErr := fs.Remove(dst); rmErr != nil {
			return fmt.Errorf("删除原文件失败，且无法删除已复制到 %s 的副本: %w", dst, errors.Join(err, rmErr))
		}
		return fmt.Errorf("删除原文件失败，已删除复制到 %s 的副本，文件仍在 %s: %w", dst, src, err)
	}
	return nil
}

func copyFile(fs afero.Fs, src, dst string) error {
	info, err := fs.Stat(src)
	if err != nil {
		return fmt.Errorf("读取源文件信息失败: %w", err)
	}

	sourceFile, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("打开源文件失败: %w", err)
	}
	defer sourceFile.Close()

	destFile, err := fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("创建目标文件失败: %w", err)
	}

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		_ = fs.Remove(dst)
		return fmt.Errorf("复制文件内容失败: %w", err)
	}
	if err := destFile.Close(); err != nil {
		_ = fs.Remove(dst)
		return fmt.Errorf("写入目标文件失败: %w", err)
	}

	_ = fs.Chtimes(dst, info.ModTime(), info.ModTime())
	return nil
}
