package scanner

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/moyu-x/file-sorter/internal"
	"github.com/moyu-x/file-sorter/pkg/logger"
)

var ErrSourceMissing = errors.New("源目录不存在或不可读")

type FileWalker struct {
	Fs            afero.Fs
	IncludeHidden bool
	Ignore        []string        // 基于文件名的 glob 规则
	Exclude       map[string]bool // 需要跳过的绝对路径
}

func NewFileWalker(fs afero.Fs) *FileWalker {
	return &FileWalker{
		Fs:            fs,
		IncludeHidden: true,
		Exclude:       make(map[string]bool),
	}
}

// AddExclude 跳过指定路径（如位于源目录中的操作日志）
func (w *FileWalker) AddExclude(path string) {
	if path == "" {
		return
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	w.Exclude[filepath.Clean(path)] = true
}

// ValidateIgnore 检查 glob 规则是否合法
func ValidateIgnore(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("无效的忽略规则: %q", p)
		}
	}
	return nil
}

// CheckSource 确认源目录存在且是目录
func (w *FileWalker) CheckSource(root string) error {
	info, err := w.Fs.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSourceMissing, root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s 不是目录", ErrSourceMissing, root)
	}
	return nil
}

// Scan 列出源目录顶层的普通文件，不进入子目录
func (w *FileWalker) Scan(root string) ([]internal.FileRecord, error) {
	if err := w.CheckSource(root); err != nil {
		return nil, err
	}

	entries, err := afero.ReadDir(w.Fs, root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceMissing, root, err)
	}

	records := make([]internal.FileRecord, 0, len(entries))
	for _, info := range entries {
		name := info.Name()
		path := filepath.Join(root, name)

		if info.IsDir() {
			continue
		}
		if !info.Mode().IsRegular() {
			logger.Get().Debug().Str("file", path).Msg("跳过非普通文件")
			continue
		}
		if !w.IncludeHidden && strings.HasPrefix(name, ".") {
			continue
		}
		if w.Excluded(path) {
			logger.Get().Debug().Str("file", path).Msg("跳过排除的文件")
			continue
		}
		if w.ignored(name) {
			logger.Get().Debug().Str("file", path).Msg("跳过匹配忽略规则的文件")
			continue
		}

		records = append(records, internal.FileRecord{
			Path:    path,
			Name:    name,
			Ext:     strings.ToLower(filepath.Ext(name)),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	logger.Get().Debug().Int("count", len(records)).Str("dir", root).Msg("扫描完成")
	return records, nil
}

// Excluded 路径是否被显式排除
func (w *FileWalker) Excluded(path string) bool {
	if len(w.Exclude) == 0 {
		return false
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return w.Exclude[filepath.Clean(path)]
}

func (w *FileWalker) ignored(name string) bool {
	for _, pattern := range w.Ignore {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
