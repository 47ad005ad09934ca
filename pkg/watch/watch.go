package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/moyu-x/file-sorter/pkg/logger"
)

// DefaultDebounce 最后一个事件后等待文件写入稳定的时间
const DefaultDebounce = 500 * time.Millisecond

// Callback 目录发生变化后调用，通常是执行一次整理
type Callback func(ctx context.Context) error

// Watcher 监听源目录顶层的新文件
type Watcher struct {
	dir      string
	callback Callback
	Debounce time.Duration

	// Ignore 返回 true 的路径不触发回调（例如操作日志）
	Ignore func(path string) bool
}

func New(dir string, callback Callback) *Watcher {
	return &Watcher{
		dir:      dir,
		callback: callback,
		Debounce: DefaultDebounce,
	}
}

// Run 阻塞直到 ctx 取消；回调错误只记录日志
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听器失败: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("监听目录失败: %w", err)
	}

	logger.Get().Info().Str("dir", w.dir).Dur("debounce", w.Debounce).Msg("开始监听目录")

	timer := time.NewTimer(w.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			logger.Get().Info().Str("dir", w.dir).Msg("停止监听目录")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			logger.Get().Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("检测到文件变化")

			// 重置防抖计时器
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.Debounce)
			pending = true

		case <-timer.C:
			pending = false
			if err := w.callback(ctx); err != nil {
				logger.Get().Error().Err(err).Str("dir", w.dir).Msg("处理新文件失败")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Get().Warn().Err(err).Msg("文件监听出错")
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	// Rename 事件携带的是旧文件名；移入目录的文件会以 Create 事件出现
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	if w.Ignore != nil && w.Ignore(event.Name) {
		return false
	}
	if filepath.Dir(event.Name) != filepath.Clean(w.dir) {
		return false
	}
	// 整理时创建的分类目录不触发
	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return false
	}
	return true
}
