package app

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/moyu-x/file-sorter/internal"
	"github.com/moyu-x/file-sorter/pkg/classifier"
	"github.com/moyu-x/file-sorter/pkg/config"
	"github.com/moyu-x/file-sorter/pkg/logger"
	"github.com/moyu-x/file-sorter/pkg/oplog"
	"github.com/moyu-x/file-sorter/pkg/scanner"
)

// CommonOptions 所有命令共用的参数
type CommonOptions struct {
	Source     string
	ConfigPath string
	LogLevel   string
	Quiet      bool

	// Fs 为空时使用本地文件系统
	Fs afero.Fs
}

// environment 一次命令执行所需的已加载状态
type environment struct {
	cfg        *config.Config
	fs         afero.Fs
	source     string
	classifier *classifier.Classifier
}

func setup(opts *CommonOptions) (*environment, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	logLevel := cfg.Logging.Level
	if opts.LogLevel != "" {
		logLevel = opts.LogLevel
	}
	if opts.Quiet && logger.ParseLevel(logLevel) < logger.ParseLevel("warn") {
		logLevel = "warn"
	}
	if err := logger.Init(logLevel, cfg.Logging.File); err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	if cfg.File != "" {
		logger.Get().Debug().Str("file", cfg.File).Msg("加载配置完成")
	}

	if err := scanner.ValidateIgnore(cfg.Ignore); err != nil {
		return nil, err
	}

	c, err := classifier.NewWithOverrides(cfg.Categories)
	if err != nil {
		return nil, err
	}

	source := opts.Source
	if source == "" {
		source = internal.DefaultSourceDir
	}
	if source, err = config.ExpandPath(source); err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(source); err == nil {
		source = abs
	}

	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	return &environment{
		cfg:        cfg,
		fs:         fs,
		source:     source,
		classifier: c,
	}, nil
}

// walker 创建扫描器，始终排除操作日志及其附属文件
func (e *environment) walker() *scanner.FileWalker {
	w := scanner.NewFileWalker(e.fs)
	w.Ignore = e.cfg.Ignore

	history := e.cfg.History.Path
	for _, suffix := range []string{"", ".lock", "-wal", "-shm", "-journal"} {
		w.AddExclude(history + suffix)
	}
	w.AddExclude(e.cfg.Logging.File)
	return w
}

// destRoot 展开目标根目录，为空时整理到源目录下
func (e *environment) destRoot(dest string) (string, error) {
	if dest == "" {
		return "", nil
	}
	dest, err := config.ExpandPath(dest)
	if err != nil {
		return "", err
	}
	if abs, err := filepath.Abs(dest); err == nil {
		dest = abs
	}
	return dest, nil
}

func (e *environment) openLog() (oplog.Log, error) {
	log, err := oplog.Open(e.cfg.History.Backend, e.cfg.History.Path)
	if err != nil {
		return nil, err
	}
	logger.Get().Debug().
		Str("backend", e.cfg.History.Backend).
		Str("path", e.cfg.History.Path).
		Msg("打开操作日志")
	return log, nil
}

// ListCategories 加载配置后返回合并后的分类表
func ListCategories(opts *CommonOptions) (*classifier.Classifier, error) {
	env, err := setup(opts)
	if err != nil {
		return nil, err
	}
	return env.classifier, nil
}
