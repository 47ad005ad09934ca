package app

import (
	"context"
	"time"

	"github.com/moyu-x/file-sorter/pkg/logger"
	"github.com/moyu-x/file-sorter/pkg/oplog"
	"github.com/moyu-x/file-sorter/pkg/sorter"
	"github.com/moyu-x/file-sorter/pkg/watch"
)

type WatchOptions struct {
	SortOptions
	Debounce time.Duration

	// OnSort 每次整理完成后调用
	OnSort func(*sorter.Summary)
}

// RunWatch 先整理一次，然后在源目录出现新文件时重复整理，直到 ctx 取消
func RunWatch(ctx context.Context, opts *WatchOptions) error {
	env, err := setup(&opts.CommonOptions)
	if err != nil {
		return err
	}

	sortOpts, err := opts.sorterOptions()
	if err != nil {
		return err
	}
	if sortOpts.DestRoot, err = env.destRoot(opts.Dest); err != nil {
		return err
	}

	var log oplog.Log
	if !opts.DryRun {
		if log, err = env.openLog(); err != nil {
			return err
		}
		defer log.Close()
	}

	walker := env.walker()
	s := sorter.New(env.fs, env.classifier, log, walker, env.source)

	run := func(ctx context.Context) error {
		summary, err := s.Run(ctx, sortOpts)
		if summary != nil && opts.OnSort != nil {
			opts.OnSort(summary)
		}
		return err
	}

	if err := run(ctx); err != nil {
		return err
	}

	w := watch.New(env.source, run)
	if opts.Debounce > 0 {
		w.Debounce = opts.Debounce
	}
	w.Ignore = walker.Excluded

	logger.Get().Info().Str("dir", env.source).Msg("进入监听模式，按 Ctrl+C 退出")
	return w.Run(ctx)
}
