package app

import (
	"context"

	"github.com/moyu-x/file-sorter/internal"
	"github.com/moyu-x/file-sorter/pkg/logger"
	"github.com/moyu-x/file-sorter/pkg/oplog"
	"github.com/moyu-x/file-sorter/pkg/sorter"
)

type SortOptions struct {
	CommonOptions

	Dest              string
	DryRun            bool
	OrganizeByDate    bool
	ExifDates         bool
	DuplicateStrategy string
	DetectContent     bool
	SkipIdentical     bool

	Progress func(done, total int)
}

func (o *SortOptions) sorterOptions() (sorter.Options, error) {
	strategy, err := internal.ParseStrategy(o.DuplicateStrategy)
	if err != nil {
		return sorter.Options{}, err
	}

	dateSource := sorter.DateFromModTime
	if o.ExifDates {
		dateSource = sorter.DateFromExif
	}

	return sorter.Options{
		DryRun:         o.DryRun,
		Strategy:       strategy,
		OrganizeByDate: o.OrganizeByDate,
		DateSource:     dateSource,
		DetectContent:  o.DetectContent,
		SkipIdentical:  o.SkipIdentical,
		Progress:       o.Progress,
	}, nil
}

// RunSort 整理源目录
func RunSort(ctx context.Context, opts *SortOptions) (*sorter.Summary, error) {
	env, err := setup(&opts.CommonOptions)
	if err != nil {
		return nil, err
	}

	sortOpts, err := opts.sorterOptions()
	if err != nil {
		return nil, err
	}
	if sortOpts.DestRoot, err = env.destRoot(opts.Dest); err != nil {
		return nil, err
	}

	// 预览模式不写操作日志，也不创建日志文件
	var log oplog.Log
	if !opts.DryRun {
		if log, err = env.openLog(); err != nil {
			return nil, err
		}
		defer log.Close()
	} else {
		logger.Get().Info().Msg("=== 预览模式，不会实际移动文件 ===")
	}

	s := sorter.New(env.fs, env.classifier, log, env.walker(), env.source)
	return s.Run(ctx, sortOpts)
}
