package app

import (
	"context"

	"github.com/moyu-x/file-sorter/pkg/logger"
	"github.com/moyu-x/file-sorter/pkg/report"
)

// StatsReport 源目录的分类统计
type StatsReport struct {
	Source     string
	Categories []report.CategoryCount
	Files      int
	Bytes      int64
}

// RunStats 扫描源目录并按分类统计，不移动任何文件
func RunStats(ctx context.Context, opts *CommonOptions) (*StatsReport, error) {
	env, err := setup(opts)
	if err != nil {
		return nil, err
	}

	records, err := env.walker().Scan(env.source)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := &StatsReport{
		Source:     env.source,
		Categories: report.CategoryCounts(records, env.classifier),
		Files:      len(records),
	}
	for _, rec := range records {
		stats.Bytes += rec.Size
	}

	logger.Get().Debug().Int("files", stats.Files).Int("categories", len(stats.Categories)).Msg("统计完成")
	return stats, nil
}

type DuplicatesOptions struct {
	CommonOptions
	Workers int
}

// RunDuplicates 查找源目录中内容相同的文件
func RunDuplicates(ctx context.Context, opts *DuplicatesOptions) (*report.DuplicateReport, error) {
	env, err := setup(&opts.CommonOptions)
	if err != nil {
		return nil, err
	}

	records, err := env.walker().Scan(env.source)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = env.cfg.Performance.Workers
	}
	return report.FindDuplicates(ctx, env.fs, records, workers)
}
