package sorter

import (
	"context"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/moyu-x/file-sorter/internal"
	"github.com/moyu-x/file-sorter/pkg/classifier"
	"github.com/moyu-x/file-sorter/pkg/logger"
	"github.com/moyu-x/file-sorter/pkg/mover"
	"github.com/moyu-x/file-sorter/pkg/oplog"
	"github.com/moyu-x/file-sorter/pkg/scanner"
)

// Options 单次整理的参数
type Options struct {
	DestRoot       string // 为空时使用源目录
	DryRun         bool
	Strategy       internal.Strategy
	OrganizeByDate bool
	DateSource     string // mtime 或 exif
	DetectContent  bool   // 扩展名未知时按文件头检测类型
	SkipIdentical  bool

	// Progress 每处理完一个文件调用一次
	Progress func(done, total int)
}

// FileResult 单个文件的处理结果
type FileResult struct {
	Record   internal.FileRecord
	Category string
	Move     mover.Result
	Err      error
}

// Summary 整理结果汇总
type Summary struct {
	Source   string
	DestRoot string
	DryRun   bool
	Stats    internal.SortStats
	Results  []FileResult
	Records  []internal.FileRecord
}

type Sorter struct {
	fs         afero.Fs
	classifier *classifier.Classifier
	log        oplog.Log
	walker     *scanner.FileWalker
	source     string
}

func New(fs afero.Fs, c *classifier.Classifier, log oplog.Log, walker *scanner.FileWalker, source string) *Sorter {
	if walker == nil {
		walker = scanner.NewFileWalker(fs)
	}
	return &Sorter{
		fs:         fs,
		classifier: c,
		log:        log,
		walker:     walker,
		source:     source,
	}
}

// Run 扫描源目录，将每个文件移动到所属分类目录
// 源目录不存在时返回错误；单个文件失败只记录在结果中
func (s *Sorter) Run(ctx context.Context, opts Options) (*Summary, error) {
	destRoot := opts.DestRoot
	if destRoot == "" {
		destRoot = s.source
	}
	if opts.Strategy == "" {
		opts.Strategy = internal.StrategyRename
	}

	records, err := s.walker.Scan(s.source)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Source:   s.source,
		DestRoot: destRoot,
		DryRun:   opts.DryRun,
		Records:  records,
		Results:  make([]FileResult, 0, len(records)),
	}
	summary.Stats.Scanned = len(records)

	m := mover.New(s.fs, opts.Strategy, opts.DryRun)
	m.SkipIdentical = opts.SkipIdentical

	logger.Get().Info().
		Str("source", s.source).
		Str("destination", destRoot).
		Int("files", len(records)).
		Bool("dry_run", opts.DryRun).
		Str("strategy", string(opts.Strategy)).
		Msg("开始整理文件")

	for i := range records {
		if err := ctx.Err(); err != nil {
			logger.Get().Warn().Int("done", i).Int("total", len(records)).Msg("整理已取消")
			return summary, err
		}

		rec := &records[i]
		rec.Category = s.categorize(rec, opts.DetectContent)

		destDir := filepath.Join(destRoot, rec.Category)
		if opts.OrganizeByDate {
			destDir = filepath.Join(destDir, fileDate(s.fs, *rec, opts.DateSource).Format(internal.DateFolderLayout))
		}

		res, err := m.Move(rec.Path, destDir)
		fr := FileResult{Record: *rec, Category: rec.Category, Move: res, Err: err}
		summary.Results = append(summary.Results, fr)

		if err != nil {
			summary.Stats.Failed++
			logger.Get().Error().Err(err).Str("file", rec.Path).Msg("移动文件失败")
		} else {
			s.count(&summary.Stats, res.Outcome)
			if !opts.DryRun {
				s.record(ctx, summary, destRoot, rec.Category, res)
			}
			logger.Get().Debug().
				Str("source", res.Source).
				Str("destination", res.Destination).
				Str("outcome", string(res.Outcome)).
				Msg("文件已处理")
		}

		if opts.Progress != nil {
			opts.Progress(i+1, len(records))
		}
	}

	logger.Get().Info().
		Int("moved", summary.Stats.Moved).
		Int("renamed", summary.Stats.Renamed).
		Int("replaced", summary.Stats.Replaced).
		Int("skipped", summary.Stats.Skipped).
		Int("failed", summary.Stats.Failed).
		Msg("整理完成")

	return summary, nil
}

// categorize 按扩展名分类，启用内容检测时对未知扩展名读取文件头
func (s *Sorter) categorize(rec *internal.FileRecord, detect bool) string {
	category := s.classifier.Classify(rec.Ext)
	if !detect || category != internal.FallbackCategory {
		return category
	}

	ext, err := s.classifier.Sniff(s.fs, rec.Path)
	if err != nil {
		logger.Get().Debug().Err(err).Str("file", rec.Path).Msg("检测文件类型失败")
		return category
	}
	if ext == "" {
		return category
	}
	logger.Get().Debug().Str("file", rec.Path).Str("detected", ext).Msg("按文件内容识别类型")
	return s.classifier.Classify(ext)
}

func (s *Sorter) count(stats *internal.SortStats, outcome internal.Outcome) {
	switch outcome {
	case internal.OutcomeMoved:
		stats.Moved++
	case internal.OutcomeRenamed:
		stats.Renamed++
	case internal.OutcomeReplaced:
		stats.Replaced++
	case internal.OutcomeSkipped:
		stats.Skipped++
	}
}

// record 追加操作日志；文件已移动但写日志失败时计入 LogGaps
func (s *Sorter) record(ctx context.Context, summary *Summary, root, category string, res mover.Result) {
	if s.log == nil {
		return
	}
	op := oplog.NewOperation(res.Source, res.Destination, root, category, res.Outcome)
	op.CreatedDirs = res.CreatedDirs
	// 文件已经移动，取消不应阻止写入日志
	if err := s.log.Append(context.WithoutCancel(ctx), op); err != nil {
		summary.Stats.LogGaps++
		logger.Get().Error().
			Err(err).
			Str("source", res.Source).
			Str("destination", res.Destination).
			Msg("操作日志写入失败，该移动无法撤销")
	}
}
