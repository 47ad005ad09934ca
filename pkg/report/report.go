package report

import (
	"context"
	"sort"

	"github.com/spf13/afero"

	"github.com/moyu-x/file-sorter/internal"
	"github.com/moyu-x/file-sorter/pkg/classifier"
	"github.com/moyu-x/file-sorter/pkg/hasher"
	"github.com/moyu-x/file-sorter/pkg/logger"
)

// CategoryCount 单个分类的统计
type CategoryCount struct {
	Category string
	Files    int
	Bytes    int64
}

// CategoryCounts 按分类统计文件数量和大小，按文件数降序
func CategoryCounts(records []internal.FileRecord, c *classifier.Classifier) []CategoryCount {
	byName := make(map[string]*CategoryCount)
	for _, rec := range records {
		category := rec.Category
		if category == "" {
			category = c.Classify(rec.Ext)
		}
		cc, ok := byName[category]
		if !ok {
			cc = &CategoryCount{Category: category}
			byName[category] = cc
		}
		cc.Files++
		cc.Bytes += rec.Size
	}

	counts := make([]CategoryCount, 0, len(byName))
	for _, cc := range byName {
		counts = append(counts, *cc)
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Files != counts[j].Files {
			return counts[i].Files > counts[j].Files
		}
		return counts[i].Category < counts[j].Category
	})
	return counts
}

// DuplicateGroup 内容相同的一组文件
type DuplicateGroup struct {
	Digest string
	Size   int64
	Paths  []string
}

// Wasted 除保留一份外其余副本占用的空间
func (g DuplicateGroup) Wasted() int64 {
	return g.Size * int64(len(g.Paths)-1)
}

// SkippedFile 无法读取、未参与比较的文件
type SkippedFile struct {
	Path string
	Err  error
}

// DuplicateReport 重复文件报告，只包含至少两个路径的摘要
type DuplicateReport struct {
	Groups      []DuplicateGroup
	Skipped     []SkippedFile
	Hashed      int
	WastedBytes int64
}

// Index 摘要到路径列表的映射
func (r *DuplicateReport) Index() map[string][]string {
	index := make(map[string][]string, len(r.Groups))
	for _, g := range r.Groups {
		index[g.Digest] = append([]string(nil), g.Paths...)
	}
	return index
}

// FindDuplicates 计算缺少摘要的文件的哈希，按摘要分组
// 大小唯一的文件不可能重复，不参与哈希
func FindDuplicates(ctx context.Context, fs afero.Fs, records []internal.FileRecord, workers int) (*DuplicateReport, error) {
	bySize := make(map[int64][]internal.FileRecord)
	for _, rec := range records {
		bySize[rec.Size] = append(bySize[rec.Size], rec)
	}

	var candidates []internal.FileRecord
	for _, group := range bySize {
		if len(group) > 1 {
			candidates = append(candidates, group...)
		}
	}

	var paths []string
	for _, rec := range candidates {
		if rec.Digest == "" {
			paths = append(paths, rec.Path)
		}
	}

	logger.Get().Debug().Int("files", len(records)).Int("candidates", len(candidates)).Msg("开始查找重复文件")

	hashes, err := hasher.HashAll(ctx, fs, paths, workers)
	if err != nil {
		return nil, err
	}

	digests := make(map[string]string, len(hashes))
	report := &DuplicateReport{}
	for _, h := range hashes {
		if h.Error != nil {
			report.Skipped = append(report.Skipped, SkippedFile{Path: h.Path, Err: h.Error})
			logger.Get().Warn().Err(h.Error).Str("file", h.Path).Msg("计算哈希失败，跳过")
			continue
		}
		digests[h.Path] = h.Digest
	}

	groups := make(map[string]*DuplicateGroup)
	for _, rec := range candidates {
		digest := rec.Digest
		if digest == "" {
			digest = digests[rec.Path]
		}
		if digest == "" {
			continue
		}
		report.Hashed++
		g, ok := groups[digest]
		if !ok {
			g = &DuplicateGroup{Digest: digest, Size: rec.Size}
			groups[digest] = g
		}
		g.Paths = append(g.Paths, rec.Path)
	}

	for _, g := range groups {
		if len(g.Paths) < 2 {
			continue
		}
		sort.Strings(g.Paths)
		report.Groups = append(report.Groups, *g)
		report.WastedBytes += g.Wasted()
	}
	sort.Slice(report.Groups, func(i, j int) bool {
		if report.Groups[i].Wasted() != report.Groups[j].Wasted() {
			return report.Groups[i].Wasted() > report.Groups[j].Wasted()
		}
		return report.Groups[i].Paths[0] < report.Groups[j].Paths[0]
	})

	logger.Get().Info().
		Int("groups", len(report.Groups)).
		Int64("wasted_bytes", report.WastedBytes).
		Msg("重复文件查找完成")

	return report, nil
}
