package internal

import (
	"fmt"
	"strings"
	"time"
)

// 文件名冲突时的处理策略
type Strategy string

const (
	StrategySkip    Strategy = "skip"
	StrategyRename  Strategy = "rename"
	StrategyReplace Strategy = "replace"
)

// ParseStrategy 解析命令行或配置中的冲突策略
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategySkip:
		return StrategySkip, nil
	case StrategyRename, "":
		return StrategyRename, nil
	case StrategyReplace:
		return StrategyReplace, nil
	}
	return "", fmt.Errorf("未知的冲突策略: %q (可选 skip, rename, replace)", s)
}

// 单次移动的结果
type Outcome string

const (
	OutcomeMoved    Outcome = "moved"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeRenamed  Outcome = "renamed"
	OutcomeReplaced Outcome = "replaced"
)

// Mutated 该结果是否改变了文件系统
func (o Outcome) Mutated() bool {
	return o == OutcomeMoved || o == OutcomeRenamed || o == OutcomeReplaced
}

// 文件记录，扫描期间临时存在，不持久化
type FileRecord struct {
	Path     string
	Name     string
	Ext      string
	Category string
	Size     int64
	ModTime  time.Time
	Digest   string // 仅在需要时计算
}

// 整理统计
type SortStats struct {
	Scanned  int
	Moved    int
	Renamed  int
	Replaced int
	Skipped  int
	Failed   int
	LogGaps  int
}

// Changed 实际移动（或预览中将移动）的文件数
func (s SortStats) Changed() int {
	return s.Moved + s.Renamed + s.Replaced
}
