package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/moyu-x/file-sorter/internal"
	"github.com/moyu-x/file-sorter/internal/app"
	"github.com/moyu-x/file-sorter/pkg/classifier"
	"github.com/moyu-x/file-sorter/pkg/report"
	"github.com/moyu-x/file-sorter/pkg/scanner"
	"github.com/moyu-x/file-sorter/pkg/sorter"
	"github.com/moyu-x/file-sorter/pkg/undo"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// progress 终端下显示整理进度条
type progress struct {
	out     io.Writer
	enabled bool
	bar     *progressbar.ProgressBar
}

func newProgress(out io.Writer, quiet bool) *progress {
	enabled := !quiet
	if f, ok := out.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		enabled = false
	}
	return &progress{out: out, enabled: enabled}
}

func (p *progress) update(done, total int) {
	if !p.enabled {
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("整理中"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = p.bar.Set(done)
}

func (p *progress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

func relTo(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

func outcomeLabel(r sorter.FileResult) string {
	if r.Err != nil {
		return errorStyle.Render("失败")
	}
	switch r.Move.Outcome {
	case internal.OutcomeMoved:
		return successStyle.Render("移动")
	case internal.OutcomeRenamed:
		return successStyle.Render("重命名")
	case internal.OutcomeReplaced:
		return warnStyle.Render("覆盖")
	case internal.OutcomeSkipped:
		return mutedStyle.Render("跳过")
	}
	return string(r.Move.Outcome)
}

func printSummary(w io.Writer, summary *sorter.Summary, quiet bool) {
	title := "整理完成"
	if summary.DryRun {
		title = "预览（未移动任何文件）"
	}

	if summary.Stats.Scanned == 0 {
		if !quiet {
			fmt.Fprintln(w, mutedStyle.Render("源目录中没有需要整理的文件: "+summary.Source))
		}
		return
	}

	// 预览时总是列出每个文件，正常整理时只在非安静模式下列出
	if summary.DryRun || !quiet {
		rows := make([][]string, 0, len(summary.Results))
		for _, r := range summary.Results {
			detail := relTo(summary.DestRoot, r.Move.Destination)
			if r.Err != nil {
				detail = r.Err.Error()
			} else if r.Move.Reason != "" {
				detail = r.Move.Reason
			}
			rows = append(rows, []string{r.Record.Name, r.Category, detail, outcomeLabel(r)})
		}
		fmt.Fprintln(w, titleStyle.Render(title))
		fmt.Fprintln(w, renderTable([]string{"文件", "分类", "目标", "结果"}, rows, nil))
	}

	s := summary.Stats
	line := fmt.Sprintf("扫描 %d 个文件：移动 %d，重命名 %d，覆盖 %d，跳过 %d，失败 %d",
		s.Scanned, s.Moved, s.Renamed, s.Replaced, s.Skipped, s.Failed)
	fmt.Fprintln(w, line)

	if s.LogGaps > 0 {
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("警告: %d 次移动未能写入操作日志，这些移动无法撤销", s.LogGaps)))
	}
}

func printUndo(w io.Writer, result *undo.Result, quiet bool) {
	if len(result.Reversed) == 0 && len(result.Conflicts) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("没有可撤销的操作"))
		return
	}

	if !quiet && len(result.Reversed) > 0 {
		rows := make([][]string, 0, len(result.Reversed))
		for _, op := range result.Reversed {
			rows = append(rows, []string{op.Destination, op.Source, string(op.Outcome)})
		}
		fmt.Fprintln(w, titleStyle.Render("已撤销"))
		fmt.Fprintln(w, renderTable([]string{"从", "移回", "原操作"}, rows, nil))
	}

	if len(result.Conflicts) > 0 {
		rows := make([][]string, 0, len(result.Conflicts))
		for _, c := range result.Conflicts {
			rows = append(rows, []string{c.Operation.Destination, c.Err.Error()})
		}
		fmt.Fprintln(w, warnStyle.Render("无法撤销（已保留在操作日志中）"))
		fmt.Fprintln(w, renderTable([]string{"文件", "原因"}, rows, nil))
	}

	fmt.Fprintf(w, "撤销 %d 个，冲突 %d 个\n", len(result.Reversed), len(result.Conflicts))
}

func printStats(w io.Writer, stats *app.StatsReport) {
	rows := make([][]string, 0, len(stats.Categories)+1)
	for _, c := range stats.Categories {
		rows = append(rows, []string{c.Category, fmt.Sprintf("%d", c.Files), humanize.Bytes(uint64(c.Bytes))})
	}
	rows = append(rows, []string{"合计", fmt.Sprintf("%d", stats.Files), humanize.Bytes(uint64(stats.Bytes))})

	fmt.Fprintln(w, titleStyle.Render("分类统计: "+stats.Source))
	fmt.Fprintln(w, renderTable([]string{"分类", "文件数", "大小"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
}

func printDuplicates(w io.Writer, rep *report.DuplicateReport) {
	if len(rep.Groups) == 0 {
		fmt.Fprintln(w, successStyle.Render("没有发现重复文件"))
	} else {
		rows := make([][]string, 0)
		for _, g := range rep.Groups {
			for i, p := range g.Paths {
				digest := ""
				if i == 0 {
					digest = g.Digest
				}
				rows = append(rows, []string{digest, p, humanize.Bytes(uint64(g.Size))})
			}
		}
		fmt.Fprintln(w, titleStyle.Render("重复文件"))
		fmt.Fprintln(w, renderTable([]string{"哈希", "文件", "大小"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
		fmt.Fprintf(w, "%d 组重复文件，可释放 %s\n", len(rep.Groups), humanize.Bytes(uint64(rep.WastedBytes)))
	}

	for _, s := range rep.Skipped {
		fmt.Fprintln(w, warnStyle.Render("无法读取: ")+s.Path+mutedStyle.Render(" ("+s.Err.Error()+")"))
	}
}

func printCategories(w io.Writer, c *classifier.Classifier) {
	categories := c.Categories()
	rows := make([][]string, 0, len(categories))
	for _, name := range c.Names() {
		rows = append(rows, []string{name, strings.Join(categories[name], " ")})
	}
	fmt.Fprintln(w, titleStyle.Render("分类表"))
	fmt.Fprintln(w, renderTable([]string{"分类", "扩展名"}, rows, nil))
	fmt.Fprintln(w, mutedStyle.Render("未匹配的扩展名归入 "+internal.FallbackCategory))
}

func printError(w io.Writer, err error) {
	msg := err.Error()
	if errors.Is(err, scanner.ErrSourceMissing) {
		msg += "\n请用 --source 指定存在的目录"
	}
	fmt.Fprintln(w, errorStyle.Render("错误: ")+msg)
}
