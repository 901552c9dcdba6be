package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/RecoveryAshes/nicheharvest/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/schollz/progressbar/v3"
)

const (
	DefaultRecordsFile = "records.json"
	DefaultSummaryFile = "summary.json"
)

// Reporter 输出采集结果
type Reporter struct {
	outputDir string
}

// NewReporter 创建报告生成器
func NewReporter(outputDir string) *Reporter {
	return &Reporter{outputDir: outputDir}
}

// WriteRecords 将记录写为JSON数组,返回文件路径
func (r *Reporter) WriteRecords(filename string, records []*models.ExtractionRecord) (string, error) {
	if filename == "" {
		filename = DefaultRecordsFile
	}
	if records == nil {
		records = []*models.ExtractionRecord{}
	}
	return r.saveJSON(filename, records)
}

// WriteSummary 写入运行摘要,返回文件路径
func (r *Reporter) WriteSummary(filename string, summary *models.RunSummary) (string, error) {
	if filename == "" {
		filename = DefaultSummaryFile
	}
	return r.saveJSON(filename, summary)
}

func (r *Reporter) saveJSON(filename string, data interface{}) (string, error) {
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}

	path := filepath.Join(r.outputDir, filename)
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化JSON失败: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return "", fmt.Errorf("写入文件失败: %w", err)
	}

	Debugf("保存报告: %s", path)
	return path, nil
}

// RenderSummaryTable 以表格形式输出各平台记录数
func RenderSummaryTable(w io.Writer, summary *models.RunSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"平台", "任务数", "成功", "记录数"})

	type row struct {
		tasks, succeeded int
	}
	rows := make(map[models.Platform]*row)
	for _, ts := range summary.Tasks {
		r, ok := rows[ts.Platform]
		if !ok {
			r = &row{}
			rows[ts.Platform] = r
		}
		r.tasks++
		if ts.Fetched {
			r.succeeded++
		}
	}

	platforms := make([]string, 0, len(rows))
	for p := range rows {
		platforms = append(platforms, string(p))
	}
	sort.Strings(platforms)

	for _, p := range platforms {
		r := rows[models.Platform(p)]
		t.AppendRow(table.Row{p, r.tasks, r.succeeded, summary.RecordsByPlatform[models.Platform(p)]})
	}

	t.AppendFooter(table.Row{"合计", summary.TotalTasks, summary.SucceededTasks, summary.TotalRecords})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// NewProgressBar 创建进度条
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
