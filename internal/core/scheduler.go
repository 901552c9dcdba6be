package core

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/RecoveryAshes/nicheharvest/internal/models"
	"github.com/RecoveryAshes/nicheharvest/internal/platforms"
	"github.com/RecoveryAshes/nicheharvest/internal/utils"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Fetcher 抓取单个URL, RequestExecutor 实现此接口
type Fetcher interface {
	Fetch(ctx context.Context, url string, renderWithBrowser bool) models.FetchOutcome
}

// PlatformBuilder 根据配置创建平台, platforms.Registry 实现此接口
type PlatformBuilder interface {
	Build(cfg models.PlatformConfig) (platforms.Platform, error)
}

// SchedulerConfig 调度配置
type SchedulerConfig struct {
	MaxWorkers   int           // worker上限
	SubmitDelay  time.Duration // 相邻两次提交的间隔
	ShowProgress bool
}

// RunResult 一次运行的全部记录和汇总
type RunResult struct {
	Records []*models.ExtractionRecord
	Summary *models.RunSummary
}

// Plan 展开后的任务列表
type Plan struct {
	Tasks []models.ScrapeTask

	platforms map[string]platforms.Platform // 任务ID → 平台
	index     map[string]int                // 任务ID → 下标
}

// TaskScheduler 任务调度器
type TaskScheduler struct {
	cfg     SchedulerConfig
	fetcher Fetcher
	builder PlatformBuilder

	active atomic.Int32
	peak   atomic.Int32
}

// NewTaskScheduler 创建调度器
func NewTaskScheduler(cfg SchedulerConfig, fetcher Fetcher, builder PlatformBuilder) *TaskScheduler {
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	return &TaskScheduler{
		cfg:     cfg,
		fetcher: fetcher,
		builder: builder,
	}
}

// Expand 将启用的平台配置展开为任务, 每个参数一个任务
// 无法创建的平台记录警告后跳过
func (s *TaskScheduler) Expand(configs []models.PlatformConfig) *Plan {
	plan := &Plan{
		platforms: make(map[string]platforms.Platform),
		index:     make(map[string]int),
	}

	for _, cfg := range configs {
		if !cfg.IsEnabled() {
			utils.Debugf("平台 %s 未启用, 跳过", cfg.Name)
			continue
		}

		p, err := s.builder.Build(cfg)
		if err != nil {
			utils.Logger.Warn().Str("platform", cfg.Name).Err(err).Msg("跳过无法创建的平台")
			continue
		}

		params := cfg.Parameters()
		if len(params) == 0 {
			params = p.DefaultParameters()
		}

		for _, param := range params {
			task := models.NewScrapeTask(p.Name(), param)
			plan.index[task.ID] = len(plan.Tasks)
			plan.platforms[task.ID] = p
			plan.Tasks = append(plan.Tasks, task)
		}
	}

	return plan
}

// Run 展开并执行所有任务
// ctx取消时返回已完成部分的结果和ctx的错误
func (s *TaskScheduler) Run(ctx context.Context, configs []models.PlatformConfig) (*RunResult, error) {
	return s.Execute(ctx, s.Expand(configs))
}

// Execute 执行已展开的任务
func (s *TaskScheduler) Execute(ctx context.Context, plan *Plan) (*RunResult, error) {
	startTime := time.Now()
	total := len(plan.Tasks)

	if total == 0 {
		utils.Warn("没有可执行的任务")
		summary := s.summarize(startTime, nil)
		return &RunResult{Records: []*models.ExtractionRecord{}, Summary: summary}, nil
	}

	workers := s.cfg.MaxWorkers
	if total < workers {
		workers = total
	}
	utils.Infof("🚀 开始采集: %d个任务, %d个worker", total, workers)

	queue := NewTaskQueue(total)
	slots := make([][]*models.ExtractionRecord, total)
	stats := make([]models.TaskStats, total)

	var bar *progressbar.ProgressBar
	if s.cfg.ShowProgress {
		bar = utils.NewProgressBar(total, "采集中")
	}

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				task, ok := queue.Pop(ctx)
				if !ok {
					return nil
				}
				i := plan.index[task.ID]
				slots[i], stats[i] = s.runTask(ctx, task, plan.platforms[task.ID])
				if bar != nil {
					_ = bar.Add(1)
				}
			}
		})
	}

	submitErr := s.submit(ctx, queue, plan.Tasks)
	queue.Close()
	_ = g.Wait()

	if bar != nil {
		_ = bar.Finish()
	}

	records := make([]*models.ExtractionRecord, 0)
	for i, task := range plan.Tasks {
		if stats[i].TaskID == "" {
			stats[i] = models.TaskStats{
				TaskID:    task.ID,
				Platform:  task.Platform,
				Parameter: task.Parameter,
				Error:     "已取消",
			}
			continue
		}
		records = append(records, slots[i]...)
	}

	summary := s.summarize(startTime, stats)
	s.printSummary(summary)

	if submitErr != nil {
		return &RunResult{Records: records, Summary: summary}, submitErr
	}
	if err := ctx.Err(); err != nil {
		return &RunResult{Records: records, Summary: summary}, err
	}
	return &RunResult{Records: records, Summary: summary}, nil
}

// submit 逐个提交任务, 相邻两次提交至少间隔 SubmitDelay
func (s *TaskScheduler) submit(ctx context.Context, queue *TaskQueue, tasks []models.ScrapeTask) error {
	limit := rate.Inf
	if s.cfg.SubmitDelay > 0 {
		limit = rate.Every(s.cfg.SubmitDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	for _, task := range tasks {
		if err := limiter.Wait(ctx); err != nil {
			utils.Logger.Warn().Err(err).Msg("任务提交被取消")
			return err
		}
		if err := queue.Push(task); err != nil {
			utils.Logger.Warn().Str("task_id", task.ID).Err(err).Msg("提交任务失败")
			continue
		}
		utils.Debugf("已提交任务: %s", task)
	}
	return nil
}

// runTask 执行单个任务, 任何失败都只影响该任务
func (s *TaskScheduler) runTask(ctx context.Context, task models.ScrapeTask, p platforms.Platform) (records []*models.ExtractionRecord, st models.TaskStats) {
	startTime := time.Now()
	st = models.TaskStats{
		TaskID:    task.ID,
		Platform:  task.Platform,
		Parameter: task.Parameter,
	}

	log := utils.TaskLogger(task.ID, string(task.Platform), task.Parameter)

	s.trackActive(1)
	defer s.trackActive(-1)

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Msg("任务执行panic")
			records = []*models.ExtractionRecord{}
			st.Fetched = false
			st.Records = 0
			st.Error = fmt.Sprintf("panic: %v", r)
		}
		st.Duration = time.Since(startTime)
	}()

	if p == nil {
		st.Error = "平台未创建"
		return []*models.ExtractionRecord{}, st
	}

	url := p.TargetURL(task.Parameter)
	log.Info().Str("url", url).Msg("开始任务")

	outcome := s.fetcher.Fetch(ctx, url, p.RenderWithBrowser())
	if !outcome.Succeeded {
		st.Error = "抓取失败"
		log.Warn().Str("url", url).Msg("❌ 任务抓取失败, 不产生记录")
		return []*models.ExtractionRecord{}, st
	}

	st.Fetched = true
	records = p.Extract(outcome.Body, task.Parameter, url)
	st.Records = len(records)

	log.Info().Int("records", len(records)).Msg("✅ 任务完成")
	return records, st
}

func (s *TaskScheduler) trackActive(delta int32) {
	cur := s.active.Add(delta)
	for {
		peak := s.peak.Load()
		if cur <= peak || s.peak.CompareAndSwap(peak, cur) {
			return
		}
	}
}

// PeakWorkers 同时执行的任务数峰值
func (s *TaskScheduler) PeakWorkers() int {
	return int(s.peak.Load())
}

func (s *TaskScheduler) summarize(startTime time.Time, stats []models.TaskStats) *models.RunSummary {
	summary := &models.RunSummary{
		TotalTasks:        len(stats),
		RecordsByPlatform: make(map[models.Platform]int),
		StartedAt:         startTime,
		Tasks:             stats,
	}
	if summary.Tasks == nil {
		summary.Tasks = []models.TaskStats{}
	}

	for _, st := range stats {
		if st.Fetched {
			summary.SucceededTasks++
		} else {
			summary.FailedTasks++
		}
		summary.TotalRecords += st.Records
		summary.RecordsByPlatform[st.Platform] += st.Records
	}

	if sp, ok := s.fetcher.(interface{ Stats() ExecutorStats }); ok {
		es := sp.Stats()
		summary.FetchAttempts = es.Attempts
		summary.Escalations = es.Escalations
		summary.Challenges = es.Challenges
		summary.Exhausted = es.Exhausted
	}

	summary.Duration = time.Since(startTime).Seconds()
	return summary
}

// printSummary 打印采集摘要
func (s *TaskScheduler) printSummary(summary *models.RunSummary) {
	utils.Info("==================================================")
	utils.Info("📊 采集摘要")
	utils.Info("==================================================")
	utils.Infof("总任务数: %d", summary.TotalTasks)
	utils.Infof("✅ 成功: %d", summary.SucceededTasks)
	utils.Infof("❌ 失败: %d", summary.FailedTasks)
	utils.Infof("📦 总记录数: %d", summary.TotalRecords)
	for _, p := range models.KnownPlatforms {
		if n, ok := summary.RecordsByPlatform[p]; ok {
			utils.Infof("   %s: %d", p, n)
		}
	}
	utils.Infof("🔁 抓取尝试: %d, 升级浏览器: %d, 人工验证: %d", summary.FetchAttempts, summary.Escalations, summary.Challenges)
	utils.Infof("⏱️  总耗时: %.2f秒", summary.Duration)
	utils.Info("==================================================")

	if summary.FailedTasks > 0 {
		utils.Warn("失败的任务:")
		for _, st := range summary.Tasks {
			if !st.Fetched {
				utils.Warnf("  - %s/%s: %s", st.Platform, st.Parameter, st.Error)
			}
		}
	}
}
