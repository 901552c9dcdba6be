package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RecoveryAshes/nicheharvest/internal/core"
	"github.com/RecoveryAshes/nicheharvest/internal/crawlers"
	"github.com/RecoveryAshes/nicheharvest/internal/models"
	"github.com/RecoveryAshes/nicheharvest/internal/platforms"
	"github.com/RecoveryAshes/nicheharvest/internal/utils"
	"github.com/spf13/cobra"
)

const mb = 1024 * 1024

// runHarvest 执行一次完整抓取
func runHarvest(cmd *cobra.Command, cfg *models.Config) error {
	if err := ValidateFlags(mode, maxWorkers, maxRetries, platformFilter); err != nil {
		return err
	}

	o := flagOverrides{
		mode:           mode,
		maxWorkers:     maxWorkers,
		maxRetries:     maxRetries,
		outputDir:      outputDir,
		noProgress:     noProgress,
		platformFilter: platformFilter,
	}
	if cmd.Flags().Changed("headless") {
		o.headless = &headless
	}
	applyOverrides(cfg, o)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("配置无效: %w", err)
	}

	// Ctrl+C 取消上下文, 已提交的任务自然结束
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	headerManager, err := buildHeaderManager(cfg)
	if err != nil {
		return err
	}

	executor := buildExecutor(cfg, headerManager, cmd, !noHandoff)

	registry := platforms.NewBuiltinRegistry()
	scheduler := core.NewTaskScheduler(core.SchedulerConfig{
		MaxWorkers:   cfg.Scraping.MaxWorkers,
		SubmitDelay:  cfg.Scraping.SubmitDelay,
		ShowProgress: cfg.Output.Progress,
	}, executor, registry)

	utils.Infof("🚀 开始抓取, 平台: %d, 最大并发: %d", len(cfg.Platforms), cfg.Scraping.MaxWorkers)
	result, err := scheduler.Run(ctx, cfg.Platforms)
	if ctx.Err() != nil {
		utils.Warnf("收到中断信号, 已停止提交新任务")
	} else if err != nil {
		utils.Warnf("抓取未完成: %v", err)
	}

	reporter := utils.NewReporter(cfg.Output.Dir)
	recordsPath, werr := reporter.WriteRecords(cfg.Output.RecordsFile, result.Records)
	if werr != nil {
		return fmt.Errorf("保存记录失败: %w", werr)
	}
	summaryPath, werr := reporter.WriteSummary(cfg.Output.SummaryFile, result.Summary)
	if werr != nil {
		return fmt.Errorf("保存汇总失败: %w", werr)
	}

	utils.RenderSummaryTable(cmd.OutOrStdout(), result.Summary)
	utils.Infof("📁 记录已保存: %s", recordsPath)
	utils.Infof("📁 汇总已保存: %s", summaryPath)
	utils.Info("✨ 抓取任务完成!")
	return nil
}

// buildHeaderManager 组装代理、UA和请求头
func buildHeaderManager(cfg *models.Config) (*core.HeaderManager, error) {
	agents := cfg.Scraping.UserAgents
	if path := cfg.Scraping.UserAgentsFile; path != "" {
		lines, err := utils.ReadLinesFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取UA文件失败: %w", err)
		}
		agents = append(agents, lines...)
	}

	rotator := core.NewProxyRotator(cfg.Proxy)
	pool := core.NewUserAgentPool(utils.UniqueStrings(agents))
	utils.Infof("代理: %d 个, UA: %d 个", rotator.Len(), pool.Size())

	hm, err := core.NewHeaderManager(cfg.Scraping.Headers, headers, rotator, pool)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP头部管理器失败: %w", err)
	}
	if err := hm.Validate(); err != nil {
		return nil, fmt.Errorf("请求头验证失败: %w", err)
	}
	return hm, nil
}

// buildExecutor 组装直接请求、浏览器渲染和人工处理
func buildExecutor(cfg *models.Config, identities core.IdentitySource, cmd *cobra.Command, handoff bool) *core.RequestExecutor {
	s := cfg.Scraping

	direct := crawlers.NewStaticFetcher(crawlers.StaticConfig{
		Timeout:            s.Timeout,
		CloudflareBypass:   s.CloudflareBypass,
		InsecureSkipVerify: s.InsecureSkipVerify,
	})

	// 直接请求遇到验证页也会升级到浏览器, 启用任一平台即需要
	var browser core.BrowserRenderer
	if hasEnabledPlatform(cfg.Platforms) {
		monitor := crawlers.NewResourceMonitor(crawlers.ResourceMonitorConfig{
			MaxSessions:         cfg.Resources.MaxBrowserSessions,
			SessionMemoryUsage:  int64(cfg.Resources.SessionMemoryMB) * mb,
			SafetyReserveMemory: int64(cfg.Resources.SafetyReserveMB) * mb,
			CPULoadThreshold:    cfg.Resources.CPULoadThreshold,
		})
		browser = crawlers.NewDynamicRenderer(crawlers.DynamicConfig{
			Headless:    s.Headless,
			SettleTime:  s.SettleTime,
			ReadTimeout: s.Timeout,
		}, monitor)
	}

	opts := []core.ExecutorOption{}
	// 无头模式同样交给操作员确认, 仅 --no-handoff 时关闭
	if handoff {
		opts = append(opts, core.WithHandoff(newConsoleHandoff(cmd.InOrStdin(), cmd.ErrOrStderr())))
	}

	return core.NewRequestExecutor(core.ExecutorConfig{
		MaxRetries: s.MaxRetries,
		Delay:      s.DelayBetweenRequests,
		Timeout:    s.Timeout,
	}, direct, browser, identities, core.NewCaptchaDetector(s.CaptchaIndicators...), opts...)
}

func hasEnabledPlatform(configs []models.PlatformConfig) bool {
	for _, p := range configs {
		if p.IsEnabled() {
			return true
		}
	}
	return false
}
