package main

import (
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/RecoveryAshes/nicheharvest/internal/crawlers"
	"github.com/RecoveryAshes/nicheharvest/internal/models"
	"github.com/RecoveryAshes/nicheharvest/internal/platforms"
	"github.com/RecoveryAshes/nicheharvest/internal/utils"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "检查运行环境和配置",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "==============================================")
		fmt.Fprintln(out, "  NicheHarvest 环境检查")
		fmt.Fprintln(out, "==============================================")

		envOK := checkEnvironment(out, appConfig)
		fmt.Fprintln(out)
		cfgErr := runValidateConfig(out, appConfig)

		fmt.Fprintln(out, "==============================================")
		if !envOK || cfgErr != nil {
			fmt.Fprintln(out, "❌ 检查未通过,请解决上述问题。")
			if cfgErr != nil {
				return cfgErr
			}
			return errors.New("运行环境不满足要求")
		}
		fmt.Fprintln(out, "✅ 检查通过!")
		return nil
	},
}

// checkEnvironment 检查浏览器和系统资源
func checkEnvironment(out io.Writer, cfg *models.Config) bool {
	allOK := true

	fmt.Fprintf(out, "✅ Go版本: %s\n", runtime.Version())
	fmt.Fprintf(out, "✅ 操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	// 未找到时 rod 会在首次启动时下载浏览器
	if path, ok := launcher.LookPath(); ok {
		fmt.Fprintf(out, "✅ 浏览器: %s\n", path)
	} else {
		fmt.Fprintln(out, "⚠️  未找到本地Chrome/Chromium, 首次启动时将自动下载")
	}

	monitor := crawlers.NewResourceMonitor(crawlers.ResourceMonitorConfig{
		MaxSessions:         cfg.Resources.MaxBrowserSessions,
		SessionMemoryUsage:  int64(cfg.Resources.SessionMemoryMB) * mb,
		SafetyReserveMemory: int64(cfg.Resources.SafetyReserveMB) * mb,
		CPULoadThreshold:    cfg.Resources.CPULoadThreshold,
	})
	status := monitor.GetMemoryStatus()
	fmt.Fprintf(out, "✅ 系统内存: %.2f GB, 可用: %.2f GB (%s)\n",
		float64(status.TotalMemory)/(1024*mb),
		float64(status.AvailableMemory)/(1024*mb),
		status.MemoryPressure)
	fmt.Fprintf(out, "✅ 浏览器会话上限: %d\n", monitor.Capacity())

	if ok, reason := monitor.CheckResourceAvailability(); !ok {
		fmt.Fprintf(out, "❌ 资源不足: %s\n", reason)
		allOK = false
	}
	return allOK
}

// runValidateConfig 验证配置、请求头和选择器
func runValidateConfig(out io.Writer, cfg *models.Config) error {
	utils.Info("🔍 验证配置...")
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}

	hm, err := buildHeaderManager(cfg)
	if err != nil {
		return err
	}

	registry := platforms.NewBuiltinRegistry()
	for _, pc := range cfg.Platforms {
		p, err := registry.Build(pc)
		if err != nil {
			return fmt.Errorf("平台 %s 配置无效: %w", pc.Name, err)
		}
		state := "已启用"
		if !pc.IsEnabled() {
			state = "已禁用"
		}
		params := pc.Parameters()
		if len(params) == 0 {
			params = p.DefaultParameters()
		}
		fmt.Fprintf(out, "✅ 平台 %s (%s): 浏览器=%v, 参数=%v\n", p.Name(), state, p.RenderWithBrowser(), params)
	}

	// 显示合并后的头部(脱敏)
	safeHeaders := hm.GetSafeHeaders()
	fmt.Fprintln(out, "✅ 配置验证通过!")
	fmt.Fprintf(out, "当前有效的HTTP头部 (%d个):\n", len(safeHeaders))
	for name, value := range safeHeaders {
		fmt.Fprintf(out, "  %s: %s\n", name, value)
	}
	return nil
}
