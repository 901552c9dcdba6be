package main

import (
	"fmt"
	"strings"

	"github.com/RecoveryAshes/nicheharvest/internal/models"
	"github.com/RecoveryAshes/nicheharvest/internal/utils"
)

// 抓取模式
const (
	modeConfig  = "config"  // 按各平台 render_with_browser
	modeBrowser = "browser" // 全部使用浏览器
	modeDirect  = "direct"  // 全部直接请求
)

// ValidateFlags 验证命令行标志
func ValidateFlags(
	mode string,
	maxWorkers int,
	maxRetries int,
	platformFilter []string,
) error {
	// 验证模式
	validModes := map[string]bool{
		modeConfig:  true,
		modeBrowser: true,
		modeDirect:  true,
	}
	if !validModes[mode] {
		return fmt.Errorf("无效的抓取模式: %s (有效值: config, browser, direct)", mode)
	}

	// 0 表示使用配置文件
	if maxWorkers < 0 || maxWorkers > 100 {
		return fmt.Errorf("并发数必须在1-100之间,当前值: %d", maxWorkers)
	}
	if maxRetries < 0 || maxRetries > 20 {
		return fmt.Errorf("最大重试次数必须在1-20之间,当前值: %d", maxRetries)
	}

	for _, name := range platformFilter {
		if _, err := models.ParsePlatform(name); err != nil {
			return fmt.Errorf("无效的平台: %s (有效值: %s)", name, knownPlatformNames())
		}
	}
	return nil
}

func knownPlatformNames() string {
	names := make([]string, 0, len(models.KnownPlatforms))
	for _, p := range models.KnownPlatforms {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}

// flagOverrides 需要覆盖配置文件的命令行参数
type flagOverrides struct {
	mode           string
	maxWorkers     int
	maxRetries     int
	headless       *bool
	outputDir      string
	noProgress     bool
	platformFilter []string
}

// applyOverrides 命令行参数覆盖配置文件
func applyOverrides(cfg *models.Config, o flagOverrides) {
	if o.maxWorkers > 0 {
		cfg.Scraping.MaxWorkers = o.maxWorkers
	}
	if o.maxRetries > 0 {
		cfg.Scraping.MaxRetries = o.maxRetries
	}
	if o.headless != nil {
		cfg.Scraping.Headless = *o.headless
	}
	if o.outputDir != "" {
		cfg.Output.Dir = o.outputDir
	}
	if o.noProgress {
		cfg.Output.Progress = false
	}

	if len(o.platformFilter) > 0 {
		wanted := make(map[string]bool, len(o.platformFilter))
		for _, name := range o.platformFilter {
			wanted[strings.ToLower(strings.TrimSpace(name))] = true
		}
		filtered := make([]models.PlatformConfig, 0, len(cfg.Platforms))
		for _, p := range cfg.Platforms {
			if wanted[strings.ToLower(p.Name)] {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) == 0 {
			utils.Warnf("配置中没有匹配 %v 的平台", o.platformFilter)
		}
		cfg.Platforms = filtered
	}

	if o.mode == modeBrowser || o.mode == modeDirect {
		useBrowser := o.mode == modeBrowser
		for i := range cfg.Platforms {
			v := useBrowser
			cfg.Platforms[i].RenderWithBrowser = &v
		}
	}
}
