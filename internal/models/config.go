package models

import (
	"fmt"
	"time"
)

// Config 应用程序配置
type Config struct {
	Scraping  ScrapingConfig   `mapstructure:"scraping"`
	Proxy     ProxyConfig      `mapstructure:"proxy"`
	Resources ResourceConfig   `mapstructure:"resources"`
	Platforms []PlatformConfig `mapstructure:"platforms"`
	Affiliate AffiliateConfig  `mapstructure:"affiliate"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Output    OutputConfig     `mapstructure:"output"`
}

// ScrapingConfig 抓取策略配置
type ScrapingConfig struct {
	MaxRetries           int               `mapstructure:"max_retries"`            // 每次抓取最大尝试次数 (默认:3)
	Timeout              time.Duration     `mapstructure:"timeout"`                // 单次尝试超时 (默认:30s)
	DelayBetweenRequests time.Duration     `mapstructure:"delay_between_requests"` // 退避基数,第k次失败后等待 delay*k (默认:2s)
	SettleTime           time.Duration     `mapstructure:"settle_time"`            // 浏览器页面加载后的等待时间 (默认:2s)
	SubmitDelay          time.Duration     `mapstructure:"submit_delay"`           // 任务提交间隔 (默认:1s)
	MaxWorkers           int               `mapstructure:"max_workers"`            // 最大并发任务数 (默认:5)
	Headless             bool              `mapstructure:"headless"`               // 无头浏览器 (默认:true)
	CloudflareBypass     bool              `mapstructure:"cloudflare_bypass"`      // 直接请求时启用Cloudflare指纹伪装
	InsecureSkipVerify   bool              `mapstructure:"insecure_skip_verify"`   // 跳过TLS证书验证
	UserAgents           []string          `mapstructure:"user_agents"`
	UserAgentsFile       string            `mapstructure:"user_agents_file"` // 每行一个UA,与user_agents合并
	CaptchaIndicators    []string          `mapstructure:"captcha_indicators"`
	Headers              map[string]string `mapstructure:"headers"` // 额外请求头
}

// ProxyConfig 代理配置
type ProxyConfig struct {
	Enabled   bool            `mapstructure:"enabled"`
	Rotation  bool            `mapstructure:"rotation"`
	Providers []ProxyProvider `mapstructure:"providers"`
}

// ProxyProvider 代理端点
type ProxyProvider struct {
	URL string `mapstructure:"url"`
}

// ResourceConfig 浏览器资源配置
type ResourceConfig struct {
	MaxBrowserSessions int `mapstructure:"max_browser_sessions"` // 浏览器会话上限
	SessionMemoryMB    int `mapstructure:"session_memory_mb"`    // 单个浏览器会话估算内存(MB)
	SafetyReserveMB    int `mapstructure:"safety_reserve_mb"`    // 系统保留内存(MB)
	CPULoadThreshold   int `mapstructure:"cpu_load_threshold"`   // CPU负载阈值(%), >=200 表示禁用
}

// PlatformConfig 单个平台配置
type PlatformConfig struct {
	Name              string           `mapstructure:"name"`
	Enabled           *bool            `mapstructure:"enabled"` // 缺省为true
	BaseURL           string           `mapstructure:"base_url"`
	RenderWithBrowser *bool            `mapstructure:"render_with_browser"` // 缺省为true
	Tags              []string         `mapstructure:"tags"`
	Categories        []string         `mapstructure:"categories"`
	Subreddits        []string         `mapstructure:"subreddits"`
	SearchQueries     []string         `mapstructure:"search_queries"`
	Selectors         SelectorOverride `mapstructure:"selectors"`
}

// SelectorOverride 覆盖内置选择器,留空的项保持默认
type SelectorOverride struct {
	Primary  string            `mapstructure:"primary"`
	Fallback string            `mapstructure:"fallback"`
	Fields   map[string]string `mapstructure:"fields"`
}

// IsEnabled 平台是否启用
func (p PlatformConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// UseBrowser 是否使用浏览器渲染
func (p PlatformConfig) UseBrowser() bool {
	return p.RenderWithBrowser == nil || *p.RenderWithBrowser
}

// Parameters 返回该平台对应的参数列表
// 名称无法识别时返回第一个非空列表
func (p PlatformConfig) Parameters() []string {
	platform, err := ParsePlatform(p.Name)
	if err == nil {
		switch platform {
		case PlatformTikTok:
			return p.Tags
		case PlatformAmazon:
			return p.Categories
		case PlatformReddit:
			return p.Subreddits
		case PlatformYouTube:
			return p.SearchQueries
		}
	}
	for _, list := range [][]string{p.Tags, p.Categories, p.Subreddits, p.SearchQueries} {
		if len(list) > 0 {
			return list
		}
	}
	return nil
}

// AffiliateConfig 联盟计划数据源配置
type AffiliateConfig struct {
	Builtin         bool                   `mapstructure:"builtin"` // 是否注册内置数据表
	RemoteProviders []RemoteProviderConfig `mapstructure:"remote_providers"`
}

// RemoteProviderConfig 远程联盟计划数据源
type RemoteProviderConfig struct {
	Name    string        `mapstructure:"name"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	Dir         string `mapstructure:"dir"`
	RecordsFile string `mapstructure:"records_file"`
	SummaryFile string `mapstructure:"summary_file"`
	Progress    bool   `mapstructure:"progress"` // 显示进度条
}

// Validate 验证配置
func (c *Config) Validate() error {
	s := c.Scraping
	if s.MaxRetries < 1 || s.MaxRetries > 20 {
		return fmt.Errorf("最大重试次数必须在1-20之间,当前值: %d", s.MaxRetries)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("超时时间必须大于0,当前值: %v", s.Timeout)
	}
	if s.DelayBetweenRequests < 0 {
		return fmt.Errorf("请求间隔不能为负数,当前值: %v", s.DelayBetweenRequests)
	}
	if s.SettleTime < 0 || s.SubmitDelay < 0 {
		return fmt.Errorf("等待时间不能为负数")
	}
	if s.MaxWorkers < 1 || s.MaxWorkers > 100 {
		return fmt.Errorf("并发数必须在1-100之间,当前值: %d", s.MaxWorkers)
	}
	if c.Proxy.Enabled {
		for i, p := range c.Proxy.Providers {
			if err := ValidateProxyURL(p.URL); err != nil {
				return fmt.Errorf("代理配置第%d项无效: %w", i+1, err)
			}
		}
	}
	for _, p := range c.Platforms {
		if p.Name == "" {
			return fmt.Errorf("平台配置缺少name字段")
		}
		if p.BaseURL != "" {
			if err := ValidateURL(p.BaseURL); err != nil {
				return fmt.Errorf("平台 %s 的base_url无效: %w", p.Name, err)
			}
		}
	}
	return nil
}
