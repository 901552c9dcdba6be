package models

import (
	"fmt"
	"strings"
	"time"
)

// Platform 平台标识
type Platform string

const (
	PlatformTikTok  Platform = "tiktok"  // 话题标签
	PlatformAmazon  Platform = "amazon"  // 畅销商品
	PlatformReddit  Platform = "reddit"  // 子版块帖子
	PlatformYouTube Platform = "youtube" // 搜索结果视频
)

// KnownPlatforms 内置平台列表(按注册顺序)
var KnownPlatforms = []Platform{
	PlatformTikTok,
	PlatformAmazon,
	PlatformReddit,
	PlatformYouTube,
}

// ParsePlatform 解析平台名称(不区分大小写)
func ParsePlatform(name string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range KnownPlatforms {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("未知平台: %s", name)
}

// ScrapeTask 一个采集单元: 平台 + 参数
// 由调度器根据配置生成,创建后不可变
type ScrapeTask struct {
	ID        string   `json:"id"`        // 任务唯一ID (UUID)
	Platform  Platform `json:"platform"`  // 平台
	Parameter string   `json:"parameter"` // 标签/类目/子版块/搜索词
}

// NewScrapeTask 创建采集任务
func NewScrapeTask(platform Platform, parameter string) ScrapeTask {
	return ScrapeTask{
		ID:        generateID(),
		Platform:  platform,
		Parameter: parameter,
	}
}

// String 用于日志
func (t ScrapeTask) String() string {
	return fmt.Sprintf("%s/%s", t.Platform, t.Parameter)
}

// FetchOutcome 单次抓取的最终结果(重试耗尽后Succeeded为false)
type FetchOutcome struct {
	Body      string
	Succeeded bool
}

// FetchMode 抓取模式
type FetchMode string

const (
	ModeDirect  FetchMode = "direct"  // 直接HTTP请求
	ModeBrowser FetchMode = "browser" // 浏览器渲染
)

// TaskStats 单个任务的统计
type TaskStats struct {
	TaskID    string        `json:"task_id"`
	Platform  Platform      `json:"platform"`
	Parameter string        `json:"parameter"`
	Fetched   bool          `json:"fetched"`         // 是否抓取成功
	Records   int           `json:"records"`         // 提取记录数
	Error     string        `json:"error,omitempty"` // 失败原因
	Duration  time.Duration `json:"duration"`        // 耗时
}

// RunSummary 一次调度运行的汇总
type RunSummary struct {
	TotalTasks        int              `json:"total_tasks"`     // 任务总数
	SucceededTasks    int              `json:"succeeded_tasks"` // 成功任务数(至少抓取成功)
	FailedTasks       int              `json:"failed_tasks"`    // 失败任务数
	TotalRecords      int              `json:"total_records"`   // 记录总数
	RecordsByPlatform map[Platform]int `json:"records_by_platform"`
	FetchAttempts     int64            `json:"fetch_attempts"` // 抓取尝试次数
	Escalations       int64            `json:"escalations"`    // 升级到浏览器模式次数
	Challenges        int64            `json:"challenges"`     // 人工验证次数
	Exhausted         int64            `json:"exhausted"`      // 重试耗尽次数
	StartedAt         time.Time        `json:"started_at"`
	Duration          float64          `json:"duration"` // 总耗时(秒)
	Tasks             []TaskStats      `json:"tasks"`
}
