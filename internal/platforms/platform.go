package platforms

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/nicheharvest/internal/models"
	"github.com/RecoveryAshes/nicheharvest/internal/utils"
)

// ErrMalformedItem 单个容器无法构成记录
var ErrMalformedItem = errors.New("条目格式错误")

// Platform 一个可采集的平台
type Platform interface {
	Name() models.Platform

	// TargetURL 根据参数生成目标页面地址
	TargetURL(parameter string) string

	// RenderWithBrowser 是否默认使用浏览器渲染
	RenderWithBrowser() bool

	// DefaultParameters 配置未给出参数时使用
	DefaultParameters() []string

	// Extract 从页面中提取记录, 永不返回nil
	Extract(body, parameter, sourceURL string) []*models.ExtractionRecord
}

// itemFunc 把单个容器填充到记录中
type itemFunc func(container *goquery.Selection, rec *models.ExtractionRecord, parameter string) error

// basePlatform 平台的公共部分
type basePlatform struct {
	name     models.Platform
	baseURL  string
	browser  bool
	defaults []string
	rules    SelectorRules
	limit    int // 0 表示不限
	resolver *Resolver
	item     itemFunc
}

func newBasePlatform(name models.Platform, cfg models.PlatformConfig, defaultBaseURL string, defaults []string) (*basePlatform, error) {
	rules, err := rulesFor(name, cfg.Selectors)
	if err != nil {
		return nil, err
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if err := models.ValidateURL(baseURL); err != nil {
		return nil, fmt.Errorf("平台 %s 的 base_url 无效: %w", name, err)
	}

	return &basePlatform{
		name:     name,
		baseURL:  baseURL,
		browser:  cfg.UseBrowser(),
		defaults: defaults,
		rules:    rules,
		resolver: NewResolver(),
	}, nil
}

func (b *basePlatform) Name() models.Platform {
	return b.name
}

func (b *basePlatform) TargetURL(parameter string) string {
	return b.baseURL + parameter
}

func (b *basePlatform) RenderWithBrowser() bool {
	return b.browser
}

func (b *basePlatform) DefaultParameters() []string {
	return append([]string(nil), b.defaults...)
}

// Rules 当前生效的选择器
func (b *basePlatform) Rules() SelectorRules {
	return b.rules.clone()
}

func (b *basePlatform) Extract(body, parameter, sourceURL string) []*models.ExtractionRecord {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		utils.Logger.Warn().Str("platform", string(b.name)).Err(err).Msg("解析HTML失败")
		return []*models.ExtractionRecord{}
	}

	containers := b.resolver.Containers(b.name, doc, b.rules)
	records := b.resolver.Each(b.name, containers, b.limit, func(_ int, c *goquery.Selection) (*models.ExtractionRecord, error) {
		rec, err := models.NewRecord(b.name, sourceURL)
		if err != nil {
			return nil, err
		}
		if err := b.item(c, rec, parameter); err != nil {
			return nil, err
		}
		return rec, nil
	})

	utils.Logger.Debug().
		Str("platform", string(b.name)).
		Str("parameter", parameter).
		Int("containers", containers.Length()).
		Int("records", len(records)).
		Msg("提取完成")
	return records
}
