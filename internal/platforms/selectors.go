package platforms

import (
	"errors"
	"fmt"
	"sort"

	"github.com/RecoveryAshes/nicheharvest/internal/models"
	"github.com/andybalholm/cascadia"
)

// ErrInvalidSelector 选择器配置无法编译
var ErrInvalidSelector = errors.New("选择器配置无效")

// SelectorRules 平台的容器选择器和字段选择器
// 主选择器匹配为空时才使用备用选择器
type SelectorRules struct {
	Primary  string
	Fallback string
	Fields   map[string]string
}

var defaultRules = map[models.Platform]SelectorRules{
	models.PlatformTikTok: {
		Primary:  ".hashtag",
		Fallback: `a[href*="/tag/"]`,
		Fields: map[string]string{
			"views": ".video-count",
		},
	},
	models.PlatformAmazon: {
		Primary:  "[data-zg-item]",
		Fallback: ".zg-item",
		Fields: map[string]string{
			"name":   ".p13n-sc-truncated",
			"price":  ".p13n-sc-price",
			"rating": ".a-icon-alt",
		},
	},
	models.PlatformReddit: {
		Primary:  `[data-testid="post-container"]`,
		Fallback: ".Post",
		Fields: map[string]string{
			"title":    `[data-testid="post-title"]`,
			"upvotes":  `[data-testid="upvote-count"]`,
			"comments": `[data-testid="comment-count"]`,
		},
	},
	models.PlatformYouTube: {
		Primary:  "ytd-video-renderer,ytd-grid-video-renderer",
		Fallback: ".yt-simple-endpoint.ytd-video-renderer",
		Fields: map[string]string{
			"title": "#video-title",
			"views": "#metadata-line span:first-child",
			"date":  "#metadata-line span:last-child",
		},
	},
}

// DefaultRules 返回内置规则的副本
func DefaultRules(p models.Platform) (SelectorRules, bool) {
	rules, ok := defaultRules[p]
	if !ok {
		return SelectorRules{}, false
	}
	return rules.clone(), true
}

func (r SelectorRules) clone() SelectorRules {
	fields := make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	r.Fields = fields
	return r
}

// Merge 用配置覆盖规则, 空值保持原样
func (r SelectorRules) Merge(o models.SelectorOverride) SelectorRules {
	out := r.clone()
	if o.Primary != "" {
		out.Primary = o.Primary
	}
	if o.Fallback != "" {
		out.Fallback = o.Fallback
	}
	for k, v := range o.Fields {
		if v != "" {
			out.Fields[k] = v
		}
	}
	return out
}

// Field 字段选择器, 未配置时为空串
func (r SelectorRules) Field(name string) string {
	return r.Fields[name]
}

// Validate 编译所有选择器, 返回第一个语法错误
func (r SelectorRules) Validate() error {
	if r.Primary == "" {
		return fmt.Errorf("主选择器不能为空")
	}
	if _, err := cascadia.Compile(r.Primary); err != nil {
		return fmt.Errorf("主选择器无效 %q: %w", r.Primary, err)
	}
	if r.Fallback != "" {
		if _, err := cascadia.Compile(r.Fallback); err != nil {
			return fmt.Errorf("备用选择器无效 %q: %w", r.Fallback, err)
		}
	}

	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := cascadia.Compile(r.Fields[name]); err != nil {
			return fmt.Errorf("字段 %s 的选择器无效 %q: %w", name, r.Fields[name], err)
		}
	}
	return nil
}

// rulesFor 内置规则 + 配置覆盖 + 校验
func rulesFor(p models.Platform, override models.SelectorOverride) (SelectorRules, error) {
	rules, ok := DefaultRules(p)
	if !ok {
		return SelectorRules{}, fmt.Errorf("平台 %s 没有内置选择器", p)
	}
	rules = rules.Merge(override)
	if err := rules.Validate(); err != nil {
		return SelectorRules{}, fmt.Errorf("%w [%s]: %v, 请检查 platforms[].selectors", ErrInvalidSelector, p, err)
	}
	return rules, nil
}
