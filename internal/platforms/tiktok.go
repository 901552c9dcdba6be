package platforms

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/nicheharvest/internal/models"
	"github.com/andybalholm/cascadia"
)

const tiktokBaseURL = "https://www.tiktok.com/tag/"

// tiktok 话题标签页
// 播放量元素不在标签容器内部, 按文档顺序向后查找
type tiktok struct {
	*basePlatform
	views cascadia.SelectorGroup
}

// NewTikTok 创建TikTok平台
func NewTikTok(cfg models.PlatformConfig) (Platform, error) {
	base, err := newBasePlatform(models.PlatformTikTok, cfg, tiktokBaseURL, []string{"affiliatemarketing"})
	if err != nil {
		return nil, err
	}

	views, err := cascadia.ParseGroup(base.rules.Field("views"))
	if err != nil {
		return nil, fmt.Errorf("TikTok views 选择器无效: %w", err)
	}

	p := &tiktok{basePlatform: base, views: views}
	base.item = p.extractItem
	return p, nil
}

func (p *tiktok) extractItem(c *goquery.Selection, rec *models.ExtractionRecord, _ string) error {
	name := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(c.Text()), "#"))
	if name == "" {
		return fmt.Errorf("%w: 话题名为空", ErrMalformedItem)
	}

	rec.Set("name", name)
	rec.Set("url", p.baseURL+name)

	if len(c.Nodes) > 0 {
		if n := findNext(c.Nodes[0], p.views); n != nil {
			rec.Set("views", strings.TrimSpace(nodeText(n)))
		}
	}
	return nil
}
