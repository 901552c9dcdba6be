package platforms

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/nicheharvest/internal/models"
)

const (
	youtubeBaseURL  = "https://www.youtube.com/results?search_query="
	youtubeWatchURL = "https://www.youtube.com/watch?v="

	// youtubeResultLimit 每个搜索词只取前几个结果
	youtubeResultLimit = 10
)

type youtube struct {
	*basePlatform
}

// NewYouTube 创建YouTube平台
func NewYouTube(cfg models.PlatformConfig) (Platform, error) {
	base, err := newBasePlatform(models.PlatformYouTube, cfg, youtubeBaseURL, []string{"affiliate marketing"})
	if err != nil {
		return nil, err
	}
	base.limit = youtubeResultLimit

	p := &youtube{basePlatform: base}
	base.item = p.extractItem
	return p, nil
}

// TargetURL 搜索词需要编码, 空格变为 +
func (p *youtube) TargetURL(query string) string {
	return p.baseURL + url.QueryEscape(query)
}

func (p *youtube) extractItem(c *goquery.Selection, rec *models.ExtractionRecord, query string) error {
	titleSel := p.rules.Field("title")

	rec.Set("query", query)
	rec.Set("title", p.resolver.Text(c, titleSel))
	rec.Set("views", p.resolver.Text(c, p.rules.Field("views")))
	rec.Set("date", p.resolver.Text(c, p.rules.Field("date")))

	if href, ok := p.resolver.Attr(c, titleSel, "href"); ok {
		if id := videoID(href); id != "" {
			rec.Set("video_id", id)
			rec.Set("url", youtubeWatchURL+id)
		}
	}
	return nil
}

// videoID 取 href 最后一个 = 之后的部分
func videoID(href string) string {
	return strings.TrimSpace(href[strings.LastIndex(href, "=")+1:])
}
