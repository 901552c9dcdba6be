package platforms

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/nicheharvest/internal/models"
)

const redditBaseURL = "https://www.reddit.com/r/"

type reddit struct {
	*basePlatform
}

// NewReddit 创建Reddit平台
func NewReddit(cfg models.PlatformConfig) (Platform, error) {
	base, err := newBasePlatform(models.PlatformReddit, cfg, redditBaseURL, []string{"affiliatemarketing"})
	if err != nil {
		return nil, err
	}
	p := &reddit{basePlatform: base}
	base.item = p.extractItem
	return p, nil
}

func (p *reddit) extractItem(c *goquery.Selection, rec *models.ExtractionRecord, subreddit string) error {
	rec.Set("subreddit", subreddit)
	rec.Set("title", p.resolver.Text(c, p.rules.Field("title")))
	rec.Set("upvotes", p.resolver.Text(c, p.rules.Field("upvotes")))
	rec.Set("comments", p.resolver.Text(c, p.rules.Field("comments")))
	return nil
}
