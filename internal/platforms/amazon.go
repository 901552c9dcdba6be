package platforms

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/nicheharvest/internal/models"
)

const amazonBaseURL = "https://www.amazon.com/best-sellers/"

// amazon 畅销榜类目页
type amazon struct {
	*basePlatform
}

// NewAmazon 创建Amazon平台
func NewAmazon(cfg models.PlatformConfig) (Platform, error) {
	base, err := newBasePlatform(models.PlatformAmazon, cfg, amazonBaseURL, []string{"electronics"})
	if err != nil {
		return nil, err
	}
	p := &amazon{basePlatform: base}
	base.item = p.extractItem
	return p, nil
}

func (p *amazon) extractItem(c *goquery.Selection, rec *models.ExtractionRecord, category string) error {
	rec.Set("category", category)
	for _, field := range []string{"name", "price", "rating"} {
		rec.Set(field, p.resolver.Text(c, p.rules.Field(field)))
	}
	return nil
}
