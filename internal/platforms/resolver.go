package platforms

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/nicheharvest/internal/models"
	"github.com/RecoveryAshes/nicheharvest/internal/utils"
	"golang.org/x/net/html"
)

// Resolver 按规则从文档中取出容器和字段
type Resolver struct{}

// NewResolver 创建解析器
func NewResolver() *Resolver {
	return &Resolver{}
}

// Containers 主选择器无匹配时回退到备用选择器
func (r *Resolver) Containers(platform models.Platform, doc *goquery.Document, rules SelectorRules) *goquery.Selection {
	primary := doc.Find(rules.Primary)
	if primary.Length() > 0 || rules.Fallback == "" {
		return primary
	}

	utils.Logger.Info().
		Str("platform", string(platform)).
		Str("primary", rules.Primary).
		Str("fallback", rules.Fallback).
		Msg("主选择器未匹配, 尝试备用选择器")
	return doc.Find(rules.Fallback)
}

// Text 容器内第一个匹配元素的文本, 无匹配时返回占位值
func (r *Resolver) Text(container *goquery.Selection, selector string) string {
	if selector == "" {
		return models.NotAvailable
	}
	el := container.Find(selector).First()
	if el.Length() == 0 {
		return models.NotAvailable
	}
	return strings.TrimSpace(el.Text())
}

// Attr 容器内第一个匹配元素的属性
func (r *Resolver) Attr(container *goquery.Selection, selector, attr string) (string, bool) {
	if selector == "" {
		return "", false
	}
	return container.Find(selector).First().Attr(attr)
}

// buildFunc 从单个容器构建记录
type buildFunc func(i int, container *goquery.Selection) (*models.ExtractionRecord, error)

// Each 逐个构建记录, limit>0 时只处理前limit个容器
// 单个条目的错误或panic只跳过该条目
func (r *Resolver) Each(platform models.Platform, containers *goquery.Selection, limit int, build buildFunc) []*models.ExtractionRecord {
	records := make([]*models.ExtractionRecord, 0, containers.Length())

	containers.EachWithBreak(func(i int, c *goquery.Selection) bool {
		if limit > 0 && i >= limit {
			return false
		}

		rec, err := safeBuild(build, i, c)
		if err != nil {
			utils.Logger.Warn().
				Str("platform", string(platform)).
				Int("index", i).
				Err(err).
				Msg("跳过无法解析的条目")
			return true
		}
		records = append(records, rec)
		return true
	})

	return records
}

func safeBuild(build buildFunc, i int, c *goquery.Selection) (rec *models.ExtractionRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("解析panic: %v", r)
		}
	}()
	return build(i, c)
}

// nodeMatcher 与 cascadia.Selector 相同的匹配接口
type nodeMatcher interface {
	Match(n *html.Node) bool
}

// findNext 按文档顺序查找 start 之后第一个匹配的元素(含后代)
func findNext(start *html.Node, m nodeMatcher) *html.Node {
	for n := nextInDocument(start); n != nil; n = nextInDocument(n) {
		if n.Type == html.ElementNode && m.Match(n) {
			return n
		}
	}
	return nil
}

func nextInDocument(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for ; n != nil; n = n.Parent {
		if n.NextSibling != nil {
			return n.NextSibling
		}
	}
	return nil
}

// nodeText 拼接元素内所有文本节点
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
