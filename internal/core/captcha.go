package core

import (
	"strings"
)

// DefaultCaptchaIndicators 验证页关键字
var DefaultCaptchaIndicators = []string{
	"captcha",
	"robot",
	"human verification",
	"security check",
	"prove you're human",
}

// 弯引号统一为直引号,避免 "prove you’re human" 漏判
var quoteNormalizer = strings.NewReplacer("’", "'", "‘", "'")

// CaptchaDetector 判断响应是否为验证页
// 宁可误判交给人工,也不把验证页当作数据返回
type CaptchaDetector struct {
	indicators []string
}

// NewCaptchaDetector 创建检测器, extra 追加到内置关键字
func NewCaptchaDetector(extra ...string) *CaptchaDetector {
	indicators := make([]string, 0, len(DefaultCaptchaIndicators)+len(extra))
	seen := make(map[string]bool)
	for _, s := range append(append([]string{}, DefaultCaptchaIndicators...), extra...) {
		s = strings.ToLower(strings.TrimSpace(quoteNormalizer.Replace(s)))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		indicators = append(indicators, s)
	}
	return &CaptchaDetector{indicators: indicators}
}

// IsChallenge 不区分大小写的子串匹配
func (d *CaptchaDetector) IsChallenge(body string) bool {
	_, hit := d.Match(body)
	return hit
}

// Match 返回命中的关键字
func (d *CaptchaDetector) Match(body string) (string, bool) {
	if body == "" {
		return "", false
	}
	lower := strings.ToLower(quoteNormalizer.Replace(body))
	for _, indicator := range d.indicators {
		if strings.Contains(lower, indicator) {
			return indicator, true
		}
	}
	return "", false
}

// Indicators 当前生效的关键字
func (d *CaptchaDetector) Indicators() []string {
	out := make([]string, len(d.indicators))
	copy(out, d.indicators)
	return out
}
