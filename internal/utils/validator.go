package utils

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/RecoveryAshes/nicheharvest/internal/models"
)

// MaxHeaderValueLength HTTP头部值最大长度 (8KB)
const MaxHeaderValueLength = 8192

var (
	// ForbiddenHeaders 由HTTP客户端管理的头部
	ForbiddenHeaders = []string{
		"Host",
		"Content-Length",
		"Transfer-Encoding",
		"Connection",
	}

	// identityHeaders 由UA池按请求轮换的头部
	identityHeaders = []string{
		"User-Agent",
	}
)

// HeaderValidator 验证HTTP头部是否符合RFC 7230
type HeaderValidator struct {
	nameRegex        *regexp.Regexp
	valueRegex       *regexp.Regexp
	maxValueLength   int
	forbiddenHeaders map[string]string // 小写名称 -> 修复建议
}

// NewHeaderValidator 创建验证器
func NewHeaderValidator() *HeaderValidator {
	forbidden := make(map[string]string)
	for _, h := range ForbiddenHeaders {
		forbidden[strings.ToLower(h)] = fmt.Sprintf("移除 '%s' 头部配置", h)
	}
	for _, h := range identityHeaders {
		forbidden[strings.ToLower(h)] = "在 scraping.user_agents 中配置User-Agent"
	}

	return &HeaderValidator{
		nameRegex:        regexp.MustCompile(`^[A-Za-z0-9-]+$`),
		valueRegex:       regexp.MustCompile(`^[\x20-\x7E\t]*$`),
		maxValueLength:   MaxHeaderValueLength,
		forbiddenHeaders: forbidden,
	}
}

// ValidateName 验证头部名称
func (hv *HeaderValidator) ValidateName(name string) error {
	if name == "" {
		return &models.ValidationError{
			Field:      "name",
			HeaderName: name,
			Reason:     "头部名称不能为空",
		}
	}

	if !hv.nameRegex.MatchString(name) {
		return &models.ValidationError{
			Field:      "name",
			HeaderName: name,
			Reason:     "头部名称包含非法字符 (仅允许字母、数字和连字符)",
			Suggestion: "使用字母、数字和连字符 (如 'Accept-Language')",
		}
	}

	return nil
}

// ValidateValue 验证头部值
func (hv *HeaderValidator) ValidateValue(name, value string) error {
	if len(value) > hv.maxValueLength {
		return &models.ValidationError{
			Field:      "value",
			HeaderName: name,
			Reason:     fmt.Sprintf("头部值过长: %d 字节 (最大 %d)", len(value), hv.maxValueLength),
		}
	}

	if !hv.valueRegex.MatchString(value) {
		return &models.ValidationError{
			Field:      "value",
			HeaderName: name,
			Reason:     "头部值包含非法字符 (仅允许可打印ASCII字符)",
			Suggestion: "移除控制字符和非ASCII字符",
		}
	}

	return nil
}

// ValidateHeader 验证头部名称+值
func (hv *HeaderValidator) ValidateHeader(name, value string) error {
	if suggestion, ok := hv.forbiddenHeaders[strings.ToLower(name)]; ok {
		return &models.ValidationError{
			Field:      "name",
			HeaderName: name,
			Reason:     "此头部由采集器自动管理,不允许自定义",
			Suggestion: suggestion,
		}
	}

	if err := hv.ValidateName(name); err != nil {
		return err
	}
	return hv.ValidateValue(name, value)
}

// IsForbidden 检查头部是否被禁止
func (hv *HeaderValidator) IsForbidden(name string) bool {
	_, ok := hv.forbiddenHeaders[strings.ToLower(name)]
	return ok
}

// Validate 验证http.Header,返回第一个错误
func (hv *HeaderValidator) Validate(headers http.Header) error {
	for name, values := range headers {
		for _, value := range values {
			if err := hv.ValidateHeader(name, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateUserAgent UA只需要是合法的头部值且非空
func (hv *HeaderValidator) ValidateUserAgent(ua string) error {
	if strings.TrimSpace(ua) == "" {
		return &models.ValidationError{
			Field:      "value",
			HeaderName: "User-Agent",
			Reason:     "User-Agent不能为空",
		}
	}
	return hv.ValidateValue("User-Agent", ua)
}
