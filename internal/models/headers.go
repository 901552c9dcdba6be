package models

import (
	"fmt"
	"net/http"
	"strings"
)

// ProxyEndpoint 代理端点
type ProxyEndpoint struct {
	URL string `json:"url"`
}

// Identity 单次请求使用的身份: 代理 + User-Agent + 请求头
type Identity struct {
	// Proxy 为nil表示直连
	Proxy *ProxyEndpoint

	UserAgent string

	// Headers 已合并的请求头(不含User-Agent)
	Headers http.Header
}

// ProxyURL 返回代理地址,直连时为空串
func (id Identity) ProxyURL() string {
	if id.Proxy == nil {
		return ""
	}
	return id.Proxy.URL
}

// CliHeaders 命令行传递的头部列表,每项格式为 "Name: Value"
type CliHeaders []string

// Parse 将字符串列表解析为 http.Header
func (ch CliHeaders) Parse() (http.Header, error) {
	result := make(http.Header)
	for i, s := range ch {
		name, value, err := parseHeaderString(s)
		if err != nil {
			return nil, fmt.Errorf("参数 --header 第%d项格式错误: %w", i+1, err)
		}
		result.Set(name, value)
	}
	return result, nil
}

func parseHeaderString(s string) (name, value string, err error) {
	name, value, found := strings.Cut(s, ":")
	if !found {
		return "", "", fmt.Errorf("格式错误: 缺少冒号分隔符,应为 'Name: Value'")
	}

	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if name == "" {
		return "", "", fmt.Errorf("头部名称不能为空")
	}

	return name, value, nil
}

// ValidationError 头部或配置项验证失败
type ValidationError struct {
	// Field 出错的字段 ("name"、"value" 或配置键)
	Field string

	// HeaderName 头部名称
	HeaderName string

	Reason string

	// Suggestion 修复建议 (可选)
	Suggestion string
}

// Error 实现error接口
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("验证失败 [%s]: %s", e.HeaderName, e.Reason)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (建议: %s)", e.Suggestion)
	}
	return msg
}

// ConfigError 配置文件错误
type ConfigError struct {
	FilePath string

	// Cause 底层错误 (如viper.ConfigParseError)
	Cause error
}

// Error 实现error接口
func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置文件错误 [%s]: %v", e.FilePath, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
