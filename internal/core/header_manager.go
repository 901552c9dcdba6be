package core

import (
	"net/http"

	"github.com/RecoveryAshes/nicheharvest/internal/models"
	"github.com/RecoveryAshes/nicheharvest/internal/utils"
)

// HeaderManager 管理请求头部并为每次请求生成身份
type HeaderManager struct {
	// defaults 系统默认头部
	defaults http.Header

	// config 配置文件 scraping.headers
	config http.Header

	// cli 命令行 --header
	cli http.Header

	validator *utils.HeaderValidator
	redactor  *utils.HeaderRedactor

	proxies *ProxyRotator
	agents  *UserAgentPool
}

// NewHeaderManager 创建头部管理器
// proxies/agents 为nil时分别表示直连和使用默认UA
func NewHeaderManager(configHeaders map[string]string, cliHeaders []string, proxies *ProxyRotator, agents *UserAgentPool) (*HeaderManager, error) {
	hm := &HeaderManager{
		defaults:  getDefaultHeaders(),
		config:    make(http.Header),
		cli:       make(http.Header),
		validator: utils.NewHeaderValidator(),
		redactor:  utils.NewHeaderRedactor(),
		proxies:   proxies,
		agents:    agents,
	}

	// viper 会把键转成小写,Set 负责规范化
	for name, value := range configHeaders {
		hm.config.Set(name, value)
	}

	if len(cliHeaders) > 0 {
		parsed, err := models.CliHeaders(cliHeaders).Parse()
		if err != nil {
			return nil, err
		}
		hm.cli = parsed
	}

	if hm.agents == nil {
		hm.agents = NewUserAgentPool(nil)
	}

	return hm, nil
}

// getDefaultHeaders 返回系统默认头部
func getDefaultHeaders() http.Header {
	return http.Header{
		"Accept":          []string{"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
		"Accept-Language": []string{"en-US,en;q=0.9"},
		"Accept-Encoding": []string{"gzip, deflate, br"},
	}
}

// Validate 按 默认 → 配置 → 命令行 的顺序验证头部
func (hm *HeaderManager) Validate() error {
	if err := hm.validator.Validate(hm.defaults); err != nil {
		utils.Errorf("默认头部验证失败: %v", err)
		return err
	}
	if err := hm.validator.Validate(hm.config); err != nil {
		utils.Errorf("配置文件头部验证失败: %v", err)
		return err
	}
	if err := hm.validator.Validate(hm.cli); err != nil {
		utils.Errorf("命令行头部验证失败: %v", err)
		return err
	}

	utils.Debugf("所有HTTP头部验证通过")
	return nil
}

// GetMergedHeaders 按优先级合并头部 (default < config < cli)
func (hm *HeaderManager) GetMergedHeaders() http.Header {
	result := make(http.Header)
	for _, layer := range []http.Header{hm.defaults, hm.config, hm.cli} {
		for name, values := range layer {
			result[name] = append([]string(nil), values...)
		}
	}
	return result
}

// GetSafeHeaders 返回脱敏后的头部 (用于日志)
func (hm *HeaderManager) GetSafeHeaders() map[string]string {
	return hm.redactor.Redact(hm.GetMergedHeaders())
}

// NextIdentity 为一次请求选取代理和UA
func (hm *HeaderManager) NextIdentity() models.Identity {
	id := models.Identity{
		UserAgent: hm.agents.Next(),
		Headers:   hm.GetMergedHeaders(),
	}
	if proxy, ok := hm.proxies.Next(); ok {
		id.Proxy = &proxy
	}
	return id
}
