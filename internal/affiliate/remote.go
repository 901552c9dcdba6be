package affiliate

import (
	"context"
	"fmt"
	"time"

	"github.com/RecoveryAshes/nicheharvest/internal/models"
	"github.com/go-resty/resty/v2"
)

// RemoteProvider 从远程JSON获取联盟计划表
// 响应格式: {"领域": ["计划", ...]}
type RemoteProvider struct {
	name   string
	url    string
	client *resty.Client
}

// NewRemoteProvider 创建远程数据源
func NewRemoteProvider(cfg models.RemoteProviderConfig) *RemoteProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	name := cfg.Name
	if name == "" {
		name = cfg.URL
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(max(cfg.Retries, 0)).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("Accept", "application/json")

	return &RemoteProvider{name: name, url: cfg.URL, client: client}
}

func (p *RemoteProvider) Name() string { return p.name }

// SupplyPrograms 请求远程表
func (p *RemoteProvider) SupplyPrograms(ctx context.Context) (map[string][]string, error) {
	var programs map[string][]string
	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&programs).
		ForceContentType("application/json").
		Get(p.url)
	if err != nil {
		return nil, fmt.Errorf("请求 %s 失败: %w", p.url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("请求 %s 失败: HTTP %d", p.url, resp.StatusCode())
	}
	if programs == nil {
		return nil, fmt.Errorf("响应为空: %s", p.url)
	}
	return programs, nil
}
