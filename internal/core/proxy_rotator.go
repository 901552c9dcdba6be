package core

import (
	"sync/atomic"

	"github.com/RecoveryAshes/nicheharvest/internal/models"
	"github.com/RecoveryAshes/nicheharvest/internal/utils"
)

// ProxyRotator 代理轮换器
// 轮换模式下按顺序循环返回代理,游标为原子计数,可被多个worker并发调用
type ProxyRotator struct {
	endpoints []models.ProxyEndpoint
	enabled   bool
	rotation  bool

	cursor atomic.Uint64
}

// NewProxyRotator 根据配置创建代理轮换器,无效代理会被跳过
func NewProxyRotator(cfg models.ProxyConfig) *ProxyRotator {
	endpoints := make([]models.ProxyEndpoint, 0, len(cfg.Providers))
	for i, p := range cfg.Providers {
		if err := models.ValidateProxyURL(p.URL); err != nil {
			utils.Warnf("跳过无效代理 (第%d项) %s: %v", i+1, utils.RedactProxyURL(p.URL), err)
			continue
		}
		endpoints = append(endpoints, models.ProxyEndpoint{URL: p.URL})
	}

	if cfg.Enabled {
		mode := "固定"
		if cfg.Rotation {
			mode = "轮换"
		}
		utils.Infof("🔀 代理已启用: %d个端点, 模式=%s", len(endpoints), mode)
	}

	return &ProxyRotator{
		endpoints: endpoints,
		enabled:   cfg.Enabled,
		rotation:  cfg.Rotation,
	}
}

// Next 返回下一次请求使用的代理
// 未启用或没有端点时返回false; 未开启轮换时固定返回第一个端点
func (r *ProxyRotator) Next() (models.ProxyEndpoint, bool) {
	if r == nil || !r.enabled || len(r.endpoints) == 0 {
		return models.ProxyEndpoint{}, false
	}
	if !r.rotation {
		return r.endpoints[0], true
	}

	n := r.cursor.Add(1) - 1
	return r.endpoints[n%uint64(len(r.endpoints))], true
}

// Len 有效代理数量
func (r *ProxyRotator) Len() int {
	if r == nil {
		return 0
	}
	return len(r.endpoints)
}
