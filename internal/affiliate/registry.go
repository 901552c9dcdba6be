package affiliate

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/RecoveryAshes/nicheharvest/internal/models"
	"github.com/RecoveryAshes/nicheharvest/internal/utils"
)

// Provider 联盟计划数据源
type Provider interface {
	Name() string
	// SupplyPrograms 返回 细分领域 → 联盟计划列表
	SupplyPrograms(ctx context.Context) (map[string][]string, error)
}

// Registry 按注册顺序合并多个数据源
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{}
}

// NewRegistryFromConfig 按配置注册内置表和远程数据源
func NewRegistryFromConfig(cfg models.AffiliateConfig) *Registry {
	reg := NewRegistry()
	if cfg.Builtin {
		reg.Register(NewBuiltinProvider())
	}
	for _, rc := range cfg.RemoteProviders {
		if rc.URL == "" {
			utils.Warnf("远程联盟数据源 %s 缺少url,已跳过", rc.Name)
			continue
		}
		reg.Register(NewRemoteProvider(rc))
	}
	return reg
}

// Register 注册数据源
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, p)
}

// Providers 已注册的数据源名称
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name())
	}
	return names
}

// Programs 合并所有数据源
// 后注册的数据源覆盖同名领域, 失败的数据源记录日志后跳过
func (r *Registry) Programs(ctx context.Context) map[string][]string {
	r.mu.RLock()
	providers := append([]Provider(nil), r.providers...)
	r.mu.RUnlock()

	merged := make(map[string][]string)
	for _, p := range providers {
		programs, err := p.SupplyPrograms(ctx)
		if err != nil {
			utils.Errorf("加载联盟数据源 %s 失败: %v", p.Name(), err)
			continue
		}
		for niche, list := range programs {
			merged[niche] = append([]string(nil), list...)
		}
		utils.Infof("已加载联盟数据源 %s (%d 个领域)", p.Name(), len(programs))
	}
	return merged
}

// Lookup 查找单个领域, 名称不区分大小写
func (r *Registry) Lookup(ctx context.Context, niche string) (string, []string, bool) {
	programs := r.Programs(ctx)
	if list, ok := programs[niche]; ok {
		return niche, list, true
	}
	for name, list := range programs {
		if strings.EqualFold(name, strings.TrimSpace(niche)) {
			return name, list, true
		}
	}
	return "", nil, false
}

// SortedNiches 按名称排序的领域列表
func SortedNiches(programs map[string][]string) []string {
	niches := make([]string, 0, len(programs))
	for niche := range programs {
		niches = append(niches, niche)
	}
	sort.Strings(niches)
	return niches
}
