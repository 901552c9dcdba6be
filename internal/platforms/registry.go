package platforms

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/RecoveryAshes/nicheharvest/internal/models"
)

// ErrUnknownPlatform 注册表中没有对应的平台
var ErrUnknownPlatform = errors.New("未注册的平台")

// Factory 根据配置创建平台
type Factory func(cfg models.PlatformConfig) (Platform, error)

// Registry 平台名称到工厂的映射
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	order     []string
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register 注册平台, 名称不区分大小写
func (r *Registry) Register(name string, f Factory) error {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return errors.New("平台名称不能为空")
	}
	if f == nil {
		return fmt.Errorf("平台 %s 的工厂为nil", key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[key]; exists {
		return fmt.Errorf("平台 %s 已注册", key)
	}
	r.factories[key] = f
	r.order = append(r.order, key)
	return nil
}

// Build 根据配置创建平台实例
func (r *Registry) Build(cfg models.PlatformConfig) (Platform, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Name))

	r.mu.RLock()
	f, ok := r.factories[key]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, cfg.Name)
	}
	return f(cfg)
}

// Names 按注册顺序返回平台名称
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// RegisterBuiltins 注册四个内置平台
func RegisterBuiltins(r *Registry) error {
	builtins := []struct {
		name    models.Platform
		factory Factory
	}{
		{models.PlatformTikTok, NewTikTok},
		{models.PlatformAmazon, NewAmazon},
		{models.PlatformReddit, NewReddit},
		{models.PlatformYouTube, NewYouTube},
	}
	for _, b := range builtins {
		if err := r.Register(string(b.name), b.factory); err != nil {
			return err
		}
	}
	return nil
}

// NewBuiltinRegistry 已注册内置平台的注册表
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		panic(err)
	}
	return r
}
