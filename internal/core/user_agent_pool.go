package core

import (
	"math/rand"
	"sync"
	"time"

	"github.com/RecoveryAshes/nicheharvest/internal/utils"
)

// DefaultUserAgent 未配置UA时使用
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/91.0.4472.124 Safari/537.36"

// UserAgentPool 随机选取User-Agent
type UserAgentPool struct {
	agents []string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewUserAgentPool 创建UA池
func NewUserAgentPool(agents []string) *UserAgentPool {
	return NewUserAgentPoolWithSeed(agents, time.Now().UnixNano())
}

// NewUserAgentPoolWithSeed 使用固定种子创建UA池(测试用)
func NewUserAgentPoolWithSeed(agents []string, seed int64) *UserAgentPool {
	validator := utils.NewHeaderValidator()

	cleaned := make([]string, 0, len(agents))
	for _, ua := range utils.UniqueStrings(agents) {
		if err := validator.ValidateUserAgent(ua); err != nil {
			utils.Warnf("跳过无效User-Agent: %v", err)
			continue
		}
		cleaned = append(cleaned, ua)
	}
	if len(cleaned) == 0 {
		cleaned = []string{DefaultUserAgent}
	}

	return &UserAgentPool{
		agents: cleaned,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Next 均匀随机返回一个UA
func (p *UserAgentPool) Next() string {
	if len(p.agents) == 1 {
		return p.agents[0]
	}

	p.mu.Lock()
	i := p.rng.Intn(len(p.agents))
	p.mu.Unlock()

	return p.agents[i]
}

// Size UA数量
func (p *UserAgentPool) Size() int {
	return len(p.agents)
}
