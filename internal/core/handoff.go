package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Challenge 一次等待人工处理的验证
// 执行器发出后阻塞当前worker,直到 Resume 被调用或上下文取消
type Challenge struct {
	ID         string
	URL        string
	Attempt    int
	Indicator  string // 命中的验证关键字
	DetectedAt time.Time

	resolved chan struct{}
	once     sync.Once
}

// NewChallenge 创建待处理的验证
func NewChallenge(url string, attempt int, indicator string) *Challenge {
	return &Challenge{
		ID:         uuid.New().String(),
		URL:        url,
		Attempt:    attempt,
		Indicator:  indicator,
		DetectedAt: time.Now(),
		resolved:   make(chan struct{}),
	}
}

// Resume 标记验证已处理,可重复调用
func (c *Challenge) Resume() {
	c.once.Do(func() { close(c.resolved) })
}

// Done 验证处理完成时关闭
func (c *Challenge) Done() <-chan struct{} {
	return c.resolved
}

// wait 阻塞到验证被处理或ctx取消
func (c *Challenge) wait(ctx context.Context) error {
	select {
	case <-c.resolved:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandoffNotifier 接收待处理的验证
// 实现方负责通知操作员并在处理完成后调用 Challenge.Resume
// ChallengePending 不应长时间阻塞
type HandoffNotifier interface {
	ChallengePending(c *Challenge)
}

// HandoffFunc 函数适配器
type HandoffFunc func(c *Challenge)

// ChallengePending 实现 HandoffNotifier
func (f HandoffFunc) ChallengePending(c *Challenge) {
	f(c)
}
