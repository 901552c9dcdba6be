package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/RecoveryAshes/nicheharvest/internal/models"
	"github.com/RecoveryAshes/nicheharvest/internal/utils"
)

var (
	// ErrChallengeUnresolved 浏览器模式遇到验证页且没有人工处理通道
	ErrChallengeUnresolved = errors.New("验证页未处理")

	// errEscalate 直接请求命中验证页,需要切换到浏览器模式
	errEscalate = errors.New("切换到浏览器模式")
)

const defaultAttemptTimeout = 30 * time.Second

// DirectFetcher 直接HTTP请求
// 非2xx状态码应返回错误
type DirectFetcher interface {
	Get(ctx context.Context, url string, id models.Identity) (string, error)
}

// BrowserSession 已完成导航的浏览器会话
type BrowserSession interface {
	// HTML 读取当前文档
	HTML() (string, error)
	Close() error
}

// BrowserRenderer 打开浏览器会话
// ctx 只约束导航阶段,返回的会话在 Close 之前一直有效
type BrowserRenderer interface {
	Open(ctx context.Context, url string, id models.Identity) (BrowserSession, error)
}

// IdentitySource 每次尝试提供代理和UA
type IdentitySource interface {
	NextIdentity() models.Identity
}

// Sleeper 可被取消的等待
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext 默认的 Sleeper
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ExecutorConfig 重试策略
type ExecutorConfig struct {
	MaxRetries int           // 最大尝试次数
	Delay      time.Duration // 退避基数, 第k次失败后等待 Delay*k
	Timeout    time.Duration // 单次尝试超时(浏览器模式只约束导航)
}

// ExecutorStats 执行器计数
type ExecutorStats struct {
	Attempts    int64
	Escalations int64
	Challenges  int64
	Exhausted   int64
}

// RequestExecutor 带重试、验证页升级和人工接管的抓取器
type RequestExecutor struct {
	cfg        ExecutorConfig
	direct     DirectFetcher
	browser    BrowserRenderer
	identities IdentitySource
	detector   *CaptchaDetector
	handoff    HandoffNotifier
	sleep      Sleeper

	attempts    atomic.Int64
	escalations atomic.Int64
	challenges  atomic.Int64
	exhausted   atomic.Int64
}

// ExecutorOption 可选配置
type ExecutorOption func(*RequestExecutor)

// WithHandoff 设置人工处理通道
func WithHandoff(n HandoffNotifier) ExecutorOption {
	return func(e *RequestExecutor) { e.handoff = n }
}

// WithSleeper 替换退避等待(测试用)
func WithSleeper(s Sleeper) ExecutorOption {
	return func(e *RequestExecutor) { e.sleep = s }
}

// NewRequestExecutor 创建执行器
func NewRequestExecutor(cfg ExecutorConfig, direct DirectFetcher, browser BrowserRenderer, identities IdentitySource, detector *CaptchaDetector, opts ...ExecutorOption) *RequestExecutor {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultAttemptTimeout
	}
	if detector == nil {
		detector = NewCaptchaDetector()
	}

	e := &RequestExecutor{
		cfg:        cfg,
		direct:     direct,
		browser:    browser,
		identities: identities,
		detector:   detector,
		sleep:      SleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fetch 抓取URL
// 直接请求命中验证页时,以新的重试预算在浏览器模式下重新抓取一次
func (e *RequestExecutor) Fetch(ctx context.Context, url string, renderWithBrowser bool) models.FetchOutcome {
	mode := models.ModeDirect
	if renderWithBrowser {
		mode = models.ModeBrowser
	}

	outcome, escalate := e.run(ctx, url, mode)
	if !escalate {
		return outcome
	}

	e.escalations.Add(1)
	utils.Logger.Warn().Str("url", url).Msg("🛡️ 直接请求遇到验证页, 切换到浏览器模式")

	outcome, _ = e.run(ctx, url, models.ModeBrowser)
	return outcome
}

// run 在指定模式下执行完整的重试循环
// 第二个返回值表示需要升级到浏览器模式(仅直接请求模式会返回true)
func (e *RequestExecutor) run(ctx context.Context, url string, mode models.FetchMode) (models.FetchOutcome, bool) {
	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			utils.Logger.Warn().Str("url", url).Err(err).Msg("抓取已取消")
			return models.FetchOutcome{}, false
		}

		id := e.identities.NextIdentity()
		e.attempts.Add(1)

		body, err := e.attempt(ctx, url, mode, id, attempt)
		if err == nil {
			utils.Logger.Debug().Str("url", url).Str("mode", string(mode)).Int("attempt", attempt).
				Int("bytes", len(body)).Msg("抓取成功")
			return models.FetchOutcome{Body: body, Succeeded: true}, false
		}
		if errors.Is(err, errEscalate) {
			return models.FetchOutcome{}, true
		}

		utils.Logger.Warn().
			Str("url", url).
			Str("mode", string(mode)).
			Str("proxy", utils.RedactProxyURL(id.ProxyURL())).
			Int("attempt", attempt).
			Int("max_retries", e.cfg.MaxRetries).
			Err(err).
			Msgf("第 %d/%d 次尝试失败", attempt, e.cfg.MaxRetries)

		if attempt < e.cfg.MaxRetries {
			wait := e.cfg.Delay * time.Duration(attempt)
			utils.Debugf("等待 %v 后重试: %s", wait, url)
			if err := e.sleep(ctx, wait); err != nil {
				utils.Logger.Warn().Str("url", url).Err(err).Msg("退避等待被取消")
				return models.FetchOutcome{}, false
			}
		}
	}

	e.exhausted.Add(1)
	utils.Logger.Warn().Str("url", url).Int("attempts", e.cfg.MaxRetries).Msg("❌ 重试次数耗尽, 放弃该URL")
	return models.FetchOutcome{}, false
}

func (e *RequestExecutor) attempt(ctx context.Context, url string, mode models.FetchMode, id models.Identity, attempt int) (body string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("抓取panic: %v", r)
		}
	}()

	if mode == models.ModeBrowser {
		return e.browse(ctx, url, id, attempt)
	}

	if e.direct == nil {
		return "", errors.New("未配置直接请求抓取器")
	}

	attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	body, err = e.direct.Get(attemptCtx, url, id)
	if err != nil {
		return "", err
	}
	if indicator, hit := e.detector.Match(body); hit {
		utils.Logger.Info().Str("url", url).Str("indicator", indicator).Msg("直接请求命中验证页关键字")
		return "", errEscalate
	}
	return body, nil
}

// browse 浏览器模式的一次尝试; 命中验证页时交给人工处理后重新读取同一会话的文档
func (e *RequestExecutor) browse(ctx context.Context, url string, id models.Identity, attempt int) (string, error) {
	if e.browser == nil {
		return "", errors.New("未配置浏览器渲染器")
	}

	openCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	session, err := e.browser.Open(openCtx, url, id)
	cancel()
	if err != nil {
		return "", err
	}
	defer func() {
		if err := session.Close(); err != nil {
			utils.Debugf("关闭浏览器会话失败: %v", err)
		}
	}()

	body, err := session.HTML()
	if err != nil {
		return "", err
	}

	indicator, hit := e.detector.Match(body)
	if !hit {
		return body, nil
	}

	e.challenges.Add(1)
	if e.handoff == nil {
		return "", fmt.Errorf("%w: 命中关键字 %q", ErrChallengeUnresolved, indicator)
	}

	challenge := NewChallenge(url, attempt, indicator)
	utils.Logger.Warn().
		Str("url", url).
		Str("challenge_id", challenge.ID).
		Str("indicator", indicator).
		Msg("⚠️ 检测到验证页, 等待人工处理")

	e.handoff.ChallengePending(challenge)
	if err := challenge.wait(ctx); err != nil {
		return "", err
	}

	body, err = session.HTML()
	if err != nil {
		return "", fmt.Errorf("人工处理后读取页面失败: %w", err)
	}
	if _, still := e.detector.Match(body); still {
		utils.Logger.Warn().Str("url", url).Str("challenge_id", challenge.ID).Msg("人工处理后页面仍包含验证关键字, 按当前文档继续")
	} else {
		utils.Logger.Info().Str("url", url).Str("challenge_id", challenge.ID).Msg("✅ 验证已处理, 继续抓取")
	}
	return body, nil
}

// HasHandoff 是否配置了人工处理通道
func (e *RequestExecutor) HasHandoff() bool {
	return e.handoff != nil
}

// Stats 返回计数快照
func (e *RequestExecutor) Stats() ExecutorStats {
	return ExecutorStats{
		Attempts:    e.attempts.Load(),
		Escalations: e.escalations.Load(),
		Challenges:  e.challenges.Load(),
		Exhausted:   e.exhausted.Load(),
	}
}
