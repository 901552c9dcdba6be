package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/RecoveryAshes/nicheharvest/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func proxyConfig(enabled, rotation bool, urls ...string) models.ProxyConfig {
	cfg := models.ProxyConfig{Enabled: enabled, Rotation: rotation}
	for _, u := range urls {
		cfg.Providers = append(cfg.Providers, models.ProxyProvider{URL: u})
	}
	return cfg
}

func TestProxyRotator(t *testing.T) {
	t.Run("轮换顺序", func(t *testing.T) {
		r := NewProxyRotator(proxyConfig(true, true, "http://a:1", "http://b:2", "http://c:3"))
		var got []string
		for i := 0; i < 4; i++ {
			p, ok := r.Next()
			require.True(t, ok)
			got = append(got, p.URL)
		}
		assert.Equal(t, []string{"http://a:1", "http://b:2", "http://c:3", "http://a:1"}, got)
	})

	t.Run("不轮换时总是第一个", func(t *testing.T) {
		r := NewProxyRotator(proxyConfig(true, false, "http://a:1", "http://b:2"))
		for i := 0; i < 3; i++ {
			p, ok := r.Next()
			require.True(t, ok)
			assert.Equal(t, "http://a:1", p.URL)
		}
	})

	t.Run("未启用或为空", func(t *testing.T) {
		_, ok := NewProxyRotator(proxyConfig(false, true, "http://a:1")).Next()
		assert.False(t, ok)

		_, ok = NewProxyRotator(proxyConfig(true, true)).Next()
		assert.False(t, ok)

		var nilRotator *ProxyRotator
		_, ok = nilRotator.Next()
		assert.False(t, ok)
	})

	t.Run("丢弃无效代理", func(t *testing.T) {
		r := NewProxyRotator(proxyConfig(true, true, "ftp://x:1", "not a url", "socks5://ok:1080"))
		assert.Equal(t, 1, r.Len())
	})

	t.Run("并发均匀分配", func(t *testing.T) {
		r := NewProxyRotator(proxyConfig(true, true, "http://a:1", "http://b:2"))
		var mu sync.Mutex
		counts := map[string]int{}
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p, _ := r.Next()
				mu.Lock()
				counts[p.URL]++
				mu.Unlock()
			}()
		}
		wg.Wait()
		assert.Equal(t, 50, counts["http://a:1"])
		assert.Equal(t, 50, counts["http://b:2"])
	})
}

func TestUserAgentPool(t *testing.T) {
	t.Run("空配置使用默认UA", func(t *testing.T) {
		p := NewUserAgentPool(nil)
		assert.Equal(t, 1, p.Size())
		assert.Equal(t, DefaultUserAgent, p.Next())
	})

	t.Run("只返回配置中的UA", func(t *testing.T) {
		agents := []string{"UA-1", "UA-2", "UA-3"}
		p := NewUserAgentPoolWithSeed(agents, 42)
		seen := map[string]bool{}
		for i := 0; i < 300; i++ {
			ua := p.Next()
			assert.Contains(t, agents, ua)
			seen[ua] = true
		}
		assert.Len(t, seen, 3)
	})

	t.Run("去重和去空", func(t *testing.T) {
		p := NewUserAgentPool([]string{"UA", "UA", "  ", ""})
		assert.Equal(t, 1, p.Size())
	})
}

func TestCaptchaDetector(t *testing.T) {
	d := NewCaptchaDetector()

	tests := []struct {
		name string
		body string
		want bool
	}{
		{"大小写不敏感", "<title>Please solve the CAPTCHA</title>", true},
		{"robot", "Are you a Robot?", true},
		{"弯引号", "Prove you’re human to continue", true},
		{"安全检查", "Security Check required", true},
		{"正常页面", "<html><body>Best sellers</body></html>", false},
		{"空内容", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.IsChallenge(tt.body))
		})
	}

	t.Run("扩展关键字", func(t *testing.T) {
		d := NewCaptchaDetector("Access Denied", "captcha")
		assert.True(t, d.IsChallenge("access denied"))
		assert.Len(t, d.Indicators(), len(DefaultCaptchaIndicators)+1)

		indicator, ok := d.Match("ACCESS DENIED")
		assert.True(t, ok)
		assert.Equal(t, "access denied", indicator)
	})
}

func TestHeaderManager(t *testing.T) {
	rotator := NewProxyRotator(proxyConfig(true, true, "http://user:pass@p1:8080", "http://p2:8080"))
	agents := NewUserAgentPool([]string{"UA-test"})

	hm, err := NewHeaderManager(
		map[string]string{"accept-language": "de-DE", "x-trace": "config"},
		[]string{"X-Trace: cli"},
		rotator, agents,
	)
	require.NoError(t, err)
	require.NoError(t, hm.Validate())

	t.Run("优先级合并", func(t *testing.T) {
		h := hm.GetMergedHeaders()
		assert.Equal(t, "de-DE", h.Get("Accept-Language"))
		assert.Equal(t, "cli", h.Get("X-Trace"))
		assert.NotEmpty(t, h.Get("Accept"))
	})

	t.Run("身份包含代理和UA", func(t *testing.T) {
		first := hm.NextIdentity()
		second := hm.NextIdentity()
		assert.Equal(t, "UA-test", first.UserAgent)
		require.NotNil(t, first.Proxy)
		require.NotNil(t, second.Proxy)
		assert.NotEqual(t, first.Proxy.URL, second.Proxy.URL)
	})

	t.Run("头部互不影响", func(t *testing.T) {
		id := hm.NextIdentity()
		id.Headers.Set("X-Trace", "mutated")
		assert.Equal(t, "cli", hm.GetMergedHeaders().Get("X-Trace"))
	})

	t.Run("无代理", func(t *testing.T) {
		plain, err := NewHeaderManager(nil, nil, nil, nil)
		require.NoError(t, err)
		id := plain.NextIdentity()
		assert.Nil(t, id.Proxy)
		assert.Equal(t, DefaultUserAgent, id.UserAgent)
	})

	t.Run("命令行禁止设置UA", func(t *testing.T) {
		bad, err := NewHeaderManager(nil, []string{"User-Agent: x"}, nil, nil)
		require.NoError(t, err)
		assert.Error(t, bad.Validate())
	})

	t.Run("命令行头部格式错误", func(t *testing.T) {
		_, err := NewHeaderManager(nil, []string{"no-colon"}, nil, nil)
		assert.Error(t, err)
	})
}

func TestChallenge(t *testing.T) {
	c := NewChallenge("https://example.com", 1, "captcha")
	assert.NotEmpty(t, c.ID)

	c.Resume()
	c.Resume()
	select {
	case <-c.Done():
	default:
		t.Fatal("Resume 之后 Done 应已关闭")
	}
	assert.NoError(t, c.wait(context.Background()))

	pending := NewChallenge("u", 1, "robot")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pending.wait(ctx), context.DeadlineExceeded)
}

func TestTaskQueue(t *testing.T) {
	q := NewTaskQueue(2)
	a := models.NewScrapeTask(models.PlatformReddit, "a")
	b := models.NewScrapeTask(models.PlatformReddit, "b")

	require.NoError(t, q.Push(a))
	assert.Error(t, q.Push(a), "重复任务")
	require.NoError(t, q.Push(b))
	assert.Error(t, q.Push(models.NewScrapeTask(models.PlatformReddit, "c")), "队列已满")
	assert.Equal(t, 2, q.PendingCount())
	assert.True(t, q.Submitted(a.ID))

	q.Close()
	q.Close()
	assert.Error(t, q.Push(models.NewScrapeTask(models.PlatformReddit, "d")))

	ctx := context.Background()
	got, ok := q.Pop(ctx)
	require.True(t, ok)
	assert.Equal(t, a.ID, got.ID)
	got, ok = q.Pop(ctx)
	require.True(t, ok)
	assert.Equal(t, b.ID, got.ID)
	_, ok = q.Pop(ctx)
	assert.False(t, ok)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok = NewTaskQueue(1).Pop(cancelled)
	assert.False(t, ok)
}
