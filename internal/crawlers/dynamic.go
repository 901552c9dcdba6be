package crawlers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/RecoveryAshes/nicheharvest/internal/core"
	"github.com/RecoveryAshes/nicheharvest/internal/models"
	"github.com/RecoveryAshes/nicheharvest/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// ErrBrowserCrashed 浏览器操作过程中发生panic
var ErrBrowserCrashed = errors.New("浏览器异常")

// DynamicConfig 浏览器渲染配置
type DynamicConfig struct {
	Headless    bool
	SettleTime  time.Duration // 页面加载后的额外等待
	ReadTimeout time.Duration // 读取页面HTML的超时
}

// DynamicRenderer 浏览器渲染器(使用Rod)
// 每次 Open 启动独立的浏览器进程, 代理和UA互不影响
type DynamicRenderer struct {
	config  DynamicConfig
	monitor *ResourceMonitor
}

// NewDynamicRenderer 创建浏览器渲染器, monitor 为nil时不限制会话数
func NewDynamicRenderer(config DynamicConfig, monitor *ResourceMonitor) *DynamicRenderer {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 30 * time.Second
	}
	return &DynamicRenderer{config: config, monitor: monitor}
}

// Open 启动浏览器并导航到目标页面
// ctx 只约束启动和导航, 返回的会话在 Close 之前可以继续读取
func (dr *DynamicRenderer) Open(ctx context.Context, targetURL string, id models.Identity) (session core.BrowserSession, err error) {
	release := func() {}
	if dr.monitor != nil {
		release, err = dr.monitor.Acquire(ctx)
		if err != nil {
			return nil, err
		}
	}

	ps := &pageSession{release: release, readTimeout: dr.config.ReadTimeout}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrBrowserCrashed, r)
		}
		if err != nil {
			ps.Close()
			session = nil
		}
	}()

	if err := dr.launch(ctx, ps, id); err != nil {
		return nil, err
	}

	page, err := stealth.Page(ps.browser)
	if err != nil {
		return nil, fmt.Errorf("创建页面失败: %w", err)
	}
	ps.page = page

	if err := dr.applyIdentity(page, id); err != nil {
		return nil, err
	}

	nav := page.Context(ctx)
	if err := nav.Navigate(targetURL); err != nil {
		return nil, fmt.Errorf("导航失败 [%s]: %w", targetURL, err)
	}
	if err := nav.WaitLoad(); err != nil {
		return nil, fmt.Errorf("等待页面加载失败 [%s]: %w", targetURL, err)
	}

	// 额外等待时间(等待动态内容加载)
	if err := core.SleepContext(ctx, dr.config.SettleTime); err != nil {
		return nil, err
	}

	utils.Debugf("页面加载完成: %s", targetURL)
	return ps, nil
}

// launch 启动浏览器进程并连接
func (dr *DynamicRenderer) launch(ctx context.Context, ps *pageSession, id models.Identity) error {
	l := launcher.New().
		Context(ctx).
		Headless(dr.config.Headless).
		Set("ignore-certificate-errors")

	var user *url.Userinfo
	if raw := id.ProxyURL(); raw != "" {
		server, userinfo, err := proxyServer(raw)
		if err != nil {
			return err
		}
		l = l.Proxy(server)
		user = userinfo
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("启动浏览器失败: %w", err)
	}
	// Cleanup 会等待进程退出, 只在启动成功后记录
	ps.launcher = l

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("连接浏览器失败: %w", err)
	}
	ps.browser = browser

	if user != nil {
		password, _ := user.Password()
		wait := browser.HandleAuth(user.Username(), password)
		go func() {
			if err := wait(); err != nil {
				utils.Debugf("代理认证结束: %v", err)
			}
		}()
	}

	utils.Debugf("浏览器已启动: %s (代理=%s)", controlURL, utils.RedactProxyURL(id.ProxyURL()))
	return nil
}

// applyIdentity 设置UA和额外头部
// Accept-Encoding 由浏览器自行协商
func (dr *DynamicRenderer) applyIdentity(page *rod.Page, id models.Identity) error {
	if err := (proto.NetworkSetUserAgentOverride{UserAgent: id.UserAgent}).Call(page); err != nil {
		return fmt.Errorf("设置User-Agent失败: %w", err)
	}

	dict := make([]string, 0, len(id.Headers)*2)
	for name, values := range id.Headers {
		if strings.EqualFold(name, "Accept-Encoding") || strings.EqualFold(name, "User-Agent") || len(values) == 0 {
			continue
		}
		dict = append(dict, name, strings.Join(values, ", "))
	}
	if len(dict) > 0 {
		if _, err := page.SetExtraHeaders(dict); err != nil {
			return fmt.Errorf("设置请求头失败: %w", err)
		}
	}
	return nil
}

// proxyServer 拆出浏览器可用的代理地址和认证信息
// Chrome 的 --proxy-server 不接受用户名密码
func proxyServer(raw string) (string, *url.Userinfo, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", nil, fmt.Errorf("代理地址无效: %s", utils.RedactProxyURL(raw))
	}
	return u.Scheme + "://" + u.Host, u.User, nil
}

// pageSession 一个浏览器进程及其页面
type pageSession struct {
	launcher    *launcher.Launcher
	browser     *rod.Browser
	page        *rod.Page
	release     func()
	readTimeout time.Duration

	closeOnce sync.Once
}

// HTML 读取当前文档
func (ps *pageSession) HTML() (html string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrBrowserCrashed, r)
		}
	}()
	if ps.page == nil {
		return "", errors.New("页面未创建")
	}
	page := ps.page.Timeout(ps.readTimeout)
	defer page.CancelTimeout()
	return page.HTML()
}

// Close 关闭浏览器并释放槽位, 可重复调用
func (ps *pageSession) Close() error {
	var closeErr error
	ps.closeOnce.Do(func() {
		defer ps.release()
		defer func() {
			if r := recover(); r != nil {
				closeErr = fmt.Errorf("%w: %v", ErrBrowserCrashed, r)
			}
		}()

		if ps.browser != nil {
			closeErr = ps.browser.Close()
		}
		if ps.launcher != nil {
			ps.launcher.Kill()
			ps.launcher.Cleanup()
		}
		utils.Debugf("浏览器已关闭")
	})
	return closeErr
}
