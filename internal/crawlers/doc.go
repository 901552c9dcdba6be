// Package crawlers 提供直接请求和浏览器渲染两种页面抓取方式
//
// # 核心组件
//
// ## StaticFetcher
//
// 基于Colly的直接请求抓取器。每次请求新建collector, 按身份设置代理和UA,
// 支持 gzip/deflate/br 解压和可选的Cloudflare指纹伪装。非2xx响应返回 *StatusError。
//
//	f := NewStaticFetcher(StaticConfig{Timeout: 30 * time.Second, CloudflareBypass: true})
//	body, err := f.Get(ctx, "https://www.reddit.com/r/deals", identity)
//
// ## DynamicRenderer
//
// 基于go-rod的浏览器渲染器。每次 Open 启动独立的浏览器进程, 注入stealth脚本,
// 覆盖UA, 导航并等待页面稳定后返回会话。会话在 Close 之前可以反复读取HTML,
// 人工处理验证页后重新读取同一页面即依赖这一点。
//
//	r := NewDynamicRenderer(DynamicConfig{Headless: true, SettleTime: 2 * time.Second}, monitor)
//	session, err := r.Open(ctx, url, identity)
//	if err != nil { /* 处理错误 */ }
//	defer session.Close()
//	html, err := session.HTML()
//
// ## ResourceMonitor (资源监控器)
//
// 按可用内存、CPU核数和配置上限计算同时打开的浏览器数量, 用信号量限制会话。
// 内存压力等级:
//   - 可用内存 < 500MB: warning
//   - 可用内存 < 300MB: critical
//   - 可用内存 < 200MB: emergency
//
//	monitor := NewResourceMonitor(ResourceMonitorConfig{
//	    MaxSessions:         4,
//	    SessionMemoryUsage:  300 * 1024 * 1024,
//	    SafetyReserveMemory: 1024 * 1024 * 1024,
//	    CPULoadThreshold:    200,
//	})
//
// # 并发安全
//
// StaticFetcher 和 DynamicRenderer 都不保存请求间状态, 可被多个worker同时使用。
// ResourceMonitor 的计数使用原子操作。
package crawlers
