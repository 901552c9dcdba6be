package crawlers

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/RecoveryAshes/nicheharvest/internal/models"
	"github.com/RecoveryAshes/nicheharvest/internal/utils"
	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
)

// StatusError 非2xx响应
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// StaticConfig 直接请求配置
type StaticConfig struct {
	Timeout            time.Duration // 单次请求超时
	CloudflareBypass   bool          // 使用Cloudflare指纹伪装
	InsecureSkipVerify bool          // 跳过TLS证书验证
	MaxBodySize        int           // 响应体上限(字节), 0 使用colly默认值
}

// StaticFetcher 直接请求抓取器(使用Colly)
// 每次请求新建collector, 代理和UA按身份单独设置
type StaticFetcher struct {
	config StaticConfig
}

// NewStaticFetcher 创建直接请求抓取器
func NewStaticFetcher(config StaticConfig) *StaticFetcher {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.InsecureSkipVerify {
		utils.Debugf("直接请求: TLS证书验证已禁用")
	}
	return &StaticFetcher{config: config}
}

// Get 请求页面并返回解码后的文本
func (sf *StaticFetcher) Get(ctx context.Context, targetURL string, id models.Identity) (string, error) {
	transport, err := sf.transport(id)
	if err != nil {
		return "", err
	}

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.UserAgent(id.UserAgent),
		colly.StdlibContext(ctx),
	)
	if sf.config.MaxBodySize > 0 {
		c.MaxBodySize = sf.config.MaxBodySize
	}
	c.WithTransport(transport)
	c.SetRequestTimeout(sf.config.Timeout)

	var (
		body   string
		status int
		reqErr error
	)

	c.OnRequest(func(r *colly.Request) {
		for name, values := range id.Headers {
			if strings.EqualFold(name, "User-Agent") {
				continue
			}
			r.Headers.Del(name)
			for _, v := range values {
				r.Headers.Add(name, v)
			}
		}
		r.Headers.Set("User-Agent", id.UserAgent)
	})

	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = string(r.Body)
	})

	c.OnError(func(r *colly.Response, err error) {
		reqErr = err
	})

	if err := c.Visit(targetURL); err != nil && reqErr == nil {
		reqErr = err
	}
	if reqErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(reqErr, ctxErr) {
			return "", fmt.Errorf("%w: %v", ctxErr, reqErr)
		}
		return "", fmt.Errorf("请求失败 [%s]: %w", targetURL, reqErr)
	}

	if status < 200 || status >= 300 {
		return "", &StatusError{URL: targetURL, StatusCode: status}
	}
	return body, nil
}

// transport 为一次请求构建传输层: 代理 → Cloudflare伪装 → 解压
func (sf *StaticFetcher) transport(id models.Identity) (http.RoundTripper, error) {
	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: sf.config.InsecureSkipVerify,
		},
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: sf.config.Timeout,
	}

	if proxy := id.ProxyURL(); proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("代理地址无效 %s: %w", utils.RedactProxyURL(proxy), err)
		}
		base.Proxy = http.ProxyURL(proxyURL)
	}

	var rt http.RoundTripper = base
	if sf.config.CloudflareBypass {
		// 会整体替换 TLSClientConfig, 需要重新设置证书校验
		rt = cloudflarebp.AddCloudFlareByPass(rt)
		base.TLSClientConfig.InsecureSkipVerify = sf.config.InsecureSkipVerify
	}
	return &decodingTransport{base: rt}, nil
}

// decodingTransport 根据 Content-Encoding 解压响应体
// 请求头显式设置了 Accept-Encoding, 标准库不会自动解压
type decodingTransport struct {
	base http.RoundTripper
}

func (t *decodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	encoding := resp.Header.Get("Content-Encoding")
	if encoding == "" || resp.Uncompressed {
		return resp, nil
	}

	reader, err := decompressReader(encoding, resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	if reader == nil {
		return resp, nil
	}

	resp.Body = &decodedBody{Reader: reader, raw: resp.Body}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return resp, nil
}

type decodedBody struct {
	io.Reader
	raw io.ReadCloser
}

func (b *decodedBody) Close() error {
	if c, ok := b.Reader.(io.Closer); ok {
		c.Close()
	}
	return b.raw.Close()
}

// decompressReader 支持 gzip, deflate, br (Brotli) 三种压缩格式
// 未知编码返回nil, 调用方按原始内容处理
func decompressReader(contentEncoding string, body io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip":
		reader, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		return reader, nil

	case "deflate":
		return flate.NewReader(body), nil

	case "br":
		return brotli.NewReader(body), nil

	case "identity":
		return body, nil

	default:
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return nil, nil
	}
}
