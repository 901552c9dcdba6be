package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NotAvailable 字段缺失时的占位值
const NotAvailable = "N/A"

// RecordLayout 平台记录的字段布局
type RecordLayout struct {
	Platform Platform
	Type     string   // 记录类型: hashtag/product/post/video
	Fields   []string // 字段名(输出顺序)
}

var recordLayouts = map[Platform]RecordLayout{
	PlatformTikTok: {
		Platform: PlatformTikTok,
		Type:     "hashtag",
		Fields:   []string{"name", "views", "url"},
	},
	PlatformAmazon: {
		Platform: PlatformAmazon,
		Type:     "product",
		Fields:   []string{"category", "name", "price", "rating"},
	},
	PlatformReddit: {
		Platform: PlatformReddit,
		Type:     "post",
		Fields:   []string{"subreddit", "title", "upvotes", "comments"},
	},
	PlatformYouTube: {
		Platform: PlatformYouTube,
		Type:     "video",
		Fields:   []string{"query", "title", "views", "date", "video_id", "url"},
	},
}

// LayoutFor 返回平台的字段布局
func LayoutFor(p Platform) (RecordLayout, bool) {
	layout, ok := recordLayouts[p]
	return layout, ok
}

// ExtractionRecord 提取结果记录
// 创建时所有布局字段均预填 NotAvailable,不属于该平台的字段无法写入
type ExtractionRecord struct {
	Platform  Platform
	Type      string
	SourceURL string

	fields []string
	values map[string]string
}

// NewRecord 按平台布局创建记录
func NewRecord(p Platform, sourceURL string) (*ExtractionRecord, error) {
	layout, ok := LayoutFor(p)
	if !ok {
		return nil, fmt.Errorf("平台 %s 没有记录布局", p)
	}

	values := make(map[string]string, len(layout.Fields))
	for _, f := range layout.Fields {
		values[f] = NotAvailable
	}

	return &ExtractionRecord{
		Platform:  p,
		Type:      layout.Type,
		SourceURL: sourceURL,
		fields:    layout.Fields,
		values:    values,
	}, nil
}

// Set 写入字段值
// 字段不在布局中属于编程错误,直接panic
func (r *ExtractionRecord) Set(field, value string) {
	if _, ok := r.values[field]; !ok {
		panic(fmt.Sprintf("字段 %q 不属于平台 %s 的记录布局", field, r.Platform))
	}
	r.values[field] = value
}

// Get 读取字段值,未知字段返回空串
func (r *ExtractionRecord) Get(field string) string {
	return r.values[field]
}

// Fields 返回字段名(布局顺序)
func (r *ExtractionRecord) Fields() []string {
	out := make([]string, len(r.fields))
	copy(out, r.fields)
	return out
}

// Map 返回扁平化的全部字段
func (r *ExtractionRecord) Map() map[string]string {
	out := make(map[string]string, len(r.values)+3)
	out["platform"] = string(r.Platform)
	out["type"] = r.Type
	for k, v := range r.values {
		out[k] = v
	}
	out["source_url"] = r.SourceURL
	return out
}

// MarshalJSON 输出扁平对象,字段按布局顺序排列
func (r *ExtractionRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	write := func(key, value string, first bool) error {
		if !first {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	if err := write("platform", string(r.Platform), true); err != nil {
		return nil, err
	}
	if err := write("type", r.Type, false); err != nil {
		return nil, err
	}
	for _, f := range r.fields {
		if err := write(f, r.values[f], false); err != nil {
			return nil, err
		}
	}
	if err := write("source_url", r.SourceURL, false); err != nil {
		return nil, err
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
