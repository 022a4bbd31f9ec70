package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Outre0v0/douban/internal/domain"
)

// Provider 把“站点变化”限制在 provider 包内部；核心流程只依赖统一接口与稳定的 MovieEntry。
//
// 约束：
// - FetchPage 不做缓存、不做限速（这些由核心 cache/run 层统一实现）；
//   有界重试属于网络策略，收敛在 httpx
// - ParsePage 必须是纯函数：相同输入 => 相同输出
// - pageURL 必须是榜单页地址（用于 report 追溯）
type Provider interface {
	Name() string
	FetchPage(ctx context.Context, page int, c *http.Client) (html []byte, pageURL string, err error)
	ParsePage(html []byte, pageURL string) ([]domain.MovieEntry, error)
}

// Error 是 provider 阶段的可追溯错误。
// 上层可以据此把失败归类为 fetch_failed / parse_failed，并写入 report。
type Error struct {
	Provider string // provider name（小写）
	Page     int
	Stage    string // "fetch" 或 "parse"
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider=%s page=%d stage=%s: %v", e.Provider, e.Page, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码（httpx 重试耗尽后仍非 2xx）。
// provider.FetchPage 可以返回该错误，让上层生成更可操作的 error_msg。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}
