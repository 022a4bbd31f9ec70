package top250

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Outre0v0/douban/internal/domain"
	providerx "github.com/Outre0v0/douban/internal/provider"
)

const (
	// PageSize 是榜单的固定分页大小（start 参数按它推进）。
	PageSize = 25

	defaultBaseURL = "https://movie.douban.com/top250"

	// maxPageBytes 限制单页读取量；榜单页远小于该值，超出说明返回了非预期内容。
	maxPageBytes = 4 << 20
)

// Provider 实现豆瓣 Top 250 榜单页的抓取与 HTML 解析。
//
// 约束：
// - 榜单按 ?start=<page*25> 分页，直接拼 URL 即可（无需搜索跳转）
// - FetchPage 不做缓存/限速（由上层统一控制）
// - ParsePage 必须是纯函数（依赖输入 html + pageURL）
type Provider struct {
	// BaseURL 允许指定镜像域名（为空时使用默认的 movie.douban.com）。
	BaseURL string
}

func (Provider) Name() string { return "top250" }

func (p Provider) baseURL() string {
	u := strings.TrimSpace(p.BaseURL)
	if u == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

// PageURL 返回第 page 页（从 0 开始）的榜单地址。
func (p Provider) PageURL(page int) string {
	return p.baseURL() + "?start=" + strconv.Itoa(page*PageSize)
}

func (p Provider) FetchPage(ctx context.Context, page int, c *http.Client) ([]byte, string, error) {
	if c == nil {
		return nil, "", errors.New("http client 不能为空")
	}
	if page < 0 {
		return nil, "", fmt.Errorf("非法页码：%d", page)
	}

	pageURL := p.PageURL(page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, pageURL, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, pageURL, &providerx.HTTPStatusError{
			URL:        pageURL,
			StatusCode: resp.StatusCode,
			Location:   resp.Header.Get("Location"),
		}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	return b, pageURL, err
}

// ParsePage 把榜单页 HTML 解析为 MovieEntry 列表（不做地区过滤，过滤在上层）。
//
// 页面结构（每部电影一个 div.item）：
// - 排名：div.pic em
// - 标题：div.hd 的第一个 span.title（第二个是外文名，忽略）
// - 海报：div.pic img 的 src（alt 作为标题兜底）
// - 年份/地区：div.bd p 第二行，形如 “1994 / 美国 / 犯罪 剧情”
func (Provider) ParsePage(html []byte, pageURL string) ([]domain.MovieEntry, error) {
	if len(html) == 0 {
		return nil, errors.New("html 为空")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	items := doc.Find("div.item")
	if items.Length() == 0 {
		// 结构漂移或返回了非榜单页（例如登录/验证页）：报解析失败而不是静默 0 条。
		return nil, fmt.Errorf("页面中未找到电影条目（div.item）；站点结构可能变化或返回了非榜单页：%s", pageURL)
	}

	entries := make([]domain.MovieEntry, 0, items.Length())
	items.Each(func(_ int, s *goquery.Selection) {
		var e domain.MovieEntry

		e.Rank = firstInt(s.Find("div.pic em").First().Text())
		e.Title = normSpace(s.Find("div.hd span.title").First().Text())

		img := s.Find("div.pic img").First()
		if src, ok := img.Attr("src"); ok {
			e.PosterURL = strings.TrimSpace(src)
		}
		if e.Title == "" {
			if alt, ok := img.Attr("alt"); ok {
				e.Title = normSpace(alt)
			}
		}

		e.Year, e.Regions = parseInfoLine(s.Find("div.bd p").First().Text())

		// 标题缺失的残缺条目没有任何可用处（连文件名都派生不了），直接丢弃。
		if e.Title == "" {
			return
		}
		entries = append(entries, e)
	})

	return entries, nil
}

// parseInfoLine 解析 div.bd p 的文本。
// 第一行是导演/主演，第二行形如 “1994 / 美国 / 犯罪 剧情”（分隔符两侧是 &nbsp;）。
func parseInfoLine(text string) (year int, regions []string) {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = normSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 2 {
		return 0, nil
	}

	fields := strings.Split(lines[1], "/")
	year = leadingYear(fields[0])
	if len(fields) >= 2 {
		regions = strings.Fields(fields[1])
	}
	return year, regions
}

// leadingYear 取字符串中第一个 4 位数字串作为年份（“1994(中国大陆)” 这类形态也能取到）。
func leadingYear(s string) int {
	run := 0
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if run == 0 {
				start = i
			}
			run++
			if run == 4 {
				n, _ := strconv.Atoi(s[start : i+1])
				return n
			}
			continue
		}
		run = 0
	}
	return 0
}

func firstInt(s string) int {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			break
		}
	}
	if b.Len() == 0 {
		return 0
	}
	n, _ := strconv.Atoi(b.String())
	return n
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
