package top250

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Outre0v0/douban/internal/domain"
	providerx "github.com/Outre0v0/douban/internal/provider"
)

func readFixture(t *testing.T) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", "list.html"))
	if err != nil {
		t.Fatalf("读取 fixture 失败：%v", err)
	}
	return b
}

func TestParsePage_Fixture(t *testing.T) {
	entries, err := Provider{}.ParsePage(readFixture(t), "https://movie.douban.com/top250?start=0")
	if err != nil {
		t.Fatalf("ParsePage 失败：%v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("期望 4 条，实际 %d：%+v", len(entries), entries)
	}

	first := entries[0]
	if first.Rank != 1 || first.Title != "肖申克的救赎" || first.Year != 1994 {
		t.Fatalf("第 1 条不符合预期：%+v", first)
	}
	if first.PosterURL != "https://img2.doubanio.com/view/photo/s_ratio_poster/public/p480747492.jpg" {
		t.Fatalf("海报 URL 不符合预期：%q", first.PosterURL)
	}
	if len(first.Regions) != 1 || first.Regions[0] != "美国" {
		t.Fatalf("地区不符合预期：%v", first.Regions)
	}

	second := entries[1]
	if second.Title != "霸王别姬" || second.Year != 1993 {
		t.Fatalf("第 2 条不符合预期：%+v", second)
	}
	// “中国大陆 中国香港” 应拆成两个地区。
	if len(second.Regions) != 2 || second.Regions[0] != "中国大陆" || second.Regions[1] != "中国香港" {
		t.Fatalf("多地区拆分不符合预期：%v", second.Regions)
	}
}

func TestParsePage_RegionFilterMatchesOriginalBehavior(t *testing.T) {
	entries, err := Provider{}.ParsePage(readFixture(t), "https://movie.douban.com/top250?start=0")
	if err != nil {
		t.Fatalf("ParsePage 失败：%v", err)
	}

	var chinese []domain.MovieEntry
	for _, e := range entries {
		if e.MatchesRegion("中国") {
			chinese = append(chinese, e)
		}
	}
	// fixture 中国产片：霸王别姬（中国大陆/中国香港）、大话西游（中国香港）。
	if len(chinese) != 2 || chinese[0].Title != "霸王别姬" || chinese[1].Title != "大话西游之大圣娶亲" {
		t.Fatalf("地区过滤结果不符合预期：%+v", chinese)
	}
}

func TestParsePage_NoItemsIsParseError(t *testing.T) {
	_, err := Provider{}.ParsePage([]byte("<html><body>登录后继续</body></html>"), "https://movie.douban.com/top250")
	if err == nil {
		t.Fatalf("结构漂移（无 div.item）应报解析失败，但得到 nil")
	}
}

func TestParsePage_EmptyHTML(t *testing.T) {
	if _, err := (Provider{}).ParsePage(nil, "u"); err == nil {
		t.Fatalf("空 html 应报错")
	}
}

func TestPageURL_StartParam(t *testing.T) {
	p := Provider{}
	if got := p.PageURL(0); got != "https://movie.douban.com/top250?start=0" {
		t.Fatalf("第 0 页 URL 不符合预期：%q", got)
	}
	if got := p.PageURL(9); got != "https://movie.douban.com/top250?start=225" {
		t.Fatalf("第 9 页 URL 不符合预期：%q", got)
	}

	m := Provider{BaseURL: "https://mirror.example/top250/"}
	if got := m.PageURL(1); got != "https://mirror.example/top250?start=25" {
		t.Fatalf("镜像域名 URL 不符合预期：%q", got)
	}
}

func TestFetchPage_UsesStartParamAndReturnsBody(t *testing.T) {
	fixture := readFixture(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("start"); got != "50" {
			t.Errorf("期望 start=50，实际 %q", got)
		}
		_, _ = w.Write(fixture)
	}))
	defer srv.Close()

	p := Provider{BaseURL: srv.URL}
	html, pageURL, err := p.FetchPage(context.Background(), 2, srv.Client())
	if err != nil {
		t.Fatalf("FetchPage 失败：%v", err)
	}
	if pageURL != srv.URL+"?start=50" {
		t.Fatalf("pageURL 不符合预期：%q", pageURL)
	}
	if len(html) != len(fixture) {
		t.Fatalf("返回 body 长度不一致：%d != %d", len(html), len(fixture))
	}
}

func TestFetchPage_Non2xxIsHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	p := Provider{BaseURL: srv.URL}
	_, _, err := p.FetchPage(context.Background(), 0, srv.Client())
	var hs *providerx.HTTPStatusError
	if !errors.As(err, &hs) {
		t.Fatalf("期望 HTTPStatusError，实际 %v", err)
	}
	if hs.StatusCode != http.StatusForbidden {
		t.Fatalf("期望 403，实际 %d", hs.StatusCode)
	}
}

func TestLeadingYear(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"1994", 1994},
		{" 1993 ", 1993},
		{"1961(中国大陆)", 1961},
		{"上映于1997年", 1997},
		{"199", 0},
		{"", 0},
	}
	for _, c := range cases {
		if got := leadingYear(c.in); got != c.want {
			t.Fatalf("leadingYear(%q)=%d，期望 %d", c.in, got, c.want)
		}
	}
}
