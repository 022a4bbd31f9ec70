package httpx

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func noSleep(t *testing.T) {
	t.Helper()
	old := sleepFunc
	sleepFunc = func(time.Duration) {}
	t.Cleanup(func() { sleepFunc = old })
}

func TestRoundTrip_RetriesOn403ThenSucceeds(t *testing.T) {
	noSleep(t)

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits <= 2 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	c, err := NewPageClient("")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("请求失败：%v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("期望重试后得到 200，实际 %d（hits=%d）", resp.StatusCode, hits)
	}
	if hits != 3 {
		t.Fatalf("期望 3 次尝试（1 次 + 2 次重试），实际 %d", hits)
	}
}

func TestRoundTrip_403ExhaustsRetries(t *testing.T) {
	noSleep(t)

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := NewPageClient("")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("重试耗尽后应返回最后一个响应而不是错误：%v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("期望 403，实际 %d", resp.StatusCode)
	}
	if hits != 1+defaultRetryMax {
		t.Fatalf("期望 %d 次尝试，实际 %d", 1+defaultRetryMax, hits)
	}
}

func TestRoundTrip_SetsRandomUA(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	c, err := NewPageClient("")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("请求失败：%v", err)
	}
	resp.Body.Close()

	if !strings.HasPrefix(gotUA, "Mozilla/5.0") {
		t.Fatalf("期望 UA 池中的桌面 UA，实际 %q", gotUA)
	}
}

func TestNewPageClient_ProxyDisablesKeepAlive(t *testing.T) {
	c, err := NewPageClient("http://127.0.0.1:8080")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr, ok := c.Transport.(*Transport)
	if !ok {
		t.Fatalf("期望 *Transport，实际 %T", c.Transport)
	}
	if tr.Base.Proxy == nil {
		t.Fatalf("期望启用代理，但 Proxy=nil")
	}
	if !tr.Base.DisableKeepAlives {
		t.Fatalf("期望禁用 keep-alive，但 Base.DisableKeepAlives=false")
	}
}

func TestNewImageClient_ImageProxySwitch(t *testing.T) {
	c1, err := NewImageClient("http://127.0.0.1:8080", false)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if tr := c1.Transport.(*Transport); tr.Base.Proxy != nil {
		t.Fatalf("image_proxy=false 时不应走代理")
	}

	c2, err := NewImageClient("http://127.0.0.1:8080", true)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if tr := c2.Transport.(*Transport); tr.Base.Proxy == nil {
		t.Fatalf("image_proxy=true 时应走代理")
	}

	if _, err := NewImageClient("", true); err == nil {
		t.Fatalf("image_proxy=true 且无 proxy.url 时期望错误")
	}
}

func TestIsRetryableStatus(t *testing.T) {
	for _, code := range []int{403, 429, 500, 502, 503} {
		if !isRetryableStatus(code) {
			t.Fatalf("期望 %d 可重试", code)
		}
	}
	for _, code := range []int{200, 301, 404} {
		if isRetryableStatus(code) {
			t.Fatalf("不期望 %d 可重试", code)
		}
	}
}
