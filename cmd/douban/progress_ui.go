package main

import (
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Outre0v0/douban/internal/app/run"
	"github.com/Outre0v0/douban/internal/config"
	"github.com/Outre0v0/douban/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是一个“简洁版”的交互终端进度输出。
//
// 设计目标：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - keepalive：页间休眠/慢请求期间也会定期输出一行，降低等待焦虑
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	total int
	done  int
	ok    int
	fail  int
	skip  int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()

	p.mu.Lock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	mode := "dry-run"
	modeHint := " (不下载/不写入)"
	if eff.Apply {
		mode = "apply"
		modeHint = ""
	}

	fmt.Fprintf(p.w, "[%s] douban run (%s)\n", now.Format("15:04:05"), mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  path: %s\n", eff.Path)
	fmt.Fprintf(p.w, "  mode: %s%s\n", mode, modeHint)
	fmt.Fprintf(p.w, "  pages: %d\n", eff.Pages)
	fmt.Fprintf(p.w, "  region_filter: %s\n", formatRegionFilter(eff.RegionFilter))
	fmt.Fprintf(p.w, "  delay: %s ~ %s\n", formatShortDuration(eff.DelayMin), formatShortDuration(eff.DelayMax))
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	fmt.Fprintf(p.w, "  image_proxy: %s\n", onOff(eff.ImageProxy))
	if strings.TrimSpace(eff.BaseURL) != "" {
		fmt.Fprintf(p.w, "  base_url: %s\n", truncate(eff.BaseURL, 120))
	}

	fmt.Fprintln(p.w, "输出:")
	fmt.Fprintf(p.w, "  posters: %s\n", filepath.Join(eff.Path, "posters"))
	fmt.Fprintf(p.w, "  cache: %s\n", filepath.Join(eff.Path, "cache"))
	if eff.Apply {
		fmt.Fprintf(p.w, "  csv: %s\n", filepath.Join(eff.Path, "douban.csv"))
		fmt.Fprintf(p.w, "  chart: %s\n", filepath.Join(eff.Path, "douban.png"))
		fmt.Fprintf(p.w, "  report: %s\n", filepath.Join(eff.Path, "cache", "report.json"))
	}
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
	p.mu.Unlock()

	// 页间有 1~3 秒休眠，从一开始就挂 keepalive。
	p.mu.Lock()
	if !p.tickerStarted {
		p.startTickerLocked()
	}
	p.mu.Unlock()
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "crawl":
		fmt.Fprintf(p.w, "抓取: pages=%d entries=%d cached=%d failed=%d (%s)\n",
			intField(fields, "pages"),
			intField(fields, "entries"),
			intField(fields, "cached"),
			intField(fields, "failed"),
			formatShortDuration(dur),
		)
	case "plan":
		p.total = intField(fields, "entries")
		fmt.Fprintf(p.w, "规划: entries=%d need_download=%d\n\n",
			p.total, intField(fields, "need_download"),
		)
	case "aggregate":
		fmt.Fprintf(p.w, "\n聚合: years=%d counted=%d (%s)\n",
			intField(fields, "years"), intField(fields, "counted"), formatShortDuration(dur),
		)
		// 聚合是最后一个阶段：停止 ticker，避免结束打印后又冒出 keepalive。
		if p.tickerStarted {
			close(p.stopCh)
			p.tickerStarted = false
		}
	default:
		// 兜底：未知阶段也不要静默（便于调试/演进）。
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnPageDone(idx, total int, res domain.PageResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch res.Status {
	case domain.PageStatusFailed:
		fmt.Fprintf(p.w, "[页 %d/%d] FAIL %s: %s (%s)\n",
			idx, total, res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
	case domain.PageStatusCached:
		fmt.Fprintf(p.w, "[页 %d/%d] CACHE entries=%d\n", idx, total, res.Entries)
	default:
		fmt.Fprintf(p.w, "[页 %d/%d] OK entries=%d (%s)\n",
			idx, total, res.Entries, formatShortDuration(dur),
		)
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnEntryDone(idx, total int, res domain.EntryResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = idx
	p.total = total

	switch res.Status {
	case domain.StatusProcessed:
		p.ok++
	case domain.StatusFailed:
		p.fail++
	case domain.StatusSkipped:
		p.skip++
	}

	switch res.Status {
	case domain.StatusFailed:
		fmt.Fprintf(p.w, "[%d/%d] %s FAIL %s: %s (%s)\n",
			idx, total, res.Title, res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
	case domain.StatusSkipped:
		fmt.Fprintf(p.w, "[%d/%d] %s SKIP (海报已存在)\n", idx, total, res.Title)
	default:
		fmt.Fprintf(p.w, "[%d/%d] %s OK -> %s (%s)\n",
			idx, total, res.Title, res.PosterFile, formatShortDuration(dur),
		)
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if time.Since(p.lastPrinted) > threshold {
					elapsed := time.Since(p.startedAt)
					fmt.Fprintf(p.w, "进度: done=%d/%d ok=%d fail=%d skip=%d elapsed=%s\n",
						p.done, p.total, p.ok, p.fail, p.skip, formatElapsed(elapsed),
					)
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-p.stopCh:
				return
			}
		}
	}()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatRegionFilter(s string) string {
	if strings.TrimSpace(s) == "" {
		return "off (抓全榜)"
	}
	return s
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint:
		return int(x)
	case uint32:
		return int(x)
	case uint64:
		return int(x)
	default:
		return 0
	}
}
