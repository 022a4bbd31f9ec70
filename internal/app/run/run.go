package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Outre0v0/douban/internal/app/planner"
	"github.com/Outre0v0/douban/internal/chart"
	"github.com/Outre0v0/douban/internal/config"
	"github.com/Outre0v0/douban/internal/csvx"
	"github.com/Outre0v0/douban/internal/domain"
	"github.com/Outre0v0/douban/internal/infra/cache"
	"github.com/Outre0v0/douban/internal/infra/fsx"
	"github.com/Outre0v0/douban/internal/infra/httpx"
	"github.com/Outre0v0/douban/internal/infra/imgx"
	"github.com/Outre0v0/douban/internal/provider"
	"github.com/Outre0v0/douban/internal/stats"
)

// maxPosterBytes 限制单张海报的读取量；豆瓣海报在百 KB 量级。
const maxPosterBytes = 8 << 20

// Execute 执行一次 run（dry-run/apply），并返回对外稳定的 RunReport。
// 该函数尽量把错误“降级”为页级/条目级失败（单页失败不影响其余页面）。
func Execute(ctx context.Context, eff config.EffectiveConfig, p provider.Provider) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, p, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息（由上层决定是否启用）。
//
// 流程（严格单线程顺序，页间带随机休眠）：
// 1) 逐页：缓存命中则复用；否则休眠 -> 抓取 -> 解析 -> 过滤 -> 写缓存（apply）
// 2) 逐条：规划海报文件名 -> 下载 -> 统一转 JPEG -> 原子落盘（apply；已存在跳过）
// 3) 聚合：douban.csv + 年度趋势图 douban.png（apply）
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, p provider.Provider, obs Observer) domain.RunReport {
	started := time.Now().UTC()

	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		Path:      eff.Path,
		DryRun:    !eff.Apply,
		StartedAt: started,
		Pages:     make([]domain.PageResult, 0, eff.Pages),
		Entries:   make([]domain.EntryResult, 0, 256),
	}

	pageClient, err := httpx.NewPageClient(eff.ProxyURL)
	if err != nil {
		return finishFailed(&rr, domain.ErrCodeConfigInvalid, fmt.Sprintf("proxy.url 无效：%v", err))
	}

	var imageClient *http.Client
	if eff.Apply {
		ic, e := httpx.NewImageClient(eff.ProxyURL, eff.ImageProxy)
		if e != nil {
			return finishFailed(&rr, domain.ErrCodeConfigInvalid, e.Error())
		}
		imageClient = ic
	}

	store := cache.New(eff.Path, !eff.Apply)

	// 阶段 1：逐页抓取。
	crawlStarted := time.Now()
	all := make([]domain.MovieEntry, 0, eff.Pages*25)
	fetchedAny := false
	for page := 0; page < eff.Pages; page++ {
		pageStarted := time.Now()
		pr, entries := handlePage(ctx, eff, p, pageClient, store, page, &fetchedAny)
		all = append(all, entries...)
		rr.Pages = append(rr.Pages, pr)
		if obs != nil {
			obs.OnPageDone(page+1, eff.Pages, pr, time.Since(pageStarted))
		}

		if ctx.Err() != nil {
			// 取消后剩余页面不再尝试（已有结果照常进入 report）。
			break
		}
	}
	if obs != nil {
		var cached, failed int
		for _, pr := range rr.Pages {
			switch pr.Status {
			case domain.PageStatusCached:
				cached++
			case domain.PageStatusFailed:
				failed++
			}
		}
		obs.OnPhaseDone("crawl", map[string]any{
			"pages":   len(rr.Pages),
			"entries": len(all),
			"cached":  cached,
			"failed":  failed,
		}, time.Since(crawlStarted))
	}

	// 阶段 2：海报规划与落盘。
	planStarted := time.Now()
	st, err := planner.ReadPosterState(eff.Path)
	if err != nil {
		return finishFailed(&rr, domain.ErrCodeIOFailed, fmt.Sprintf("读取 posters 状态失败：%v", err))
	}
	plans := planner.PlanEntries(all, st)
	if obs != nil {
		var need int
		for _, pl := range plans {
			if pl.NeedDownload {
				need++
			}
		}
		obs.OnPhaseDone("plan", map[string]any{
			"entries":       len(plans),
			"need_download": need,
		}, time.Since(planStarted))
	}

	for i, pl := range plans {
		entryStarted := time.Now()
		res := execEntry(ctx, eff, pl, imageClient, st.Dir)
		rr.Entries = append(rr.Entries, res)
		if obs != nil {
			obs.OnEntryDone(i+1, len(plans), res, time.Since(entryStarted))
		}
	}

	// 阶段 3：聚合输出（CSV + 年度趋势图）。
	aggStarted := time.Now()
	counts := stats.CountByYear(all)
	if eff.Apply {
		if b, e := csvx.Encode(all); e != nil {
			rr.Entries = append(rr.Entries, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("生成 CSV 失败：%v", e)))
		} else if e := fsx.WriteFileAtomicReplace(eff.Path, "douban.csv", b); e != nil {
			rr.Entries = append(rr.Entries, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("写入 douban.csv 失败：%v", e)))
		}

		if b, e := chart.RenderYearTrend(counts); e != nil {
			rr.Entries = append(rr.Entries, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("绘制趋势图失败：%v", e)))
		} else if e := fsx.WriteFileAtomicReplace(eff.Path, "douban.png", b); e != nil {
			rr.Entries = append(rr.Entries, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("写入 douban.png 失败：%v", e)))
		}
	}
	if obs != nil {
		obs.OnPhaseDone("aggregate", map[string]any{
			"years":   len(counts),
			"counted": stats.Total(counts),
		}, time.Since(aggStarted))
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

// handlePage 处理单页：缓存 -> 休眠 -> 抓取 -> 解析 -> 过滤 -> 写缓存。
// 返回的 entries 已做地区过滤；页级失败不向上抛，全部进 PageResult。
func handlePage(ctx context.Context, eff config.EffectiveConfig, p provider.Provider, c *http.Client, store cache.Store, page int, fetchedAny *bool) (domain.PageResult, []domain.MovieEntry) {
	pr := domain.PageResult{Page: page}

	// 先尝试缓存（只读），命中则不打网络、不休眠。
	if b, ok, err := store.ReadPageJSON(page); err == nil && ok {
		var entries []domain.MovieEntry
		if e := json.Unmarshal(b, &entries); e == nil {
			filtered := filterRegion(entries, eff.RegionFilter)
			pr.Status = domain.PageStatusCached
			pr.Entries = len(filtered)
			return pr, filtered
		}
		// 坏缓存：忽略，走网络（apply 会写回新缓存）。
	}

	// 爬虫礼仪：除首个网络请求外，请求前随机休眠 [delay_min, delay_max]。
	if *fetchedAny {
		if err := sleepRandom(ctx, eff.DelayMin, eff.DelayMax); err != nil {
			pr.Status = domain.PageStatusFailed
			pr.ErrorCode = domain.ErrCodeFetchFailed
			pr.ErrorMsg = fmt.Sprintf("等待期间被取消：%v", err)
			return pr, nil
		}
	}

	html, pageURL, err := p.FetchPage(ctx, page, c)
	*fetchedAny = true
	pr.URL = pageURL
	if err != nil {
		pr.Status = domain.PageStatusFailed
		pr.ErrorCode = domain.ErrCodeFetchFailed
		pr.ErrorMsg = humanizeFetchError(err)
		return pr, nil
	}

	entries, err := p.ParsePage(html, pageURL)
	if err != nil {
		pr.Status = domain.PageStatusFailed
		pr.ErrorCode = domain.ErrCodeParseFailed
		// 解析失败通常意味着站点结构漂移或被返回了非预期页面（例如验证页/空内容）。
		pr.ErrorMsg = fmt.Sprintf("解析失败（站点结构可能变化或返回了非榜单页内容）：%v", err)
		return pr, nil
	}

	// 缓存存的是解析全集（过滤在读取侧做），改 region_filter 不需要重抓。
	if eff.Apply {
		_ = store.WritePageHTML(page, html)
		if b, e := json.Marshal(entries); e == nil {
			_ = store.WritePageJSON(page, b)
		}
	}

	filtered := filterRegion(entries, eff.RegionFilter)
	pr.Status = domain.PageStatusFetched
	pr.Entries = len(filtered)
	return pr, filtered
}

// execEntry 处理单部电影的海报。dry-run 只核对计划，不下载、不落盘。
func execEntry(ctx context.Context, eff config.EffectiveConfig, pl domain.EntryPlan, imageClient *http.Client, posterDir string) domain.EntryResult {
	e := pl.Entry
	res := domain.EntryResult{
		Rank:       e.Rank,
		Title:      e.Title,
		Year:       e.Year,
		PosterURL:  e.PosterURL,
		PosterFile: filepath.Join("posters", pl.Filename),
		Status:     domain.StatusProcessed, // 失败时覆盖
	}

	if strings.TrimSpace(e.PosterURL) == "" {
		res.Status = domain.StatusFailed
		res.ErrorCode = domain.ErrCodeParseFailed
		res.ErrorMsg = "条目中未解析到海报链接"
		return res
	}

	if !pl.NeedDownload {
		res.Status = domain.StatusSkipped
		return res
	}

	// dry-run：计划已核对（文件名可分配、链接存在），不做网络与写入。
	if !eff.Apply {
		return res
	}

	raw, err := download(ctx, imageClient, e.PosterURL)
	if err != nil {
		res.Status = domain.StatusFailed
		res.ErrorCode = domain.ErrCodeFetchFailed
		res.ErrorMsg = fmt.Sprintf("下载海报失败：%v", err)
		return res
	}

	jpg, err := imgx.NormalizeJPEG(raw)
	if err != nil {
		res.Status = domain.StatusFailed
		res.ErrorCode = domain.ErrCodeFetchFailed
		res.ErrorMsg = fmt.Sprintf("海报内容无效（可能被反爬拦截）：%v", err)
		return res
	}

	if err := fsx.WriteFileAtomicNoOverwrite(posterDir, pl.Filename, jpg); err != nil {
		if errors.Is(err, os.ErrExist) {
			// 规划与落盘之间被并行运行的进程抢先写入：视为已满足。
			res.Status = domain.StatusSkipped
			return res
		}
		res.Status = domain.StatusFailed
		res.ErrorCode = domain.ErrCodeIOFailed
		res.ErrorMsg = fmt.Sprintf("写入海报失败：%v", err)
		return res
	}

	return res
}

func filterRegion(entries []domain.MovieEntry, filter string) []domain.MovieEntry {
	if strings.TrimSpace(filter) == "" {
		return entries
	}
	out := make([]domain.MovieEntry, 0, len(entries))
	for _, e := range entries {
		if e.MatchesRegion(filter) {
			out = append(out, e)
		}
	}
	return out
}

// randomDelay 在 [min, max] 内取一个随机休眠时长（闭区间）。
func randomDelay(min, max time.Duration) time.Duration {
	d := min
	if span := max - min; span > 0 {
		d += time.Duration(rand.Int63n(int64(span) + 1))
	}
	return d
}

func sleepRandom(ctx context.Context, min, max time.Duration) error {
	d := randomDelay(min, max)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func download(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	if c == nil {
		return nil, errors.New("image client 为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPosterBytes))
}

func humanizeFetchError(err error) string {
	if err == nil {
		return "抓取失败"
	}

	// HTTP 非 2xx（httpx 的有界重试已耗尽）：尽量给出可操作提示。
	var hs *provider.HTTPStatusError
	if errors.As(err, &hs) {
		switch hs.StatusCode {
		case 403, 429:
			return fmt.Sprintf("返回 HTTP %d（可能触发反爬/限流）。建议加大 delay_min_ms/delay_max_ms 或配置 proxy.url。", hs.StatusCode)
		case 404:
			return "返回 HTTP 404（榜单地址可能变化，检查 base_url）。"
		default:
			loc := strings.TrimSpace(hs.Location)
			if loc != "" {
				return fmt.Sprintf("返回 HTTP %d（重定向）：%s", hs.StatusCode, loc)
			}
			return fmt.Sprintf("返回 HTTP %d。", hs.StatusCode)
		}
	}

	low := strings.ToLower(err.Error())
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(low, "timeout") {
		return "抓取超时。建议检查网络/代理后重试。"
	}
	if strings.Contains(low, "tls") || strings.Contains(low, "handshake") || strings.Contains(low, "ssl") {
		return "连接失败（TLS/SSL 握手异常或域名不可达）。可在 douban.json 设置 base_url 指向可用镜像，或配置 proxy.url。"
	}

	return fmt.Sprintf("抓取失败：%v", err)
}

// finishFailed 以单条合成失败结束整个 run（只用于配置/环境级错误）。
func finishFailed(rr *domain.RunReport, code, msg string) domain.RunReport {
	rr.Entries = append(rr.Entries, syntheticFailed(code, msg))
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return *rr
}

func syntheticFailed(code, msg string) domain.EntryResult {
	return domain.EntryResult{
		Status:    domain.StatusFailed,
		ErrorCode: code,
		ErrorMsg:  msg,
	}
}
