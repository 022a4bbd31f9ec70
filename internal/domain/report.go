package domain

import (
	"sort"
	"time"
)

const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

const (
	PageStatusFetched = "fetched"
	PageStatusCached  = "cached"
	PageStatusFailed  = "failed"
)

const (
	ErrCodeFetchFailed       = "fetch_failed"
	ErrCodeParseFailed       = "parse_failed"
	ErrCodeIOFailed          = "io_failed"
	ErrCodeConfigNotFound    = "config_not_found"
	ErrCodeConfigInvalid     = "config_invalid"
	ErrCodeConfigMissingPath = "config_missing_path"
)

// RunReport 是对外稳定输出（cache/report.json / stdout JSON）的结构。
type RunReport struct {
	Path   string `json:"path"`
	DryRun bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Pages   []PageResult  `json:"pages"`
	Entries []EntryResult `json:"entries"`
}

type ReportSummary struct {
	PagesFetched int `json:"pages_fetched"`
	PagesCached  int `json:"pages_cached"`
	PagesFailed  int `json:"pages_failed"`

	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// PageResult 记录一个榜单页的抓取/解析结果。
type PageResult struct {
	Page    int    `json:"page"` // 从 0 开始
	URL     string `json:"url"`
	Status  string `json:"status"`
	Entries int    `json:"entries"` // 过滤后进入结果集的条目数

	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// EntryResult 记录单部电影的处理结果（海报落盘情况）。
type EntryResult struct {
	Rank      int    `json:"rank"`
	Title     string `json:"title"`
	Year      int    `json:"year"`
	PosterURL string `json:"poster_url"`

	// PosterFile 是相对 <path> 的海报路径（例如 posters/霸王别姬.jpg）。
	PosterFile string `json:"poster_file"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) 稳定排序：pages 按页码，entries 按 rank（rank==0 的合成条目排最后）
// 3) summary 由 pages/entries 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Pages, func(i, j int) bool { return r.Pages[i].Page < r.Pages[j].Page })
	sort.SliceStable(r.Entries, func(i, j int) bool {
		a, b := r.Entries[i].Rank, r.Entries[j].Rank
		if a == 0 && b == 0 {
			return false
		}
		if a == 0 {
			return false
		}
		if b == 0 {
			return true
		}
		return a < b
	})

	var s ReportSummary
	for _, p := range r.Pages {
		switch p.Status {
		case PageStatusFetched:
			s.PagesFetched++
		case PageStatusCached:
			s.PagesCached++
		case PageStatusFailed:
			s.PagesFailed++
		}
	}
	for _, e := range r.Entries {
		switch e.Status {
		case StatusProcessed:
			s.Processed++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}
