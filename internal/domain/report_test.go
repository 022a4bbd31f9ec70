package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestRunReport_Finalize_SortAndSummaryAndUTC(t *testing.T) {
	r := RunReport{
		Path:       "/abs/path",
		DryRun:     true,
		StartedAt:  time.Date(2026, 8, 20, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 8, 20, 10, 0, 1, 0, time.FixedZone("X", 8*3600)),
		Pages: []PageResult{
			{Page: 2, Status: PageStatusFailed},
			{Page: 0, Status: PageStatusFetched},
			{Page: 1, Status: PageStatusCached},
		},
		Entries: []EntryResult{
			{Rank: 5, Title: "B", Status: StatusSkipped},
			{Rank: 0, Title: "", Status: StatusFailed}, // 合成条目（例如配置错误）
			{Rank: 1, Title: "A", Status: StatusProcessed},
		},
	}

	r.Finalize()

	if r.Pages[0].Page != 0 || r.Pages[1].Page != 1 || r.Pages[2].Page != 2 {
		t.Fatalf("pages 排序不符合契约：%+v", r.Pages)
	}
	// rank==0 必须排在最后。
	if r.Entries[0].Rank != 1 || r.Entries[1].Rank != 5 || r.Entries[2].Rank != 0 {
		t.Fatalf("entries 排序不符合契约：%+v", r.Entries)
	}
	if r.Summary.PagesFetched != 1 || r.Summary.PagesCached != 1 || r.Summary.PagesFailed != 1 {
		t.Fatalf("页级 summary 不正确：%+v", r.Summary)
	}
	if r.Summary.Processed != 1 || r.Summary.Skipped != 1 || r.Summary.Failed != 1 {
		t.Fatalf("条目 summary 不正确：%+v", r.Summary)
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	// time.Time 在 UTC 下应输出 'Z' 后缀。
	if !bytes.Contains(b, []byte("\"started_at\":\"2026-08-20T02:00:00Z\"")) {
		t.Fatalf("started_at 不是 UTC RFC3339：%s", string(b))
	}
}

func TestMovieEntry_MatchesRegion(t *testing.T) {
	e := MovieEntry{Title: "霸王别姬", Regions: []string{"中国大陆", "中国香港"}}
	if !e.MatchesRegion("中国") {
		t.Fatalf("期望命中 中国，但未命中：%+v", e)
	}
	if e.MatchesRegion("美国") {
		t.Fatalf("不期望命中 美国：%+v", e)
	}
	if !e.MatchesRegion("") {
		t.Fatalf("空过滤串应视为全部命中")
	}
	if !e.MatchesRegion("  ") {
		t.Fatalf("空白过滤串应视为全部命中")
	}
}
