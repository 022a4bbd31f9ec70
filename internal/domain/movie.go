package domain

import "strings"

// MovieEntry 是从榜单页解析得到的单条电影记录（一次性使用，不做持久化）。
//
// 约束：
// - Title 是事实上的唯一标识（海报文件名由它派生）
// - Year 解析失败允许为 0（统计阶段会排除）
// - PosterURL 允许为空（该条目跳过海报下载）
type MovieEntry struct {
	Rank      int
	Title     string
	Year      int
	Regions   []string
	PosterURL string
}

// MatchesRegion 判断条目的制片地区是否命中过滤子串。
// filter 为空表示不过滤（全部命中）。
func (e MovieEntry) MatchesRegion(filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return true
	}
	return strings.Contains(strings.Join(e.Regions, "/"), filter)
}
