// Package stats 做“年份 -> 上榜数量”的聚合，供图表与报告使用。
package stats

import (
	"sort"

	"github.com/Outre0v0/douban/internal/domain"
)

// YearCount 是单个年份的上榜电影数量。
type YearCount struct {
	Year  int
	Count int
}

// CountByYear 统计每个年份的条目数，按年份升序返回。
//
// Year==0（解析失败）的条目不计入：把“未知”画进趋势图只会制造一个
// 假的公元 0 年数据点。调用方可用 len(entries)-Total(...) 得到被排除的数量。
func CountByYear(entries []domain.MovieEntry) []YearCount {
	byYear := make(map[int]int, 64)
	for _, e := range entries {
		if e.Year == 0 {
			continue
		}
		byYear[e.Year]++
	}

	out := make([]YearCount, 0, len(byYear))
	for y, n := range byYear {
		out = append(out, YearCount{Year: y, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// Total 返回计数总和（应等于 Year!=0 的条目数）。
func Total(counts []YearCount) int {
	n := 0
	for _, c := range counts {
		n += c.Count
	}
	return n
}
