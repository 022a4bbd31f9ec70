// Package chart 把年度统计渲染为 douban.png（折线图）。
package chart

import (
	"bytes"
	"fmt"

	wchart "github.com/wcharczuk/go-chart/v2"

	"github.com/Outre0v0/douban/internal/stats"
)

const (
	width  = 1200
	height = 800
)

// RenderYearTrend 把 “年份 -> 上榜数量” 渲染为 PNG 折线图。
//
// 约束：
// - counts 必须已按年份升序（stats.CountByYear 的输出满足）
// - 少于 2 个数据点无法成线，直接报错（调用方记 io_failed 并继续）
// - 文字只用 ASCII：内置字体没有 CJK 字形，中文标题会渲染成方块
func RenderYearTrend(counts []stats.YearCount) ([]byte, error) {
	if len(counts) < 2 {
		return nil, fmt.Errorf("数据点不足（%d 个年份），无法绘制折线图", len(counts))
	}

	xs := make([]float64, len(counts))
	ys := make([]float64, len(counts))
	for i, c := range counts {
		xs[i] = float64(c.Year)
		ys[i] = float64(c.Count)
	}

	graph := wchart.Chart{
		Title:  "Douban Top 250: titles per release year",
		Width:  width,
		Height: height,
		XAxis: wchart.XAxis{
			Name:           "Year",
			ValueFormatter: yearFormatter,
		},
		YAxis: wchart.YAxis{
			Name:           "Titles",
			ValueFormatter: countFormatter,
		},
		Series: []wchart.Series{
			wchart.ContinuousSeries{
				Name: "titles",
				Style: wchart.Style{
					StrokeColor: wchart.ColorBlue,
					StrokeWidth: 2,
					DotColor:    wchart.ColorBlue,
					DotWidth:    3,
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(wchart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// yearFormatter 把 X 轴刻度渲染为整数年份（默认格式会带小数）。
func yearFormatter(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%d", int(f))
}

func countFormatter(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%d", int(f))
}
