// Package csvx 把电影条目编码为 douban.csv 的内容。
package csvx

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/Outre0v0/douban/internal/domain"
)

// header 是对外稳定的列定义；顺序与列名不可变（下游脚本按表头取列）。
var header = []string{"电影名称", "上映年份", "海报链接"}

// Encode 把条目列表编码为 CSV（UTF-8，含表头）。
//
// 约束：
// - 纯函数：相同输入 => 相同输出（落盘由调用方用 fsx 原子完成）
// - Year==0 输出空串而不是 "0"（未知就是未知）
func Encode(entries []domain.MovieEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, e := range entries {
		year := ""
		if e.Year != 0 {
			year = strconv.Itoa(e.Year)
		}
		if err := w.Write([]string{e.Title, year, e.PosterURL}); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
