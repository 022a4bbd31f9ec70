package csvx

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/Outre0v0/douban/internal/domain"
)

func TestEncode_HeaderAndRows(t *testing.T) {
	entries := []domain.MovieEntry{
		{Title: "霸王别姬", Year: 1993, PosterURL: "https://img.example/p1.jpg"},
		{Title: "带,逗号 的标题", Year: 0, PosterURL: ""},
	}

	b, err := Encode(entries)
	if err != nil {
		t.Fatalf("Encode 失败：%v", err)
	}

	rows, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	if err != nil {
		t.Fatalf("输出不是合法 CSV：%v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("期望表头+2 行，实际 %d 行", len(rows))
	}

	if rows[0][0] != "电影名称" || rows[0][1] != "上映年份" || rows[0][2] != "海报链接" {
		t.Fatalf("表头不符合契约：%v", rows[0])
	}
	if rows[1][0] != "霸王别姬" || rows[1][1] != "1993" || rows[1][2] != "https://img.example/p1.jpg" {
		t.Fatalf("第 1 行不符合预期：%v", rows[1])
	}
	// 逗号必须被正确转义；未知年份输出空串。
	if rows[2][0] != "带,逗号 的标题" || rows[2][1] != "" {
		t.Fatalf("第 2 行不符合预期：%v", rows[2])
	}
}

func TestEncode_EmptyStillHasHeader(t *testing.T) {
	b, err := Encode(nil)
	if err != nil {
		t.Fatalf("Encode 失败：%v", err)
	}
	rows, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	if err != nil {
		t.Fatalf("输出不是合法 CSV：%v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("空输入也应输出表头：%v", rows)
	}
}
