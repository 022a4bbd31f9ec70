package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "douban.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("写入配置失败：%v", err)
	}
}

func TestLoadEffective_CLIPathWithoutConfigUsesDefaults(t *testing.T) {
	cwd := t.TempDir()
	path := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{Path: path})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Path != path {
		t.Fatalf("path 不符合预期：%q", eff.Path)
	}
	if eff.Pages != DefaultPages || eff.Apply {
		t.Fatalf("默认值不符合预期：%+v", eff)
	}
	if eff.RegionFilter != DefaultRegionFilter {
		t.Fatalf("默认地区过滤不符合预期：%q", eff.RegionFilter)
	}
	if eff.DelayMin != DefaultDelayMin || eff.DelayMax != DefaultDelayMax {
		t.Fatalf("默认休眠区间不符合预期：%v ~ %v", eff.DelayMin, eff.DelayMax)
	}
}

func TestLoadEffective_NoPathRequiresConfig(t *testing.T) {
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %s，实际 %v", ErrCodeNotFound, err)
	}
}

func TestLoadEffective_ConfigMissingPath(t *testing.T) {
	cwd := t.TempDir()
	writeConfig(t, cwd, `{"pages": 5}`)

	_, err := LoadEffective(cwd, CLIArgs{})
	if Code(err) != ErrCodeMissingPath {
		t.Fatalf("期望 %s，实际 %v", ErrCodeMissingPath, err)
	}
}

func TestLoadEffective_MergeAndOverride(t *testing.T) {
	cwd := t.TempDir()
	writeConfig(t, cwd, `{
		"path": "data",
		"pages": 3,
		"apply": true,
		"region_filter": "",
		"delay_min_ms": 500,
		"delay_max_ms": 800,
		"base_url": "https://mirror.example/top250"
	}`)

	// CLI 的 --apply=false 必须能覆盖 config.apply=true。
	eff, err := LoadEffective(cwd, CLIArgs{Apply: false, ApplySet: true, Pages: 2, PagesSet: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Path != filepath.Join(cwd, "data") {
		t.Fatalf("相对 path 未以 cwd 为基准：%q", eff.Path)
	}
	if eff.Pages != 2 {
		t.Fatalf("CLI pages 未覆盖 config：%d", eff.Pages)
	}
	if eff.Apply {
		t.Fatalf("--apply=false 未覆盖 config.apply=true")
	}
	// 显式空串表示关闭过滤（与“未写”不同）。
	if eff.RegionFilter != "" {
		t.Fatalf("region_filter 空串应关闭过滤：%q", eff.RegionFilter)
	}
	if eff.DelayMin != 500*time.Millisecond || eff.DelayMax != 800*time.Millisecond {
		t.Fatalf("休眠区间不符合预期：%v ~ %v", eff.DelayMin, eff.DelayMax)
	}
	if eff.BaseURL != "https://mirror.example/top250" {
		t.Fatalf("base_url 不符合预期：%q", eff.BaseURL)
	}
}

func TestLoadEffective_InvalidValues(t *testing.T) {
	cases := []string{
		`{"path": ".", "pages": 11}`,
		`{"path": ".", "pages": -1}`,
		`{"path": ".", "delay_min_ms": 3000, "delay_max_ms": 1000}`,
		`{"path": ".", "delay_min_ms": -5}`,
		`{"path": ".", "base_url": "ftp://example.com"}`,
		`{"path": ".", "base_url": "://bad"}`,
		`{"path": ".", "image_proxy": true}`,
		`{"path": ".",`,
	}
	for _, c := range cases {
		cwd := t.TempDir()
		writeConfig(t, cwd, c)
		_, err := LoadEffective(cwd, CLIArgs{})
		if Code(err) != ErrCodeInvalid {
			t.Fatalf("配置 %s 期望 %s，实际 %v", c, ErrCodeInvalid, err)
		}
	}
}

func TestLoadEffective_ImageProxyNeedsProxyURL(t *testing.T) {
	cwd := t.TempDir()
	writeConfig(t, cwd, `{"path": ".", "image_proxy": true, "proxy": {"url": "http://127.0.0.1:8080"}}`)

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !eff.ImageProxy || eff.ProxyURL != "http://127.0.0.1:8080" {
		t.Fatalf("代理配置不符合预期：%+v", eff)
	}
}
