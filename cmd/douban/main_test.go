package main

import "testing"

func TestParseRunArgs(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want runArgs
	}{
		{"空参数", nil, runArgs{}},
		{"仅 path", []string{"./data"}, runArgs{Path: "./data"}},
		{"apply 开关", []string{"--apply"}, runArgs{Apply: true, ApplySet: true}},
		{"apply=false", []string{"--apply=false"}, runArgs{Apply: false, ApplySet: true}},
		{"pages 分离值", []string{"--pages", "3"}, runArgs{Pages: 3, PagesSet: true}},
		{"pages 等号值", []string{"--pages=10"}, runArgs{Pages: 10, PagesSet: true}},
		{"组合", []string{"./data", "--pages=5", "--apply"}, runArgs{Path: "./data", Pages: 5, PagesSet: true, Apply: true, ApplySet: true}},
	}
	for _, c := range cases {
		got, err := parseRunArgs(c.args)
		if err != nil {
			t.Fatalf("%s：不期望错误：%v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("%s：期望 %+v，实际 %+v", c.name, c.want, got)
		}
	}
}

func TestParseRunArgs_Invalid(t *testing.T) {
	cases := [][]string{
		{"--pages"},
		{"--pages", "abc"},
		{"--pages=0"},
		{"--pages=11"},
		{"--apply=maybe"},
		{"--unknown"},
		{"a", "b"},
	}
	for _, args := range cases {
		if _, err := parseRunArgs(args); err == nil {
			t.Fatalf("参数 %v 期望报错", args)
		}
	}
}
