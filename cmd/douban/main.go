package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Outre0v0/douban/internal/app/run"
	"github.com/Outre0v0/douban/internal/config"
	"github.com/Outre0v0/douban/internal/domain"
	"github.com/Outre0v0/douban/internal/infra/fsx"
	"github.com/Outre0v0/douban/internal/provider/top250"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	switch args[0] {
	case "run":
		if code := runCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func runCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printRunUsage()
			return 0
		}
	}

	ra, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printRunUsage()
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}
	cwdAbs, _ := filepath.Abs(cwd)

	eff, err := config.LoadEffective(cwd, config.CLIArgs{
		Path:     ra.Path,
		Pages:    ra.Pages,
		PagesSet: ra.PagesSet,
		Apply:    ra.Apply,
		ApplySet: ra.ApplySet,
	})
	if err != nil {
		rr := reportForConfigError(cwdAbs, ra, err)
		emitReport(rr)
		return 1
	}

	p := top250.Provider{BaseURL: eff.BaseURL}

	progressW, interactive := pickProgressWriter()
	var obs run.Observer
	if interactive {
		obs = newProgressUI(progressW)
	}

	rr := run.ExecuteWithObserver(context.Background(), eff, p, obs)

	// apply：必须写入 <path>/cache/report.json；dry-run 禁止落盘。
	if eff.Apply {
		if err := writeReportFile(eff.Path, rr); err != nil {
			fmt.Fprintf(os.Stderr, "写入 report.json 失败：%v\n", err)
			emitReport(rr)
			return 1
		}
	}

	emitReport(rr)
	if interactive {
		emitLocations(progressW, eff)
	}
	if rr.Summary.Failed == 0 && rr.Summary.PagesFailed == 0 {
		return 0
	}
	return 1
}

type runArgs struct {
	Path     string
	Pages    int
	PagesSet bool
	Apply    bool
	ApplySet bool
}

func parseRunArgs(args []string) (runArgs, error) {
	ra := runArgs{}

	setPages := func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("--pages 需要一个整数，实际是 %q", v)
		}
		ra.Pages = n
		ra.PagesSet = true
		return nil
	}

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--pages":
			if i+1 >= len(args) {
				return runArgs{}, fmt.Errorf("--pages 需要一个值")
			}
			i++
			if err := setPages(args[i]); err != nil {
				return runArgs{}, err
			}
		case strings.HasPrefix(a, "--pages="):
			if err := setPages(strings.TrimPrefix(a, "--pages=")); err != nil {
				return runArgs{}, err
			}
		case a == "--apply":
			ra.Apply = true
			ra.ApplySet = true
		case strings.HasPrefix(a, "--apply="):
			v := strings.TrimPrefix(a, "--apply=")
			switch v {
			case "true":
				ra.Apply = true
			case "false":
				ra.Apply = false
			default:
				return runArgs{}, fmt.Errorf("--apply 只能是 true 或 false，实际是 %q", v)
			}
			ra.ApplySet = true
		case strings.HasPrefix(a, "-"):
			return runArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			if ra.Path != "" {
				return runArgs{}, fmt.Errorf("重复的 path：%q 与 %q", ra.Path, a)
			}
			ra.Path = a
		}
	}

	if ra.PagesSet && (ra.Pages < 1 || ra.Pages > config.MaxPages) {
		return runArgs{}, fmt.Errorf("--pages 必须在 [1, %d] 内，实际是 %d", config.MaxPages, ra.Pages)
	}

	return ra, nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  douban run [path] [--pages N] [--apply[=true|false]]

命令：
  run    抓取豆瓣电影 Top 250 榜单（默认 dry-run）

使用 "douban run --help" 查看详细说明。
`)
}

func printRunUsage() {
	fmt.Fprint(os.Stdout, `用法：
  douban run [path] [--pages N] [--apply[=true|false]]

参数：
  --pages     抓取的榜单页数，1~10（未指定则读配置文件；最终默认 10）
  --apply     执行落盘（海报/CSV/趋势图/缓存；默认 dry-run 只抓取核对）
              支持 --apply=false 覆盖配置中的 apply=true
  -h, --help  显示帮助
`)
}

func emitReport(rr domain.RunReport) {
	if isTTY(os.Stdout) {
		fmt.Fprintf(os.Stdout, "完成：pages=%d/%d processed=%d skipped=%d failed=%d\n",
			rr.Summary.PagesFetched+rr.Summary.PagesCached, len(rr.Pages),
			rr.Summary.Processed, rr.Summary.Skipped, rr.Summary.Failed,
		)
		if rr.Summary.PagesFailed > 0 {
			for _, pr := range rr.Pages {
				if pr.Status != domain.PageStatusFailed {
					continue
				}
				fmt.Fprintf(os.Stderr, "page %d %s: %s\n", pr.Page+1, pr.ErrorCode, pr.ErrorMsg)
			}
		}
		if rr.Summary.Failed > 0 {
			for _, it := range rr.Entries {
				if it.Status != domain.StatusFailed {
					continue
				}
				key := it.Title
				if key == "" {
					key = "<run>"
				}
				fmt.Fprintf(os.Stderr, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
			}
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	fmt.Fprintf(os.Stderr, "完成：pages=%d/%d processed=%d skipped=%d failed=%d\n",
		rr.Summary.PagesFetched+rr.Summary.PagesCached, len(rr.Pages),
		rr.Summary.Processed, rr.Summary.Skipped, rr.Summary.Failed,
	)
}

func reportForConfigError(cwdAbs string, ra runArgs, err error) domain.RunReport {
	now := time.Now().UTC()
	rr := domain.RunReport{
		Path:       cwdAbs,
		DryRun:     !(ra.ApplySet && ra.Apply),
		StartedAt:  now,
		FinishedAt: now,
		Pages:      []domain.PageResult{},
		Entries: []domain.EntryResult{{
			Status:    domain.StatusFailed,
			ErrorCode: config.Code(err),
			ErrorMsg:  err.Error(),
		}},
	}
	rr.Finalize()
	return rr
}

func writeReportFile(root string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomicReplace(filepath.Join(root, "cache"), "report.json", b)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}

func emitLocations(w io.Writer, eff config.EffectiveConfig) {
	// 这几行用于降低“完成后不知道产物在哪”的摩擦，且不影响 stdout JSON 契约。
	if w == nil {
		return
	}
	if eff.Apply {
		fmt.Fprintf(w, "report: %s\n", filepath.Join(eff.Path, "cache", "report.json"))
		fmt.Fprintf(w, "csv: %s\n", filepath.Join(eff.Path, "douban.csv"))
		fmt.Fprintf(w, "chart: %s\n", filepath.Join(eff.Path, "douban.png"))
	}
	fmt.Fprintf(w, "posters: %s\n", filepath.Join(eff.Path, "posters"))
}
