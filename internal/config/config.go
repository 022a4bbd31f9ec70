package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// ErrCodeNotFound 表示无参运行但 cwd 下没有 douban.json。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingPath 表示无参运行但配置文件缺少 path 字段。
	ErrCodeMissingPath = "config_missing_path"
)

const (
	// DefaultPages 是榜单页数的内置默认值（Top 250 固定 10 页 × 25 条）。
	DefaultPages = 10
	// MaxPages 是页数上限（榜单只有 10 页，再多也只是空页）。
	MaxPages = 10

	// DefaultRegionFilter 保持原始行为：只保留制片地区包含“中国”的条目。
	// 配置里显式写 "region_filter": "" 可以关闭过滤。
	DefaultRegionFilter = "中国"

	// DefaultDelayMin / DefaultDelayMax 是页间随机休眠的默认区间（爬虫礼仪）。
	DefaultDelayMin = 1 * time.Second
	DefaultDelayMax = 3 * time.Second
)

// CLIArgs 只包含 CLI 暴露的三项入口（path/pages/apply），并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --apply=false 必须能覆盖 config.apply=true。
type CLIArgs struct {
	Path string

	Pages    int
	PagesSet bool

	Apply    bool
	ApplySet bool
}

// FileConfig 对应 douban.json 的解析结构。
type FileConfig struct {
	Path         string       `json:"path"`
	Pages        int          `json:"pages"`
	Apply        *bool        `json:"apply"`
	BaseURL      string       `json:"base_url"`
	RegionFilter *string      `json:"region_filter"`
	DelayMinMs   int          `json:"delay_min_ms"`
	DelayMaxMs   int          `json:"delay_max_ms"`
	Proxy        *ProxyConfig `json:"proxy"`
	ImageProxy   bool         `json:"image_proxy"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Path string

	Pages int
	Apply bool

	// BaseURL 允许在 movie.douban.com 不可达时切换到镜像域名（可选）。
	// 该字段属于高级能力，仅通过 douban.json 配置，不暴露 CLI 参数。
	BaseURL string

	// RegionFilter 为空表示不过滤（抓全榜）。
	RegionFilter string

	DelayMin time.Duration
	DelayMax time.Duration

	ProxyURL   string
	ImageProxy bool
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingPath:
		return fmt.Sprintf("%s：配置文件 %q 缺少必填字段 path", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 按文档约定发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 path：尝试读取 <path>/douban.json（可选）
// 2) CLI 未提供 path：必须读取 <cwd>/douban.json（必选），且其中必须包含 path
//
// 覆盖优先级（固定）：
// - path：CLI path > config path
// - pages：CLI > config > 默认 10
// - apply：CLI --apply/--apply=false > config > 默认 false
// - 其他字段：仅由 config 控制（CLI 不暴露）
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	if strings.TrimSpace(cli.Path) != "" {
		// CLI 给了 path：配置文件可选，位置固定在 <path>/douban.json。
		absPath := absCleanFrom(cwdAbs, cli.Path)
		cfgPath := filepath.Join(absPath, "douban.json")

		fc, _, err := readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		return merge(absPath, cli, fc, cfgPath)
	}

	// CLI 没给 path：必须读取 <cwd>/douban.json，且其中必须包含 path。
	cfgPath := filepath.Join(cwdAbs, "douban.json")
	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if strings.TrimSpace(fc.Path) == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingPath, Path: cfgPath}
	}

	absPath := absCleanFrom(cwdAbs, fc.Path)
	return merge(absPath, cli, fc, cfgPath)
}

func merge(absPath string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	// pages：CLI > config > 默认；范围 [1, MaxPages]，超出视为配置错误。
	pages := DefaultPages
	if cli.PagesSet {
		pages = cli.Pages
	} else if fc.Pages != 0 {
		pages = fc.Pages
	}
	if pages < 1 || pages > MaxPages {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("pages 必须在 [1, %d] 内，实际是 %d", MaxPages, pages)}
	}

	// apply：CLI > config > 默认 false
	apply := false
	if cli.ApplySet {
		apply = cli.Apply
	} else if fc.Apply != nil {
		apply = *fc.Apply
	}

	baseURL := strings.TrimSpace(fc.BaseURL)
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("base_url 无效：%q", baseURL)}
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("base_url 必须是 http/https：%q", baseURL)}
		}
	}

	// region_filter：nil（未写）保持默认；显式空串表示不过滤。
	regionFilter := DefaultRegionFilter
	if fc.RegionFilter != nil {
		regionFilter = strings.TrimSpace(*fc.RegionFilter)
	}

	delayMin := DefaultDelayMin
	if fc.DelayMinMs != 0 {
		delayMin = time.Duration(fc.DelayMinMs) * time.Millisecond
	}
	delayMax := DefaultDelayMax
	if fc.DelayMaxMs != 0 {
		delayMax = time.Duration(fc.DelayMaxMs) * time.Millisecond
	}
	if fc.DelayMinMs < 0 || fc.DelayMaxMs < 0 {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("delay_min_ms/delay_max_ms 不能为负")}
	}
	if delayMax < delayMin {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("delay_max_ms(%v) 不能小于 delay_min_ms(%v)", delayMax, delayMin)}
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		if _, err := url.Parse(proxyURL); err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("proxy.url 无效：%w", err)}
		}
	}
	if fc.ImageProxy && proxyURL == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("image_proxy=true 但 proxy.url 为空")}
	}

	return EffectiveConfig{
		Path:         absPath,
		Pages:        pages,
		Apply:        apply,
		BaseURL:      baseURL,
		RegionFilter: regionFilter,
		DelayMin:     delayMin,
		DelayMax:     delayMax,
		ProxyURL:     proxyURL,
		ImageProxy:   fc.ImageProxy,
	}, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
