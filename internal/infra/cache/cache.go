package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Outre0v0/douban/internal/infra/fsx"
)

// Store 提供 <path>/cache/pages/ 下的榜单页缓存读写。
//
// 每页两个文件：page-NN.html（原始 HTML，便于人工排查解析问题）
// 与 page-NN.json（解析后的条目）。命中 JSON 缓存的页不再打网络，也不再休眠。
//
// 约束：
// - dry-run：只允许读（ReadOnly=true）
// - apply：允许写（ReadOnly=false）
type Store struct {
	Root     string // <path>（输出根目录）
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool) Store {
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

// PageHTMLPath 返回第 page 页 HTML 缓存的绝对路径。
func (s Store) PageHTMLPath(page int) (string, error) {
	if page < 0 {
		return "", fmt.Errorf("非法页码：%d", page)
	}
	return filepath.Join(s.Root, "cache", "pages", pageName(page)+".html"), nil
}

// PageJSONPath 返回第 page 页解析结果缓存的绝对路径。
func (s Store) PageJSONPath(page int) (string, error) {
	if page < 0 {
		return "", fmt.Errorf("非法页码：%d", page)
	}
	return filepath.Join(s.Root, "cache", "pages", pageName(page)+".json"), nil
}

func (s Store) ReadPageHTML(page int) ([]byte, bool, error) {
	path, err := s.PageHTMLPath(page)
	if err != nil {
		return nil, false, err
	}
	return readIfExists(path)
}

func (s Store) ReadPageJSON(page int) ([]byte, bool, error) {
	path, err := s.PageJSONPath(page)
	if err != nil {
		return nil, false, err
	}
	return readIfExists(path)
}

func (s Store) WritePageHTML(page int, html []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	if page < 0 {
		return fmt.Errorf("非法页码：%d", page)
	}
	dir := filepath.Join(s.Root, "cache", "pages")
	return fsx.WriteFileAtomicReplace(dir, pageName(page)+".html", html)
}

func (s Store) WritePageJSON(page int, data []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	if page < 0 {
		return fmt.Errorf("非法页码：%d", page)
	}
	dir := filepath.Join(s.Root, "cache", "pages")
	return fsx.WriteFileAtomicReplace(dir, pageName(page)+".json", data)
}

func readIfExists(path string) ([]byte, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

// pageName 固定两位宽度（page-00..page-09），保证目录内按页码排序。
func pageName(page int) string {
	return fmt.Sprintf("page-%02d", page)
}
