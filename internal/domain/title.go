package domain

import "strings"

// maxFilenameRunes 限制生成文件名的长度（不含扩展名）。
// 255 字节是常见文件系统上限；按 rune 截断到 80 足够保守（中文标题 3 字节/字）。
const maxFilenameRunes = 80

// SafeFilename 把电影标题转换为可安全落盘的文件名（不含扩展名）。
//
// 规则：
// - 文件系统非法字符（/ \ : * ? " < > |）与控制字符替换为下划线
// - 连续空白折叠为单个空格
// - 去掉首尾的空格与点（Windows 不允许以点/空格结尾）
// - 超长按 rune 截断
// - 结果为空时回退为 "untitled"（宁可丢失标题也不能生成非法路径）
func SafeFilename(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|':
			b.WriteByte('_')
		case r < 0x20 || r == 0x7f:
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}

	s := strings.Join(strings.Fields(b.String()), " ")
	s = strings.Trim(s, ". ")

	if rs := []rune(s); len(rs) > maxFilenameRunes {
		s = strings.Trim(string(rs[:maxFilenameRunes]), ". ")
	}

	if s == "" {
		return "untitled"
	}
	return s
}
