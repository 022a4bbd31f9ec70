package planner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Outre0v0/douban/internal/domain"
)

// ReadPosterState 读取 posters/ 的现状（只做 ReadDir，不读文件内容）。
// 若目录不存在，返回空状态且不报错（首次运行的正常形态）。
func ReadPosterState(root string) (domain.PosterState, error) {
	dir := filepath.Join(root, "posters")
	st := domain.PosterState{
		Dir:           dir,
		ExistingNames: map[string]struct{}{},
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return domain.PosterState{}, err
	}

	for _, e := range entries {
		st.ExistingNames[e.Name()] = struct{}{}
	}
	return st, nil
}

// PlanEntries 基于条目列表 + PosterState 生成确定性的海报计划。
//
// - 文件名 = SafeFilename(标题) + ".jpg"
// - 两部电影的标题净化后撞名：后者加序号后缀（标题是事实上的主键，
//   撞名必须显式消歧而不是相互覆盖）
// - 分配到的名字已存在于磁盘：NeedDownload=false（重跑跳过已下载的海报）
func PlanEntries(entries []domain.MovieEntry, st domain.PosterState) []domain.EntryPlan {
	// taken 只记录本次运行分配出去的名字；磁盘上已有的名字不占用，
	// 同名即视为“同一标题上次已下载”。
	taken := make(map[string]struct{}, len(entries))

	plans := make([]domain.EntryPlan, 0, len(entries))
	for _, e := range entries {
		name := allocName(domain.SafeFilename(e.Title)+".jpg", taken)
		taken[name] = struct{}{}

		_, exists := st.ExistingNames[name]
		plans = append(plans, domain.EntryPlan{
			Entry:        e,
			Filename:     name,
			NeedDownload: !exists,
		})
	}
	return plans
}

// allocName 在 taken 之外找一个可用名：base.jpg、base-2.jpg、base-3.jpg ...
func allocName(name string, taken map[string]struct{}) string {
	if _, ok := taken[name]; !ok {
		return name
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 2; ; i++ {
		cand := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if _, ok := taken[cand]; !ok {
			return cand
		}
	}
}
