package run

import (
	"time"

	"github.com/Outre0v0/douban/internal/config"
	"github.com/Outre0v0/douban/internal/domain"
)

// Observer 用于把“运行进度/阶段/条目结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 执行是单线程顺序的（爬虫礼仪决定了一次只打一个请求），
//   但 Observer 的实现仍不应假设调用时序之外的任何东西。
type Observer interface {
	// OnStart 在 ExecuteWithObserver 开始时调用（应尽量早，保证用户 1 秒内看到输出）。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束/就绪时调用（用于打印阶段统计与耗时）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnPageDone 在某个榜单页处理完成时调用（抓取成功/命中缓存/失败都会发）。
	OnPageDone(idx, total int, res domain.PageResult, dur time.Duration)
	// OnEntryDone 在某部电影的海报处理完成时调用。
	OnEntryDone(idx, total int, res domain.EntryResult, dur time.Duration)
}
