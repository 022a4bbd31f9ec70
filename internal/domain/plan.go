package domain

// PosterState 描述 <path>/posters/ 的现状（只做 ReadDir，不读内容）。
type PosterState struct {
	Dir string

	// ExistingNames 是目录内现有文件名集合，用于 O(1) 判断“已下载，跳过”。
	ExistingNames map[string]struct{}
}

// EntryPlan 是单部电影的海报执行计划（只做决定，不做任何写入/下载）。
type EntryPlan struct {
	Entry MovieEntry

	// Filename 是分配好的海报文件名（含 .jpg；标题冲突时带序号后缀）。
	Filename string

	// NeedDownload 为 false 表示该文件已存在，重跑直接跳过。
	NeedDownload bool
}
