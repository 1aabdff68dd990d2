// 包 model 定义跨语言对比的数据模型（页面记录/快照/时间序列）。
package model

import "time"

// SnapshotVersion 为持久化快照的当前格式版本号。
const SnapshotVersion = 1

// PageRecord 表示一个页面在各语言版本的存在情况（不可变，构建后只读）。
// 约束：ExistsIn 的键恰好等于本次运行配置的语言列表；
// LinkedTitle 有条目当且仅当对应语言存在。
type PageRecord struct {
	PrimaryTitle string            `json:"primary_title"`
	ExistsIn     map[string]bool   `json:"exists_in"`
	LinkedTitle  map[string]string `json:"linked_title,omitempty"`
	Length       int               `json:"length,omitempty"`
	Touched      string            `json:"touched,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// Exists 返回该页面在 lang 语言版本是否存在。
func (r PageRecord) Exists(lang string) bool { return r.ExistsIn[lang] }

// Snapshot 为一次完整抓取的不可变结果，按（分类, 日期）持久化。
// Languages 有序：首位为主语言，其余为次要语言，顺序决定报表列序。
type Snapshot struct {
	Version   int           `json:"version"`
	Category  string        `json:"category"`
	TakenAt   time.Time     `json:"taken_at"`
	Languages []string      `json:"languages"`
	Partial   bool          `json:"partial,omitempty"`
	Records   []PageRecord  `json:"records"`
	Stats     SnapshotStats `json:"stats"`
}

// Primary 返回主语言代码（Languages 首位）。
func (s Snapshot) Primary() string {
	if len(s.Languages) == 0 {
		return ""
	}
	return s.Languages[0]
}

// Secondary 返回次要语言列表（保持配置顺序）。
func (s Snapshot) Secondary() []string {
	if len(s.Languages) < 2 {
		return nil
	}
	return s.Languages[1:]
}

// SnapshotStats 为快照的汇总统计。仅是缓存：任何字段都可由 Records 重算。
type SnapshotStats struct {
	Pages    int            `json:"pages"`
	ExistsIn map[string]int `json:"exists_in"`
	Gaps     map[string]int `json:"gaps"`
}

// SeriesPoint 为时间序列中的一个观测点：时间戳 + 各次要语言的缺口数。
type SeriesPoint struct {
	TakenAt time.Time      `json:"taken_at"`
	Gaps    map[string]int `json:"gaps"`
}

// TimeSeries 为同一分类多次快照推导出的缺口演变序列（派生数据，不持久化）。
// Points 按时间严格升序，无重复时间戳。
type TimeSeries struct {
	Category  string        `json:"category"`
	Languages []string      `json:"languages"`
	Points    []SeriesPoint `json:"points"`
}
