// 包 compare 将一批页面记录组装为不可变快照，并提供缺口统计。
// 构建期即做结构校验，落盘前就拒绝语言键集合不一致的数据。
package compare

import (
	"sort"
	"time"

	"go-wiki-gap/internal/model"
)

// ValidateRecord 校验单条记录的结构不变量：
// ExistsIn 的键集合恰好等于 languages；LinkedTitle 有条目当且仅当对应语言存在。
func ValidateRecord(r model.PageRecord, languages []string) error {
	if len(r.ExistsIn) != len(languages) {
		return &SchemaMismatchError{Title: r.PrimaryTitle, Want: languages, Got: keys(r.ExistsIn)}
	}
	for _, l := range languages {
		if _, ok := r.ExistsIn[l]; !ok {
			return &SchemaMismatchError{Title: r.PrimaryTitle, Want: languages, Got: keys(r.ExistsIn)}
		}
	}
	for l := range r.LinkedTitle {
		if !r.ExistsIn[l] {
			return &SchemaMismatchError{Title: r.PrimaryTitle, Want: languages, Got: keys(r.ExistsIn)}
		}
	}
	for _, l := range languages {
		if r.ExistsIn[l] && r.LinkedTitle[l] == "" {
			return &SchemaMismatchError{Title: r.PrimaryTitle, Want: languages, Got: keys(r.ExistsIn)}
		}
	}
	return nil
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Build 组装快照：逐条校验、按首次出现去重同名种子、统计汇总。
// 时间戳取整到秒，保证 JSON 往返后相等。records 顺序保持传入顺序。
func Build(category string, languages []string, records []model.PageRecord, now time.Time) (model.Snapshot, error) {
	langs := make([]string, len(languages))
	copy(langs, languages)

	seen := make(map[string]bool, len(records))
	kept := make([]model.PageRecord, 0, len(records))
	for _, r := range records {
		if err := ValidateRecord(r, langs); err != nil {
			return model.Snapshot{}, err
		}
		if seen[r.PrimaryTitle] {
			continue
		}
		seen[r.PrimaryTitle] = true
		kept = append(kept, r)
	}

	s := model.Snapshot{
		Version:   model.SnapshotVersion,
		Category:  category,
		TakenAt:   now.UTC().Truncate(time.Second),
		Languages: langs,
		Records:   kept,
	}
	s.Stats = Stats(s)
	return s, nil
}

// Stats 由记录重算汇总统计，结果与快照缓存字段语义一致。
// 主语言的缺口数为在主语言缺失的页面数（主语言缺口也是发现），
// 次要语言的缺口数为主语言存在而该语言缺失的页面数。
func Stats(s model.Snapshot) model.SnapshotStats {
	st := model.SnapshotStats{
		Pages:    len(s.Records),
		ExistsIn: make(map[string]int, len(s.Languages)),
		Gaps:     make(map[string]int, len(s.Languages)),
	}
	primary := s.Primary()
	for _, l := range s.Languages {
		st.ExistsIn[l] = 0
		st.Gaps[l] = 0
	}
	for _, r := range s.Records {
		if !r.Exists(primary) {
			st.Gaps[primary]++
		}
		for _, l := range s.Languages {
			if r.Exists(l) {
				st.ExistsIn[l]++
			} else if l != primary && r.Exists(primary) {
				st.Gaps[l]++
			}
		}
	}
	return st
}

// GapSet 返回在主语言存在而在 lang 缺失的页面记录。
// lang 为主语言或不在快照语言列表时返回 nil；
// 主语言自身的缺口用 GapCount/Stats 统计，不构成 GapSet。
func GapSet(s model.Snapshot, lang string) []model.PageRecord {
	if lang == s.Primary() || !contains(s.Languages, lang) {
		return nil
	}
	var out []model.PageRecord
	for _, r := range s.Records {
		if r.Exists(s.Primary()) && !r.Exists(lang) {
			out = append(out, r)
		}
	}
	return out
}

// GapCount 返回 lang 的缺口数：主语言为在主语言缺失的页面数，
// 次要语言为 GapSet 的大小。
func GapCount(s model.Snapshot, lang string) int {
	if lang != "" && lang == s.Primary() {
		n := 0
		for _, r := range s.Records {
			if !r.Exists(lang) {
				n++
			}
		}
		return n
	}
	return len(GapSet(s, lang))
}

func contains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}
