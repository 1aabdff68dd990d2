// 包 series 由同一分类的多次快照推导缺口随时间的演变序列，
// 并支持导出为 JSON / CSV（供外部绘图工具使用）。
package series

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"go-wiki-gap/internal/compare"
	"go-wiki-gap/internal/model"
)

// Aggregate 按时间排序快照并为每个次要语言重算缺口数。
// 不足两次快照返回 EmptySeriesError；语言列表不一致返回
// InconsistentLanguageSetError；重复时间戳视为数据损坏。
func Aggregate(snapshots []model.Snapshot, category string) (model.TimeSeries, error) {
	var in []model.Snapshot
	for _, s := range snapshots {
		if s.Category == category {
			in = append(in, s)
		}
	}
	if len(in) < 2 {
		return model.TimeSeries{}, &EmptySeriesError{Category: category, Have: len(in)}
	}
	sort.SliceStable(in, func(i, j int) bool { return in[i].TakenAt.Before(in[j].TakenAt) })

	want := in[0].Languages
	for _, s := range in[1:] {
		if !sameLanguages(want, s.Languages) {
			return model.TimeSeries{}, &InconsistentLanguageSetError{
				Category: category,
				Want:     want,
				Got:      s.Languages,
			}
		}
	}

	ts := model.TimeSeries{Category: category, Languages: want}
	for i, s := range in {
		if i > 0 && !in[i-1].TakenAt.Before(s.TakenAt) {
			return model.TimeSeries{}, fmt.Errorf("category %q has duplicate snapshot timestamp %s",
				category, s.TakenAt.Format("2006-01-02"))
		}
		gaps := make(map[string]int, len(s.Secondary()))
		for _, lang := range s.Secondary() {
			gaps[lang] = compare.GapCount(s, lang)
		}
		ts.Points = append(ts.Points, model.SeriesPoint{TakenAt: s.TakenAt, Gaps: gaps})
	}
	return ts, nil
}

// sameLanguages 要求集合与顺序都一致，列序变化会让逐点对比失去意义。
func sameLanguages(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// WriteJSON 将序列写为缩进 JSON 文件。
func WriteJSON(ts model.TimeSeries, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create series json: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ts); err != nil {
		f.Close()
		return fmt.Errorf("encode series json: %w", err)
	}
	return f.Close()
}

// WriteCSV 将序列写为 CSV：首列日期，其后每个次要语言一列缺口数。
func WriteCSV(ts model.TimeSeries, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create series csv: %w", err)
	}
	w := csv.NewWriter(f)
	var secondary []string
	if len(ts.Languages) > 1 {
		secondary = ts.Languages[1:]
	}
	header := append([]string{"date"}, secondary...)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write series csv header: %w", err)
	}
	for _, p := range ts.Points {
		row := []string{p.TakenAt.UTC().Format("2006-01-02")}
		for _, lang := range secondary {
			row = append(row, strconv.Itoa(p.Gaps[lang]))
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("write series csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush series csv: %w", err)
	}
	return f.Close()
}
