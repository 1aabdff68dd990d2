// 包 report 将快照渲染为人读报表：HTML 表格与 wiki 表格标记。
// 行序与快照记录序一致，列序与语言列表一致。
package report

import (
	"fmt"
	"html/template"
	"os"
	"strings"
	"time"

	"go-wiki-gap/internal/model"
)

// Cell 为报表中一个（页面, 语言）单元。缺失时 Title/URL 为空。
type Cell struct {
	Lang   string
	Title  string
	URL    string
	Exists bool
}

// Row 为报表一行：序号、主语言标题、各语言单元。
type Row struct {
	N     int
	Title string
	Cells []Cell
}

// Table 为渲染模板使用的中间结构。
type Table struct {
	Category  string
	TakenAt   time.Time
	Languages []string
	Rows      []Row
	Stats     model.SnapshotStats
}

// URLFunc 由语言与标题生成阅读地址，通常为 (*wiki.Client).PageURL。
type URLFunc func(lang, title string) string

// Build 由快照构建报表结构。
func Build(snap model.Snapshot, pageURL URLFunc) Table {
	t := Table{
		Category:  snap.Category,
		TakenAt:   snap.TakenAt,
		Languages: snap.Languages,
		Stats:     snap.Stats,
	}
	for i, r := range snap.Records {
		row := Row{N: i + 1, Title: r.PrimaryTitle}
		for _, lang := range snap.Languages {
			c := Cell{Lang: lang, Exists: r.Exists(lang)}
			if c.Exists {
				c.Title = r.LinkedTitle[lang]
				if c.Title == "" {
					c.Title = r.PrimaryTitle
				}
				c.URL = pageURL(lang, c.Title)
			}
			row.Cells = append(row.Cells, c)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

var htmlTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Category}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #aaa; padding: 4px 8px; }
td.missing { background: #fdd; text-align: center; }
caption { font-weight: bold; padding: 6px; }
</style>
</head>
<body>
<table>
<caption>{{.Category}} ({{.TakenAt.Format "2006-01-02"}}, {{.Stats.Pages}} pages)</caption>
<tr><th>#</th>{{range .Languages}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr><td>{{.N}}</td>{{range .Cells}}{{if .Exists}}<td><a href="{{.URL}}">{{.Title}}</a></td>{{else}}<td class="missing">-</td>{{end}}{{end}}</tr>
{{end}}</table>
</body>
</html>
`))

// WriteHTML 渲染 HTML 报表到文件。
func WriteHTML(t Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create html report: %w", err)
	}
	if err := htmlTmpl.Execute(f, t); err != nil {
		f.Close()
		return fmt.Errorf("render html report: %w", err)
	}
	return f.Close()
}

// Wikitext 渲染 wiki 表格标记（可直接贴入维基页面）。
func Wikitext(t Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "{| class=\"wikitable sortable\"\n")
	fmt.Fprintf(&b, "|+ %s (%s, %d pages)\n", t.Category, t.TakenAt.Format("2006-01-02"), t.Stats.Pages)
	b.WriteString("! #")
	for _, lang := range t.Languages {
		fmt.Fprintf(&b, " !! %s", lang)
	}
	b.WriteString("\n")
	for _, row := range t.Rows {
		b.WriteString("|-\n")
		fmt.Fprintf(&b, "| %d", row.N)
		for _, c := range row.Cells {
			if c.Exists {
				fmt.Fprintf(&b, " || [%s %s]", c.URL, c.Title)
			} else {
				b.WriteString(" || -")
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("|}\n")
	return b.String()
}

// WriteWikitext 渲染 wiki 表格标记到文件。
func WriteWikitext(t Table, path string) error {
	if err := os.WriteFile(path, []byte(Wikitext(t)), 0o644); err != nil {
		return fmt.Errorf("write wikitext report: %w", err)
	}
	return nil
}
