// 包 activity 通过页面历史的 Atom 订阅估算编辑活跃度，
// 用于回答"这个分类最近有人在维护吗"。
package activity

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"go-wiki-gap/internal/fetch"
)

// Summary 为一个页面的近期编辑摘要。
type Summary struct {
	Title      string
	Lang       string
	Edits      int
	LastEdited time.Time
	LastEditor string
}

// RecentEdits 抓取页面历史 Atom 并统计 since 之后的编辑次数。
// historyTemplate 含两个 %s 占位：语言代码、URL 编码后的标题。
func RecentEdits(ctx context.Context, cl *fetch.Client, historyTemplate, lang, title string, since time.Time) (Summary, error) {
	sum := Summary{Title: title, Lang: lang}
	escaped := url.QueryEscape(strings.ReplaceAll(title, " ", "_"))
	resp, err := cl.Get(ctx, fmt.Sprintf(historyTemplate, lang, escaped))
	if err != nil {
		return sum, fmt.Errorf("fetch history feed for %q (%s): %w", title, lang, err)
	}
	defer resp.Body.Close()
	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return sum, fmt.Errorf("parse history feed for %q (%s): %w", title, lang, err)
	}
	for _, item := range feed.Items {
		ts := item.UpdatedParsed
		if ts == nil {
			ts = item.PublishedParsed
		}
		if ts == nil {
			continue
		}
		if ts.After(sum.LastEdited) {
			sum.LastEdited = *ts
			if len(item.Authors) > 0 {
				sum.LastEditor = item.Authors[0].Name
			}
		}
		if ts.After(since) {
			sum.Edits++
		}
	}
	return sum, nil
}
