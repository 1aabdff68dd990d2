// HTML 回退解析：API 不可用时从渲染后的页面提取跨语言链接。
// 选择器来自 skins.yaml 预设，表达式语法：
// - 文本：".label" 或 "."（取当前项文本）
// - 属性："a@hreflang"/"@title"（当前项属性）
// - 回退：使用 "||" 连接多个候选，按先后尝试
package wiki

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LangLinksHTML 抓取页面 HTML 并按预设选择器提取 语言代码 -> 标题 映射。
func (c *Client) LangLinksHTML(ctx context.Context, lang, title string) (map[string]string, error) {
	ll := c.preset.LangLinks
	if ll == nil {
		return nil, fmt.Errorf("no langlinks selector preset")
	}
	resp, err := c.cl.Get(ctx, c.PageURL(lang, title))
	if err != nil {
		return nil, fmt.Errorf("GET page %s (%s): %w", title, lang, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(b)))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}
	out := map[string]string{}
	doc.Find(ll.Item).Each(func(_ int, s *goquery.Selection) {
		code := getVal(s, ll.Lang)
		if code == "" {
			return
		}
		// hreflang 可能带地区后缀（如 zh-CN），仅剥离末尾的两位大写地区标签，
		// 多段语言代码（如 zh-min-nan、be-tarask）保持原样
		if i := strings.LastIndex(code, "-"); i > 0 {
			if s := code[i+1:]; len(s) == 2 && s == strings.ToUpper(s) && s != strings.ToLower(s) {
				code = code[:i]
			}
		}
		linked := getVal(s, ll.Title)
		if linked == "" {
			linked = strings.TrimSpace(s.Find("a").First().Text())
		}
		// 链接标题形如 "Titel – svenska"，取破折号前的页面名
		if i := strings.Index(linked, " – "); i >= 0 {
			linked = linked[:i]
		}
		if linked == "" {
			return
		}
		if _, ok := out[code]; !ok {
			out[code] = linked
		}
	})
	return out, nil
}

// getVal 解析表达式并支持使用 "||" 作为回退分隔，例如："a@hreflang||a@lang"。
func getVal(scope *goquery.Selection, expr string) string {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return ""
	}
	for _, part := range strings.Split(expr, "||") {
		if v := getValSingle(scope, strings.TrimSpace(part)); v != "" {
			return v
		}
	}
	return ""
}

// getValSingle 解析单个表达式：文本或属性读取。
func getValSingle(scope *goquery.Selection, expr string) string {
	if expr == "" {
		return ""
	}
	if expr == "." {
		return strings.TrimSpace(scope.Text())
	}
	if at := strings.Index(expr, "@"); at != -1 {
		sel := strings.TrimSpace(expr[:at])
		attr := strings.TrimSpace(expr[at+1:])
		if sel == "" {
			val, _ := scope.Attr(attr)
			return strings.TrimSpace(val)
		}
		val, _ := scope.Find(sel).First().Attr(attr)
		return strings.TrimSpace(val)
	}
	return strings.TrimSpace(scope.Find(expr).First().Text())
}
