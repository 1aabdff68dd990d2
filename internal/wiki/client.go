// 包 wiki 封装 MediaWiki 查询 API：
// - PageLangLinks：读取页面基本信息与全部跨语言链接（带 continuation 翻页）
// - CategoryMembers：枚举分类成员（带 continuation 翻页）
// API 异常时可回退到渲染后 HTML 的跨语言链接解析（见 html.go）。
package wiki

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go-wiki-gap/internal/fetch"
	"go-wiki-gap/internal/logx"
	"go-wiki-gap/internal/rules"
)

// Client 为按语言实例化 API 地址的查询客户端。
type Client struct {
	cl           *fetch.Client
	apiTemplate  string // 例：https://%s.wikipedia.org/w/api.php
	pageTemplate string // 例：https://%s.wikipedia.org/wiki/%s
	preset       rules.Preset
}

// New 创建客户端。preset 仅用于 HTML 回退解析。
func New(cl *fetch.Client, apiTemplate, pageTemplate string, preset rules.Preset) *Client {
	return &Client{cl: cl, apiTemplate: apiTemplate, pageTemplate: pageTemplate, preset: preset}
}

// PageInfo 为一次页面查询的归一化结果。
type PageInfo struct {
	Title     string // 重定向解析后的规范标题
	Missing   bool
	Invalid   bool
	Length    int
	Touched   string
	LangLinks map[string]string // 语言代码 -> 该语言的标题
}

type queryResp struct {
	Continue map[string]string `json:"continue"`
	Query    struct {
		Pages []struct {
			Title     string `json:"title"`
			Missing   bool   `json:"missing"`
			Invalid   bool   `json:"invalid"`
			Length    int    `json:"length"`
			Touched   string `json:"touched"`
			LangLinks []struct {
				Lang  string `json:"lang"`
				Title string `json:"title"`
			} `json:"langlinks"`
		} `json:"pages"`
		CategoryMembers []struct {
			NS    int    `json:"ns"`
			Title string `json:"title"`
		} `json:"categorymembers"`
	} `json:"query"`
}

// PageLangLinks 查询 lang 语言版本中 title 页面的信息与全部跨语言链接。
// API 请求失败时尝试 HTML 回退；回退同样失败则返回首个错误。
func (c *Client) PageLangLinks(ctx context.Context, lang, title string) (PageInfo, error) {
	info := PageInfo{Title: title, LangLinks: map[string]string{}}
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("redirects", "1")
	params.Set("prop", "langlinks|info")
	params.Set("lllimit", "500")
	params.Set("titles", title)

	first := true
	for {
		var resp queryResp
		u := fmt.Sprintf(c.apiTemplate, lang) + "?" + params.Encode()
		if err := c.cl.GetJSON(ctx, u, &resp); err != nil {
			if !first {
				return info, fmt.Errorf("langlinks continuation for %q (%s): %w", title, lang, err)
			}
			// API 不可用时回退到渲染后 HTML
			links, htmlErr := c.LangLinksHTML(ctx, lang, title)
			if htmlErr != nil {
				return info, fmt.Errorf("query langlinks for %q (%s): %w", title, lang, err)
			}
			logx.Warnf("API 请求失败，已回退到 HTML 解析：%s (%s)", title, lang)
			info.LangLinks = links
			return info, nil
		}
		first = false
		for _, p := range resp.Query.Pages {
			info.Title = p.Title
			info.Missing = info.Missing || p.Missing
			info.Invalid = info.Invalid || p.Invalid
			if p.Length > 0 {
				info.Length = p.Length
			}
			if p.Touched != "" {
				info.Touched = strings.ReplaceAll(strings.TrimSuffix(p.Touched, "Z"), "T", " ")
			}
			for _, ll := range p.LangLinks {
				info.LangLinks[ll.Lang] = ll.Title
			}
		}
		cont, ok := resp.Continue["llcontinue"]
		if !ok || cont == "" {
			return info, nil
		}
		params.Set("llcontinue", cont)
	}
}

// Member 为分类成员条目。
type Member struct {
	Title      string
	IsCategory bool
}

const categoryNS = 14

// CategoryMembers 枚举分类的直接成员（条目与子分类），按 API 返回顺序。
func (c *Client) CategoryMembers(ctx context.Context, lang, category string) ([]Member, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("list", "categorymembers")
	params.Set("cmtitle", category)
	params.Set("cmlimit", "500")

	var out []Member
	for {
		var resp queryResp
		u := fmt.Sprintf(c.apiTemplate, lang) + "?" + params.Encode()
		if err := c.cl.GetJSON(ctx, u, &resp); err != nil {
			return nil, fmt.Errorf("query categorymembers %q (%s): %w", category, lang, err)
		}
		for _, m := range resp.Query.CategoryMembers {
			out = append(out, Member{Title: m.Title, IsCategory: m.NS == categoryNS})
		}
		cont, ok := resp.Continue["cmcontinue"]
		if !ok || cont == "" {
			return out, nil
		}
		params.Set("cmcontinue", cont)
	}
}

// PageURL 返回 title 在 lang 语言版本的阅读地址。
func (c *Client) PageURL(lang, title string) string {
	return fmt.Sprintf(c.pageTemplate, lang, url.PathEscape(strings.ReplaceAll(title, " ", "_")))
}
