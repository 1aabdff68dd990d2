// 包 seeds 负责收集种子标题：本地列表文件或分类成员递归展开。
// 输出保持发现顺序，重复标题按首次出现保留。
package seeds

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"go-wiki-gap/internal/logx"
	"go-wiki-gap/internal/wiki"
)

// FromFile 读取标题列表文件：每行一个标题，空行与 # 注释行跳过。
func FromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seeds file %s: %w", path, err)
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read seeds file %s: %w", path, err)
	}
	return out, nil
}

// FromCategory 递归展开分类成员为种子标题。
// category 不带命名空间前缀时自动补 "Category:"；
// 子分类递归至 maxDepth 层；标题含黑名单词（小写匹配）时跳过。
func FromCategory(ctx context.Context, c *wiki.Client, lang, category string, maxDepth int, blacklist []string) ([]string, error) {
	if !strings.Contains(category, ":") {
		category = "Category:" + category
	}
	seen := map[string]bool{}
	var out []string
	var walk func(cat string, depth int) error
	walk = func(cat string, depth int) error {
		if seen[cat] {
			return nil
		}
		seen[cat] = true
		members, err := c.CategoryMembers(ctx, lang, cat)
		if err != nil {
			return err
		}
		for _, m := range members {
			if Blacklisted(m.Title, blacklist) {
				logx.Debugf("黑名单命中，跳过：%s", m.Title)
				continue
			}
			if m.IsCategory {
				if depth >= maxDepth {
					logx.Debugf("达到递归深度上限，跳过子分类：%s", m.Title)
					continue
				}
				if err := walk(m.Title, depth+1); err != nil {
					return err
				}
				continue
			}
			if !seen[m.Title] {
				seen[m.Title] = true
				out = append(out, m.Title)
			}
		}
		return nil
	}
	if err := walk(category, 0); err != nil {
		return nil, fmt.Errorf("expand category %q (%s): %w", category, lang, err)
	}
	return out, nil
}

// Blacklisted 判断标题是否命中黑名单词（不区分大小写的子串匹配）。
func Blacklisted(title string, blacklist []string) bool {
	t := strings.ToLower(title)
	for _, b := range blacklist {
		b = strings.ToLower(b)
		if b != "" && strings.Contains(t, b) {
			return true
		}
	}
	return false
}
