// 包 resolve 将主语言标题解析为一条 PageRecord：
// 查询页面的全部跨语言链接，对配置中的每个目标语言判定是否存在。
// 本包不含重试/跳过策略，失败以类型化错误上抛，由调用方决定。
package resolve

import (
	"context"
	"errors"
	"strings"

	"go-wiki-gap/internal/model"
	"go-wiki-gap/internal/wiki"
)

// Resolver 基于 wiki.Client 做单页解析，无共享可变状态。
type Resolver struct {
	wiki *wiki.Client
}

func New(w *wiki.Client) *Resolver { return &Resolver{wiki: w} }

// Resolve 解析 title 在 languages 各语言版本的存在情况。
// languages 首位为主语言；主语言页面不存在不是错误，
// 而是一条 ExistsIn[primary]=false 的合法记录（主语言缺口也是发现）。
// 跨语言链接指向消歧义页时按存在处理，LinkedTitle 记录消歧义目标。
func (r *Resolver) Resolve(ctx context.Context, title string, languages []string) (model.PageRecord, error) {
	if len(languages) == 0 {
		return model.PageRecord{}, errors.New("resolve: empty language list")
	}
	return r.resolveIn(ctx, languages[0], title, languages)
}

// ResolveForeign 解析在次要语言 lang 版本发现的 title，生成与主语言种子
// 同构的记录。页面链接回主语言时记录主键取主语言标题，
// 否则保留 lang 版本标题（该页面即主语言缺口）。
func (r *Resolver) ResolveForeign(ctx context.Context, lang, title string, languages []string) (model.PageRecord, error) {
	if len(languages) == 0 {
		return model.PageRecord{}, errors.New("resolve: empty language list")
	}
	rec, err := r.resolveIn(ctx, lang, title, languages)
	if err != nil {
		return rec, err
	}
	if primary := languages[0]; rec.Exists(primary) {
		rec.PrimaryTitle = rec.LinkedTitle[primary]
	}
	return rec, nil
}

// resolveIn 在 lang 语言版本查询 title 并生成记录，键集合恒为 languages。
func (r *Resolver) resolveIn(ctx context.Context, lang, title string, languages []string) (model.PageRecord, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return model.PageRecord{}, &InvalidTitleError{Title: title, Reason: "empty"}
	}
	if strings.ContainsAny(trimmed, "|\n\t") {
		return model.PageRecord{}, &InvalidTitleError{Title: title, Reason: "contains reserved characters"}
	}

	info, err := r.wiki.PageLangLinks(ctx, lang, trimmed)
	if err != nil {
		return model.PageRecord{}, &TransientFetchError{Title: trimmed, Err: err}
	}
	if info.Invalid {
		return model.PageRecord{}, &InvalidTitleError{Title: trimmed, Reason: "rejected by api"}
	}

	rec := model.PageRecord{
		PrimaryTitle: trimmed,
		ExistsIn:     make(map[string]bool, len(languages)),
	}
	for _, l := range languages {
		rec.ExistsIn[l] = false
	}
	if info.Missing {
		return rec, nil
	}

	link := func(l, linked string) {
		if rec.LinkedTitle == nil {
			rec.LinkedTitle = map[string]string{}
		}
		rec.ExistsIn[l] = true
		rec.LinkedTitle[l] = linked
	}
	link(lang, info.Title)
	rec.Length = info.Length
	rec.Touched = info.Touched
	for _, l := range languages {
		if l == lang {
			continue
		}
		linked, ok := info.LangLinks[l]
		if !ok {
			continue
		}
		// 链接指向页面段落时取页面名本身
		if i := strings.Index(linked, "#"); i >= 0 {
			linked = linked[:i]
		}
		if linked == "" {
			continue
		}
		link(l, linked)
	}
	return rec, nil
}
