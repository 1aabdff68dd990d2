// 包 scrape 负责抓取主流程编排：
// - 种子去重与上限裁剪
// - 并发逐页解析存在情况
// - 按错误策略处理失败页，组装快照并落盘/入索引
package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-wiki-gap/internal/compare"
	"go-wiki-gap/internal/config"
	"go-wiki-gap/internal/logx"
	"go-wiki-gap/internal/model"
	"go-wiki-gap/internal/resolve"
	"go-wiki-gap/internal/seeds"
	"go-wiki-gap/internal/snapstore"
	"go-wiki-gap/internal/store"
	"go-wiki-gap/internal/wiki"
)

// Runner 抓取执行器，持有配置/查询客户端/解析器/快照存储/索引库。
// index 可为 nil（SIMPLE_MODE 下不使用数据库）。
type Runner struct {
	cfg   *config.Config
	wiki  *wiki.Client
	res   *resolve.Resolver
	snaps *snapstore.Store
	index *store.SQLite
}

// New 创建 Runner。
func New(cfg *config.Config, wc *wiki.Client, res *resolve.Resolver, snaps *snapstore.Store, index *store.SQLite) *Runner {
	return &Runner{cfg: cfg, wiki: wc, res: res, snaps: snaps, index: index}
}

// Run 执行一轮抓取：去重裁剪种子→并发解析→组装快照→落盘与索引。
// 中途取消时默认丢弃整轮结果；partialOK 为真时保留已完成部分并标记 Partial。
func (r *Runner) Run(ctx context.Context, category string, seeds []string, partialOK bool) (model.Snapshot, string, error) {
	seeds = dedup(seeds)
	if r.cfg.MaxPages > 0 && len(seeds) > r.cfg.MaxPages {
		logx.Warnf("种子数 %d 超过上限，仅抓取前 %d 个", len(seeds), r.cfg.MaxPages)
		seeds = seeds[:r.cfg.MaxPages]
	}
	if len(seeds) == 0 {
		return model.Snapshot{}, "", fmt.Errorf("category %q has no pages to scrape", category)
	}
	logx.Infof("开始抓取：分类=%s 页面=%d 语言=%v", category, len(seeds), r.cfg.Languages)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	records := make([]model.PageRecord, len(seeds))
	ok := make([]bool, len(seeds))
	var failed []string
	var abortErr error
	var mu sync.Mutex

	sem := make(chan struct{}, max(1, r.cfg.Concurrency.Fetch))
	var wg sync.WaitGroup
	for i, title := range seeds {
		i, title := i, title
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if ctx.Err() != nil {
				return
			}
			rec, err := r.res.Resolve(ctx, title, r.cfg.Languages)
			if err != nil {
				r.handleFailure(ctx, cancel, title, err, func(placeholder model.PageRecord) {
					records[i] = placeholder
					ok[i] = true
				}, &mu, &failed, &abortErr)
				return
			}
			records[i] = rec
			ok[i] = true
		}()
	}
	wg.Wait()

	if abortErr != nil {
		return model.Snapshot{}, "", abortErr
	}
	canceled := ctx.Err() != nil
	if canceled && !partialOK {
		return model.Snapshot{}, "", fmt.Errorf("scrape of %q interrupted, partial result discarded: %w", category, ctx.Err())
	}

	// 保持种子顺序，仅保留成功记录
	kept := make([]model.PageRecord, 0, len(records))
	for i := range records {
		if ok[i] {
			kept = append(kept, records[i])
		}
	}
	if len(failed) > 0 {
		logx.Warnf("本轮 %d 个页面失败：%v", len(failed), failed)
	}

	// 反向扫描：在次要语言版本的对应分类中发现主语言缺失的页面
	if r.cfg.ScanSecondary && ctx.Err() == nil {
		kept = append(kept, r.scanSecondary(ctx, category, kept)...)
	}
	if len(kept) == 0 {
		return model.Snapshot{}, "", fmt.Errorf("scrape of %q produced no records", category)
	}

	snap, err := compare.Build(category, r.cfg.Languages, kept, time.Now())
	if err != nil {
		return model.Snapshot{}, "", fmt.Errorf("build snapshot: %w", err)
	}
	if canceled {
		snap.Partial = true
	}

	path, err := r.snaps.Save(snap)
	if err != nil {
		return model.Snapshot{}, "", err
	}
	logx.Infof("快照已写入：%s（页面=%d）", path, len(snap.Records))

	if r.index != nil {
		// 索引写入使用独立上下文，避免被已取消的抓取上下文拖累
		ictx, icancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer icancel()
		if err := r.index.IndexSnapshot(ictx, snap, path); err != nil {
			logx.Warnf("写入索引库失败：%v", err)
		}
	}
	return snap, path, nil
}

// scanSecondary 通过分类页自身的跨语言链接找到各次要语言版本的对应分类，
// 逐一枚举其成员并解析，保留未链接回主语言的页面（主语言缺口）。
// 扫描失败只告警不终止：反向扫描是补充发现，不受 ON_ERROR 策略约束。
func (r *Runner) scanSecondary(ctx context.Context, category string, have []model.PageRecord) []model.PageRecord {
	catTitle := category
	if !strings.Contains(catTitle, ":") {
		catTitle = "Category:" + catTitle
	}
	primary := r.cfg.Primary()
	info, err := r.wiki.PageLangLinks(ctx, primary, catTitle)
	if err != nil {
		logx.Warnf("读取分类跨语言链接失败，跳过反向扫描：%v", err)
		return nil
	}

	// 主语言扫描已覆盖的 (语言, 标题) 组合，避免重复记录
	seen := map[string]bool{}
	for _, rec := range have {
		for l, t := range rec.LinkedTitle {
			seen[l+"\x00"+t] = true
		}
	}

	var out []model.PageRecord
	for _, lang := range r.cfg.Languages[1:] {
		if ctx.Err() != nil {
			break
		}
		linkedCat, ok := info.LangLinks[lang]
		if !ok {
			continue
		}
		members, err := r.wiki.CategoryMembers(ctx, lang, linkedCat)
		if err != nil {
			logx.Warnf("枚举 %s 分类 %q 成员失败：%v", lang, linkedCat, err)
			continue
		}
		for _, m := range members {
			if m.IsCategory || seen[lang+"\x00"+m.Title] || seeds.Blacklisted(m.Title, r.cfg.Blacklist) {
				continue
			}
			rec, err := r.res.ResolveForeign(ctx, lang, m.Title, r.cfg.Languages)
			if err != nil {
				logx.Warnf("解析 %s 页面失败，跳过：%v", lang, err)
				continue
			}
			if !rec.Exists(lang) || rec.Exists(primary) {
				// 页面已消失，或主语言已有对应页面（主扫描覆盖）
				continue
			}
			for l, t := range rec.LinkedTitle {
				seen[l+"\x00"+t] = true
			}
			out = append(out, rec)
		}
	}
	if len(out) > 0 {
		logx.Infof("反向扫描发现 %d 个主语言缺失页面", len(out))
	}
	return out
}

// handleFailure 按 ON_ERROR 策略处理单页失败。
// 非法标题总是仅跳过该页，不受策略影响。
func (r *Runner) handleFailure(ctx context.Context, cancel context.CancelFunc, title string, err error,
	place func(model.PageRecord), mu *sync.Mutex, failed *[]string, abortErr *error) {
	var invalid *resolve.InvalidTitleError
	if errors.As(err, &invalid) {
		logx.Warnf("标题非法，跳过：%v", err)
		mu.Lock()
		*failed = append(*failed, title)
		mu.Unlock()
		return
	}
	if ctx.Err() != nil {
		return
	}
	switch r.cfg.OnError {
	case config.OnErrorAbort:
		mu.Lock()
		if *abortErr == nil {
			*abortErr = fmt.Errorf("abort on page %q: %w", title, err)
		}
		mu.Unlock()
		cancel()
	case config.OnErrorPlaceholder:
		logx.Warnf("页面抓取失败，写入占位记录：%v", err)
		rec := model.PageRecord{
			PrimaryTitle: title,
			ExistsIn:     make(map[string]bool, len(r.cfg.Languages)),
			Error:        err.Error(),
		}
		for _, l := range r.cfg.Languages {
			rec.ExistsIn[l] = false
		}
		place(rec)
	default:
		logx.Warnf("页面抓取失败，跳过：%v", err)
		mu.Lock()
		*failed = append(*failed, title)
		mu.Unlock()
	}
}

// dedup 按首次出现去重种子标题。
func dedup(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
