// 命令行入口：
// - 解析 flags 与 settings.yaml/skins.yaml
// - 初始化日志、HTTP 客户端、索引库
// - 子命令：scrape / report / analyze / list / page
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go-wiki-gap/internal/activity"
	"go-wiki-gap/internal/config"
	"go-wiki-gap/internal/fetch"
	"go-wiki-gap/internal/logx"
	"go-wiki-gap/internal/model"
	"go-wiki-gap/internal/report"
	"go-wiki-gap/internal/resolve"
	"go-wiki-gap/internal/rules"
	"go-wiki-gap/internal/scrape"
	"go-wiki-gap/internal/seeds"
	"go-wiki-gap/internal/series"
	"go-wiki-gap/internal/snapstore"
	"go-wiki-gap/internal/store"
	"go-wiki-gap/internal/wiki"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: wgap [flags] <command> [args]

commands:
  scrape <category>    expand a category and snapshot page existence per language
  report <category>    render the latest snapshot as HTML and wiki markup
  analyze <category>   aggregate all snapshots into a gap time series (json + csv)
  list                 list recorded runs
  page <title>         resolve one title and print its existence per language

flags:
`)
	flag.PrintDefaults()
}

func main() {
	var (
		configPath = flag.String("config", "settings.yaml", "path to settings.yaml")
		skinsPath  = flag.String("skins", "skins.yaml", "path to skins.yaml (optional)")
		skinName   = flag.String("skin", "vector", "skin preset for html fallback parsing")
		langsFlag  = flag.String("langs", "", "override languages, pipe separated (e.g. sv|fi|en)")
		seedsPath  = flag.String("seeds", "", "seed titles file for scrape (instead of category expansion)")
		partialOK  = flag.Bool("partial", false, "keep a partial snapshot when the scrape is interrupted")
		lenient    = flag.Bool("lenient", false, "skip corrupt snapshot files instead of failing")
	)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	cmd := flag.Arg(0)

	// 1) 加载配置与皮肤规则
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.SetLanguages(*langsFlag); err != nil {
		log.Fatalf("apply -langs: %v", err)
	}
	var rl *rules.Rules
	if *skinsPath != "" {
		if r, err := rules.Load(*skinsPath); err == nil {
			rl = r
		} else if !errors.Is(err, os.ErrNotExist) {
			log.Printf("load skins failed: %v", err)
		}
	}
	// 2) 初始化日志：级别/格式/语言/颜色
	logx.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogLocale, cfg.LogColor)

	// 3) 初始化 HTTP 客户端（含代理与重试）
	cl, err := fetch.New(fetch.Options{
		ProxyHTTP:  cfg.Proxy.HTTP,
		ProxyHTTPS: cfg.Proxy.HTTPS,
		Timeout:    25 * time.Second,
		Retry:      cfg.Concurrency.Retry,
	})
	if err != nil {
		log.Fatalf("http client: %v", err)
	}
	wc := wiki.New(cl, cfg.APITemplate, cfg.PageTemplate, rl.GetPreset(*skinName))
	snaps := snapstore.New(cfg.DataDir)

	// 4) 索引库：极简模式不打开数据库
	var idx *store.SQLite
	if !cfg.SimpleMode {
		idx, err = store.OpenSQLite(cfg.Database.DSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer idx.Close()
	}

	// Ctrl-C 触发优雅取消，抓取按 -partial 决定是否保留半成品
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "scrape":
		err = runScrape(ctx, cfg, cl, wc, snaps, idx, flag.Arg(1), *seedsPath, *partialOK)
	case "report":
		err = runReport(cfg, wc, snaps, flag.Arg(1))
	case "analyze":
		err = runAnalyze(cfg, snaps, flag.Arg(1), *lenient)
	case "list":
		err = runList(ctx, snaps, idx)
	case "page":
		err = runPage(ctx, cfg, cl, wc, flag.Arg(1))
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logx.Errorf("运行失败：%v", err)
		os.Exit(1)
	}
}

func runScrape(ctx context.Context, cfg *config.Config, cl *fetch.Client, wc *wiki.Client,
	snaps *snapstore.Store, idx *store.SQLite, category, seedsPath string, partialOK bool) error {
	if category == "" {
		return errors.New("scrape: category argument required")
	}
	var (
		titles []string
		err    error
	)
	if seedsPath != "" {
		titles, err = seeds.FromFile(seedsPath)
	} else {
		titles, err = seeds.FromCategory(ctx, wc, cfg.Primary(), category, cfg.MaxDepth, cfg.Blacklist)
	}
	if err != nil {
		return err
	}
	res := resolve.New(wc)
	runner := scrape.New(cfg, wc, res, snaps, idx)
	snap, path, err := runner.Run(ctx, category, titles, partialOK)
	if err != nil {
		return err
	}
	for _, lang := range snap.Secondary() {
		logx.Infof("缺口 %s：%d / %d", lang, snap.Stats.Gaps[lang], snap.Stats.Pages)
	}
	if err := writeReports(cfg, wc, snap); err != nil {
		return err
	}
	logx.Infof("抓取完成：%s", path)
	return nil
}

// writeReports 渲染 HTML 与 wiki 标记报表到 data/html 与 data/wikitext 的日期目录。
func writeReports(cfg *config.Config, wc *wiki.Client, snap model.Snapshot) error {
	t := report.Build(snap, wc.PageURL)
	date := snap.TakenAt.UTC().Format("2006-01-02")
	name := "c_" + strings.ReplaceAll(snap.Category, " ", "_")
	htmlDir := filepath.Join(cfg.DataDir, "html", date)
	wikiDir := filepath.Join(cfg.DataDir, "wikitext", date)
	for _, dir := range []string{htmlDir, wikiDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	htmlPath := filepath.Join(htmlDir, name+".html")
	wikiPath := filepath.Join(wikiDir, name+".txt")
	if err := report.WriteHTML(t, htmlPath); err != nil {
		return err
	}
	if err := report.WriteWikitext(t, wikiPath); err != nil {
		return err
	}
	logx.Infof("报表已生成：%s / %s", htmlPath, wikiPath)
	return nil
}

func runReport(cfg *config.Config, wc *wiki.Client, snaps *snapstore.Store, category string) error {
	if category == "" {
		return errors.New("report: category argument required")
	}
	snap, err := snaps.LoadLatest(category)
	if err != nil {
		return err
	}
	return writeReports(cfg, wc, snap)
}

func runAnalyze(cfg *config.Config, snaps *snapstore.Store, category string, lenient bool) error {
	if category == "" {
		return errors.New("analyze: category argument required")
	}
	all, err := snaps.LoadAll(category, lenient)
	if err != nil {
		return err
	}
	ts, err := series.Aggregate(all, category)
	if err != nil {
		return err
	}
	dir := filepath.Join(cfg.DataDir, "analysis")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create analysis dir: %w", err)
	}
	base := strings.ReplaceAll(category, " ", "_") + "_series"
	jsonPath := filepath.Join(dir, base+".json")
	csvPath := filepath.Join(dir, base+".csv")
	if err := series.WriteJSON(ts, jsonPath); err != nil {
		return err
	}
	if err := series.WriteCSV(ts, csvPath); err != nil {
		return err
	}
	for _, p := range ts.Points {
		logx.Infof("%s 缺口=%v", p.TakenAt.UTC().Format("2006-01-02"), p.Gaps)
	}
	logx.Infof("序列已导出：%s / %s（观测点=%d）", jsonPath, csvPath, len(ts.Points))
	return nil
}

func runList(ctx context.Context, snaps *snapstore.Store, idx *store.SQLite) error {
	if idx != nil {
		runs, err := idx.ListRuns(ctx)
		if err != nil {
			return err
		}
		for _, r := range runs {
			printRun(r.Category, r.TakenAt, r.Pages, r.Partial, r.Path)
		}
		if len(runs) == 0 {
			logx.Infof("索引库中暂无运行记录")
		}
		return nil
	}
	// 极简模式：直接扫描快照目录
	runs, err := snaps.ListRuns()
	if err != nil {
		return err
	}
	for _, r := range runs {
		printRun(r.Category, r.TakenAt, r.Pages, r.Partial, r.Path)
	}
	if len(runs) == 0 {
		logx.Infof("暂无快照文件")
	}
	return nil
}

func printRun(category string, takenAt time.Time, pages int, partial bool, path string) {
	mark := ""
	if partial {
		mark = " [partial]"
	}
	fmt.Printf("%s  %-30s %5d pages%s  %s\n", takenAt.UTC().Format("2006-01-02"), category, pages, mark, path)
}

func runPage(ctx context.Context, cfg *config.Config, cl *fetch.Client, wc *wiki.Client, title string) error {
	if title == "" {
		return errors.New("page: title argument required")
	}
	res := resolve.New(wc)
	rec, err := res.Resolve(ctx, title, cfg.Languages)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", rec.PrimaryTitle)
	for _, lang := range cfg.Languages {
		if rec.Exists(lang) {
			linked := rec.LinkedTitle[lang]
			fmt.Printf("  %-4s %s  %s\n", lang, linked, wc.PageURL(lang, linked))
		} else {
			fmt.Printf("  %-4s -\n", lang)
		}
	}
	if rec.Length > 0 {
		fmt.Printf("  length=%d touched=%s\n", rec.Length, rec.Touched)
	}
	if cfg.CheckActivity && rec.Exists(cfg.Primary()) {
		since := time.Now().AddDate(0, 0, -30)
		sum, err := activity.RecentEdits(ctx, cl, cfg.HistoryTemplate, cfg.Primary(), rec.PrimaryTitle, since)
		if err != nil {
			logx.Warnf("读取编辑历史失败：%v", err)
		} else {
			fmt.Printf("  edits(30d)=%d last=%s by %s\n",
				sum.Edits, sum.LastEdited.UTC().Format("2006-01-02 15:04"), sum.LastEditor)
		}
	}
	return nil
}
