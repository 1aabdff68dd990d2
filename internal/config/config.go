// 包 config 负责加载与校验应用配置（settings.yaml），
// 对外提供结构体 Config 及默认值/合法性校验。
// 语言列表在此一次性校验，业务层不再重复判空。
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// 错误处理策略：单页抓取失败时的处理方式。
const (
	OnErrorSkip        = "skip"        // 跳过该页，仅记录日志
	OnErrorPlaceholder = "placeholder" // 写入带错误信息的占位记录
	OnErrorAbort       = "abort"       // 终止整轮抓取
)

// Config 仅保留当前需要的字段，避免过度设计。
type Config struct {
	Languages       []string    `yaml:"LANGUAGES"`        // 有序：首位为主语言
	APITemplate     string      `yaml:"API_TEMPLATE"`     // 含 %s 占位（语言代码）
	PageTemplate    string      `yaml:"PAGE_TEMPLATE"`    // 含两个 %s 占位（语言、标题）
	HistoryTemplate string      `yaml:"HISTORY_TEMPLATE"` // 页面历史 Atom 订阅地址模板
	DataDir         string      `yaml:"DATA_DIR"`
	Blacklist       []string    `yaml:"BLACKLIST"` // 标题包含即跳过（小写匹配）
	MaxDepth        int         `yaml:"MAX_DEPTH"`      // 子分类递归深度
	MaxPages        int         `yaml:"MAX_PAGES"`      // 0 表示不限
	ScanSecondary   bool        `yaml:"SCAN_SECONDARY"` // 在次要语言分类中发现主语言缺失页面
	SimpleMode      bool        `yaml:"SIMPLE_MODE"`
	CheckActivity   bool        `yaml:"CHECK_ACTIVITY"`
	OnError         string      `yaml:"ON_ERROR"` // skip|placeholder|abort
	Database        Database    `yaml:"DATABASE"`
	Concurrency     Concurrency `yaml:"CONCURRENCY"`
	Proxy           Proxy       `yaml:"PROXY"`
	LogLevel        string      `yaml:"LOG_LEVEL"`
	LogFormat       string      `yaml:"LOG_FORMAT"` // text|json|pretty
	LogLocale       string      `yaml:"LOG_LOCALE"` // zh-CN|en
	LogColor        string      `yaml:"LOG_COLOR"`  // auto|always|never
}

type Database struct {
	Type string `yaml:"type"` // sqlite (default)
	DSN  string `yaml:"dsn"`  // ./gap.db
}

type Concurrency struct {
	Fetch int `yaml:"fetch"`
	Retry int `yaml:"retry"`
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

// Load 从文件读取 YAML 并反序列化为 Config，同时进行基础校验与默认值填充。
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Validate 负责合法性检查与默认值设置，语言列表的不变量只在这里保障一次。
func (c *Config) Validate() error {
	if len(c.Languages) == 0 {
		c.Languages = []string{"sv", "fi", "en", "de"}
	}
	if len(c.Languages) < 2 {
		return errors.New("LANGUAGES needs at least a primary and one secondary language")
	}
	seen := map[string]bool{}
	for i, l := range c.Languages {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" {
			return fmt.Errorf("LANGUAGES[%d] is empty", i)
		}
		if seen[l] {
			return fmt.Errorf("LANGUAGES contains duplicate %q", l)
		}
		seen[l] = true
		c.Languages[i] = l
	}
	if c.APITemplate == "" {
		c.APITemplate = "https://%s.wikipedia.org/w/api.php"
	}
	if c.PageTemplate == "" {
		c.PageTemplate = "https://%s.wikipedia.org/wiki/%s"
	}
	if c.HistoryTemplate == "" {
		c.HistoryTemplate = "https://%s.wikipedia.org/w/index.php?title=%s&action=history&feed=atom"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.MaxDepth < 0 {
		return errors.New("MAX_DEPTH must be >= 0")
	}
	if c.MaxDepth == 0 {
		c.MaxDepth = 10
	}
	if c.MaxPages < 0 {
		return errors.New("MAX_PAGES must be >= 0")
	}
	switch c.OnError {
	case "":
		c.OnError = OnErrorSkip
	case OnErrorSkip, OnErrorPlaceholder, OnErrorAbort:
	default:
		return fmt.Errorf("unsupported ON_ERROR policy: %s", c.OnError)
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type != "sqlite" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "./gap.db"
	}
	if c.Concurrency.Fetch <= 0 {
		c.Concurrency.Fetch = 4
	}
	if c.Concurrency.Retry < 0 {
		c.Concurrency.Retry = 2
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogLocale == "" {
		c.LogLocale = "zh-CN"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	return nil
}

// Primary 返回主语言代码。
func (c *Config) Primary() string { return c.Languages[0] }

// SetLanguages 用 '|' 分隔的语言串覆盖配置（命令行 -langs），重新走一遍校验。
func (c *Config) SetLanguages(pipeSeparated string) error {
	if strings.TrimSpace(pipeSeparated) == "" {
		return nil
	}
	c.Languages = strings.Split(pipeSeparated, "|")
	return c.Validate()
}
