// 包 rules 负责加载皮肤解析规则（skins.yaml），
// 以预设名（如 vector/minerva）组织 CSS 选择器，
// 用于在 API 不可用时从渲染后的页面 HTML 提取跨语言链接。
package rules

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules 表示全部规则集合：键为预设名，值为具体规则。
type Rules struct {
	Presets map[string]Preset `yaml:",inline"`
}

// Preset 为单个皮肤预设的解析规则集合。
type Preset struct {
	LangLinks *LangLinks `yaml:"langlinks"`
}

// LangLinks 描述跨语言链接的选择器：
// - item：每个语言条目容器
// - lang/title：取文本或属性（支持 a@hreflang / a@title，"||" 回退）
type LangLinks struct {
	Item  string `yaml:"item"`
	Lang  string `yaml:"lang"`
	Title string `yaml:"title"`
}

// Default 为 vector 皮肤的内置预设，未提供 skins.yaml 时使用。
func Default() Preset {
	return Preset{LangLinks: &LangLinks{
		Item:  "li.interlanguage-link",
		Lang:  "a@hreflang||a@lang",
		Title: "a@title||a@data-title",
	}}
}

func Load(path string) (*Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var r Rules
	if err := yaml.Unmarshal(b, &r.Presets); err != nil {
		return nil, fmt.Errorf("unmarshal rules %s: %w", path, err)
	}
	return &r, nil
}

// GetPreset 按名称获取预设（不区分大小写），若为空或不存在则回退到 "vector"，
// 再回退到内置默认值。
func (r *Rules) GetPreset(name string) Preset {
	if r == nil || len(r.Presets) == 0 {
		return Default()
	}
	if name == "" {
		name = "vector"
	}
	if p, ok := r.Presets[name]; ok {
		return p
	}
	lower := strings.ToLower(name)
	for k, v := range r.Presets {
		if strings.ToLower(k) == lower {
			return v
		}
	}
	if p, ok := r.Presets["vector"]; ok {
		return p
	}
	return Default()
}
