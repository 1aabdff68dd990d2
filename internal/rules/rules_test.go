package rules

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAndGetPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skins.yaml")
	body := `
vector:
  langlinks:
    item: "li.interlanguage-link"
    lang: "a@hreflang"
    title: "a@title"
minerva:
  langlinks:
    item: "ul.minerva-languages li"
    lang: "a@lang"
    title: "."
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	rl, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p := rl.GetPreset("minerva")
	if p.LangLinks == nil || p.LangLinks.Item != "ul.minerva-languages li" {
		t.Fatalf("minerva preset = %+v", p)
	}
	// case-insensitive lookup
	p = rl.GetPreset("Vector")
	if p.LangLinks == nil || p.LangLinks.Lang != "a@hreflang" {
		t.Fatalf("vector preset = %+v", p)
	}
	// unknown name falls back to vector
	p = rl.GetPreset("timeless")
	if p.LangLinks == nil || p.LangLinks.Item != "li.interlanguage-link" {
		t.Fatalf("fallback preset = %+v", p)
	}
}

func TestGetPreset_NilRules(t *testing.T) {
	var rl *Rules
	p := rl.GetPreset("vector")
	if p.LangLinks == nil || p.LangLinks.Item == "" {
		t.Fatalf("nil rules must yield built-in default, got %+v", p)
	}
}
