package logx

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
)

// captureStdout runs fn while capturing os.Stdout output and returns it as string.
func captureStdout(fn func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = old }()
	fn()
	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	_ = r.Close()
	return buf.String()
}

func TestPrettyZH_Info(t *testing.T) {
	out := captureStdout(func() {
		Init("debug", "pretty", "zh-CN", "never")
		Infof("hello %s", "world")
	})
	if !strings.Contains(out, "[信息]") {
		t.Fatalf("expect zh label [信息], got: %q", out)
	}
	if !strings.Contains(out, "hello world") {
		t.Fatalf("message missing: %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	out := captureStdout(func() {
		Init("warn", "pretty", "zh-CN", "never")
		Infof("should not print")
		Warnf("warn on")
	})
	if strings.Contains(out, "should not print") {
		t.Fatalf("info should be filtered when level=warn")
	}
	if !strings.Contains(out, "[警告]") {
		t.Fatalf("expect warn label present")
	}
}

func TestEnglishLabels(t *testing.T) {
	out := captureStdout(func() {
		Init("info", "pretty", "en", "never")
		Infof("ok")
	})
	if !strings.Contains(out, "[INFO]") {
		t.Fatalf("expect en label [INFO], got: %q", out)
	}
}

func TestSilentLevel(t *testing.T) {
	out := captureStdout(func() {
		Init("none", "pretty", "zh-CN", "never")
		Errorf("nothing at all")
	})
	if strings.Contains(out, "nothing at all") {
		t.Fatalf("silent level must drop everything: %q", out)
	}
}

func TestPrettyHandler_Attrs(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, slog.LevelInfo, "en", "never")
	lg := slog.New(h).With("category", "Nagu")
	lg.Info("scraped", "pages", 42)
	out := buf.String()
	if !strings.Contains(out, "category=Nagu") || !strings.Contains(out, "pages=42") {
		t.Fatalf("attrs missing: %q", out)
	}
}
