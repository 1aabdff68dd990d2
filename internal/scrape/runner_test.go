package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-wiki-gap/internal/config"
	"go-wiki-gap/internal/fetch"
	"go-wiki-gap/internal/resolve"
	"go-wiki-gap/internal/rules"
	"go-wiki-gap/internal/snapstore"
	"go-wiki-gap/internal/wiki"
)

// apiHandler serves a fixed langlinks answer per title and 500 for "Broken".
func apiHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sv/api.php", func(w http.ResponseWriter, r *http.Request) {
		title := r.URL.Query().Get("titles")
		if strings.Contains(title, "Broken") {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch title {
		case "Nagu kyrka":
			_, _ = w.Write([]byte(`{"query":{"pages":[
				{"title":"Nagu kyrka","langlinks":[{"lang":"fi","title":"Nauvon kirkko"}]}]}}`))
		default:
			_, _ = w.Write([]byte(`{"query":{"pages":[{"title":"` + title + `"}]}}`))
		}
	})
	// html fallback must fail as well for Broken
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	return mux
}

func newRunner(t *testing.T, srv *httptest.Server, onError string) *Runner {
	t.Helper()
	cfg := &config.Config{
		Languages:   []string{"sv", "fi"},
		OnError:     onError,
		Concurrency: config.Concurrency{Fetch: 2},
		DataDir:     t.TempDir(),
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	cl, err := fetch.New(fetch.Options{Timeout: 5 * time.Second, Retry: 0})
	if err != nil {
		t.Fatalf("fetch client: %v", err)
	}
	wc := wiki.New(cl, srv.URL+"/%s/api.php", srv.URL+"/%s/wiki/%s", rules.Default())
	return New(cfg, wc, resolve.New(wc), snapstore.New(cfg.DataDir), nil)
}

func TestRun_SkipPolicy(t *testing.T) {
	srv := httptest.NewServer(apiHandler())
	defer srv.Close()
	r := newRunner(t, srv, config.OnErrorSkip)

	seeds := []string{"Nagu kyrka", "Broken", "Själö", "Nagu kyrka"}
	snap, path, err := r.Run(context.Background(), "Nagu", seeds, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if path == "" {
		t.Fatalf("no snapshot path")
	}
	// duplicate seed collapsed, broken page skipped
	if len(snap.Records) != 2 {
		t.Fatalf("records = %+v", snap.Records)
	}
	// seed order is preserved regardless of completion order
	if snap.Records[0].PrimaryTitle != "Nagu kyrka" || snap.Records[1].PrimaryTitle != "Själö" {
		t.Fatalf("order = %s, %s", snap.Records[0].PrimaryTitle, snap.Records[1].PrimaryTitle)
	}
	if snap.Partial {
		t.Fatalf("complete run must not be partial")
	}
	if snap.Stats.Gaps["fi"] != 1 {
		t.Fatalf("gaps = %v", snap.Stats.Gaps)
	}
}

func TestRun_PlaceholderPolicy(t *testing.T) {
	srv := httptest.NewServer(apiHandler())
	defer srv.Close()
	r := newRunner(t, srv, config.OnErrorPlaceholder)

	snap, _, err := r.Run(context.Background(), "Nagu", []string{"Nagu kyrka", "Broken"}, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(snap.Records) != 2 {
		t.Fatalf("records = %+v", snap.Records)
	}
	ph := snap.Records[1]
	if ph.PrimaryTitle != "Broken" || ph.Error == "" {
		t.Fatalf("placeholder = %+v", ph)
	}
	if ph.Exists("sv") || ph.Exists("fi") {
		t.Fatalf("placeholder must exist nowhere: %v", ph.ExistsIn)
	}
}

func TestRun_AbortPolicy(t *testing.T) {
	srv := httptest.NewServer(apiHandler())
	defer srv.Close()
	r := newRunner(t, srv, config.OnErrorAbort)

	_, _, err := r.Run(context.Background(), "Nagu", []string{"Nagu kyrka", "Broken"}, false)
	if err == nil || !strings.Contains(err.Error(), "abort") {
		t.Fatalf("want abort error, got %v", err)
	}
}

func TestRun_InvalidTitleAlwaysSkipped(t *testing.T) {
	srv := httptest.NewServer(apiHandler())
	defer srv.Close()
	r := newRunner(t, srv, config.OnErrorAbort)

	// an invalid title must not trigger the abort policy
	snap, _, err := r.Run(context.Background(), "Nagu", []string{"Nagu kyrka", "a|b"}, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(snap.Records) != 1 {
		t.Fatalf("records = %+v", snap.Records)
	}
}

// secondaryHandler extends the fixture with a fi mirror category so the
// reverse scan has something to discover.
func secondaryHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sv/api.php", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("titles") {
		case "Category:Nagu":
			_, _ = w.Write([]byte(`{"query":{"pages":[
				{"title":"Category:Nagu","langlinks":[{"lang":"fi","title":"Luokka:Nauvo"}]}]}}`))
		case "Nagu kyrka":
			_, _ = w.Write([]byte(`{"query":{"pages":[
				{"title":"Nagu kyrka","langlinks":[{"lang":"fi","title":"Nauvon kirkko"}]}]}}`))
		default:
			_, _ = w.Write([]byte(`{"query":{"pages":[{"title":"` + r.URL.Query().Get("titles") + `"}]}}`))
		}
	})
	mux.HandleFunc("/fi/api.php", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("cmtitle") == "Luokka:Nauvo" {
			_, _ = w.Write([]byte(`{"query":{"categorymembers":[
				{"ns":0,"title":"Nauvon kirkko"},
				{"ns":0,"title":"Vain suomeksi"},
				{"ns":14,"title":"Luokka:Saaristo"}]}}`))
			return
		}
		switch r.URL.Query().Get("titles") {
		case "Nauvon kirkko":
			_, _ = w.Write([]byte(`{"query":{"pages":[
				{"title":"Nauvon kirkko","langlinks":[{"lang":"sv","title":"Nagu kyrka"}]}]}}`))
		default:
			_, _ = w.Write([]byte(`{"query":{"pages":[{"title":"` + r.URL.Query().Get("titles") + `"}]}}`))
		}
	})
	return mux
}

func TestRun_SecondaryScan(t *testing.T) {
	srv := httptest.NewServer(secondaryHandler())
	defer srv.Close()
	r := newRunner(t, srv, config.OnErrorSkip)
	r.cfg.ScanSecondary = true

	snap, _, err := r.Run(context.Background(), "Nagu", []string{"Nagu kyrka"}, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// fi mirror adds the fi-only page; the mutually linked page is not duplicated
	if len(snap.Records) != 2 {
		t.Fatalf("records = %+v", snap.Records)
	}
	extra := snap.Records[1]
	if extra.PrimaryTitle != "Vain suomeksi" {
		t.Fatalf("discovered = %+v", extra)
	}
	if extra.Exists("sv") || !extra.Exists("fi") {
		t.Fatalf("existence = %v", extra.ExistsIn)
	}
	if snap.Stats.Gaps["sv"] != 1 || snap.Stats.Gaps["fi"] != 0 {
		t.Fatalf("gaps = %v", snap.Stats.Gaps)
	}
}

func TestRun_SecondaryScanUnavailable(t *testing.T) {
	// category langlinks lookup fails: the primary scan result must survive
	srv := httptest.NewServer(apiHandler())
	defer srv.Close()
	r := newRunner(t, srv, config.OnErrorSkip)
	r.cfg.ScanSecondary = true

	snap, _, err := r.Run(context.Background(), "Broken", []string{"Nagu kyrka"}, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(snap.Records) != 1 {
		t.Fatalf("records = %+v", snap.Records)
	}
}

func TestRun_CanceledDiscardsResult(t *testing.T) {
	srv := httptest.NewServer(apiHandler())
	defer srv.Close()
	r := newRunner(t, srv, config.OnErrorSkip)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := r.Run(ctx, "Nagu", []string{"Nagu kyrka"}, false)
	if err == nil {
		t.Fatalf("canceled run must fail without -partial")
	}
	if !errors.Is(err, context.Canceled) && !strings.Contains(err.Error(), "no records") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRun_MaxPagesCap(t *testing.T) {
	srv := httptest.NewServer(apiHandler())
	defer srv.Close()
	r := newRunner(t, srv, config.OnErrorSkip)
	r.cfg.MaxPages = 1

	snap, _, err := r.Run(context.Background(), "Nagu", []string{"Nagu kyrka", "Själö"}, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(snap.Records) != 1 || snap.Records[0].PrimaryTitle != "Nagu kyrka" {
		t.Fatalf("records = %+v", snap.Records)
	}
}
