package resolve

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-wiki-gap/internal/fetch"
	"go-wiki-gap/internal/rules"
	"go-wiki-gap/internal/wiki"
)

func newResolver(t *testing.T, handler http.Handler) (*Resolver, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cl, err := fetch.New(fetch.Options{Timeout: 5 * time.Second, Retry: 0})
	if err != nil {
		t.Fatalf("fetch client: %v", err)
	}
	wc := wiki.New(cl, srv.URL+"/%s/api.php", srv.URL+"/%s/wiki/%s", rules.Default())
	return New(wc), srv
}

func TestResolve_ExistingPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sv/api.php", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":{"pages":[
			{"title":"Nagu","length":1000,"touched":"2026-08-01T10:00:00Z",
			 "langlinks":[{"lang":"fi","title":"Nauvo"},{"lang":"en","title":"Nagu#History"}]}]}}`))
	})
	res, _ := newResolver(t, mux)

	langs := []string{"sv", "fi", "en", "de"}
	rec, err := res.Resolve(context.Background(), "Nagu", langs)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// the key set must equal the configured languages, present or not
	if len(rec.ExistsIn) != len(langs) {
		t.Fatalf("exists_in keys = %v", rec.ExistsIn)
	}
	for _, l := range langs {
		if _, ok := rec.ExistsIn[l]; !ok {
			t.Fatalf("missing key %s", l)
		}
	}
	if !rec.Exists("sv") || !rec.Exists("fi") || !rec.Exists("en") || rec.Exists("de") {
		t.Fatalf("exists = %v", rec.ExistsIn)
	}
	if rec.LinkedTitle["fi"] != "Nauvo" {
		t.Fatalf("fi linked title = %q", rec.LinkedTitle["fi"])
	}
	// section links resolve to the page itself
	if rec.LinkedTitle["en"] != "Nagu" {
		t.Fatalf("en linked title = %q", rec.LinkedTitle["en"])
	}
	if _, ok := rec.LinkedTitle["de"]; ok {
		t.Fatalf("linked title for a missing language must be absent")
	}
	if rec.Length != 1000 || rec.Touched == "" {
		t.Fatalf("metadata = %d / %q", rec.Length, rec.Touched)
	}
}

func TestResolve_MissingPrimaryIsNotAnError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sv/api.php", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":{"pages":[{"title":"Okänd","missing":true}]}}`))
	})
	res, _ := newResolver(t, mux)

	rec, err := res.Resolve(context.Background(), "Okänd", []string{"sv", "fi"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rec.Exists("sv") || rec.Exists("fi") {
		t.Fatalf("missing page must be absent everywhere: %v", rec.ExistsIn)
	}
	if rec.LinkedTitle != nil {
		t.Fatalf("linked titles = %v", rec.LinkedTitle)
	}
}

func TestResolve_InvalidTitles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sv/api.php", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":{"pages":[{"title":"x","invalid":true}]}}`))
	})
	res, _ := newResolver(t, mux)

	for _, title := range []string{"", "   ", "a|b", "a\tb"} {
		_, err := res.Resolve(context.Background(), title, []string{"sv", "fi"})
		var invalid *InvalidTitleError
		if !errors.As(err, &invalid) {
			t.Fatalf("title %q: want InvalidTitleError, got %v", title, err)
		}
	}
	// rejected by the api
	_, err := res.Resolve(context.Background(), "x", []string{"sv", "fi"})
	var invalid *InvalidTitleError
	if !errors.As(err, &invalid) {
		t.Fatalf("want InvalidTitleError, got %v", err)
	}
}

func TestResolveForeign_LinksBackToPrimary(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fi/api.php", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":{"pages":[
			{"title":"Nauvo","langlinks":[{"lang":"sv","title":"Nagu"}]}]}}`))
	})
	res, _ := newResolver(t, mux)

	rec, err := res.ResolveForeign(context.Background(), "fi", "Nauvo", []string{"sv", "fi", "de"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// the record is keyed by its primary-language title when one exists
	if rec.PrimaryTitle != "Nagu" {
		t.Fatalf("primary title = %q", rec.PrimaryTitle)
	}
	if !rec.Exists("sv") || !rec.Exists("fi") || rec.Exists("de") {
		t.Fatalf("exists = %v", rec.ExistsIn)
	}
	if rec.LinkedTitle["fi"] != "Nauvo" {
		t.Fatalf("fi linked title = %q", rec.LinkedTitle["fi"])
	}
}

func TestResolveForeign_PrimaryGap(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fi/api.php", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":{"pages":[{"title":"Vain suomeksi"}]}}`))
	})
	res, _ := newResolver(t, mux)

	rec, err := res.ResolveForeign(context.Background(), "fi", "Vain suomeksi", []string{"sv", "fi"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// no primary page: the foreign title stands in as the record key
	if rec.PrimaryTitle != "Vain suomeksi" {
		t.Fatalf("primary title = %q", rec.PrimaryTitle)
	}
	if rec.Exists("sv") || !rec.Exists("fi") {
		t.Fatalf("exists = %v", rec.ExistsIn)
	}
	if _, ok := rec.LinkedTitle["sv"]; ok {
		t.Fatalf("linked title for the missing primary must be absent")
	}
}

func TestResolve_TransientFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	res, _ := newResolver(t, mux)

	_, err := res.Resolve(context.Background(), "Nagu", []string{"sv", "fi"})
	var transient *TransientFetchError
	if !errors.As(err, &transient) {
		t.Fatalf("want TransientFetchError, got %v", err)
	}
	if transient.Title != "Nagu" {
		t.Fatalf("title = %q", transient.Title)
	}
}
