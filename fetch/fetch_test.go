package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func setupTestServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		io.WriteString(w, `<metadata><expocode>35MV20190109</expocode></metadata>`)
	})
	mux.HandleFunc("/broken.xml", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<metadata><expocode>35MV20190109</metadata>`)
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<!DOCTYPE html><html><head><meta charset="utf-8"></head><body></body></html>`)
	})
	mux.HandleFunc("/agent.xml", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<ua>"+r.Header.Get("User-Agent")+"</ua>")
	})
	mux.HandleFunc("/big.xml", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<a>"+strings.Repeat("x", 100)+"</a>")
	})
	mux.HandleFunc("/r1", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/r2", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/r2", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "landing page")
	})
	return httptest.NewServer(mux)
}

func TestFetch(t *testing.T) {
	server := setupTestServer()
	defer server.Close()
	f := New(http.DefaultClient)
	doc, err := f.Fetch(context.Background(), server.URL+"/ok.xml")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Len() != 2 || doc.At(1).Text != "35MV20190109" {
		t.Errorf("unexpected document: %d nodes", doc.Len())
	}
	doc, err = f.Fetch(context.Background(), server.URL+"/agent.xml")
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.At(0).Text; !strings.HasPrefix(got, "origdoi/") {
		t.Errorf("got user agent %q", got)
	}
}

func TestFetchFailures(t *testing.T) {
	server := setupTestServer()
	defer server.Close()
	f := New(http.DefaultClient)
	f.MaxBytes = 50
	for _, path := range []string{"/missing.xml", "/broken.xml", "/page", "/big.xml"} {
		doc, err := f.Fetch(context.Background(), server.URL+path)
		if err == nil {
			t.Errorf("%s: expected error", path)
		}
		if doc != nil {
			t.Errorf("%s: expected no document", path)
		}
	}
	_, err := f.Fetch(context.Background(), server.URL+"/big.xml")
	if !errors.Is(err, ErrDocumentTooLarge) {
		t.Errorf("got %v, want %v", err, ErrDocumentTooLarge)
	}
}

func TestFetchUnreachable(t *testing.T) {
	server := setupTestServer()
	link := server.URL + "/ok.xml"
	server.Close()
	f := New(&http.Client{Timeout: time.Second})
	if _, err := f.Fetch(context.Background(), link); err == nil {
		t.Errorf("expected error for closed server")
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient(5*time.Second, 4)
	if client.MaxRetries != 4 {
		t.Errorf("got %d retries, want 4", client.MaxRetries)
	}
	if client.Timeout != 5*time.Second {
		t.Errorf("got timeout %v", client.Timeout)
	}
	if !client.RetryOnHTTP429 {
		t.Errorf("expected retry on HTTP 429")
	}
}

func TestFollow(t *testing.T) {
	server := setupTestServer()
	defer server.Close()
	f := New(http.DefaultClient)
	final, err := f.Follow(context.Background(), server.URL+"/r1")
	if err != nil {
		t.Fatal(err)
	}
	if want := server.URL + "/final"; final != want {
		t.Errorf("got %s, want %s", final, want)
	}
	final, err = f.Follow(context.Background(), server.URL+"/missing")
	if err != nil {
		t.Fatal(err)
	}
	if want := server.URL + "/missing"; final != want {
		t.Errorf("got %s, want %s", final, want)
	}
}
