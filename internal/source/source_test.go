package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
)

func TestKind(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{nil, ""},
		{fmt.Errorf("ipc 2024: %w", ErrElementNotFound), "element_not_found"},
		{fmt.Errorf("cpi 2024: %w", ErrTimeout), "timeout"},
		{fmt.Errorf("dolar 2024: %w", ErrTransport), "transport"},
		{context.Canceled, "canceled"},
		{errors.New("boom"), "unexpected"},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.expected {
			t.Errorf("Kind(%v) = %q, expected %q", tt.err, got, tt.expected)
		}
	}
}

func TestFindOneAndCellTexts(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<table id="t"><tr><td> a </td><td></td><td>b</td></tr><tr><td> </td></tr></table>`))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}

	table, err := FindOne(doc, "#t")
	if err != nil {
		t.Fatalf("FindOne() error = %v", err)
	}
	rows := table.Find("tr")
	first := CellTexts(rows.First().Find("td"))
	if strings.Join(first, "|") != "a||b" {
		t.Errorf("CellTexts() = %q", first)
	}
	if Blank(first) {
		t.Errorf("Blank(%q) = true", first)
	}
	if !Blank(CellTexts(rows.Last().Find("td"))) {
		t.Errorf("Blank() = false for a whitespace-only row")
	}

	if _, err := FindOne(doc, "#missing"); !errors.Is(err, ErrElementNotFound) {
		t.Errorf("FindOne(#missing) error = %v, expected ErrElementNotFound", err)
	}
}

func TestClientHeadersAndForm(t *testing.T) {
	var gotAgent, gotSeries string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.UserAgent()
		if r.Method == http.MethodPost {
			_ = r.ParseForm()
			gotSeries = r.PostForm.Get("series_id")
		}
		_, _ = w.Write([]byte("<p>ok</p>"))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{Timeout: time.Second, UserAgent: "test-agent"})
	doc, err := c.PostForm(context.Background(), srv.URL, url.Values{"series_id": {"CUUR0000SA0"}})
	if err != nil {
		t.Fatalf("PostForm() error = %v", err)
	}
	if doc.Find("p").Text() != "ok" {
		t.Errorf("PostForm() document = %q", doc.Text())
	}
	if gotAgent != "test-agent" || gotSeries != "CUUR0000SA0" {
		t.Errorf("server saw agent %q series %q", gotAgent, gotSeries)
	}
}

func TestClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			time.Sleep(200 * time.Millisecond)
		}
		if r.URL.Path == "/gone" {
			http.Error(w, "gone", http.StatusGone)
			return
		}
		_, _ = w.Write([]byte("<p>late</p>"))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{Timeout: 50 * time.Millisecond})
	if _, err := c.Get(context.Background(), srv.URL+"/gone"); !errors.Is(err, ErrTransport) {
		t.Errorf("Get(/gone) error = %v, expected ErrTransport", err)
	}
	if _, err := c.Get(context.Background(), srv.URL+"/slow"); !errors.Is(err, ErrTimeout) {
		t.Errorf("Get(/slow) error = %v, expected ErrTimeout", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Get(ctx, srv.URL); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() with cancelled context error = %v, expected context.Canceled", err)
	}
}

func TestClientRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<p></p>"))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{Timeout: time.Second, RatePerSecond: 20, Burst: 1})
	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := c.Get(context.Background(), srv.URL); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
	}
	// Burst 1 at 20/s spaces three requests at least 100ms apart overall.
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("three requests took %v, expected the limiter to space them", elapsed)
	}
}
