package openrouter

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHeaderTransportSetsAttribution(t *testing.T) {
	t.Parallel()

	var referer, title string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer = r.Header.Get("HTTP-Referer")
		title = r.Header.Get("X-Title")
	}))
	defer srv.Close()

	cfg := Config{SiteURL: " https://pawsome.example ", SiteName: "Pawsome"}
	client := &http.Client{Transport: headerTransport{base: http.DefaultTransport, headers: cfg.attributionHeaders()}}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()

	if referer != "https://pawsome.example" || title != "Pawsome" {
		t.Fatalf("headers = %q %q", referer, title)
	}
}

func TestAttributionHeadersEmpty(t *testing.T) {
	t.Parallel()

	if got := (&Config{}).attributionHeaders(); len(got) != 0 {
		t.Fatalf("attributionHeaders() = %v", got)
	}
}
