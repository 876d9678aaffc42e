package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleEntries = `[
  {"name": "MIT", "regexp": "(The )?MIT( License)?", "approved": true},
  {"name": "GPL-2.0", "regexp": "GPL[ -]?v?2", "approved": false},
  {"name": "Ruby", "approved": true}
]`

func TestClient_Fetch_Mock(t *testing.T) {
	mock := NewMockHTTPFetcher()
	mock.AddResponse("https://licenses.example/crud", 200, sampleEntries)

	client := NewClientWithFetcher(Options{Endpoint: "https://licenses.example/crud", Username: "svc", Password: "pw"}, mock)
	body, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(body) != sampleEntries {
		t.Errorf("unexpected body: %s", body)
	}

	reqs := mock.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	user, pass, ok := reqs[0].BasicAuth()
	if !ok || user != "svc" || pass != "pw" {
		t.Errorf("basic auth not sent: %q %q %v", user, pass, ok)
	}
}

func TestClient_Fetch_NoAuthWithoutUsername(t *testing.T) {
	mock := NewMockHTTPFetcher()
	mock.AddResponse("https://licenses.example/crud", 200, "[]")

	client := NewClientWithFetcher(Options{Endpoint: "https://licenses.example/crud"}, mock)
	if _, err := client.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if _, _, ok := mock.Requests()[0].BasicAuth(); ok {
		t.Error("basic auth should not be sent without a username")
	}
}

func TestClient_Fetch_Status(t *testing.T) {
	mock := NewMockHTTPFetcher()
	mock.AddResponse("https://licenses.example/crud", 401, "denied")

	client := NewClientWithFetcher(Options{Endpoint: "https://licenses.example/crud"}, mock)
	_, err := client.Fetch(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != 401 {
		t.Errorf("expected 401, got %d", statusErr.StatusCode)
	}
}

func TestClient_Fetch_NetworkError(t *testing.T) {
	mock := NewMockHTTPFetcher()
	mock.AddError("https://licenses.example/crud", errors.New("connection refused"))

	client := NewClientWithFetcher(Options{Endpoint: "https://licenses.example/crud"}, mock)
	if _, err := client.Fetch(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestClient_Fetch_NoEndpoint(t *testing.T) {
	client := NewClientWithFetcher(Options{}, NewMockHTTPFetcher())
	if _, err := client.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}

func TestClient_Fetch_HTTPServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			http.Error(w, "bad accept", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(sampleEntries))
	}))
	defer srv.Close()

	client := NewClient(Options{Endpoint: srv.URL})
	body, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	entries, err := DecodeEntries(body)
	if err != nil {
		t.Fatalf("DecodeEntries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("expected 3 entries, got %d", len(entries))
	}
}

func TestDecodeEntries(t *testing.T) {
	entries, err := DecodeEntries([]byte(sampleEntries))
	if err != nil {
		t.Fatalf("DecodeEntries failed: %v", err)
	}
	if entries[2].Name != "Ruby" || entries[2].Regexp != "" {
		t.Errorf("approval-only entry decoded wrong: %+v", entries[2])
	}
	if entries[1].Approved == nil || *entries[1].Approved {
		t.Errorf("GPL-2.0 should be explicitly not approved: %+v", entries[1])
	}

	if _, err := DecodeEntries([]byte(`{"name": "MIT"}`)); err == nil {
		t.Error("expected schema error for object body")
	}
	if _, err := DecodeEntries([]byte(`[{"regexp": "MIT"}]`)); err == nil {
		t.Error("expected schema error for entry without name")
	}
	if _, err := DecodeEntries([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestRegistryUnavailableError_Is(t *testing.T) {
	err := error(&RegistryUnavailableError{Source: "artifactory", Err: errors.New("boom")})
	if !errors.Is(err, ErrRegistryUnavailable) {
		t.Error("expected errors.Is to match ErrRegistryUnavailable")
	}
	if err.Error() != `license registry "artifactory" unavailable: boom` {
		t.Errorf("unexpected message: %s", err)
	}
}
