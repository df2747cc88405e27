package loader

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"optable/adscript/pkg/config"
)

func waitSettle(t *testing.T, h *HTTPHandle) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !h.Settled() {
		if time.Now().After(deadline) {
			t.Fatal("handle did not settle in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHTTPEnvironment_FetchSuccess(t *testing.T) {
	const script = `console.log("hello");`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "adscript-loader" {
			t.Errorf("User-Agent = %q", got)
		}
		w.Write([]byte(script))
	}))
	defer srv.Close()

	env := NewHTTPEnvironment(nil, srv.Client(), nil)

	h, err := env.CreateResource(srv.URL+"/vendor.js", map[string]string{"async": "true"})
	if err != nil {
		t.Fatalf("CreateResource: %v", err)
	}
	hh := h.(*HTTPHandle)
	if hh.Attr("async") != "true" {
		t.Error("attribute not applied at creation")
	}

	env.InsertResource(h)
	if env.InsertedCount() != 1 {
		t.Error("resource not inserted")
	}

	settled := make(chan struct{})
	env.ObserveSettle(h, func() { close(settled) })
	env.StartFetch(h)

	select {
	case <-settled:
	case <-time.After(5 * time.Second):
		t.Fatal("settle observer did not fire")
	}

	if string(hh.Data()) != script {
		t.Errorf("Data() = %q, want %q", hh.Data(), script)
	}
	if hh.StatusCode() != http.StatusOK {
		t.Errorf("StatusCode() = %d, want 200", hh.StatusCode())
	}
}

// Fetch failures settle the same way successes do. The observer fires, the
// data stays nil.
func TestHTTPEnvironment_FetchFailureSettles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	client := srv.Client()
	srv.Close()

	env := NewHTTPEnvironment(nil, client, nil)

	h, err := env.CreateResource(srv.URL+"/gone.js", nil)
	if err != nil {
		t.Fatalf("CreateResource: %v", err)
	}
	hh := h.(*HTTPHandle)

	env.InsertResource(h)
	settled := make(chan struct{})
	env.ObserveSettle(h, func() { close(settled) })
	env.StartFetch(h)

	select {
	case <-settled:
	case <-time.After(5 * time.Second):
		t.Fatal("failed fetch did not settle")
	}

	if hh.Data() != nil {
		t.Error("failed fetch produced data")
	}
	if hh.StatusCode() != 0 {
		t.Errorf("StatusCode() = %d, want 0 on transport error", hh.StatusCode())
	}
}

func TestHTTPEnvironment_CreateResourceRejectsBadURLs(t *testing.T) {
	env := NewHTTPEnvironment(nil, nil, nil)

	for _, raw := range []string{
		"",
		"not a url",
		"ftp://cdn.example.com/a.js",
		"javascript:alert(1)",
		"/relative/path.js",
	} {
		if _, err := env.CreateResource(raw, nil); err == nil {
			t.Errorf("CreateResource(%q) succeeded, want error", raw)
		}
	}
}

func TestHTTPEnvironment_ObserveAfterSettle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	env := NewHTTPEnvironment(nil, srv.Client(), nil)
	h, err := env.CreateResource(srv.URL, nil)
	if err != nil {
		t.Fatalf("CreateResource: %v", err)
	}
	env.StartFetch(h)
	waitSettle(t, h.(*HTTPHandle))

	fired := false
	env.ObserveSettle(h, func() { fired = true })
	if !fired {
		t.Error("observer attached after settle must fire immediately")
	}
}

func TestHTTPEnvironment_MaxScriptBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 1024)))
	}))
	defer srv.Close()

	cfg := &config.LoaderConfig{MaxScriptBytes: 16}
	env := NewHTTPEnvironment(cfg, srv.Client(), nil)

	h, err := env.CreateResource(srv.URL, nil)
	if err != nil {
		t.Fatalf("CreateResource: %v", err)
	}
	env.StartFetch(h)
	hh := h.(*HTTPHandle)
	waitSettle(t, hh)

	if got := len(hh.Data()); got != 16 {
		t.Errorf("Data() length = %d, want truncation at 16", got)
	}
}

func TestHTTPEnvironment_WithService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	env := NewHTTPEnvironment(nil, srv.Client(), nil)
	svc := newTestService(env)

	settled := make(chan struct{})
	h := svc.RequestLoad(srv.URL+"/a.js", "module", "optable", func() { close(settled) }, env, nil)
	if h == nil {
		t.Fatal("RequestLoad returned nil handle")
	}

	select {
	case <-settled:
	case <-time.After(5 * time.Second):
		t.Fatal("completion callback did not fire")
	}

	if got := svc.Registry().StateOf(mustLookup(t, svc.Registry(), env, srv.URL+"/a.js")); got != StateLoaded {
		t.Errorf("entry state = %v, want loaded", got)
	}
}

func mustLookup(t *testing.T, r *Registry, env Environment, url string) *Entry {
	t.Helper()
	e, ok := r.Lookup(env, url)
	if !ok {
		t.Fatalf("no entry for %s", url)
	}
	return e
}
