package loader

import (
	"errors"
	"sync"
)

// fakeEnv is a manually settled Environment for tests. It counts resource
// creations and fetch starts so tests can assert the single-fetch guarantee.
type fakeEnv struct {
	mu          sync.Mutex
	name        string
	createErr   error
	handles     map[string]*fakeHandle
	createCalls map[string]int
	fetchCalls  map[string]int
}

type fakeHandle struct {
	url       string
	attrs     map[string]string
	inserted  bool
	observers []func()
	settled   bool
}

func (h *fakeHandle) URL() string { return h.url }

func newFakeEnv(name string) *fakeEnv {
	return &fakeEnv{
		name:        name,
		handles:     make(map[string]*fakeHandle),
		createCalls: make(map[string]int),
		fetchCalls:  make(map[string]int),
	}
}

func (e *fakeEnv) CreateResource(url string, attrs map[string]string) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.createCalls[url]++
	if e.createErr != nil {
		return nil, e.createErr
	}

	copied := make(map[string]string, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	h := &fakeHandle{url: url, attrs: copied}
	e.handles[url] = h
	return h, nil
}

func (e *fakeEnv) InsertResource(h Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fh, ok := h.(*fakeHandle); ok {
		fh.inserted = true
	}
}

func (e *fakeEnv) ObserveSettle(h Handle, fn func()) {
	fh, ok := h.(*fakeHandle)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if fh.settled {
		fn()
		return
	}
	fh.observers = append(fh.observers, fn)
}

func (e *fakeEnv) StartFetch(h Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fetchCalls[h.URL()]++
}

// Settle fires the settle signal for url's handle. Firing twice is a no-op,
// matching the one-shot contract of the native signal.
func (e *fakeEnv) Settle(url string) {
	e.mu.Lock()
	fh, ok := e.handles[url]
	if !ok || fh.settled {
		e.mu.Unlock()
		return
	}
	fh.settled = true
	observers := fh.observers
	fh.observers = nil
	e.mu.Unlock()

	for _, fn := range observers {
		fn()
	}
}

func (e *fakeEnv) creates(url string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.createCalls[url]
}

func (e *fakeEnv) fetches(url string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fetchCalls[url]
}

var errCreateFailed = errors.New("cannot create resource")
