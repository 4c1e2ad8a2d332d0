package upstream

import (
	"bytes"
	"io"
	"net/http"
	"sync"
	"time"
)

type cachedResponse struct {
	status     int
	statusText string
	header     http.Header
	body       []byte
	expires    time.Time
}

// RevalidateTransport replays successful GET responses for the same URL
// until they are older than ttl. Concurrent misses are not coalesced.
type RevalidateTransport struct {
	next http.RoundTripper
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]cachedResponse
}

// NewRevalidateTransport wraps next. A nil next uses http.DefaultTransport;
// a ttl <= 0 disables caching.
func NewRevalidateTransport(next http.RoundTripper, ttl time.Duration) *RevalidateTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &RevalidateTransport{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedResponse),
	}
}

func (t *RevalidateTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.ttl <= 0 || req.Method != http.MethodGet {
		return t.next.RoundTrip(req)
	}

	key := req.URL.String()
	if resp, ok := t.lookup(key, req); ok {
		return resp, nil
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}

	t.store(key, cachedResponse{
		status:     resp.StatusCode,
		statusText: resp.Status,
		header:     resp.Header.Clone(),
		body:       body,
		expires:    t.now().Add(t.ttl),
	})

	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

func (t *RevalidateTransport) lookup(key string, req *http.Request) (*http.Response, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	if !t.now().Before(entry.expires) {
		delete(t.entries, key)
		return nil, false
	}

	return &http.Response{
		Status:        entry.statusText,
		StatusCode:    entry.status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        entry.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(entry.body)),
		ContentLength: int64(len(entry.body)),
		Request:       req,
	}, true
}

func (t *RevalidateTransport) store(key string, entry cachedResponse) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for k, e := range t.entries {
		if !now.Before(e.expires) {
			delete(t.entries, k)
		}
	}
	t.entries[key] = entry
}
