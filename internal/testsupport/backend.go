package testsupport

import (
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Request is a call received by FakeBackend.
type Request struct {
	Path string
	// Body holds the decoded JSON members, or the form values of a multipart
	// request encoded as JSON strings.
	Body map[string]json.RawMessage
	// Files maps multipart file fields to their uploaded file names.
	Files map[string]string
}

// String decodes a string member of the request body.
func (r Request) String(key string) string {
	var value string
	_ = json.Unmarshal(r.Body[key], &value)
	return value
}

// Response is a scripted reply.
type Response struct {
	Status int
	Body   any
}

// HandlerFunc computes a reply for a request.
type HandlerFunc func(Request) Response

// FakeBackend is a scripted wizard backend on httptest.
type FakeBackend struct {
	t      testing.TB
	server *httptest.Server

	mu       sync.Mutex
	queued   map[string][]Response
	handlers map[string]HandlerFunc
	requests []Request
}

// NewFakeBackend starts a fake backend closed on test cleanup.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()
	f := &FakeBackend{
		t:        t,
		queued:   map[string][]Response{},
		handlers: map[string]HandlerFunc{},
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the backend root URL.
func (f *FakeBackend) URL() string {
	return f.server.URL
}

// Queue schedules a one-shot reply for path. Queued replies are used in order
// before any handler.
func (f *FakeBackend) Queue(path string, status int, body any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued[path] = append(f.queued[path], Response{Status: status, Body: body})
}

// Handle sets the fallback handler for path.
func (f *FakeBackend) Handle(path string, fn HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = fn
}

// Requests returns the calls received on path in order.
func (f *FakeBackend) Requests(path string) []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Request
	for _, req := range f.requests {
		if req.Path == path {
			out = append(out, req)
		}
	}
	return out
}

func (f *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	req := Request{Path: r.URL.Path, Body: map[string]json.RawMessage{}}
	if err := decodeRequest(r, &req); err != nil {
		f.t.Errorf("fake backend: decode %s: %v", r.URL.Path, err)
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	var (
		resp  Response
		found bool
	)
	if queue := f.queued[req.Path]; len(queue) > 0 {
		resp, found = queue[0], true
		f.queued[req.Path] = queue[1:]
	} else if handler, ok := f.handlers[req.Path]; ok {
		f.mu.Unlock()
		resp, found = handler(req), true
		f.mu.Lock()
	}
	f.mu.Unlock()

	if !found {
		resp = Response{Status: http.StatusNotFound, Body: map[string]string{"error": "no scripted reply"}}
	}
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	switch body := resp.Body.(type) {
	case nil:
	case string:
		_, _ = io.WriteString(w, body)
	default:
		_ = json.NewEncoder(w).Encode(body)
	}
}

func decodeRequest(r *http.Request, req *Request) error {
	if r.Method != http.MethodPost {
		return nil
	}
	mediaType, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		data, err := io.ReadAll(r.Body)
		if err != nil || len(data) == 0 {
			return err
		}
		return json.Unmarshal(data, &req.Body)
	}

	req.Files = map[string]string{}
	reader := multipart.NewReader(r.Body, params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if part.FileName() != "" {
			req.Files[part.FormName()] = part.FileName()
			_, _ = io.Copy(io.Discard, part)
			continue
		}
		value, err := io.ReadAll(part)
		if err != nil {
			return err
		}
		encoded, _ := json.Marshal(string(value))
		req.Body[part.FormName()] = encoded
	}
}
