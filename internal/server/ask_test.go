package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Farx1/hrfaq-go/internal/rag"
	"github.com/Farx1/hrfaq-go/internal/stream"
)

// fakeAsker replays canned controller results.
type fakeAsker struct {
	resp   *stream.Response
	events []stream.Event
	err    error
}

func (f *fakeAsker) Answer(context.Context, stream.Request) (*stream.Response, error) {
	return f.resp, f.err
}

func (f *fakeAsker) Run(context.Context, stream.Request) (<-chan stream.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan stream.Event, len(f.events))
	for _, ev := range f.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

// fakeAdmin replays canned index admin results.
type fakeAdmin struct {
	rebuildErr error
	docs       []rag.DocInfo
	docsErr    error
	rebuilds   int
}

func (f *fakeAdmin) Rebuild(context.Context) error {
	f.rebuilds++
	return f.rebuildErr
}

func (f *fakeAdmin) Documents() ([]rag.DocInfo, error) { return f.docs, f.docsErr }

func newTestServer(t *testing.T, ctrl asker, admin indexAdmin, cfg *Config) *Server {
	t.Helper()
	s, err := New(ctrl, admin, cfg, prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.stopRL)
	return s
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleAsk_OK(t *testing.T) {
	t.Parallel()

	ctrl := &fakeAsker{resp: &stream.Response{Answer: "20 days", Confidence: 0.8, Company: "Acme Corp"}}
	s := newTestServer(t, ctrl, nil, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/ask", `{"question":"vacation days?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp stream.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Answer != "20 days" || resp.Confidence != 0.8 {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandleAsk_BadBody(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAsker{}, nil, nil)
	rec := doJSON(t, s, http.MethodPost, "/api/ask", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHandleAsk_EmptyQuestion(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAsker{err: stream.ErrEmptyQuestion}, nil, nil)
	rec := doJSON(t, s, http.MethodPost, "/api/ask", `{"question":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHandleAsk_IndexNotReady(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAsker{err: rag.ErrIndexNotReady}, nil, nil)
	rec := doJSON(t, s, http.MethodPost, "/api/ask", `{"question":"vacation?"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("503 should carry Retry-After")
	}
	var er errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatal(err)
	}
	if !er.Retryable {
		t.Error("index-not-ready error should be marked retryable")
	}
}

func TestHandleAskStream(t *testing.T) {
	t.Parallel()

	ctrl := &fakeAsker{events: []stream.Event{
		{Type: stream.EventChunk, Content: "You get "},
		{Type: stream.EventChunk, Content: "20 days."},
		{Type: stream.EventDone, Done: true, Metadata: &stream.Metadata{Confidence: 0.8}},
	}}
	s := newTestServer(t, ctrl, nil, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/ask/stream", `{"question":"vacation?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	var frames []stream.Event
	var answer strings.Builder
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev stream.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("bad frame %q: %v", line, err)
		}
		frames = append(frames, ev)
		if ev.Type == stream.EventChunk {
			answer.WriteString(ev.Content)
		}
	}
	if len(frames) != 3 {
		t.Fatalf("frames = %d", len(frames))
	}
	if answer.String() != "You get 20 days." {
		t.Errorf("answer = %q", answer.String())
	}
	last := frames[len(frames)-1]
	if !last.Done || last.Metadata == nil || last.Confidence != 0.8 {
		t.Errorf("terminal frame = %+v", last)
	}
}

func TestHandleAskStream_IndexNotReady(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAsker{err: rag.ErrIndexNotReady}, nil, nil)
	rec := doJSON(t, s, http.MethodPost, "/api/ask/stream", `{"question":"vacation?"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHandleReindex(t *testing.T) {
	t.Parallel()

	admin := &fakeAdmin{}
	s := newTestServer(t, &fakeAsker{}, admin, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/reindex", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if admin.rebuilds != 1 {
		t.Errorf("rebuilds = %d", admin.rebuilds)
	}
}

func TestHandleReindex_NoAdmin(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAsker{}, nil, nil)
	rec := doJSON(t, s, http.MethodPost, "/api/reindex", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHandleDocuments(t *testing.T) {
	t.Parallel()

	admin := &fakeAdmin{docs: []rag.DocInfo{
		{ID: "leave.md", Title: "Leave Policy", Category: "benefits", Chunks: 3},
	}}
	s := newTestServer(t, &fakeAsker{}, admin, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/documents", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp documentsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 || resp.Documents[0].ID != "leave.md" {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandleDocuments_NotReady(t *testing.T) {
	t.Parallel()

	admin := &fakeAdmin{docsErr: rag.ErrIndexNotReady}
	s := newTestServer(t, &fakeAsker{}, admin, nil)
	rec := doJSON(t, s, http.MethodGet, "/api/documents", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
}
