package stream

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Farx1/hrfaq-go/internal/gate"
	"github.com/Farx1/hrfaq-go/internal/pipeline"
	"github.com/Farx1/hrfaq-go/internal/provider"
	"github.com/Farx1/hrfaq-go/internal/rag"
	"github.com/Farx1/hrfaq-go/internal/store"
	"github.com/Farx1/hrfaq-go/internal/strategy"
)

// constEmbedder maps every text to the same unit vector so any question
// matches every indexed chunk equally.
type constEmbedder struct{}

func (constEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func testRetriever(t *testing.T, ready bool) *rag.Retriever {
	t.Helper()
	holder := &rag.Holder{}
	if ready {
		chunks := []rag.Chunk{
			{ID: "c1", DocumentID: "leave.md", Title: "Leave Policy", Section: "Annual Leave",
				Category: "benefits", Text: "- Employees accrue 20 days per year\n- Carry over up to 5 days"},
		}
		idx, err := rag.NewMemoryIndex(chunks, [][]float32{{1, 0, 0}})
		if err != nil {
			t.Fatal(err)
		}
		holder.Swap(idx)
	}
	return rag.NewRetriever(constEmbedder{}, holder, 3)
}

func testController(t *testing.T, ready bool, hist store.ConversationStore) *Controller {
	t.Helper()
	strat, err := strategy.New("baseline", &strategy.Config{Company: "Acme Corp"})
	if err != nil {
		t.Fatal(err)
	}
	return NewController(ControllerConfig{
		Gate:      gate.NewKeywordGate(nil),
		Retriever: testRetriever(t, ready),
		Pipeline:  pipeline.New(provider.NewExtractive("Acme Corp"), strat),
		History:   hist,
		Company:   "Acme Corp",
	})
}

func testControllerWithModel(t *testing.T, m model.BaseChatModel) *Controller {
	t.Helper()
	strat, err := strategy.New("baseline", &strategy.Config{Company: "Acme Corp"})
	if err != nil {
		t.Fatal(err)
	}
	return NewController(ControllerConfig{
		Gate:      gate.NewKeywordGate(nil),
		Retriever: testRetriever(t, true),
		Pipeline:  pipeline.New(m, strat),
		Company:   "Acme Corp",
	})
}

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestAnswer_InDomain(t *testing.T) {
	t.Parallel()

	c := testController(t, true, nil)
	resp, err := c.Answer(context.Background(), Request{Question: "How much vacation do I get?"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.OODReject {
		t.Error("in-domain question must not be deflected")
	}
	if !strings.Contains(resp.Answer, "20 days") {
		t.Errorf("answer should draw on the indexed policy: %q", resp.Answer)
	}
	if resp.Confidence <= 0 {
		t.Errorf("confidence = %v", resp.Confidence)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Title != "Leave Policy" {
		t.Errorf("sources = %+v", resp.Sources)
	}
	if resp.Company != "Acme Corp" {
		t.Errorf("company = %q", resp.Company)
	}
}

func TestAnswer_OutOfDomain(t *testing.T) {
	t.Parallel()

	c := testController(t, true, nil)
	resp, err := c.Answer(context.Background(), Request{Question: "What is the capital of France?"})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.OODReject {
		t.Fatal("off-topic question should be deflected")
	}
	if resp.Answer != gate.DeflectionMessage {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 0 || resp.Confidence != 0 {
		t.Error("deflection must not carry retrieval results")
	}
}

func TestAnswer_IndexNotReady(t *testing.T) {
	t.Parallel()

	c := testController(t, false, nil)
	_, err := c.Answer(context.Background(), Request{Question: "How much vacation do I get?"})
	if !errors.Is(err, rag.ErrIndexNotReady) {
		t.Errorf("error = %v, want ErrIndexNotReady", err)
	}
}

func TestAnswer_OutOfDomainWorksWithoutIndex(t *testing.T) {
	t.Parallel()

	// Deflection needs neither retrieval nor generation.
	c := testController(t, false, nil)
	resp, err := c.Answer(context.Background(), Request{Question: "tell me a joke"})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.OODReject {
		t.Error("expected deflection")
	}
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	t.Parallel()

	c := testController(t, true, nil)
	if _, err := c.Answer(context.Background(), Request{Question: "   "}); !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("error = %v, want ErrEmptyQuestion", err)
	}
	if _, err := c.Run(context.Background(), Request{Question: ""}); !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("Run error = %v, want ErrEmptyQuestion", err)
	}
}

func TestRun_StreamMatchesSync(t *testing.T) {
	t.Parallel()

	req := Request{Question: "How much vacation do I get?"}
	c := testController(t, true, nil)

	resp, err := c.Answer(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	events, err := c.Run(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	evs := collect(t, events)
	if len(evs) < 2 {
		t.Fatalf("expected chunks plus terminal event, got %d events", len(evs))
	}

	last := evs[len(evs)-1]
	if last.Type != EventDone || !last.Done || last.Metadata == nil {
		t.Fatalf("terminal event = %+v", last)
	}
	if last.Confidence != resp.Confidence {
		t.Errorf("stream confidence %v != sync %v", last.Confidence, resp.Confidence)
	}

	var b strings.Builder
	for _, ev := range evs[:len(evs)-1] {
		if ev.Type != EventChunk {
			t.Fatalf("unexpected event before terminal: %+v", ev)
		}
		if ev.Metadata != nil {
			t.Error("chunk events must not carry metadata")
		}
		b.WriteString(ev.Content)
	}
	if b.String() != resp.Answer {
		t.Errorf("streamed answer differs from sync answer\nstream: %q\nsync:   %q", b.String(), resp.Answer)
	}
}

func TestRun_OutOfDomain(t *testing.T) {
	t.Parallel()

	c := testController(t, true, nil)
	events, err := c.Run(context.Background(), Request{Question: "best pizza in town?"})
	if err != nil {
		t.Fatal(err)
	}
	evs := collect(t, events)
	if len(evs) != 2 {
		t.Fatalf("expected deflection chunk + done, got %d events", len(evs))
	}
	if evs[0].Type != EventChunk || evs[0].Content != gate.DeflectionMessage {
		t.Errorf("first event = %+v", evs[0])
	}
	if evs[1].Type != EventDone || evs[1].Metadata == nil || !evs[1].OODReject {
		t.Errorf("terminal event = %+v", evs[1])
	}
}

// brokenModel fails every call, standing in for an unreachable provider.
type brokenModel struct{ err error }

func (m brokenModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	return nil, m.err
}

func (m brokenModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, m.err
}

func TestRun_FailureEndsWithDoneEvent(t *testing.T) {
	t.Parallel()

	c := testControllerWithModel(t, brokenModel{err: errors.New("backend down")})
	events, err := c.Run(context.Background(), Request{Question: "How much vacation do I get?"})
	if err != nil {
		t.Fatal(err)
	}
	evs := collect(t, events)
	if len(evs) == 0 {
		t.Fatal("expected a terminal event")
	}
	for _, ev := range evs {
		if ev.Type != EventChunk && ev.Type != EventDone {
			t.Errorf("event type %q outside the chunk/done vocabulary", ev.Type)
		}
	}
	last := evs[len(evs)-1]
	if last.Type != EventDone || !last.Done {
		t.Fatalf("terminal event = %+v, want done", last)
	}
	if last.Metadata == nil || last.Error == "" {
		t.Fatalf("terminal event must carry the failure, got %+v", last)
	}
	if !strings.Contains(last.Error, "backend down") {
		t.Errorf("error = %q", last.Error)
	}
}

// stallingModel streams two fragments, signals on started once the first
// fragment has been consumed, then holds the stream open until release.
type stallingModel struct {
	started chan struct{}
	release chan struct{}
}

func (m *stallingModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage("You accrue 20 days per year.", nil), nil
}

func (m *stallingModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	sr, sw := schema.Pipe[*schema.Message](1)
	go func() {
		defer sw.Close()
		sw.Send(schema.AssistantMessage("You accrue", nil), nil)
		sw.Send(schema.AssistantMessage(" 20 days", nil), nil)
		// The pipe holds one item, so this send returns only after the
		// consumer has taken both earlier fragments and emitted the first.
		sw.Send(schema.AssistantMessage(" per", nil), nil)
		close(m.started)
		<-m.release
		sw.Send(schema.AssistantMessage(" year.", nil), nil)
	}()
	return sr, nil
}

func TestRun_CancelStopsEmission(t *testing.T) {
	t.Parallel()

	m := &stallingModel{started: make(chan struct{}), release: make(chan struct{})}
	c := testControllerWithModel(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := c.Run(ctx, Request{Question: "How much vacation do I get?"})
	if err != nil {
		t.Fatal(err)
	}

	// Wait until the first fragment sits in the event buffer, then drop the
	// caller mid-generation and let the model finish its stream.
	<-m.started
	cancel()
	close(m.release)

	var got []Event
	for ev := range events {
		got = append(got, ev)
	}
	if len(got) != 1 {
		t.Fatalf("got %d events after cancellation, want only the pre-cancel chunk: %+v", len(got), got)
	}
	if got[0].Type != EventChunk {
		t.Errorf("buffered event = %+v, want a chunk", got[0])
	}
}

func TestRun_IndexNotReady(t *testing.T) {
	t.Parallel()

	c := testController(t, false, nil)
	if _, err := c.Run(context.Background(), Request{Question: "vacation policy?"}); !errors.Is(err, rag.ErrIndexNotReady) {
		t.Errorf("error = %v, want ErrIndexNotReady", err)
	}
}

func TestAnswer_PersistsHistory(t *testing.T) {
	t.Parallel()

	hist, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer hist.Close()

	c := testController(t, true, hist)
	ctx := context.Background()
	resp, err := c.Answer(ctx, Request{Question: "How much vacation do I get?", SessionID: "s1"})
	if err != nil {
		t.Fatal(err)
	}

	msgs, err := hist.Recent(ctx, "s1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("want question + answer persisted, got %d messages", len(msgs))
	}
	if msgs[0].Role != store.RoleUser || msgs[1].Role != store.RoleAssistant {
		t.Errorf("roles: %v, %v", msgs[0].Role, msgs[1].Role)
	}
	if msgs[1].Content != resp.Answer {
		t.Error("persisted answer differs from returned answer")
	}
}

func TestAnswer_DeflectionNotPersisted(t *testing.T) {
	t.Parallel()

	hist, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer hist.Close()

	c := testController(t, true, hist)
	ctx := context.Background()
	if _, err := c.Answer(ctx, Request{Question: "capital of France?", SessionID: "s2"}); err != nil {
		t.Fatal(err)
	}
	msgs, err := hist.Recent(ctx, "s2", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("deflections should not enter history, got %d messages", len(msgs))
	}
}

func TestStateTransitions(t *testing.T) {
	t.Parallel()

	valid := [][2]State{
		{StateIdle, StateAdmitting},
		{StateAdmitting, StateRejected},
		{StateAdmitting, StateRetrieving},
		{StateRetrieving, StateGenerating},
		{StateGenerating, StateStreaming},
		{StateStreaming, StateTerminal},
		{StateRejected, StateTerminal},
	}
	for _, v := range valid {
		if !CanTransition(v[0], v[1]) {
			t.Errorf("%v → %v should be allowed", v[0], v[1])
		}
	}
	invalid := [][2]State{
		{StateTerminal, StateIdle},
		{StateRejected, StateRetrieving},
		{StateStreaming, StateAdmitting},
		{StateIdle, StateTerminal},
	}
	for _, v := range invalid {
		if CanTransition(v[0], v[1]) {
			t.Errorf("%v → %v should be rejected", v[0], v[1])
		}
	}
	if StateAdmitting.String() != "admitting" {
		t.Errorf("String() = %q", StateAdmitting.String())
	}
}
