package plugins

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Lang-lll/lll-cognitive-core/internal/cognitive"
	"github.com/Lang-lll/lll-cognitive-core/internal/provider"
	"go.uber.org/zap"
)

type scriptedChat struct {
	answer string
	err    error
	stages []string
	reqs   []*provider.ChatRequest
}

func (s *scriptedChat) Route(_ context.Context, stage string, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	s.stages = append(s.stages, stage)
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return nil, s.err
	}
	return &provider.ChatResponse{Content: s.answer}, nil
}

func TestUnderstandingDecodesFencedJSON(t *testing.T) {
	chat := &scriptedChat{answer: "```json\n" + `{"event_type":"greeting","main_content":"user says hi","current_situation":"conversation","importance_score":50,
	"memory_query_plan":{"query_type":"long_term_cached","time_range":["2024-01-15","2024-01-16"],"query_triggers":["work"]}}` + "\n```"}
	u := NewUnderstanding(chat, Options{PreMessages: []provider.Message{{Role: "system", Content: "You are Lin."}}}, zap.NewNop())

	got, err := u.Understand(context.Background(), cognitive.UnderstandInput{
		Event: cognitive.RawEvent{Type: "speech-in", Data: "hi", Source: "user", Timestamp: time.Now()},
		RecentEvents: []cognitive.CognitiveEvent{
			{ID: "e1", Source: "user", Modality: "speech-in", Raw: cognitive.RawEvent{Data: "earlier"}},
		},
		ActiveGoals: []cognitive.Goal{{Description: "be helpful", Priority: 1}},
	})
	if err != nil {
		t.Fatalf("Understand: %v", err)
	}
	if got.CurrentSituation != "conversation" || got.ImportanceScore != 50 {
		t.Errorf("unexpected result %+v", got)
	}
	if got.MemoryQueryPlan == nil || got.MemoryQueryPlan.QueryType != cognitive.QueryLongTermCached {
		t.Fatalf("expected cached query plan, got %+v", got.MemoryQueryPlan)
	}

	if chat.stages[0] != cognitive.SlotUnderstanding {
		t.Errorf("expected routing by stage name, got %q", chat.stages[0])
	}
	req := chat.reqs[0]
	if !req.JSON {
		t.Error("expected JSON mode")
	}
	if len(req.Messages) != 3 || req.Messages[0].Content != "You are Lin." {
		t.Fatalf("expected pre-message first, got %+v", req.Messages)
	}
	prompt := req.Messages[2].Content
	for _, want := range []string{"hi", "id=e1", "be helpful"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestStageErrors(t *testing.T) {
	tests := []struct {
		name   string
		chat   *scriptedChat
		target error
	}{
		{"null answer", &scriptedChat{answer: "null"}, ErrEmptyAnswer},
		{"blank answer", &scriptedChat{answer: "  "}, ErrEmptyAnswer},
		{"garbage", &scriptedChat{answer: "I think so"}, nil},
		{"transport", &scriptedChat{err: errors.New("down")}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBehavior(tt.chat, Options{}, zap.NewNop())
			plan, err := b.Generate(context.Background(), cognitive.BehaviorInput{Situation: "idle"})
			if err == nil {
				t.Fatalf("expected error, got plan %+v", plan)
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestExtraction(t *testing.T) {
	chat := &scriptedChat{answer: `{"memories":[{"id":"e1","content":"met Alice","importance":70,"keywords":["alice"]}]}`}
	x := NewExtraction(chat, Options{}, zap.NewNop())

	none, err := x.Extract(context.Background(), cognitive.ExtractionInput{})
	if err != nil || none != nil || len(chat.reqs) != 0 {
		t.Fatalf("empty working memory should not call the model: %v %v", none, err)
	}

	got, err := x.Extract(context.Background(), cognitive.ExtractionInput{
		RecentEvents: []cognitive.CognitiveEvent{{ID: "e1", Source: "alice", Raw: cognitive.RawEvent{Data: "hello"}}},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 1 || got[0].ID != "e1" || got[0].Importance != 70 {
		t.Errorf("unexpected extraction %+v", got)
	}
}

func TestRecallPromptMentionsTruncation(t *testing.T) {
	chat := &scriptedChat{answer: `{"recalled_episode":"the week was busy","current_situation":"reflecting"}`}
	r := NewRecall(chat, Options{}, zap.NewNop())

	got, err := r.Recall(context.Background(), cognitive.RecallInput{Situation: "evening", TooMany: true})
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if got.RecalledEpisode != "the week was busy" {
		t.Errorf("unexpected recall %+v", got)
	}
	if !strings.Contains(chat.reqs[0].Messages[1].Content, "older ones were left out") {
		t.Error("expected truncation note in prompt")
	}
}

func TestHTTPExecutor(t *testing.T) {
	var got cognitive.Action
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&got)
		if got.Type == "motion" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ex := NewHTTPExecutor(srv.URL, zap.NewNop())
	if err := ex.Execute(context.Background(), cognitive.Action{Type: "speech-out", Data: "hello"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got.Data != "hello" {
		t.Errorf("expected action body, got %+v", got)
	}
	if err := ex.Execute(context.Background(), cognitive.Action{Type: "motion", Data: "wave"}); err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestMultiExecutorJoinsErrors(t *testing.T) {
	var calls int
	ok := cognitive.ExecutorFunc(func(context.Context, cognitive.Action) error { calls++; return nil })
	bad := cognitive.ExecutorFunc(func(context.Context, cognitive.Action) error { calls++; return errors.New("speaker muted") })

	m := MultiExecutor{ok, bad, ok}
	err := m.Execute(context.Background(), cognitive.Action{Type: "speech-out"})
	if err == nil || !strings.Contains(err.Error(), "speaker muted") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected every executor called, got %d", calls)
	}
}
