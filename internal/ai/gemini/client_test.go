package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	explainSystem = "You are a career advisor explaining job fit."
	explainPrompt = "Title: Go Backend Engineer\nMatched required skills: Go, Docker\nMissing required skills: Kafka"
	explainReply  = "Strong fit: the posting asks for Go and Docker, both on the resume. Kafka is the only gap."
	adviceReply   = `{"current_level": "Mid-level", "skill_gaps": ["Kafka"]}`
)

type scriptedReply struct {
	text string
	err  error
}

type sentPrompt struct {
	model  string
	system string
	prompt string
}

// scriptedChats hands out one reply per created chat, in order.
type scriptedChats struct {
	mu      sync.Mutex
	replies []scriptedReply
	sent    []sentPrompt
}

func newScriptedChats(replies ...scriptedReply) *scriptedChats {
	return &scriptedChats{replies: replies}
}

func (s *scriptedChats) Create(_ context.Context, model string, config *genai.GenerateContentConfig, _ []*genai.Content) (chatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.replies) == 0 {
		return nil, errors.New("no scripted reply left")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]

	var system string
	if config != nil && config.SystemInstruction != nil && len(config.SystemInstruction.Parts) > 0 {
		system = config.SystemInstruction.Parts[0].Text
	}
	return &scriptedSession{owner: s, model: model, system: system, reply: reply}, nil
}

func (s *scriptedChats) attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type scriptedSession struct {
	owner  *scriptedChats
	model  string
	system string
	reply  scriptedReply
}

func (c *scriptedSession) SendMessage(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	var prompt strings.Builder
	for _, p := range parts {
		prompt.WriteString(p.Text)
	}

	c.owner.mu.Lock()
	c.owner.sent = append(c.owner.sent, sentPrompt{model: c.model, system: c.system, prompt: prompt.String()})
	c.owner.mu.Unlock()

	if c.reply.err != nil {
		return nil, c.reply.err
	}
	if c.reply.text == "" {
		return &genai.GenerateContentResponse{}, nil
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(c.reply.text, genai.RoleModel),
		}},
	}, nil
}

// recordWaits replaces the backoff sleep and collects the requested delays.
func recordWaits(t *testing.T) *[]time.Duration {
	t.Helper()

	waits := &[]time.Duration{}
	previous := sleep
	sleep = func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	t.Cleanup(func() { sleep = previous })
	return waits
}

func apiError(code int, status, message string) scriptedReply {
	return scriptedReply{err: genai.APIError{Code: code, Status: status, Message: message}}
}

func TestGenerateRetries(t *testing.T) {
	cases := []struct {
		name         string
		retries      int
		replies      []scriptedReply
		want         string
		wantErr      bool
		wantAttempts int
		wantWaits    []time.Duration
	}{
		{
			name:         "server error then explanation",
			retries:      3,
			replies:      []scriptedReply{apiError(http.StatusInternalServerError, "INTERNAL", ""), {text: explainReply}},
			want:         explainReply,
			wantAttempts: 2,
			wantWaits:    []time.Duration{retryBaseDelay},
		},
		{
			name:         "quota with short retry hint",
			retries:      3,
			replies:      []scriptedReply{apiError(http.StatusTooManyRequests, "RESOURCE_EXHAUSTED", "Please retry in 1.5s."), {text: adviceReply}},
			want:         adviceReply,
			wantAttempts: 2,
			wantWaits:    []time.Duration{1500 * time.Millisecond},
		},
		{
			name:    "backoff grows per attempt",
			retries: 3,
			replies: []scriptedReply{
				apiError(http.StatusServiceUnavailable, "UNAVAILABLE", ""),
				apiError(http.StatusGatewayTimeout, "DEADLINE_EXCEEDED", ""),
				{text: explainReply},
			},
			want:         explainReply,
			wantAttempts: 3,
			wantWaits:    []time.Duration{retryBaseDelay, 2 * retryBaseDelay},
		},
		{
			name:         "retries exhausted",
			retries:      2,
			replies:      []scriptedReply{apiError(http.StatusServiceUnavailable, "UNAVAILABLE", ""), apiError(http.StatusServiceUnavailable, "UNAVAILABLE", "")},
			wantErr:      true,
			wantAttempts: 2,
			wantWaits:    []time.Duration{retryBaseDelay},
		},
		{
			name:         "long quota delay gives up",
			retries:      3,
			replies:      []scriptedReply{apiError(http.StatusTooManyRequests, "RESOURCE_EXHAUSTED", "quota exhausted, retry after 60 seconds")},
			wantErr:      true,
			wantAttempts: 1,
		},
		{
			name:         "invalid argument is final",
			retries:      3,
			replies:      []scriptedReply{apiError(http.StatusBadRequest, "INVALID_ARGUMENT", "prompt too long")},
			wantErr:      true,
			wantAttempts: 1,
		},
		{
			name:         "empty reply is final",
			retries:      3,
			replies:      []scriptedReply{{text: ""}},
			wantErr:      true,
			wantAttempts: 1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			waits := recordWaits(t)
			chats := newScriptedChats(tc.replies...)
			g := &Generator{chats: chats, model: "gemini-test", maxRetries: tc.retries, logger: zap.NewNop()}

			got, err := g.Generate(context.Background(), explainSystem, explainPrompt)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got reply %q", got)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tc.want {
					t.Fatalf("unexpected reply: %q", got)
				}
			}

			if n := chats.attempts(); n != tc.wantAttempts {
				t.Fatalf("expected %d attempts, got %d", tc.wantAttempts, n)
			}
			if len(*waits) != len(tc.wantWaits) {
				t.Fatalf("expected waits %v, got %v", tc.wantWaits, *waits)
			}
			for i := range tc.wantWaits {
				if (*waits)[i] != tc.wantWaits[i] {
					t.Fatalf("expected waits %v, got %v", tc.wantWaits, *waits)
				}
			}
		})
	}
}

func TestGenerateForwardsPrompts(t *testing.T) {
	recordWaits(t)
	chats := newScriptedChats(
		apiError(http.StatusBadGateway, "UNAVAILABLE", ""),
		scriptedReply{text: explainReply},
		scriptedReply{text: adviceReply},
	)
	g := &Generator{chats: chats, model: "gemini-test", maxRetries: 2}

	if _, err := g.Generate(context.Background(), explainSystem, "  "+explainPrompt+"\n"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := g.Generate(context.Background(), "", "Assess this resume for a Platform Engineer role."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chats.sent) != 3 {
		t.Fatalf("expected 3 sent prompts, got %d", len(chats.sent))
	}
	// A retry resends the same explanation prompt.
	for _, sent := range chats.sent[:2] {
		if sent.model != "gemini-test" || sent.system != explainSystem || sent.prompt != explainPrompt {
			t.Fatalf("unexpected explanation request: %+v", sent)
		}
	}
	if advice := chats.sent[2]; advice.system != "" {
		t.Fatalf("expected no system instruction for advice, got %q", advice.system)
	}
}

func TestGenerateRejectsBlankPrompt(t *testing.T) {
	chats := newScriptedChats(scriptedReply{text: explainReply})
	g := &Generator{chats: chats, model: "gemini-test", maxRetries: 1}

	if _, err := g.Generate(context.Background(), explainSystem, " \n\t"); err == nil {
		t.Fatal("expected an error for a blank prompt")
	}
	if n := chats.attempts(); n != 0 {
		t.Fatalf("blank prompt must not reach the api, got %d attempts", n)
	}

	var missing *Generator
	if _, err := missing.Generate(context.Background(), "", explainPrompt); err == nil {
		t.Fatal("expected an error for an uninitialized generator")
	}
}

func TestQuotaDelay(t *testing.T) {
	cases := map[string]struct {
		message string
		want    time.Duration
		ok      bool
	}{
		"retry after seconds": {message: "quota exhausted, retry after 60 seconds", want: 60 * time.Second, ok: true},
		"retry in fraction":   {message: "Please retry in 5.5s.", want: 5500 * time.Millisecond, ok: true},
		"retry delay detail":  {message: `details: {"retryDelay": "12s"}`, want: 12 * time.Second, ok: true},
		"no hint":             {message: "quota exhausted"},
	}

	for name, tc := range cases {
		got, ok := quotaDelay(tc.message)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%s: quotaDelay(%q) = %v, %v; want %v, %v", name, tc.message, got, ok, tc.want, tc.ok)
		}
	}
}
