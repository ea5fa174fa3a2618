package enhance

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/foxzi/leadflow/internal/backend"
	"github.com/foxzi/leadflow/internal/config"
	"github.com/foxzi/leadflow/internal/placeholder"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBackendEnhance(t *testing.T) {
	var got backend.EnhanceRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ai/enhance" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"subject": "Quick idea for you",
			"body":    strings.Replace(got.Body, "Hi", "Hello", 1),
		})
	}))
	defer server.Close()

	cfg := config.AIConfig{Provider: config.ProviderBackend}
	svc, err := New(context.Background(), cfg, backend.NewClient(server.URL, "tok"), testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	body := "Hi " + placeholder.Token("lead", "first_name") + ", quick question."
	res, err := svc.Enhance(context.Background(), Request{Subject: "Question", Body: body, Instruction: "shorter"})
	if err != nil {
		t.Fatalf("Enhance() error = %v", err)
	}

	if strings.Contains(got.Body, "(placeholder)") {
		t.Errorf("provider saw raw token: %q", got.Body)
	}
	if got.Instruction != "shorter" {
		t.Errorf("instruction = %q, want shorter", got.Instruction)
	}
	want := "Hello " + placeholder.Token("lead", "first_name") + ", quick question."
	if res.Body != want {
		t.Errorf("Body = %q, want %q", res.Body, want)
	}
	if res.Subject != "Quick idea for you" {
		t.Errorf("Subject = %q", res.Subject)
	}
	if svc.Provider() != config.ProviderBackend {
		t.Errorf("Provider() = %q", svc.Provider())
	}
}

func TestBackendEnhanceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"message":"AI service unavailable"}`))
	}))
	defer server.Close()

	svc, err := New(context.Background(), config.AIConfig{}, backend.NewClient(server.URL, ""), testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = svc.Enhance(context.Background(), Request{Body: "hello"})
	if err == nil {
		t.Fatal("Enhance() should fail")
	}
	if backend.UserMessage(err, "") != "AI service unavailable" {
		t.Errorf("UserMessage = %q", backend.UserMessage(err, ""))
	}
}

type fakeRewriter struct {
	fn func(Request) Result
}

func (f fakeRewriter) rewrite(ctx context.Context, req Request) (Result, error) {
	return f.fn(req), nil
}

func TestEnhanceRejectsLostPlaceholders(t *testing.T) {
	svc := newService("fake", fakeRewriter{fn: func(r Request) Result {
		return Result{Subject: r.Subject, Body: "Hello there, no variables left"}
	}}, 0, testLogger())

	body := "Hi " + placeholder.Token("lead", "first_name") + " at " + placeholder.Token("lead", "company")
	_, err := svc.Enhance(context.Background(), Request{Subject: "s", Body: body})
	if !errors.Is(err, ErrPlaceholdersLost) {
		t.Fatalf("Enhance() error = %v, want ErrPlaceholdersLost", err)
	}
	if !strings.Contains(err.Error(), "lead.first_name") || !strings.Contains(err.Error(), "lead.company") {
		t.Errorf("error = %q, want both names", err)
	}
}

func TestEnhanceKeepsEmptyParts(t *testing.T) {
	svc := newService("fake", fakeRewriter{fn: func(r Request) Result {
		return Result{Body: r.Body + "\n\nBest"}
	}}, 0, testLogger())

	res, err := svc.Enhance(context.Background(), Request{Subject: "Original", Body: "Body"})
	if err != nil {
		t.Fatalf("Enhance() error = %v", err)
	}
	if res.Subject != "Original" {
		t.Errorf("Subject = %q, want Original", res.Subject)
	}
	if res.Body != "Body\n\nBest" {
		t.Errorf("Body = %q", res.Body)
	}
}

func TestEnhanceEmptyInput(t *testing.T) {
	svc := newService("fake", fakeRewriter{fn: func(r Request) Result { return Result{} }}, 0, testLogger())
	if _, err := svc.Enhance(context.Background(), Request{Subject: " ", Body: ""}); err == nil {
		t.Error("Enhance() should fail for empty content")
	}
}

func TestGeminiRewrite(t *testing.T) {
	var prompt string
	rw := &geminiRewriter{generate: func(ctx context.Context, p string) (string, error) {
		prompt = p
		return "```json\n{\"subject\":\"New [[PH1]]\",\"body\":\"Hey [[PH1]]!\"}\n```", nil
	}}
	svc := newService(config.ProviderGemini, rw, 0, testLogger())

	tok := placeholder.Token("lead", "first_name")
	res, err := svc.Enhance(context.Background(), Request{
		Subject:     "Old " + tok,
		Body:        "Hi " + tok,
		Instruction: "more energy",
	})
	if err != nil {
		t.Fatalf("Enhance() error = %v", err)
	}
	if !strings.Contains(prompt, "Instruction: more energy") {
		t.Errorf("prompt = %q, want instruction", prompt)
	}
	if strings.Contains(prompt, "placeholder") {
		t.Errorf("prompt leaked raw tokens: %q", prompt)
	}
	if res.Subject != "New "+tok || res.Body != "Hey "+tok+"!" {
		t.Errorf("result = %+v", res)
	}
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Result
		wantErr bool
	}{
		{"plain", `{"subject":"a","body":"b"}`, Result{"a", "b"}, false},
		{"fenced", "```json\n{\"subject\":\"a\",\"body\":\"b\"}\n```", Result{"a", "b"}, false},
		{"bare fence", "```\n{\"body\":\"b\"}\n```", Result{Body: "b"}, false},
		{"not json", "Sure! Here is your email", Result{}, true},
		{"empty object", `{}`, Result{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAnswer(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAnswer() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseAnswer() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := New(context.Background(), config.AIConfig{Provider: config.ProviderGemini}, nil, testLogger())
	if err == nil {
		t.Error("New() should fail without API key")
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.AIConfig{Provider: "openai"}, nil, testLogger())
	if err == nil {
		t.Error("New() should fail for unknown provider")
	}
}
