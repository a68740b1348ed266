package narrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"werewolves/internal/config"
	"werewolves/internal/domain"
)

// fakeModel answers every prompt with a fixed text, streamed in chunks when
// the caller asks for streaming.
type fakeModel struct {
	chunks   []string
	answer   string
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	for _, opt := range options {
		opt(&m.opts)
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.opts.StreamingFunc != nil {
		for _, c := range m.chunks {
			if err := m.opts.StreamingFunc(ctx, []byte(c)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.answer}}}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

var night1 = []domain.Death{
	{PlayerID: "p3", Name: "Cy", Role: domain.RoleVillager, Cause: domain.CauseWolves, Night: 1},
	{PlayerID: "p4", Name: "Di", Role: domain.RoleHealerPoisoner, Cause: domain.CauseHeartbreak, Night: 1},
}

func humanPrompt(t *testing.T, m *fakeModel) string {
	t.Helper()
	if len(m.messages) != 2 {
		t.Fatalf("messages = %d", len(m.messages))
	}
	part, ok := m.messages[1].Parts[0].(llms.TextContent)
	if !ok {
		t.Fatalf("part type %T", m.messages[1].Parts[0])
	}
	return part.Text
}

func TestStorytellerStreams(t *testing.T) {
	model := &fakeModel{chunks: []string{"  The moon ", "was red."}, answer: "ignored"}
	teller := NewStoryteller(model, WithTemperature(0.5), WithMaxTokens(120))

	story, err := teller.Narrate(context.Background(), night1, night1)
	if err != nil {
		t.Fatal(err)
	}
	if story != "The moon was red." {
		t.Errorf("story = %q", story)
	}
	if model.opts.Temperature != 0.5 || model.opts.MaxTokens != 120 {
		t.Errorf("opts = %+v", model.opts)
	}

	prompt := humanPrompt(t, model)
	for _, want := range []string{
		"Night 1: Cy the villager was killed by the wolves.",
		"Night 1: Di the healer-poisoner died of a broken heart.",
		"Cy and Di",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt misses %q:\n%s", want, prompt)
		}
	}
}

func TestStorytellerFallsBackToResponse(t *testing.T) {
	model := &fakeModel{answer: " A quiet end. "}
	story, err := NewStoryteller(model).Narrate(context.Background(), night1[:1], night1[:1])
	if err != nil {
		t.Fatal(err)
	}
	if story != "A quiet end." {
		t.Errorf("story = %q", story)
	}
}

func TestStorytellerErrors(t *testing.T) {
	boom := errors.New("boom")
	if _, err := NewStoryteller(&fakeModel{err: boom}).Narrate(context.Background(), night1, nil); !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
	if _, err := NewStoryteller(&fakeModel{}).Narrate(context.Background(), night1, nil); !errors.Is(err, ErrEmptyStory) {
		t.Fatalf("got %v", err)
	}

	model := &fakeModel{answer: "unused"}
	story, err := NewStoryteller(model).Narrate(context.Background(), nil, night1)
	if err != nil || story != "" || model.messages != nil {
		t.Fatalf("no deaths should not call the model: %q %v", story, err)
	}
}

func TestEpitaphsOneLinePerDeath(t *testing.T) {
	teller := NewEpitaphs(func(int) int { return 0 })

	story, err := teller.Narrate(context.Background(), night1, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := "Claw marks lead from the well to where Cy was found at dawn. " +
		"Di could not bear a world without their beloved."
	if story != want {
		t.Errorf("story = %q", story)
	}
}

func TestEpitaphsAvoidRepeats(t *testing.T) {
	next := 0
	teller := NewEpitaphs(func(n int) int {
		i := next % n
		next++
		return i
	})

	vote := []domain.Death{{Name: "Al", Cause: domain.CauseVote}}
	seen := make(map[string]bool)
	for i := 0; i < len(epitaphs[domain.CauseVote]); i++ {
		story, err := teller.Narrate(context.Background(), vote, nil)
		if err != nil {
			t.Fatal(err)
		}
		if seen[story] {
			t.Fatalf("repeated %q", story)
		}
		seen[story] = true
	}

	// All lines used: the list starts over instead of failing
	if story, _ := teller.Narrate(context.Background(), vote, nil); story == "" {
		t.Fatal("expected a story after exhausting the list")
	}
}

func TestNewSelectsProvider(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, provider := range []string{"", "none"} {
		n, err := New(config.NarratorConfig{Provider: provider}, logger)
		if err != nil || n != nil {
			t.Fatalf("%q: got %v, %v", provider, n, err)
		}
	}

	n, err := New(config.NarratorConfig{Provider: "builtin"}, logger)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := n.(*Epitaphs); !ok {
		t.Fatalf("builtin narrator is %T", n)
	}

	n, err = New(config.NarratorConfig{Provider: "ollama", Model: "llama3"}, logger)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := n.(*Storyteller); !ok {
		t.Fatalf("ollama narrator is %T", n)
	}

	if _, err := New(config.NarratorConfig{Provider: "openai-compatible", Model: "m"}, logger); err == nil {
		t.Fatal("openai-compatible without URL should fail")
	}
	if _, err := New(config.NarratorConfig{Provider: "carrier-pigeon"}, logger); err == nil {
		t.Fatal("unknown provider should fail")
	}
}
