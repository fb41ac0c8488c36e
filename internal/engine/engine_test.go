package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hiresight-ai/hiresight/config"
	"github.com/hiresight-ai/hiresight/internal/enrich"
	"github.com/hiresight-ai/hiresight/internal/structurer"
	"github.com/hiresight-ai/hiresight/session"
	"github.com/hiresight-ai/hiresight/session/inmemory"
)

type scriptedProvider struct {
	answers  []string
	errs     []error
	calls    int
	lastUser string
}

func (p *scriptedProvider) Complete(ctx context.Context, system, user string) (string, error) {
	p.lastUser = user
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return "", p.errs[i]
	}
	if i < len(p.answers) {
		return p.answers[i], nil
	}
	return "answer", nil
}

func (p *scriptedProvider) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type flatEmbedder struct{}

func (flatEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

const engineResume = `Jane Doe
jane@example.com

Summary
Backend engineer working on payment systems.

Skills
Go, PostgreSQL, Kubernetes
`

func testConfig() *config.Config {
	return &config.Config{
		Ingest:    config.IngestConfig{}.Normalize(),
		Retrieval: config.RetrievalConfig{}.Normalize(),
		Storage:   config.StorageConfig{SessionTTL: time.Hour},
	}
}

func newTestEngine(p *scriptedProvider) *Engine {
	enricher := enrich.NewOrchestrator(nil, nil, nil)
	return New(testConfig(), p, flatEmbedder{}, enricher, inmemory.NewStore(), nil, nil)
}

func ingestTestResume(t *testing.T, e *Engine) *session.Session {
	t.Helper()
	sess, err := e.Ingest(context.Background(), []byte(engineResume), structurer.FormatTXT, "resume.txt")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	return sess
}

func TestIngestOpensReadySession(t *testing.T) {
	e := newTestEngine(&scriptedProvider{})
	sess := ingestTestResume(t, e)

	if sess.State() != session.StateReady {
		t.Fatalf("state = %q", sess.State())
	}
	if sess.Index() == nil || sess.Index().Size() == 0 {
		t.Fatal("no index built")
	}
	if sess.Doc().Filename != "resume.txt" {
		t.Fatalf("doc = %+v", sess.Doc())
	}
}

func TestIngestRejectsEmptyDocument(t *testing.T) {
	e := newTestEngine(&scriptedProvider{})
	_, err := e.Ingest(context.Background(), []byte("   "), structurer.FormatTXT, "blank.txt")
	if !errors.Is(err, structurer.ErrEmptyDocument) {
		t.Fatalf("err = %v", err)
	}
}

func TestFirstTurnCarriesEnrichmentFlags(t *testing.T) {
	p := &scriptedProvider{answers: []string{"first answer", "second answer"}}
	e := newTestEngine(p)
	sess := ingestTestResume(t, e)

	first, err := e.SubmitTurn(context.Background(), sess.ID(), "What does Jane work on?")
	if err != nil {
		t.Fatalf("SubmitTurn: %v", err)
	}
	if first.Enrichment == nil {
		t.Fatal("first assistant turn missing enrichment flags")
	}
	if first.Enrichment.GitHubFound || first.Enrichment.LinkedInFound {
		t.Fatalf("flags = %+v, enrichment was disabled", first.Enrichment)
	}
	if len(first.Evidence) == 0 {
		t.Fatal("no evidence recorded")
	}
	if first.Content != "first answer" {
		t.Fatalf("content = %q", first.Content)
	}

	second, err := e.SubmitTurn(context.Background(), sess.ID(), "Which databases?")
	if err != nil {
		t.Fatalf("SubmitTurn: %v", err)
	}
	if second.Enrichment != nil {
		t.Fatal("enrichment flags repeated on a later turn")
	}
}

func TestSubmitTurnUnknownSession(t *testing.T) {
	e := newTestEngine(&scriptedProvider{})
	_, err := e.SubmitTurn(context.Background(), "nope", "hello?")
	if !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestSynthesisFailureRecordsErrorTurn(t *testing.T) {
	p := &scriptedProvider{errs: []error{errors.New("model overloaded")}, answers: []string{"", "recovered"}}
	e := newTestEngine(p)
	sess := ingestTestResume(t, e)

	turn, err := e.SubmitTurn(context.Background(), sess.ID(), "What does Jane work on?")
	if err != nil {
		t.Fatalf("SubmitTurn: %v", err)
	}
	if !turn.IsError || turn.Content != errorTurnContent {
		t.Fatalf("turn = %+v", turn)
	}
	if turn.Enrichment != nil {
		t.Fatal("failed turn should not carry enrichment flags")
	}
	if sess.State() != session.StateReady {
		t.Fatalf("state after failure = %q", sess.State())
	}

	// next turn succeeds and the failed answer stays out of its prompt
	next, err := e.SubmitTurn(context.Background(), sess.ID(), "Which databases?")
	if err != nil {
		t.Fatalf("SubmitTurn: %v", err)
	}
	if next.IsError {
		t.Fatalf("turn = %+v", next)
	}
	if next.Enrichment == nil {
		t.Fatal("first successful turn should carry enrichment flags")
	}
	if strings.Contains(p.lastUser, errorTurnContent) {
		t.Fatal("error turn leaked into a later prompt")
	}
}

func TestHistoryAlternatesRoles(t *testing.T) {
	e := newTestEngine(&scriptedProvider{})
	sess := ingestTestResume(t, e)

	for _, q := range []string{"q1", "q2"} {
		if _, err := e.SubmitTurn(context.Background(), sess.ID(), q); err != nil {
			t.Fatalf("SubmitTurn(%q): %v", q, err)
		}
	}
	turns, err := e.History(context.Background(), sess.ID())
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	wantRoles := []session.Role{session.RoleUser, session.RoleAssistant, session.RoleUser, session.RoleAssistant}
	if len(turns) != len(wantRoles) {
		t.Fatalf("turns = %d", len(turns))
	}
	for i, r := range wantRoles {
		if turns[i].Role != r {
			t.Fatalf("turn %d role = %q, want %q", i, turns[i].Role, r)
		}
	}
}

func TestCloseDeletesSession(t *testing.T) {
	e := newTestEngine(&scriptedProvider{})
	sess := ingestTestResume(t, e)

	if err := e.Close(context.Background(), sess.ID()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := e.History(context.Background(), sess.ID()); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestExpandQueryBoundedWindow(t *testing.T) {
	history := []session.Turn{
		{Role: session.RoleUser, Content: "q1"},
		{Role: session.RoleAssistant, Content: "a1"},
		{Role: session.RoleUser, Content: "q2"},
		{Role: session.RoleAssistant, Content: "a2"},
		{Role: session.RoleUser, Content: "q3"},
		{Role: session.RoleAssistant, Content: "a3"},
	}
	got := expandQuery(history, 2, "q4")
	if got != "q2\nq3\nq4" {
		t.Fatalf("expanded = %q", got)
	}
	if got := expandQuery(history, 0, "q4"); got != "q4" {
		t.Fatalf("expanded = %q", got)
	}
}

func TestEnrichmentDigest(t *testing.T) {
	var enr enrich.Result
	enr.GitHub.Outcome = enrich.OutcomeError
	enr.LinkedIn.Outcome = enrich.OutcomeNotFound
	if got := enrichmentDigest(enr); got != "none" {
		t.Fatalf("digest = %q", got)
	}

	enr.GitHub.Outcome = enrich.OutcomeFound
	enr.GitHub.Profile = &enrich.GitHubProfile{Login: "janedoe"}
	enr.GitHub.Repos = []enrich.GitHubRepo{{Name: "svc"}}
	enr.LinkedIn.Outcome = enrich.OutcomeError
	enr.LinkedIn.Fallback = true
	got := enrichmentDigest(enr)
	if !strings.Contains(got, "janedoe") || !strings.Contains(got, "1 repos") {
		t.Fatalf("digest = %q", got)
	}
	if !strings.Contains(got, "resume only") {
		t.Fatalf("digest = %q", got)
	}
}
