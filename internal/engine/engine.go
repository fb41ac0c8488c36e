package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hiresight-ai/hiresight/config"
	"github.com/hiresight-ai/hiresight/internal/enrich"
	"github.com/hiresight-ai/hiresight/internal/index"
	"github.com/hiresight-ai/hiresight/internal/structurer"
	"github.com/hiresight-ai/hiresight/internal/telemetry"
	"github.com/hiresight-ai/hiresight/provider"
	"github.com/hiresight-ai/hiresight/session"
	"github.com/hiresight-ai/hiresight/tools/embedding"
)

// SynthesisError wraps a model failure during answer synthesis. It is
// recorded as an error-flavored turn, never surfaced as a request failure.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string { return fmt.Sprintf("answer synthesis: %v", e.Err) }
func (e *SynthesisError) Unwrap() error { return e.Err }

const errorTurnContent = "Something went wrong while answering this question. Please try asking again."

// Engine drives the resume pipeline: ingestion into a session-scoped index
// and multi-turn grounded question answering.
type Engine struct {
	cfg      *config.Config
	provider provider.Provider
	embedder embedding.Embedder
	enricher *enrich.Orchestrator
	store    session.Store
	metrics  *telemetry.Metrics
	logger   *log.Logger
}

func New(cfg *config.Config, p provider.Provider, embedder embedding.Embedder, enricher *enrich.Orchestrator, store session.Store, metrics *telemetry.Metrics, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		cfg:      cfg,
		provider: p,
		embedder: embedder,
		enricher: enricher,
		store:    store,
		metrics:  metrics,
		logger:   logger,
	}
}

// Ingest runs the full pipeline for one uploaded resume: structure the bytes,
// enrich from external sources, build the hybrid index and open a READY
// session around the result. Structuring and index failures are fatal;
// enrichment failures are absorbed into their tagged outcomes.
func (e *Engine) Ingest(ctx context.Context, raw []byte, format structurer.Format, filename string) (*session.Session, error) {
	doc, err := structurer.Structure(raw, format, filename)
	if err != nil {
		e.countIngest("rejected")
		return nil, err
	}

	enr := e.enricher.Run(ctx, doc)
	e.countEnrichment(enr)

	idx, err := index.Build(ctx, doc, enr, e.embedder, e.cfg.Ingest, e.cfg.Retrieval)
	if err != nil {
		e.countIngest("index_failed")
		return nil, err
	}

	sess, err := e.store.Create(ctx, e.cfg.Storage.SessionTTL)
	if err != nil {
		return nil, err
	}
	if err := sess.Attach(doc, enr, idx); err != nil {
		_ = e.store.Delete(ctx, sess.ID())
		return nil, err
	}

	e.countIngest("ok")
	if e.metrics != nil {
		e.metrics.ActiveSessions.Inc()
	}
	e.logger.Printf("[engine] session %s ready: %d chunks, github=%s linkedin=%s",
		sess.ID(), idx.Size(), enr.GitHub.Outcome, enr.LinkedIn.Outcome)
	return sess, nil
}

// SubmitTurn answers one question in a session. Turns are serialized per
// session; each call appends a user turn and exactly one assistant turn.
func (e *Engine) SubmitTurn(ctx context.Context, sessionID, question string) (session.Turn, error) {
	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return session.Turn{}, err
	}
	if err := sess.BeginAnswer(); err != nil {
		return session.Turn{}, err
	}
	defer sess.EndAnswer()

	history := sess.Turns()
	firstAnswer := true
	for _, t := range history {
		if t.Role == session.RoleAssistant && !t.IsError {
			firstAnswer = false
			break
		}
	}
	sess.AppendTurn(session.Turn{Role: session.RoleUser, Content: question})

	hits := e.retrieve(ctx, sess, history, question)

	answer := e.synthesize(ctx, sess, history, hits, question)
	if firstAnswer && !answer.IsError {
		enr := sess.Enrichment()
		answer.Enrichment = &session.TurnEnrichment{
			GitHubFound:   enr.GitHubFound(),
			LinkedInFound: enr.LinkedInFound(),
		}
	}
	sess.AppendTurn(answer)

	status := "ok"
	if answer.IsError {
		status = "error"
	}
	if e.metrics != nil {
		e.metrics.Turns.WithLabelValues(status).Inc()
	}
	return answer, nil
}

// retrieve expands the query with recent user turns and runs hybrid search.
// An embedding failure degrades to lexical-only retrieval.
func (e *Engine) retrieve(ctx context.Context, sess *session.Session, history []session.Turn, question string) []index.Hit {
	query := expandQuery(history, e.cfg.Retrieval.HistoryWindow, question)

	var queryVec []float32
	vecs, err := e.embedder.EmbedMany(ctx, []string{query})
	if err != nil {
		e.logger.Printf("[engine] query embedding failed, lexical only: %v", err)
	} else if len(vecs) == 1 {
		queryVec = vecs[0]
	}

	started := time.Now()
	hits, err := sess.Index().Search(query, queryVec, e.cfg.Retrieval.TopK)
	if e.metrics != nil {
		e.metrics.RetrievalTime.Observe(time.Since(started).Seconds())
	}
	if err != nil {
		e.logger.Printf("[engine] retrieval failed: %v", err)
		return nil
	}
	return hits
}

// synthesize asks the model for a grounded answer. On failure the turn is
// recorded with IsError set, leaving the session usable.
func (e *Engine) synthesize(ctx context.Context, sess *session.Session, history []session.Turn, hits []index.Hit, question string) session.Turn {
	user := buildAnswerPrompt(sess.Doc(), sess.Enrichment(), history, e.cfg.Retrieval.HistoryWindow, hits, question)

	started := time.Now()
	content, err := e.provider.Complete(ctx, answerSystemPrompt, user)
	if e.metrics != nil {
		e.metrics.SynthesisTime.Observe(time.Since(started).Seconds())
	}
	if err != nil {
		e.logger.Printf("[engine] %v", &SynthesisError{Err: err})
		return session.Turn{Role: session.RoleAssistant, Content: errorTurnContent, IsError: true}
	}

	evidence := make([]string, 0, len(hits))
	for _, h := range hits {
		evidence = append(evidence, h.ChunkID)
	}
	return session.Turn{Role: session.RoleAssistant, Content: content, Evidence: evidence}
}

// History returns the session's conversation so far.
func (e *Engine) History(ctx context.Context, sessionID string) ([]session.Turn, error) {
	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Turns(), nil
}

// Describe reports the session's current shape for status endpoints.
func (e *Engine) Describe(ctx context.Context, sessionID string) (*session.Session, error) {
	return e.store.Get(ctx, sessionID)
}

// Close deletes a session and its mirrored state.
func (e *Engine) Close(ctx context.Context, sessionID string) error {
	if err := e.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.ActiveSessions.Dec()
	}
	return nil
}

func (e *Engine) countIngest(outcome string) {
	if e.metrics != nil {
		e.metrics.Ingests.WithLabelValues(outcome).Inc()
	}
}

func (e *Engine) countEnrichment(enr enrich.Result) {
	if e.metrics == nil {
		return
	}
	e.metrics.Enrichments.WithLabelValues("github", string(enr.GitHub.Outcome)).Inc()
	e.metrics.Enrichments.WithLabelValues("linkedin", string(enr.LinkedIn.Outcome)).Inc()
}
