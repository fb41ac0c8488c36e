package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hiresight-ai/hiresight/internal/enrich"
	"github.com/hiresight-ai/hiresight/internal/index"
	"github.com/hiresight-ai/hiresight/internal/structurer"
)

var (
	// ErrNotFound is returned when a session id is unknown or expired.
	ErrNotFound = errors.New("session not found")
	// ErrNotReady is returned when a question arrives before a document
	// has been ingested.
	ErrNotReady = errors.New("session has no indexed document")
	// ErrAlreadyIngested is returned on a second upload into one session.
	ErrAlreadyIngested = errors.New("session already has a document")
)

// State is the session lifecycle state.
type State string

const (
	StateEmpty     State = "EMPTY"
	StateReady     State = "READY"
	StateAnswering State = "ANSWERING"
)

// Role tags who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TurnEnrichment reports source availability, attached to the first
// assistant turn only.
type TurnEnrichment struct {
	GitHubFound   bool `json:"github_found"`
	LinkedInFound bool `json:"linkedin_found"`
}

// Turn is one entry in the append-only conversation history.
type Turn struct {
	Role       Role            `json:"role"`
	Content    string          `json:"content"`
	Evidence   []string        `json:"evidence,omitempty"`
	IsError    bool            `json:"is_error,omitempty"`
	Enrichment *TurnEnrichment `json:"enrichment,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Mirror persists session metadata and turns outside the process. Mirroring
// is best-effort: the in-memory session stays authoritative.
type Mirror interface {
	SaveMeta(ctx context.Context, s *Session) error
	AppendTurn(ctx context.Context, id string, t Turn) error
	Delete(ctx context.Context, id string) error
}

// Session is one resume conversation: a single document, its enrichment, a
// hybrid index and the turn history. Answering is serialized per session.
type Session struct {
	id        string
	createdAt time.Time
	expiresAt time.Time

	mu     sync.RWMutex
	turnMu sync.Mutex

	state      State
	doc        *structurer.StructuredDocument
	enrichment enrich.Result
	index      *index.Index
	turns      []Turn
	mirror     Mirror
}

func New(id string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		id:        id,
		createdAt: now,
		expiresAt: now.Add(ttl),
		state:     StateEmpty,
	}
}

func (s *Session) ID() string           { return s.id }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Now().After(s.expiresAt)
}

func (s *Session) Expire(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiresAt = time.Now().Add(ttl)
}

func (s *Session) SetMirror(m Mirror) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror = m
}

// Attach installs the ingested document, its enrichment and the built index,
// moving the session from EMPTY to READY. A session holds exactly one
// document; a second upload is rejected.
func (s *Session) Attach(doc *structurer.StructuredDocument, enr enrich.Result, idx *index.Index) error {
	s.mu.Lock()
	if s.state != StateEmpty {
		s.mu.Unlock()
		return ErrAlreadyIngested
	}
	s.doc = doc
	s.enrichment = enr
	s.index = idx
	s.state = StateReady
	mirror := s.mirror
	s.mu.Unlock()

	if mirror != nil {
		_ = mirror.SaveMeta(context.Background(), s)
	}
	return nil
}

// BeginAnswer takes the per-session answering slot, blocking behind any
// in-flight turn. The caller must call EndAnswer when done.
func (s *Session) BeginAnswer() error {
	s.turnMu.Lock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		s.turnMu.Unlock()
		return ErrNotReady
	}
	s.state = StateAnswering
	return nil
}

func (s *Session) EndAnswer() {
	s.mu.Lock()
	s.state = StateReady
	s.mu.Unlock()
	s.turnMu.Unlock()
}

// AppendTurn records a turn in the history and mirrors it best-effort.
func (s *Session) AppendTurn(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	s.turns = append(s.turns, t)
	if s.mirror != nil {
		_ = s.mirror.AppendTurn(context.Background(), s.id, t)
	}
}

// Turns returns a copy of the conversation history.
func (s *Session) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// AssistantTurns counts completed assistant turns.
func (s *Session) AssistantTurns() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, t := range s.turns {
		if t.Role == RoleAssistant {
			n++
		}
	}
	return n
}

func (s *Session) Doc() *structurer.StructuredDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

func (s *Session) Enrichment() enrich.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enrichment
}

func (s *Session) Index() *index.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}
