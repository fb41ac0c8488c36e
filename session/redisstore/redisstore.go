package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hiresight-ai/hiresight/config"
	"github.com/hiresight-ai/hiresight/session"
	"github.com/hiresight-ai/hiresight/session/inmemory"
)

// Store mirrors session metadata and turn history into redis while keeping
// live sessions in memory. The hybrid index cannot leave the process, so a
// redis record outliving its process is readable history, not a live session.
type Store struct {
	local  *inmemory.Store
	client *redis.Client
	ttl    time.Duration
}

func NewStore(cfg config.RedisConfig, ttl time.Duration) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Store{local: inmemory.NewStore(), client: rdb, ttl: ttl}
}

func (store *Store) Create(ctx context.Context, ttl time.Duration) (*session.Session, error) {
	sess, err := store.local.Create(ctx, ttl)
	if err != nil {
		return nil, err
	}
	sess.SetMirror(store)
	_ = store.SaveMeta(ctx, sess)
	return sess, nil
}

func (store *Store) Get(ctx context.Context, id string) (*session.Session, error) {
	return store.local.Get(ctx, id)
}

// Delete drops the live session and the mirrored keys. The mirrored keys go
// even when the live session is already gone.
func (store *Store) Delete(ctx context.Context, id string) error {
	localErr := store.local.Delete(ctx, id)
	if err := store.client.Del(ctx, metaKey(id), turnsKey(id)).Err(); err != nil {
		return err
	}
	return localErr
}

type sessionMeta struct {
	ID            string    `json:"id"`
	State         string    `json:"state"`
	CreatedAt     time.Time `json:"created_at"`
	Filename      string    `json:"filename,omitempty"`
	GitHubFound   bool      `json:"github_found"`
	LinkedInFound bool      `json:"linkedin_found"`
}

func (store *Store) SaveMeta(ctx context.Context, s *session.Session) error {
	meta := sessionMeta{
		ID:            s.ID(),
		State:         string(s.State()),
		CreatedAt:     s.CreatedAt(),
		GitHubFound:   s.Enrichment().GitHubFound(),
		LinkedInFound: s.Enrichment().LinkedInFound(),
	}
	if doc := s.Doc(); doc != nil {
		meta.Filename = doc.Filename
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return store.client.Set(ctx, metaKey(s.ID()), data, store.ttl).Err()
}

func (store *Store) AppendTurn(ctx context.Context, id string, t session.Turn) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	key := turnsKey(id)
	if err := store.client.RPush(ctx, key, data).Err(); err != nil {
		return err
	}
	return store.client.Expire(ctx, key, store.ttl).Err()
}

// Turns reads the mirrored turn history, usable even after the live session
// is gone.
func (store *Store) Turns(ctx context.Context, id string) ([]session.Turn, error) {
	vals, err := store.client.LRange(ctx, turnsKey(id), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]session.Turn, 0, len(vals))
	for _, v := range vals {
		var t session.Turn
		if err := json.Unmarshal([]byte(v), &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func metaKey(id string) string  { return "hiresight:session:" + id + ":meta" }
func turnsKey(id string) string { return "hiresight:session:" + id + ":turns" }
