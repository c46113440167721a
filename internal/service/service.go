// Package service orchestrates relay sessions: it owns the endpoint
// configuration, runs the conversation driver, tracks live sessions, and
// archives terminal ones.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/a2alab/relay/internal/adapter/agentclient"
	"github.com/a2alab/relay/internal/config"
	"github.com/a2alab/relay/internal/domain"
	"github.com/a2alab/relay/internal/relay"
	store "github.com/a2alab/relay/internal/repository"
	"github.com/a2alab/relay/internal/transcript"
)

// session pairs the live transcript log with the session record. The record
// is rewritten once, when the driver finishes, under mu.
type session struct {
	mu   sync.RWMutex
	log  *transcript.Log
	info domain.ConversationSession
}

// Service runs and tracks relay sessions. Endpoint configuration is shared
// read-only across all sessions; each session owns its own transcript.
type Service struct {
	cfg       *config.Config
	endpoints map[string]domain.AgentEndpoint
	client    *agentclient.Client
	driver    *relay.Driver
	archive   *store.SQLiteStore
	sem       *semaphore.Weighted
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
	order    []string
}

// New creates the service. archive may be nil to disable archiving.
func New(cfg *config.Config, endpoints map[string]domain.AgentEndpoint, client *agentclient.Client, driver *relay.Driver, archive *store.SQLiteStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	max := cfg.MaxConcurrentRelays
	if max <= 0 {
		max = 8
	}
	return &Service{
		cfg:       cfg,
		endpoints: endpoints,
		client:    client,
		driver:    driver,
		archive:   archive,
		sem:       semaphore.NewWeighted(max),
		logger:    logger,
		sessions:  make(map[string]*session),
	}
}

// Endpoints returns the configured endpoints keyed by label.
func (s *Service) Endpoints() map[string]domain.AgentEndpoint {
	return s.endpoints
}

// ResolveCards fetches capability cards for all endpoints. Failures are
// logged and skipped; cards are labeling only and never block relaying.
func (s *Service) ResolveCards(ctx context.Context) {
	for label, ep := range s.endpoints {
		card, err := s.client.FetchCard(ctx, ep)
		if err != nil {
			s.logger.Warn("failed to resolve agent card", "label", label, "error", err)
			continue
		}
		ep.Card = card
		s.endpoints[label] = ep
		s.logger.Info("resolved agent card", "label", label, "name", card.Name)
	}
}

func (s *Service) register(id string) *session {
	sess := &session{
		log: transcript.NewLog(),
		info: domain.ConversationSession{
			SessionID: id,
			Status:    domain.SessionStatusRunning,
		},
	}
	s.mu.Lock()
	s.sessions[id] = sess
	s.order = append(s.order, id)
	s.mu.Unlock()
	return sess
}

func (s *Service) lookup(id string) *session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// GetSession returns a read-only view of a session, live or terminal,
// consulting the archive for sessions evicted from memory.
func (s *Service) GetSession(ctx context.Context, id string) (*domain.SessionView, error) {
	if sess := s.lookup(id); sess != nil {
		sess.mu.RLock()
		view := &domain.SessionView{ConversationSession: sess.info, EntryCount: sess.log.Len()}
		sess.mu.RUnlock()
		return view, nil
	}
	if s.archive != nil {
		archived, err := s.archive.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		if archived != nil {
			return &domain.SessionView{ConversationSession: *archived}, nil
		}
	}
	return nil, nil
}

// ListSessions returns views of all known sessions in creation order.
func (s *Service) ListSessions(ctx context.Context) ([]domain.SessionView, error) {
	s.mu.RLock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	s.mu.RUnlock()

	views := make([]domain.SessionView, 0, len(ids))
	for _, id := range ids {
		view, err := s.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		if view != nil {
			views = append(views, *view)
		}
	}
	return views, nil
}

// GetEntries returns the ordered transcript of a session, optionally
// filtered by event kind. Reads never mutate the underlying log.
func (s *Service) GetEntries(ctx context.Context, id string, kinds []domain.EventKind) ([]domain.TranscriptEntry, error) {
	if sess := s.lookup(id); sess != nil {
		return sess.log.Filter(kinds...), nil
	}
	if s.archive != nil {
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = string(k)
		}
		return s.archive.GetEntries(ctx, id, names, 0)
	}
	return nil, fmt.Errorf("session %s not found", id)
}
