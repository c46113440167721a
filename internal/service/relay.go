package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/a2alab/relay/internal/domain"
	"github.com/a2alab/relay/internal/relay"
)

func (s *Service) newSessionID() string {
	return "rel_" + uuid.New().String()[:8]
}

func (s *Service) buildRequest(id string, req domain.RelayRequest) (relay.StartRequest, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return relay.StartRequest{}, fmt.Errorf("prompt is required")
	}
	initiator := req.Initiator
	if initiator == "" {
		// Deterministic default: the first label in sorted order.
		for label := range s.endpoints {
			if initiator == "" || label < initiator {
				initiator = label
			}
		}
	}
	if _, ok := s.endpoints[initiator]; !ok {
		return relay.StartRequest{}, fmt.Errorf("unknown initiator %q", initiator)
	}

	opts := relay.Options{
		HopLimit:     s.cfg.HopLimit,
		FrameCeiling: s.cfg.FrameCeiling,
		HopTimeout:   s.cfg.HopTimeout(),
	}
	if req.HopLimit > 0 {
		opts.HopLimit = req.HopLimit
	}

	return relay.StartRequest{
		SessionID: id,
		Initiator: initiator,
		Endpoints: s.endpoints,
		Prompt:    req.Prompt,
		Options:   opts,
	}, nil
}

// run drives one session to completion and records the terminal state.
// Driver errors surface as terminal sessions with a cancelled timestamp so
// viewers never see a registered session without an outcome.
func (s *Service) run(ctx context.Context, sess *session, start relay.StartRequest) *domain.ConversationSession {
	result, err := s.driver.Run(ctx, start, sess.log)
	if err != nil {
		s.logger.Error("relay session failed", "session_id", start.SessionID, "error", err)
		now := time.Now()
		result = &domain.ConversationSession{
			SessionID: start.SessionID,
			Initiator: start.Initiator,
			Status:    domain.SessionStatusTerminal,
			Reason:    domain.ReasonTransportError,
			StartedAt: now,
			EndedAt:   &now,
		}
	}

	sess.mu.Lock()
	sess.info = *result
	sess.mu.Unlock()

	if s.archive != nil {
		if err := s.archive.ArchiveSession(ctx, result, sess.log.Entries()); err != nil {
			s.logger.Error("failed to archive session", "session_id", result.SessionID, "error", err)
		}
	}
	return result
}

// RunRelay executes a relay session synchronously and returns the terminal
// session once the conversation has ended.
func (s *Service) RunRelay(ctx context.Context, req domain.RelayRequest) (*domain.ConversationSession, error) {
	id := s.newSessionID()
	start, err := s.buildRequest(id, req)
	if err != nil {
		return nil, err
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	sess := s.register(id)
	sess.mu.Lock()
	sess.info.Initiator = start.Initiator
	sess.info.StartedAt = time.Now()
	sess.mu.Unlock()

	return s.run(ctx, sess, start), nil
}

// StartRelay launches a relay session in the background and returns its ID
// immediately. Progress is observable through GetSession and GetEntries.
func (s *Service) StartRelay(ctx context.Context, req domain.RelayRequest) (*domain.RelayResponse, error) {
	id := s.newSessionID()
	start, err := s.buildRequest(id, req)
	if err != nil {
		return nil, err
	}

	sess := s.register(id)
	sess.mu.Lock()
	sess.info.Initiator = start.Initiator
	sess.info.StartedAt = time.Now()
	sess.mu.Unlock()

	go func() {
		// Background sessions outlive the HTTP request that started them.
		bg := context.Background()
		if err := s.sem.Acquire(bg, 1); err != nil {
			return
		}
		defer s.sem.Release(1)
		s.run(bg, sess, start)
	}()

	return &domain.RelayResponse{SessionID: id, Initiator: start.Initiator}, nil
}
