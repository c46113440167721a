// Package relay implements the conversation driver: the per-session state
// machine that alternates the active speaker between two endpoints, records
// every observed event, and forwards approved message text hop by hop.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/a2alab/relay/internal/adapter/agentclient"
	"github.com/a2alab/relay/internal/domain"
	"github.com/a2alab/relay/internal/policy"
	"github.com/a2alab/relay/internal/protocol"
	"github.com/a2alab/relay/internal/transcript"
)

// errStopHop aborts frame consumption for the current hop without failing
// the stream. Used when a terminal status arrives or a ceiling trips.
var errStopHop = errors.New("stop hop")

// StreamClient opens one streaming call and delivers raw frames.
type StreamClient interface {
	Stream(ctx context.Context, ep domain.AgentEndpoint, msg domain.OutboundMessage, handler agentclient.FrameHandler) error
}

// Options bound a session's execution. Zero values fall back to defaults.
type Options struct {
	HopLimit     int
	FrameCeiling int
	HopTimeout   time.Duration
}

const (
	defaultHopLimit     = 6
	defaultFrameCeiling = 256
	defaultHopTimeout   = 2 * time.Minute
)

func (o Options) withDefaults() Options {
	if o.HopLimit <= 0 {
		o.HopLimit = defaultHopLimit
	}
	if o.FrameCeiling <= 0 {
		o.FrameCeiling = defaultFrameCeiling
	}
	if o.HopTimeout <= 0 {
		o.HopTimeout = defaultHopTimeout
	}
	return o
}

// StartRequest describes one session to run.
type StartRequest struct {
	SessionID string
	Initiator string
	Endpoints map[string]domain.AgentEndpoint
	Prompt    string
	Options   Options
}

// Driver runs conversation sessions. A single driver is shared by all
// sessions; each Run call owns its session exclusively.
type Driver struct {
	client StreamClient
	policy *policy.Engine
	logger *slog.Logger
}

// NewDriver creates a driver over the given transport client and policy
// engine.
func NewDriver(client StreamClient, policyEngine *policy.Engine, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{client: client, policy: policyEngine, logger: logger}
}

// hopState accumulates what one hop observed. The last message in a hop
// determines the relay text and decision; later messages override earlier
// ones.
type hopState struct {
	frames    int
	msgIdx    int
	relayText string
	decision  policy.Decision
	terminal  bool
	ceiling   bool
}

// Run executes one session to completion and returns the terminal session.
// Every observed event is appended to log before any relay decision is
// acted on; the caller always gets the transcript, never a bare error.
func (d *Driver) Run(ctx context.Context, req StartRequest, log *transcript.Log) (*domain.ConversationSession, error) {
	if len(req.Endpoints) < 2 {
		return nil, fmt.Errorf("at least two endpoints are required, got %d", len(req.Endpoints))
	}
	if _, ok := req.Endpoints[req.Initiator]; !ok {
		return nil, fmt.Errorf("initiator %q is not a configured endpoint", req.Initiator)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("prompt is required")
	}

	opts := req.Options.withDefaults()
	labels := sortedLabels(req.Endpoints)

	sess := &domain.ConversationSession{
		SessionID: req.SessionID,
		Initiator: req.Initiator,
		Active:    req.Initiator,
		Peer:      peerOf(labels, req.Initiator, ""),
		Status:    domain.SessionStatusRunning,
		StartedAt: time.Now(),
	}

	outbound := domain.OutboundMessage{Role: "user", Text: req.Prompt}

	for {
		if ctx.Err() != nil {
			d.appendError(log, sess, "session cancelled")
			return d.terminate(sess, domain.ReasonCancelled), nil
		}

		hop := hopState{msgIdx: -1}
		hopCtx, cancel := context.WithTimeout(ctx, opts.HopTimeout)
		err := d.client.Stream(hopCtx, req.Endpoints[sess.Active], outbound, func(frame json.RawMessage) error {
			hop.frames++
			ev := protocol.Classify(frame)

			entry := domain.TranscriptEntry{
				Ts:          time.Now(),
				Origin:      sess.Active,
				Destination: sess.Peer,
				Kind:        ev.Kind,
				Text:        protocol.DisplayText(ev),
				Event:       ev,
			}
			if ev.Kind == domain.EventKindMessage {
				entry.Role = ev.Message.Role
			}
			idx := log.Append(entry)

			switch ev.Kind {
			case domain.EventKindMessage:
				text := strings.TrimSpace(protocol.RelayText(ev.Message.Parts))
				dirs := policy.ParseDirectives(ev.Message.Metadata)
				hop.msgIdx = idx
				hop.relayText = text
				hop.decision = d.policy.Evaluate(hopCtx, policy.Input{
					OptOut:          !dirs.AllowRelay,
					Text:            text,
					RequestedTarget: dirs.Target,
					KnownLabels:     labels,
					Origin:          sess.Active,
					Hop:             sess.Hops,
				})

			case domain.EventKindStatus:
				if ev.Status.Final || ev.Status.Status.State.Terminal() {
					hop.terminal = true
					return errStopHop
				}
			}

			if hop.frames >= opts.FrameCeiling {
				hop.ceiling = true
				return errStopHop
			}
			return nil
		})
		cancel()

		if err != nil && !errors.Is(err, errStopHop) {
			if ctx.Err() != nil {
				d.appendError(log, sess, "session cancelled")
				return d.terminate(sess, domain.ReasonCancelled), nil
			}
			if errors.Is(hopCtx.Err(), context.DeadlineExceeded) {
				d.appendError(log, sess, fmt.Sprintf("hop %d exceeded the time ceiling", sess.Hops+1))
				sess.Hops++
				return d.terminate(sess, domain.ReasonFrameCeiling), nil
			}
			d.appendError(log, sess, fmt.Sprintf("%s stream error: %v", sess.Active, err))
			sess.Hops++
			return d.terminate(sess, domain.ReasonTransportError), nil
		}

		sess.Hops++

		// Terminal condition priority: peer-terminal > ceiling > hop
		// limit > no-relay.
		switch {
		case hop.terminal:
			return d.terminate(sess, domain.ReasonPeerTerminalState), nil
		case hop.ceiling:
			d.appendError(log, sess, fmt.Sprintf("frame ceiling reached after %d frames", hop.frames))
			return d.terminate(sess, domain.ReasonFrameCeiling), nil
		case sess.Hops >= opts.HopLimit:
			return d.terminate(sess, domain.ReasonHopLimit), nil
		case hop.msgIdx < 0 || hop.relayText == "" || !hop.decision.Allow:
			return d.terminate(sess, domain.ReasonNoRelay), nil
		}

		log.MarkRelayed(hop.msgIdx)
		outbound = domain.OutboundMessage{Role: "user", Text: hop.relayText}

		next := sess.Peer
		if hop.decision.Target != "" {
			next = hop.decision.Target
		}
		prev := sess.Active
		sess.Active = next
		sess.Peer = peerOf(labels, next, prev)

		d.logger.Debug("relaying",
			"session_id", sess.SessionID,
			"hop", sess.Hops,
			"from", prev,
			"to", sess.Active)
	}
}

func (d *Driver) terminate(sess *domain.ConversationSession, reason domain.TerminalReason) *domain.ConversationSession {
	now := time.Now()
	sess.Status = domain.SessionStatusTerminal
	sess.Reason = reason
	sess.EndedAt = &now
	d.logger.Info("session terminal",
		"session_id", sess.SessionID,
		"reason", reason,
		"hops", sess.Hops)
	return sess
}

func (d *Driver) appendError(log *transcript.Log, sess *domain.ConversationSession, text string) {
	log.Append(domain.TranscriptEntry{
		Ts:     time.Now(),
		Origin: sess.Active,
		Kind:   domain.EventKindError,
		Text:   text,
		Event:  domain.ProtocolEvent{Kind: domain.EventKindError},
	})
}

func sortedLabels(endpoints map[string]domain.AgentEndpoint) []string {
	labels := make([]string, 0, len(endpoints))
	for label := range endpoints {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// peerOf picks the peer for the given active speaker. With two endpoints it
// is always the other one; with more, the previous speaker is preferred so
// an explicitly targeted agent answers back to whoever addressed it.
func peerOf(labels []string, active, prev string) string {
	if prev != "" && prev != active {
		return prev
	}
	for _, label := range labels {
		if label != active {
			return label
		}
	}
	return ""
}
