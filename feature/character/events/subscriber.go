// Package events consumes remote character state-change messages from NATS
// and applies them through the character service.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"character-sync/core/messaging"
	"character-sync/core/reconcile"
	"character-sync/core/retry"
	"character-sync/core/syncerr"
	"character-sync/core/versioning"
	"character-sync/feature/character"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Applier is the subset of character.Service the subscriber drives.
type Applier interface {
	ApplyChanges(ctx context.Context, id uuid.UUID, changes map[string]any, baseVersion *int) (versioning.StateVersion, bool, error)
	Sync(ctx context.Context, id uuid.UUID, baseState map[string]any, changes []reconcile.StateChange) (*character.SyncResult, error)
}

// Message is a remote state change. Either Changes (a partial document,
// optionally against BaseVersion) or StateChanges (field-level changes
// replayed against live state) is set.
type Message struct {
	CharacterID  string                  `json:"character_id"`
	Changes      map[string]any          `json:"changes,omitempty"`
	BaseVersion  *int                    `json:"base_version,omitempty"`
	BaseState    map[string]any          `json:"base_state,omitempty"`
	StateChanges []reconcile.StateChange `json:"state_changes,omitempty"`
}

// Reply is sent back on request/reply subjects.
type Reply struct {
	Version     int    `json:"version,omitempty"`
	HadConflict bool   `json:"had_conflict"`
	Applied     int    `json:"applied"`
	Skipped     int    `json:"skipped"`
	Error       string `json:"error,omitempty"`
	Kind        string `json:"kind,omitempty"`
}

// Subscriber consumes Messages from one subject in a queue group.
type Subscriber struct {
	conn    *nats.Conn
	cfg     messaging.Config
	applier Applier
	policy  retry.Policy
	timeout time.Duration
	logger  *zap.Logger

	sub *nats.Subscription
}

// NewSubscriber creates a subscriber. conn may be nil for Handle-only use.
func NewSubscriber(conn *nats.Conn, cfg messaging.Config, applier Applier, logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{
		conn:    conn,
		cfg:     cfg,
		applier: applier,
		policy:  retry.NewPolicy(retry.BackoffLinear, cfg.RetryDelay, 10*cfg.RetryDelay, cfg.MaxRetries),
		timeout: 10 * time.Second,
		logger:  logger.With(zap.String("subject", cfg.Subject)),
	}
}

// Start subscribes to the configured subject.
func (s *Subscriber) Start() error {
	if s.conn == nil {
		return fmt.Errorf("no NATS connection")
	}
	sub, err := s.conn.QueueSubscribe(s.cfg.Subject, s.cfg.Queue, s.onMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.cfg.Subject, err)
	}
	s.sub = sub
	s.logger.Info("Subscribed to character changes", zap.String("queue", s.cfg.Queue))
	return nil
}

// Stop drains the subscription so in-flight messages finish.
func (s *Subscriber) Stop() error {
	if s.sub == nil {
		return nil
	}
	err := s.sub.Drain()
	s.sub = nil
	return err
}

func (s *Subscriber) onMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	reply := s.Handle(ctx, msg.Data)
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		s.logger.Error("Failed to encode reply", zap.Error(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Warn("Failed to send reply", zap.Error(err))
	}
}

// Handle decodes and applies one message.
//
// Field-level StateChanges are retried on state conflicts with the retry
// policy: every attempt reconciles against fresh live state, so stale
// changes are skipped rather than forced. Partial documents are applied
// once and a conflict is returned to the sender.
func (s *Subscriber) Handle(ctx context.Context, data []byte) Reply {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return s.errorReply("", syncerr.Validation("invalid message: %v", err))
	}
	id, err := uuid.Parse(msg.CharacterID)
	if err != nil {
		return s.errorReply(msg.CharacterID, syncerr.Validation("invalid character id %q", msg.CharacterID))
	}

	if len(msg.StateChanges) > 0 {
		var result *character.SyncResult
		err := s.policy.Do(ctx, syncerr.IsConflict, func(attempt int) error {
			if attempt > 0 {
				s.logger.Info("Retrying conflicting sync",
					zap.String("character_id", msg.CharacterID),
					zap.Int("attempt", attempt))
			}
			var err error
			result, err = s.applier.Sync(ctx, id, msg.BaseState, msg.StateChanges)
			return err
		})
		if err != nil {
			return s.errorReply(msg.CharacterID, err)
		}
		return Reply{
			Version:     result.Version,
			HadConflict: result.HadConflict,
			Applied:     len(result.Applied),
			Skipped:     len(result.Skipped),
		}
	}

	if len(msg.Changes) == 0 {
		return s.errorReply(msg.CharacterID, syncerr.Validation("message carries no changes"))
	}
	v, hadConflict, err := s.applier.ApplyChanges(ctx, id, msg.Changes, msg.BaseVersion)
	if err != nil {
		return s.errorReply(msg.CharacterID, err)
	}
	return Reply{Version: v.Version, HadConflict: hadConflict, Applied: len(msg.Changes)}
}

func (s *Subscriber) errorReply(characterID string, err error) Reply {
	kind := syncerr.KindOf(err)
	if kind == syncerr.KindInternal {
		s.logger.Error("Failed to apply character change", zap.String("character_id", characterID), zap.Error(err))
	} else {
		s.logger.Info("Rejected character change",
			zap.String("character_id", characterID),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
	return Reply{Error: err.Error(), Kind: string(kind)}
}
