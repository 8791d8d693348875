package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/artpar/sage/domain/dedup"
	"github.com/artpar/sage/domain/sender"
	"github.com/artpar/sage/ports"
)

var (
	// ErrUnknownSender means the sender id is not in the senders spec.
	ErrUnknownSender = errors.New("unknown sender")
	// ErrNotAuthorized means the sender may not submit the package.
	ErrNotAuthorized = errors.New("sender not authorized for package")
	// ErrMethodNotAllowed means the submission channel is not allowed.
	ErrMethodNotAllowed = errors.New("submission method not allowed")
)

// SenderService checks who may submit what, gates repeated file content per
// sender, and reports overdue submissions.
type SenderService struct {
	specs       *SpecService
	store       ports.ProcessedStore
	clock       ports.Clock
	ids         ports.IDGenerator
	sendersPath string
	logger      zerolog.Logger
}

// NewSenderService creates a sender service reading the senders spec at
// sendersPath. The spec is re-read on every call so edits take effect
// without a restart.
func NewSenderService(
	specs *SpecService,
	store ports.ProcessedStore,
	clock ports.Clock,
	ids ports.IDGenerator,
	sendersPath string,
	logger zerolog.Logger,
) *SenderService {
	return &SenderService{
		specs:       specs,
		store:       store,
		clock:       clock,
		ids:         ids,
		sendersPath: sendersPath,
		logger:      logger.With().Str("component", "senders").Logger(),
	}
}

// Authorize verifies that senderID exists, may submit packageName, and may
// use the given channel. It returns the sender on success so callers can
// reach its configuration.
func (s *SenderService) Authorize(senderID, packageName string, method sender.Method) (*sender.Sender, error) {
	spec, err := s.specs.LoadSenders(s.sendersPath)
	if err != nil {
		return nil, err
	}
	snd, ok := spec.Find(senderID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSender, senderID)
	}
	if !snd.Authorized(packageName) {
		return nil, fmt.Errorf("%w: sender %q, package %q", ErrNotAuthorized, senderID, packageName)
	}
	if !snd.AllowsMethod(method) {
		return nil, fmt.Errorf("%w: sender %q, method %q", ErrMethodNotAllowed, senderID, method)
	}
	return snd, nil
}

// CheckContent hashes the artifact bytes and rejects content this sender has
// already submitted. The returned hash feeds RegisterContent after
// processing. Force bypasses the gate but still returns the hash.
func (s *SenderService) CheckContent(ctx context.Context, senderID string, data []byte, force bool) (string, error) {
	hash := dedup.HashBytes(data)
	if force {
		return hash, nil
	}
	prev, seen, err := s.store.SeenHash(ctx, senderID, hash)
	if err != nil {
		return "", fmt.Errorf("content check: %w", err)
	}
	if seen {
		return "", &DuplicateError{
			Key: senderID,
			Detail: fmt.Sprintf("identical content already submitted at %s",
				prev.ProcessedAt.Format("2006-01-02 15:04:05")),
		}
	}
	return hash, nil
}

// RegisterContent records a finished submission of hashed content by a
// sender. The upsert on (sender, hash) keeps repeated forced submissions as
// a single row with the latest outcome.
func (s *SenderService) RegisterContent(ctx context.Context, senderID, hash, key string, success bool, errMsg string) error {
	rec := dedup.Record{
		ID:          s.ids.New(),
		Key:         key,
		SenderID:    senderID,
		Hash:        hash,
		ProcessedAt: s.clock.Now(),
		Status:      dedup.StatusProcessed,
	}
	if !success {
		rec.Status = dedup.StatusError
		rec.ErrorMessage = errMsg
	}
	return s.store.Register(ctx, rec)
}

// Violation is one overdue submission finding.
type Violation struct {
	SenderID string `json:"sender_id"`
	Name     string `json:"name"`
	Message  string `json:"message"`
}

// Overdue reports deadline violations across all declared senders at the
// current clock time.
func (s *SenderService) Overdue() ([]Violation, error) {
	spec, err := s.specs.LoadSenders(s.sendersPath)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	var out []Violation
	for i := range spec.Senders {
		snd := &spec.Senders[i]
		for _, msg := range snd.DeadlineViolations(now) {
			out = append(out, Violation{SenderID: snd.ID, Name: snd.Name, Message: msg})
		}
	}
	return out, nil
}
