package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/eduva-go-api/internal/dto"
	"github.com/noah-isme/eduva-go-api/internal/models"
	"github.com/noah-isme/eduva-go-api/internal/repository"
)

// AuditActor is the authenticated user performing an audited action.
type AuditActor struct {
	ID   uint
	Role string
}

// AuditEntry captures the details required to persist one audit event.
type AuditEntry struct {
	ActorID    uint
	ActorRole  string
	Action     string
	EntityType string
	EntityID   *uint
	Metadata   map[string]interface{}
}

// AuditRecorder defines behaviour for recording audit events. Services hold
// it nil-safe: a nil recorder drops the entry.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// AuditService exposes recording and querying of the audit trail.
type AuditService interface {
	AuditRecorder
	ListRecent(ctx context.Context, actorID *uint, limit int) ([]dto.AuditEventResponse, error)
}

type auditService struct {
	repo   repository.AuditRepository
	logger zerolog.Logger
}

// NewAuditService constructs the audit service.
func NewAuditService(repo repository.AuditRepository, logger zerolog.Logger) AuditService {
	return &auditService{
		repo:   repo,
		logger: logger.With().Str("component", "audit_service").Logger(),
	}
}

func (s *auditService) Record(ctx context.Context, entry AuditEntry) error {
	if strings.TrimSpace(entry.Action) == "" {
		return fmt.Errorf("action is required")
	}
	if strings.TrimSpace(entry.EntityType) == "" {
		return fmt.Errorf("entity type is required")
	}

	event := models.AuditEvent{
		ActorID:    entry.ActorID,
		ActorRole:  strings.ToLower(strings.TrimSpace(entry.ActorRole)),
		Action:     strings.ToLower(strings.TrimSpace(entry.Action)),
		EntityType: strings.ToLower(strings.TrimSpace(entry.EntityType)),
		EntityID:   entry.EntityID,
		Metadata:   entry.Metadata,
	}

	if err := s.repo.Create(ctx, &event); err != nil {
		s.logger.Error().Err(err).Str("action", event.Action).Msg("failed to persist audit event")
		return err
	}

	return nil
}

func (s *auditService) ListRecent(ctx context.Context, actorID *uint, limit int) ([]dto.AuditEventResponse, error) {
	events, err := s.repo.ListRecent(ctx, actorID, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AuditEventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, dto.NewAuditEventResponse(event))
	}

	return responses, nil
}

// recordAudit drops the entry silently when no recorder is configured. Audit
// failures never fail the underlying operation.
func recordAudit(ctx context.Context, recorder AuditRecorder, entry AuditEntry) {
	if recorder == nil {
		return
	}
	_ = recorder.Record(ctx, entry)
}
