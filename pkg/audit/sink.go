package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/vendorbox-backend/pkg/db"
	"github.com/angelmondragon/vendorbox-backend/pkg/db/models"
	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
	"github.com/angelmondragon/vendorbox-backend/pkg/logger"
)

// Event is one append-only audit record.
type Event struct {
	Type          enums.AuditEventType
	AggregateType enums.AuditAggregateType
	AggregateID   uuid.UUID
	OrderID       *uuid.UUID
	Data          any
	OccurredAt    time.Time
}

// Recorder is the surface consumed by the ledger and the sweeps.
type Recorder interface {
	Record(ctx context.Context, tx *gorm.DB, event Event)
}

// Sink writes audit events. Writes are best-effort: failures are logged and
// never returned, and inside a transaction they are isolated by a savepoint so
// a failed insert cannot poison the caller's unit of work.
type Sink struct {
	repo *Repository
	logg *logger.Logger
}

func NewSink(repo *Repository, logg *logger.Logger) *Sink {
	return &Sink{repo: repo, logg: logg}
}

type envelope struct {
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

func (s *Sink) Record(ctx context.Context, tx *gorm.DB, event Event) {
	if s == nil || s.repo == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.record(ctx, tx, event); err != nil && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event_type":     event.Type,
			"aggregate_type": event.AggregateType,
			"aggregate_id":   event.AggregateID.String(),
		})
		s.logg.Error(logCtx, "audit event dropped", err)
	}
}

func (s *Sink) record(ctx context.Context, tx *gorm.DB, event Event) error {
	row, err := buildRow(event)
	if err != nil {
		return err
	}
	if tx == nil {
		tx = s.repo.db
	}
	tx = tx.WithContext(ctx)

	if !dbpkg.InTransaction(tx) {
		return s.repo.Insert(tx, row)
	}

	savepoint := "audit_" + strings.ReplaceAll(row.ID.String(), "-", "")
	if err := tx.SavePoint(savepoint).Error; err != nil {
		return fmt.Errorf("audit savepoint: %w", err)
	}
	if err := s.repo.Insert(tx, row); err != nil {
		if rbErr := tx.RollbackTo(savepoint).Error; rbErr != nil {
			return fmt.Errorf("audit insert: %v (rollback to savepoint: %w)", err, rbErr)
		}
		return err
	}
	return nil
}

func buildRow(event Event) (*models.AuditEvent, error) {
	if !event.Type.IsValid() {
		return nil, fmt.Errorf("invalid audit event type %q", event.Type)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(event.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal audit data: %w", err)
	}
	id := uuid.New()
	payload, err := json.Marshal(envelope{
		EventID:    id.String(),
		OccurredAt: event.OccurredAt,
		Data:       data,
	})
	if err != nil {
		return nil, err
	}
	return &models.AuditEvent{
		ID:            id,
		EventType:     event.Type,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		OrderID:       event.OrderID,
		Payload:       json.RawMessage(payload),
	}, nil
}
