package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/vendorbox-backend/pkg/db"
	"github.com/angelmondragon/vendorbox-backend/pkg/db/models"
	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorbox-backend/pkg/errors"
	"github.com/angelmondragon/vendorbox-backend/pkg/logger"
)

// Action describes what UpdateMachineAlerts did to the machine's alert.
type Action string

const (
	ActionNone     Action = "none"
	ActionCreated  Action = "created"
	ActionReplaced Action = "replaced"
	ActionUpdated  Action = "updated"
	ActionResolved Action = "resolved"
)

// Outcome reports the alert state of one machine after an update.
type Outcome struct {
	MachineID  uuid.UUID
	Action     Action
	Assessment Assessment
	Alert      *models.Alert
}

// Service is the single writer of alert rows.
type Service struct {
	uow  dbpkg.UnitOfWork
	repo Repository
	calc Calculator
	logg *logger.Logger
	now  func() time.Time
}

// ServiceParams wires a Service.
type ServiceParams struct {
	UnitOfWork dbpkg.UnitOfWork
	Repository Repository
	Calculator Calculator
	Logger     *logger.Logger
	Now        func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.UnitOfWork == nil {
		return nil, fmt.Errorf("unit of work required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("alert repository required")
	}
	calc := params.Calculator
	if calc.totalSlots == 0 {
		calc = NewCalculator(0, 0)
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		uow:  params.UnitOfWork,
		repo: params.Repository,
		calc: calc,
		logg: params.Logger,
		now:  now,
	}, nil
}

// UpdateMachineAlerts recomputes the machine's alert and reconciles the stored
// row. The machine row is locked for the read-then-write so concurrent callers
// serialize and at most one alert stays active.
func (s *Service) UpdateMachineAlerts(ctx context.Context, tx *gorm.DB, machineID uuid.UUID) (Outcome, error) {
	out := Outcome{MachineID: machineID, Action: ActionNone}
	err := dbpkg.InTx(ctx, s.uow, tx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.LockMachine(ctx, machineID); err != nil {
			if dbpkg.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "machine not found")
			}
			return err
		}
		stocks, err := repo.ListStocksByMachine(ctx, machineID)
		if err != nil {
			return err
		}
		assessment := s.calc.Assess(stocks)
		out.Assessment = assessment

		active, err := repo.ListActiveByMachine(ctx, machineID)
		if err != nil {
			return err
		}
		var current *models.Alert
		if len(active) > 0 {
			current = &active[0]
		}
		now := s.now()

		if !assessment.Needed() {
			if current == nil {
				return nil
			}
			if _, err := repo.Close(ctx, current.ID, enums.AlertStatusResolved, now); err != nil {
				return err
			}
			out.Action = ActionResolved
			return nil
		}

		metadata, err := json.Marshal(assessment.Metadata())
		if err != nil {
			return err
		}
		message := assessment.Message()
		wantType := assessment.Priority.AlertType()

		if current != nil && current.Type == wantType {
			if current.Message == message {
				out.Alert = current
				return nil
			}
			level := assessment.Priority.Level()
			if err := repo.UpdateContent(ctx, current.ID, level, assessment.StockID, message, metadata); err != nil {
				return err
			}
			current.Level = level
			current.StockID = assessment.StockID
			current.Message = message
			current.Metadata = metadata
			out.Action = ActionUpdated
			out.Alert = current
			return nil
		}

		out.Action = ActionCreated
		if current != nil {
			if _, err := repo.Close(ctx, current.ID, enums.AlertStatusResolved, now); err != nil {
				return err
			}
			out.Action = ActionReplaced
		}
		alert := &models.Alert{
			MachineID: machineID,
			StockID:   assessment.StockID,
			Type:      wantType,
			Level:     assessment.Priority.Level(),
			Status:    enums.AlertStatusOpen,
			IsActive:  true,
			Message:   message,
			Metadata:  metadata,
		}
		if err := repo.Create(ctx, alert); err != nil {
			if dbpkg.IsUniqueViolation(err, "alerts_one_active_per_machine") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "machine already has an active alert")
			}
			return err
		}
		out.Alert = alert
		return nil
	})
	if err != nil {
		return Outcome{MachineID: machineID, Action: ActionNone}, err
	}
	return out, nil
}

// Refresh runs UpdateMachineAlerts for each machine in its own transaction.
// Failures are logged and never returned: an alert refresh must not fail the
// stock change that triggered it.
func (s *Service) Refresh(ctx context.Context, machineIDs ...uuid.UUID) {
	for _, id := range machineIDs {
		if id == uuid.Nil {
			continue
		}
		if _, err := s.UpdateMachineAlerts(ctx, nil, id); err != nil && s.logg != nil {
			s.logg.Error(s.logg.WithMachineID(ctx, id.String()), "alert refresh failed", err)
		}
	}
}

// CleanupDuplicateAlerts resolves all but the newest active alert on any
// machine that holds more than one. It returns how many alerts were resolved.
func (s *Service) CleanupDuplicateAlerts(ctx context.Context) (int, error) {
	machines, err := s.repo.ListMachinesWithDuplicateActive(ctx)
	if err != nil {
		return 0, err
	}
	resolved := 0
	for _, machineID := range machines {
		err := s.uow.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			active, err := repo.ListActiveByMachine(ctx, machineID)
			if err != nil {
				return err
			}
			now := s.now()
			for _, extra := range active[1:] {
				changed, err := repo.Close(ctx, extra.ID, enums.AlertStatusResolved, now)
				if err != nil {
					return err
				}
				if changed {
					resolved++
				}
			}
			return nil
		})
		if err != nil {
			return resolved, fmt.Errorf("dedupe alerts for machine %s: %w", machineID, err)
		}
		if s.logg != nil {
			s.logg.Warn(s.logg.WithMachineID(ctx, machineID.String()), "resolved duplicate active alerts")
		}
	}
	return resolved, nil
}

// Recalculation summarizes a RecalculateAllMachineAlerts pass.
type Recalculation struct {
	Machines int            `json:"machines"`
	Actions  map[Action]int `json:"actions"`
	Errors   []string       `json:"errors"`
}

// RecalculateAllMachineAlerts re-runs UpdateMachineAlerts for every machine,
// one at a time. A failing machine is recorded and the pass continues.
func (s *Service) RecalculateAllMachineAlerts(ctx context.Context) (Recalculation, error) {
	out := Recalculation{Actions: map[Action]int{}, Errors: []string{}}
	ids, err := s.repo.ListMachineIDs(ctx)
	if err != nil {
		return out, err
	}
	for _, id := range ids {
		outcome, err := s.UpdateMachineAlerts(ctx, nil, id)
		out.Machines++
		if err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("machine %s: %v", id, err))
			continue
		}
		out.Actions[outcome.Action]++
	}
	return out, nil
}

// Resolve closes an active alert on an operator's request.
func (s *Service) Resolve(ctx context.Context, alertID uuid.UUID) error {
	return s.close(ctx, alertID, enums.AlertStatusResolved)
}

// Dismiss closes an active alert as ignored.
func (s *Service) Dismiss(ctx context.Context, alertID uuid.UUID) error {
	return s.close(ctx, alertID, enums.AlertStatusIgnored)
}

func (s *Service) close(ctx context.Context, alertID uuid.UUID, status enums.AlertStatus) error {
	return s.uow.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		alert, err := repo.FindByID(ctx, alertID)
		if err != nil {
			if dbpkg.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "alert not found")
			}
			return err
		}
		if !alert.IsActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "alert is not active")
		}
		_, err = repo.Close(ctx, alert.ID, status, s.now())
		return err
	})
}

// Summary reports the active alert picture across all machines.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(active), nil
}
