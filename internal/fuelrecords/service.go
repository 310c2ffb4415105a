package fuelrecords

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetops-backend/internal/cascade"
	"github.com/angelmondragon/fleetops-backend/pkg/auth"
	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetops-backend/pkg/errors"
)

// editorRoles may record fuel draws and fill in ledger volumes.
var editorRoles = []enums.UserRole{
	enums.UserRoleSuperAdmin,
	enums.UserRoleAdmin,
	enums.UserRoleManager,
	enums.UserRoleSupervisor,
	enums.UserRoleFuelOrderMaker,
	enums.UserRoleFuelAttendant,
}

// Service exposes fuel record reads and manual ledger edits.
type Service interface {
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.FuelRecord, error)
	ListTruckJourneys(ctx context.Context, actor auth.Actor, truckNo string) ([]models.FuelRecord, error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*UpdateResult, error)
}

// UpdateInput is a manual ledger edit. Checkpoints are keyed by their JSON names.
type UpdateInput struct {
	TotalLiters *decimal.Decimal
	ExtraLiters *decimal.Decimal
	Checkpoints map[string]decimal.Decimal
}

// UpdateResult returns the saved ledger and what the edit cascaded into.
type UpdateResult struct {
	Record  *models.FuelRecord `json:"fuelRecord"`
	Cascade cascade.Result     `json:"cascade"`
}

type service struct {
	repo   Repository
	runner *cascade.Runner
}

// NewService wires fuel record dependencies.
func NewService(repo Repository, runner *cascade.Runner) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fuel record repository required")
	}
	if runner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cascade runner required")
	}
	return &service{repo: repo, runner: runner}, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.FuelRecord, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fuel record id required")
	}
	return s.load(ctx, s.repo, id)
}

func (s *service) ListTruckJourneys(ctx context.Context, actor auth.Actor, truckNo string) ([]models.FuelRecord, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	truckNo = strings.TrimSpace(truckNo)
	if truckNo == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "truck number required")
	}
	records, err := s.repo.ListByTruck(ctx, truckNo)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list truck journeys")
	}
	if records == nil {
		records = []models.FuelRecord{}
	}
	return records, nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*UpdateResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !slices.Contains(editorRoles, actor.Role) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot edit fuel records")
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fuel record id required")
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	current, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	var saved *models.FuelRecord
	res, err := s.runner.Run(ctx, actor, []string{current.TruckNo}, func(ctx context.Context, tx *gorm.DB) (cascade.Result, error) {
		repo := s.repo.WithTx(tx)
		record, err := s.load(ctx, repo, id)
		if err != nil {
			return cascade.Result{}, err
		}
		out, err := s.runner.Coordinator().ApplyLedgerUpdate(ctx, cascade.Store{Ledgers: repo}, record, cascade.LedgerPatch{
			TotalLiters: input.TotalLiters,
			ExtraLiters: input.ExtraLiters,
			Checkpoints: input.Checkpoints,
		}, actor)
		if err != nil {
			return cascade.Result{}, err
		}
		saved = record
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return &UpdateResult{Record: saved, Cascade: res}, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.FuelRecord, error) {
	record, err := repo.FindByID(ctx, id)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fuel record")
	}
	return record, nil
}

func validateInput(input UpdateInput) error {
	if input.TotalLiters == nil && input.ExtraLiters == nil && len(input.Checkpoints) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	if input.TotalLiters != nil && input.TotalLiters.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "totalLiters must not be negative")
	}
	if input.ExtraLiters != nil && input.ExtraLiters.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "extraLiters must not be negative")
	}
	for name := range input.Checkpoints {
		if !slices.Contains(models.CheckpointNames, name) {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown checkpoint "+name)
		}
	}
	return nil
}

func requireActor(actor auth.Actor) error {
	if actor.Username == "" || !actor.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	return nil
}
