package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/Omvpatil/RealEstate/internal/access"
	"github.com/Omvpatil/RealEstate/internal/metrics"
	"github.com/Omvpatil/RealEstate/internal/model"
	"github.com/Omvpatil/RealEstate/internal/repository"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return invalid(err)
	}
	return nil
}

type ProjectService struct {
	txRunner
	projects *repository.ProjectRepo
	units    *repository.UnitRepo
}

func NewProjectService(db *sql.DB, opts Options, m *metrics.Metrics, log *logrus.Entry) *ProjectService {
	return &ProjectService{
		txRunner: txRunner{db: db, timeout: opts.LockTimeout, metrics: m, log: log.WithField("component", "projects")},
		projects: repository.NewProjectRepo(db),
		units:    repository.NewUnitRepo(db),
	}
}

// ProjectInput is a new project.
type ProjectInput struct {
	Name        string              `validate:"required,max=255"`
	Description string              `validate:"max=5000"`
	Type        model.ProjectType   `validate:"required,oneof=residential commercial mixed"`
	Status      model.ProjectStatus `validate:"omitempty,oneof=planning construction completed delivered"`
	City        string              `validate:"required,max=100"`
	TotalUnits  int                 `validate:"gte=0,lte=100000"`
	Amenities   json.RawMessage
}

// ProjectPatch carries optional updates.  Nil fields are left unchanged.
type ProjectPatch struct {
	Name        *string              `validate:"omitempty,min=1,max=255"`
	Description *string              `validate:"omitempty,max=5000"`
	Status      *model.ProjectStatus `validate:"omitempty,oneof=planning construction completed delivered"`
	TotalUnits  *int                 `validate:"omitempty,gte=0,lte=100000"`
}

func (p ProjectPatch) empty() bool {
	return p.Name == nil && p.Description == nil && p.Status == nil && p.TotalUnits == nil
}

// CreateProject stores a project owned by the acting builder.
func (s *ProjectService) CreateProject(ctx context.Context, actor access.Actor, in ProjectInput) (model.Project, error) {
	if err := access.RequireBuilder(actor); err != nil {
		return model.Project{}, err
	}
	in.Name, in.City = strings.TrimSpace(in.Name), strings.TrimSpace(in.City)
	if in.Status == "" {
		in.Status = model.ProjectPlanning
	}
	if err := validateStruct(in); err != nil {
		return model.Project{}, err
	}
	amenities := datatypes.JSON("[]")
	if len(in.Amenities) > 0 {
		if !json.Valid(in.Amenities) {
			return model.Project{}, invalid(errors.New("amenities must be valid JSON"))
		}
		amenities = datatypes.JSON(in.Amenities)
	}
	p := model.Project{
		BuilderID:   actor.BuilderID,
		Name:        in.Name,
		Description: in.Description,
		Type:        in.Type,
		Status:      in.Status,
		City:        in.City,
		TotalUnits:  in.TotalUnits,
		Amenities:   amenities,
	}
	if err := s.projects.Create(ctx, &p); err != nil {
		return model.Project{}, err
	}
	s.log.WithFields(logrus.Fields{"project_id": p.ID, "builder_id": p.BuilderID}).Info("project created")
	return p, nil
}

// GetProject returns a project for public display.
func (s *ProjectService) GetProject(ctx context.Context, id uint64) (model.Project, error) {
	p, err := s.projects.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, ErrProjectNotFound
	}
	return p, err
}

// ListProjects returns projects for public browsing.
func (s *ProjectService) ListProjects(ctx context.Context, f repository.ProjectFilter) ([]model.Project, error) {
	return s.projects.List(ctx, f)
}

// ListOwnProjects returns the acting builder's projects.
func (s *ProjectService) ListOwnProjects(ctx context.Context, actor access.Actor, limit, offset int) ([]model.Project, error) {
	if err := access.RequireBuilder(actor); err != nil {
		return nil, err
	}
	return s.projects.List(ctx, repository.ProjectFilter{BuilderID: actor.BuilderID, Limit: limit, Offset: offset})
}

// ownedProject loads a project and checks the actor owns it.
func (s *ProjectService) ownedProject(ctx context.Context, actor access.Actor, id uint64) (model.Project, error) {
	p, err := s.GetProject(ctx, id)
	if err != nil {
		return model.Project{}, err
	}
	if err := access.RequireBuilderOwnsProject(actor, p); err != nil {
		return model.Project{}, err
	}
	return p, nil
}

// PatchProject validates patch and merges it into the project.  Changing
// TotalUnits moves AvailableUnits by the same delta and is rejected if the
// new total is below the booked count or the number of existing units.
func (s *ProjectService) PatchProject(ctx context.Context, actor access.Actor, id uint64, patch ProjectPatch) (model.Project, error) {
	if err := validateStruct(patch); err != nil {
		return model.Project{}, err
	}
	if _, err := s.ownedProject(ctx, actor, id); err != nil {
		return model.Project{}, err
	}
	if patch.empty() {
		return s.GetProject(ctx, id)
	}

	var p model.Project
	err := s.withTx(ctx, "patch_project", func(ctx context.Context, tx *sql.Tx) error {
		var err error
		p, err = s.projects.GetByIDTx(ctx, tx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProjectNotFound
		}
		if err != nil {
			return err
		}
		if patch.Name != nil {
			p.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.Status != nil {
			p.Status = *patch.Status
		}
		if err := s.projects.UpdateTx(ctx, tx, &p); err != nil {
			return err
		}
		if patch.TotalUnits == nil || *patch.TotalUnits == p.TotalUnits {
			return nil
		}

		total := *patch.TotalUnits
		existing, err := s.units.CountByProjectTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if total < existing {
			return ErrUnitsBelowBooked
		}
		ok, err := s.projects.ResizeTx(ctx, tx, id, total)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnitsBelowBooked
		}
		p, err = s.projects.GetByIDTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return model.Project{}, err
	}
	return p, nil
}

// DeleteProject removes the project with its units, bookings, payments,
// change requests and appointments in one transaction.
func (s *ProjectService) DeleteProject(ctx context.Context, actor access.Actor, id uint64) (repository.CascadeResult, error) {
	if _, err := s.ownedProject(ctx, actor, id); err != nil {
		return repository.CascadeResult{}, err
	}
	var res repository.CascadeResult
	err := s.withTx(ctx, "delete_project", func(ctx context.Context, tx *sql.Tx) error {
		var err error
		res, err = s.projects.DeleteCascadeTx(ctx, tx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProjectNotFound
		}
		return err
	})
	if err != nil {
		return repository.CascadeResult{}, err
	}
	s.log.WithFields(logrus.Fields{"project_id": id, "units": res.Units, "bookings": res.Bookings, "payments": res.Payments}).
		Info("project deleted")
	return res, nil
}

// UnitInput is a new unit.
type UnitInput struct {
	UnitNumber string          `validate:"required,max=50"`
	UnitType   string          `validate:"required,oneof=1bhk 2bhk 3bhk 4bhk penthouse villa office shop"`
	Floor      int             `validate:"gte=0,lte=300"`
	AreaSqft   decimal.Decimal `validate:"-"`
	Price      decimal.Decimal `validate:"-"`
}

// UnitPatch carries optional unit updates.  Nil fields are left unchanged.
type UnitPatch struct {
	UnitNumber *string          `validate:"omitempty,min=1,max=50"`
	Price      *decimal.Decimal `validate:"-"`
	AreaSqft   *decimal.Decimal `validate:"-"`
}

// CreateUnit adds an available unit to a project.  A project never holds
// more units than its total_units.
func (s *ProjectService) CreateUnit(ctx context.Context, actor access.Actor, projectID uint64, in UnitInput) (model.Unit, error) {
	in.UnitNumber = strings.TrimSpace(in.UnitNumber)
	in.UnitType = strings.ToLower(strings.TrimSpace(in.UnitType))
	if err := validateStruct(in); err != nil {
		return model.Unit{}, err
	}
	if !isMoney(in.Price) {
		return model.Unit{}, invalid(errors.New("price must be greater than zero with at most two decimal places"))
	}
	if !isMoney(in.AreaSqft) {
		return model.Unit{}, invalid(errors.New("area_sqft must be greater than zero with at most two decimal places"))
	}
	if _, err := s.ownedProject(ctx, actor, projectID); err != nil {
		return model.Unit{}, err
	}

	u := model.Unit{
		ProjectID:  projectID,
		UnitNumber: in.UnitNumber,
		UnitType:   in.UnitType,
		Floor:      in.Floor,
		AreaSqft:   in.AreaSqft,
		Price:      in.Price,
	}
	err := s.withTx(ctx, "create_unit", func(ctx context.Context, tx *sql.Tx) error {
		// Serializes concurrent creates on the project before counting.
		err := s.projects.LockTx(ctx, tx, projectID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProjectNotFound
		}
		if err != nil {
			return err
		}
		p, err := s.projects.GetByIDTx(ctx, tx, projectID)
		if err != nil {
			return err
		}
		n, err := s.units.CountByProjectTx(ctx, tx, projectID)
		if err != nil {
			return err
		}
		if n >= p.TotalUnits {
			return ErrProjectFull
		}
		return s.units.CreateTx(ctx, tx, &u)
	})
	if err != nil {
		return model.Unit{}, err
	}
	return u, nil
}

// PatchUnit updates number, price or area of a unit that is still
// available.
func (s *ProjectService) PatchUnit(ctx context.Context, actor access.Actor, unitID uint64, patch UnitPatch) (model.Unit, error) {
	if err := validateStruct(patch); err != nil {
		return model.Unit{}, err
	}
	if patch.Price != nil && !isMoney(*patch.Price) {
		return model.Unit{}, invalid(errors.New("price must be greater than zero with at most two decimal places"))
	}
	if patch.AreaSqft != nil && !isMoney(*patch.AreaSqft) {
		return model.Unit{}, invalid(errors.New("area_sqft must be greater than zero with at most two decimal places"))
	}
	u, err := s.units.GetByID(ctx, unitID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Unit{}, ErrUnitNotFound
	}
	if err != nil {
		return model.Unit{}, err
	}
	if _, err := s.ownedProject(ctx, actor, u.ProjectID); err != nil {
		return model.Unit{}, err
	}
	if u.Status != model.UnitAvailable {
		return model.Unit{}, ErrUnitNotEditable
	}

	err = s.withTx(ctx, "patch_unit", func(ctx context.Context, tx *sql.Tx) error {
		if patch.UnitNumber != nil {
			u.UnitNumber = strings.TrimSpace(*patch.UnitNumber)
		}
		if patch.Price != nil {
			u.Price = *patch.Price
		}
		if patch.AreaSqft != nil {
			u.AreaSqft = *patch.AreaSqft
		}
		ok, err := s.units.UpdateDetailsTx(ctx, tx, &u)
		if err != nil || ok {
			return err
		}
		latest, err := s.units.GetByIDTx(ctx, tx, unitID)
		if err != nil {
			return err
		}
		if latest.Status != model.UnitAvailable {
			return ErrUnitNotEditable
		}
		return repository.ErrConflict
	})
	if err != nil {
		return model.Unit{}, err
	}
	return u, nil
}

// ListUnits returns a project's units, optionally only the available ones.
func (s *ProjectService) ListUnits(ctx context.Context, projectID uint64, onlyAvailable bool) ([]model.Unit, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.units.ListByProject(ctx, projectID, onlyAvailable)
}
