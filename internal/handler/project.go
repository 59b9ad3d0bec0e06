package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Omvpatil/RealEstate/internal/model"
	"github.com/Omvpatil/RealEstate/internal/repository"
	"github.com/Omvpatil/RealEstate/internal/service"
)

// ProjectHandler serves public browsing and builder management of projects
// and units.
type ProjectHandler struct {
	Svc *service.ProjectService
	Log *logrus.Entry
}

func NewProjectHandler(svc *service.ProjectService, log *logrus.Entry) *ProjectHandler {
	return &ProjectHandler{Svc: svc, Log: log}
}

// ----- DTOs -----

type projectReq struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Type        string          `json:"project_type"`
	Status      string          `json:"status"`
	City        string          `json:"city"`
	TotalUnits  int             `json:"total_units"`
	Amenities   json.RawMessage `json:"amenities"`
}

type projectPatchReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	TotalUnits  *int    `json:"total_units"`
}

type unitReq struct {
	UnitNumber string          `json:"unit_number"`
	UnitType   string          `json:"unit_type"`
	Floor      int             `json:"floor"`
	AreaSqft   decimal.Decimal `json:"area_sqft"`
	Price      decimal.Decimal `json:"price"`
}

type unitPatchReq struct {
	UnitNumber *string          `json:"unit_number"`
	Price      *decimal.Decimal `json:"price"`
	AreaSqft   *decimal.Decimal `json:"area_sqft"`
}

// ----- public -----

// List handles GET /projects?city=&status=&builder_id=&limit=&offset=.
func (h *ProjectHandler) List(c echo.Context) error {
	f := repository.ProjectFilter{
		City:   strings.TrimSpace(c.QueryParam("city")),
		Status: model.ProjectStatus(strings.ToLower(c.QueryParam("status"))),
		Limit:  queryInt(c, "limit", 20),
		Offset: queryInt(c, "offset", 0),
	}
	if f.Status != "" && !f.Status.Valid() {
		return badRequest(c, "unknown status")
	}
	if bid, ok := queryID(c, "builder_id"); ok {
		f.BuilderID = bid
	}
	items, err := h.Svc.ListProjects(c.Request().Context(), f)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// Get handles GET /projects/:id.
func (h *ProjectHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid project id")
	}
	p, err := h.Svc.GetProject(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Units handles GET /projects/:id/units?available=true.
func (h *ProjectHandler) Units(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid project id")
	}
	onlyAvailable, _ := strconv.ParseBool(c.QueryParam("available"))
	units, err := h.Svc.ListUnits(c.Request().Context(), id, onlyAvailable)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": units, "count": len(units)})
}

// ----- builder -----

// Create handles POST /builder/projects.
func (h *ProjectHandler) Create(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var req projectReq
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := h.Svc.CreateProject(c.Request().Context(), actor, service.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        model.ProjectType(strings.ToLower(req.Type)),
		Status:      model.ProjectStatus(strings.ToLower(req.Status)),
		City:        req.City,
		TotalUnits:  req.TotalUnits,
		Amenities:   req.Amenities,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// ListOwn handles GET /builder/projects.
func (h *ProjectHandler) ListOwn(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	items, err := h.Svc.ListOwnProjects(c.Request().Context(), actor, queryInt(c, "limit", 20), queryInt(c, "offset", 0))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// Patch handles PATCH /builder/projects/:id.
func (h *ProjectHandler) Patch(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid project id")
	}
	var req projectPatchReq
	if err := bind(c, &req); err != nil {
		return err
	}
	patch := service.ProjectPatch{
		Name:        req.Name,
		Description: req.Description,
		TotalUnits:  req.TotalUnits,
	}
	if req.Status != nil {
		st := model.ProjectStatus(strings.ToLower(*req.Status))
		patch.Status = &st
	}
	p, err := h.Svc.PatchProject(c.Request().Context(), actor, id, patch)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Delete handles DELETE /builder/projects/:id and reports how many
// dependent rows went with the project.
func (h *ProjectHandler) Delete(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid project id")
	}
	res, err := h.Svc.DeleteProject(c.Request().Context(), actor, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": res})
}

// CreateUnit handles POST /builder/projects/:id/units.
func (h *ProjectHandler) CreateUnit(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid project id")
	}
	var req unitReq
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.Svc.CreateUnit(c.Request().Context(), actor, id, service.UnitInput{
		UnitNumber: req.UnitNumber,
		UnitType:   req.UnitType,
		Floor:      req.Floor,
		AreaSqft:   req.AreaSqft,
		Price:      req.Price,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// PatchUnit handles PATCH /builder/units/:id.
func (h *ProjectHandler) PatchUnit(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid unit id")
	}
	var req unitPatchReq
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.Svc.PatchUnit(c.Request().Context(), actor, id, service.UnitPatch{
		UnitNumber: req.UnitNumber,
		Price:      req.Price,
		AreaSqft:   req.AreaSqft,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}
