package diagnostictest

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ValidationResponse is the 400 body returned when a payload fails validation.
type ValidationResponse struct {
	Message string           `json:"message"`
	Errors  ValidationErrors `json:"errors"`
}

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/tests", h.ListDiagnosticTests)
	api.GET("/tests/:id", h.GetDiagnosticTest)
	api.POST("/tests", h.CreateDiagnosticTest)
	api.PUT("/tests/:id", h.UpdateDiagnosticTest)
	api.DELETE("/tests/:id", h.DeleteDiagnosticTest)
}

func (h *Handler) CreateDiagnosticTest(c echo.Context) error {
	cand, err := h.bindCandidate(c)
	if err != nil {
		return err
	}
	if cand == nil {
		return nil
	}
	d, err := h.svc.CreateDiagnosticTest(c.Request().Context(), cand)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDiagnosticTest(c echo.Context) error {
	d, err := h.svc.GetDiagnosticTest(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDiagnosticTests(c echo.Context) error {
	var opts ListOptions
	switch c.QueryParam("orderBy") {
	case "":
	case "testDate":
		opts.OrderByTestDateDesc = true
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unsupported orderBy")
	}
	items, err := h.svc.ListDiagnosticTests(c.Request().Context(), opts)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateDiagnosticTest(c echo.Context) error {
	cand, err := h.bindCandidate(c)
	if err != nil {
		return err
	}
	if cand == nil {
		return nil
	}
	d, err := h.svc.UpdateDiagnosticTest(c.Request().Context(), c.Param("id"), cand)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDiagnosticTest(c echo.Context) error {
	d, err := h.svc.DeleteDiagnosticTest(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// bindCandidate decodes and validates the request body. When validation
// fails it writes the 400 response itself and returns a nil candidate.
func (h *Handler) bindCandidate(c echo.Context) (*Candidate, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return nil, he
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}
	var raw any
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}
	cand, verrs := Validate(raw)
	if len(verrs) > 0 {
		return nil, c.JSON(http.StatusBadRequest, ValidationResponse{
			Message: "Validation failed",
			Errors:  verrs,
		})
	}
	return cand, nil
}

// fail maps service errors onto HTTP errors. Storage causes are logged and
// replaced with a generic message.
func (h *Handler) fail(c echo.Context, err error) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Test not found")
	}
	rid, _ := c.Get("request_id").(string)
	evt := h.logger.Error().Err(err).Str("request_id", rid)
	var se *StorageError
	if errors.As(err, &se) {
		evt = evt.Str("op", se.Op)
	}
	evt.Msg("diagnostic test storage failure")
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
}
