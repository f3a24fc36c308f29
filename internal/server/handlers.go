package server

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"

	"github.com/phcore/validator/pkg/issue"
	"github.com/phcore/validator/pkg/store"
	"github.com/phcore/validator/pkg/validator"
)

type validateRequest struct {
	Resource map[string]any `json:"resource"`
	Profile  string         `json:"profile,omitempty"`
	Verbose  bool           `json:"verbose,omitempty"`
}

func (s *Server) capabilities(c echo.Context) error {
	kinds := s.resources.Kinds()
	resources := make([]any, 0, len(kinds))
	for _, kind := range kinds {
		resources = append(resources, map[string]any{
			"type": kind,
			"interaction": []any{
				map[string]any{"code": "read"},
				map[string]any{"code": "search-type"},
			},
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"resourceType": "CapabilityStatement",
		"id":           "phcore-validation-server",
		"status":       "active",
		"kind":         "instance",
		"software": map[string]any{
			"name":    "PHCore FHIR Validation Server",
			"version": s.opts.Version,
		},
		"implementation": map[string]any{
			"description": "PHCore FHIR Validation Server",
			"url":         s.opts.PublicURL + s.opts.BasePath,
		},
		"fhirVersion": "4.0.1",
		"format":      []any{"json"},
		"rest": []any{map[string]any{
			"mode":     "server",
			"resource": resources,
		}},
	})
}

// validate answers 200 for a valid document and 400 otherwise.
func (s *Server) validate(c echo.Context) error {
	req, err := decodeValidateRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorOutcome(string(issue.CodeInvalid), err.Error()))
	}

	out, err := s.run(c, req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorOutcome(string(issue.CodeException), err.Error()))
	}

	status := http.StatusOK
	if !out.Valid {
		status = http.StatusBadRequest
	}
	return c.JSON(status, out.OperationOutcome())
}

// playgroundValidate answers with the compact summary and always 200
// unless the request itself is unusable.
func (s *Server) playgroundValidate(c echo.Context) error {
	req, err := decodeValidateRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorOutcome(string(issue.CodeInvalid), err.Error()))
	}

	out, err := s.run(c, req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorOutcome(string(issue.CodeException), err.Error()))
	}
	return c.JSON(http.StatusOK, out.Summary())
}

func (s *Server) run(c echo.Context, req validateRequest) (*validator.Outcome, error) {
	ctx := c.Request().Context()
	if req.Verbose {
		return s.validator.ValidateVerbose(ctx, req.Resource, req.Profile)
	}
	return s.validator.Validate(ctx, req.Resource, req.Profile)
}

func decodeValidateRequest(c echo.Context) (validateRequest, error) {
	var req validateRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return req, errors.Wrap(err, "invalid request body")
	}
	if req.Resource == nil {
		return req, errors.New("request body must contain a resource object")
	}
	return req, nil
}

func (s *Server) listProfiles(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"profiles": s.profiles.Profiles()})
}

func (s *Server) metrics(c echo.Context) error {
	return c.JSON(http.StatusOK, s.opts.Metrics.Snapshot())
}

func (s *Server) search(c echo.Context) error {
	kind := c.Param("kind")
	found := s.resources.ByKind(kind)
	if len(found) == 0 {
		return c.JSON(http.StatusNotFound, errorOutcome(string(issue.CodeNotFound), "No resources found for type: "+kind))
	}

	entries := make([]any, 0, len(found))
	for _, res := range found {
		entries = append(entries, map[string]any{
			"fullUrl":  s.opts.PublicURL + s.opts.BasePath + "/" + res.Key(),
			"resource": res.Content,
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"resourceType": "Bundle",
		"id":           "search-" + kind,
		"type":         "searchset",
		"total":        len(found),
		"entry":        entries,
	})
}

func (s *Server) read(c echo.Context) error {
	kind, id := c.Param("kind"), c.Param("id")
	res, err := s.resources.Get(kind, id)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorOutcome(string(issue.CodeNotFound), "Resource not found: "+kind+"/"+id))
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorOutcome(string(issue.CodeException), err.Error()))
	}
	return c.JSON(http.StatusOK, res.Content)
}

func errorOutcome(code, text string) map[string]any {
	return map[string]any{
		"resourceType": "OperationOutcome",
		"issue": []any{map[string]any{
			"severity": string(issue.SeverityError),
			"code":     code,
			"details":  map[string]any{"text": text},
		}},
	}
}
