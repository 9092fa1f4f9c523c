// Package server exposes the restoration engine over HTTP. The facade is
// stateless: the caller ships its record collection in, the engine applies
// the stored snapshot, and the mutated collection travels back with the
// outcome.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"gearline/internal/domain"
	"gearline/internal/engine"
	"gearline/internal/guard"
	"gearline/internal/store"
)

// Lister is the optional snapshot-enumeration side of a store.
type Lister interface {
	List() ([]string, error)
}

// Config for the HTTP API handler.
type Config struct {
	Engine   *engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"invalid_identity"`
	Message string         `json:"message" example:"identity key failed validation"`
	Details map[string]any `json:"details,omitempty"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		switch status {
		case http.StatusBadRequest:
			code = "bad_request"
		case http.StatusUnauthorized:
			code = "unauthorized"
		case http.StatusNotFound:
			code = "not_found"
		case http.StatusTooManyRequests:
			code = "rate_limited"
		default:
			code = "internal"
		}
	}
	return &apiError{status: status, Body: apiErrorBody{Code: code, Message: message, Details: details}}
}

// New returns an HTTP handler exposing the Gearline API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Engine == nil {
		return nil, errors.New("server requires an engine")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Gearline API", engine.ModVersion)
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerRestore(group, cfg.Engine)
	registerSnapshots(group, cfg.Engine)
	return router, nil
}

type healthOutput struct {
	Body struct {
		Status  string `json:"status" example:"ok"`
		Version string `json:"version"`
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*healthOutput, error) {
		out := &healthOutput{}
		out.Body.Status = "ok"
		out.Body.Version = engine.ModVersion
		return out, nil
	})
}

type restoreInput struct {
	Body struct {
		Identity string      `json:"identity" example:"player-1"`
		Records  []apiRecord `json:"records"`
	}
}

type restoreOutput struct {
	Body struct {
		Outcome domain.RestoreOutcome `json:"outcome"`
		Records []apiRecord           `json:"records"`
	}
}

func registerRestore(api huma.API, eng *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "restore",
		Method:      http.MethodPost,
		Path:        "/restore",
		Summary:     "Apply the stored snapshot to the supplied record collection",
	}, func(ctx context.Context, input *restoreInput) (*restoreOutput, error) {
		records, err := toDomainRecords(input.Body.Records)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "", err.Error(), nil)
		}
		outcome := eng.TryRestore(ctx, input.Body.Identity, &records)
		if !outcome.Succeeded {
			switch outcome.FailKind {
			case domain.FailInput:
				return nil, newAPIError(http.StatusBadRequest, "", outcome.ErrorMessage, nil)
			case domain.FailRateLimited:
				return nil, newAPIError(http.StatusTooManyRequests, "", outcome.ErrorMessage, nil)
			case domain.FailNotFound:
				return nil, newAPIError(http.StatusNotFound, "", outcome.ErrorMessage, nil)
			}
			// Corrupt/transient/unexpected failures still carry a definitive
			// outcome; the collection is unchanged by contract.
		}
		wire, err := fromDomainRecords(records)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "", err.Error(), nil)
		}
		out := &restoreOutput{}
		out.Body.Outcome = outcome
		out.Body.Records = wire
		return out, nil
	})
}

type snapshotListOutput struct {
	Body struct {
		Identities []string `json:"identities"`
	}
}

type snapshotGetInput struct {
	Identity string `path:"identity" maxLength:"128"`
}

type snapshotGetOutput struct {
	Body struct {
		Identity  string `json:"identity"`
		SizeBytes int64  `json:"size_bytes"`
	}
}

type snapshotDeleteOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

func registerSnapshots(api huma.API, eng *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "snapshot-list",
		Method:      http.MethodGet,
		Path:        "/snapshots",
		Summary:     "List identities with a stored snapshot",
	}, func(ctx context.Context, _ *struct{}) (*snapshotListOutput, error) {
		lister, ok := eng.Store.(Lister)
		if !ok {
			return nil, newAPIError(http.StatusNotImplemented, "not_supported", "store does not support listing", nil)
		}
		keys, err := lister.List()
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "", err.Error(), nil)
		}
		out := &snapshotListOutput{}
		out.Body.Identities = keys
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "snapshot-get",
		Method:      http.MethodGet,
		Path:        "/snapshots/{identity}",
		Summary:     "Snapshot metadata for one identity",
	}, func(ctx context.Context, input *snapshotGetInput) (*snapshotGetOutput, error) {
		if !guard.IsValidIdentity(input.Identity) {
			return nil, newAPIError(http.StatusBadRequest, "invalid_identity", "identity key failed validation", nil)
		}
		size, err := eng.Store.SizeOf(input.Identity)
		if errors.Is(err, store.ErrNotFound) {
			return nil, newAPIError(http.StatusNotFound, "", "no snapshot found", nil)
		}
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "", err.Error(), nil)
		}
		out := &snapshotGetOutput{}
		out.Body.Identity = input.Identity
		out.Body.SizeBytes = size
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "snapshot-delete",
		Method:      http.MethodDelete,
		Path:        "/snapshots/{identity}",
		Summary:     "Discard the stored snapshot for one identity",
	}, func(ctx context.Context, input *snapshotGetInput) (*snapshotDeleteOutput, error) {
		if !guard.IsValidIdentity(input.Identity) {
			return nil, newAPIError(http.StatusBadRequest, "invalid_identity", "identity key failed validation", nil)
		}
		eng.ClearSnapshot(ctx, input.Identity)
		out := &snapshotDeleteOutput{}
		out.Body.Deleted = true
		return out, nil
	})
}
