// Package rest provides HTTP handlers for inventory operations.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/abgdnv/inventory/internal/catalog"
	ierrors "github.com/abgdnv/inventory/internal/errors"
	"github.com/abgdnv/inventory/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Catalog is the product list the handlers operate on.
type Catalog interface {
	Add(ctx context.Context, name, rawPrice string, inStock bool) (catalog.Product, error)
	ToggleStock(ctx context.Context, id string)
	ToggleMark(ctx context.Context, id string)
	Delete(ctx context.Context, id string)
	SetPage(n int)
	SetPageSize(n int) error
	View() catalog.View
}

type Handler struct {
	catalog  Catalog
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new Handler serving the given catalog.
func NewHandler(catalog Catalog, logger *slog.Logger) *Handler {
	return &Handler{
		catalog:  catalog,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes of the inventory API.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.View)
			r.Post("/", h.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", h.Delete)
				r.Put("/stock", h.ToggleStock)
				r.Put("/mark", h.ToggleMark)
			})
		})
		r.Put("/page", h.SetPage)
		r.Put("/page-size", h.SetPageSize)
	})

	r.Get("/healthz", h.HealthCheck)
}

// View returns the products on the current page.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	view := h.catalog.View()
	h.logger.DebugContext(r.Context(), "Returning product view", "page", view.Page, "count", len(view.Items), "total", view.Total)
	web.RespondJSON(w, h.logger, http.StatusOK, view)
}

// Create adds a new product.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto ProductCreateDto
	if !h.decodeAndValidate(w, r, &dto) {
		return
	}
	inStock := dto.InStock == nil || *dto.InStock
	h.logger.DebugContext(r.Context(), "Received request to create product", "name", dto.Name, "price", dto.Price, "inStock", inStock)

	product, err := h.catalog.Add(r.Context(), dto.Name, string(dto.Price), inStock)
	if err != nil {
		var vErr *ierrors.ValidationError
		if errors.As(err, &vErr) {
			h.logger.WarnContext(r.Context(), "Product rejected", "field", vErr.Field, "reason", vErr.Reason)
			web.RespondJSON(w, h.logger, http.StatusBadRequest, map[string]any{"validation_errors": map[string]string{vErr.Field: vErr.Reason}})
			return
		}
		h.logger.ErrorContext(r.Context(), "Error creating product", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to create product")
		return
	}
	h.logger.InfoContext(r.Context(), "Product created successfully", "ID", product.ID, "Name", product.Name)
	web.RespondJSON(w, h.logger, http.StatusCreated, product)
}

// ToggleStock flips the stock flag of a product. Unknown ids are ignored.
func (h *Handler) ToggleStock(w http.ResponseWriter, r *http.Request) {
	id, ok := web.PathID(w, r, h.logger)
	if !ok {
		return
	}
	h.catalog.ToggleStock(r.Context(), id)
	h.logger.InfoContext(r.Context(), "Stock toggled", "ID", id)
	w.WriteHeader(http.StatusNoContent)
}

// ToggleMark flips the marked flag of a product. Unknown ids are ignored.
func (h *Handler) ToggleMark(w http.ResponseWriter, r *http.Request) {
	id, ok := web.PathID(w, r, h.logger)
	if !ok {
		return
	}
	h.catalog.ToggleMark(r.Context(), id)
	h.logger.InfoContext(r.Context(), "Mark toggled", "ID", id)
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes a product. Unknown ids are ignored.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := web.PathID(w, r, h.logger)
	if !ok {
		return
	}
	h.catalog.Delete(r.Context(), id)
	h.logger.InfoContext(r.Context(), "Product deleted", "ID", id)
	w.WriteHeader(http.StatusNoContent)
}

// SetPage moves to the requested page and returns the new view.
func (h *Handler) SetPage(w http.ResponseWriter, r *http.Request) {
	var dto PageDto
	if !h.decodeAndValidate(w, r, &dto) {
		return
	}
	h.catalog.SetPage(dto.Page)
	web.RespondJSON(w, h.logger, http.StatusOK, h.catalog.View())
}

// SetPageSize changes the page size and returns the new view.
func (h *Handler) SetPageSize(w http.ResponseWriter, r *http.Request) {
	var dto PageSizeDto
	if !h.decodeAndValidate(w, r, &dto) {
		return
	}
	if err := h.catalog.SetPageSize(dto.PageSize); err != nil {
		if errors.Is(err, ierrors.ErrInvalidPageSize) {
			web.RespondError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "Error changing page size", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to change page size")
		return
	}
	h.logger.InfoContext(r.Context(), "Page size changed", "pageSize", dto.PageSize)
	web.RespondJSON(w, h.logger, http.StatusOK, h.catalog.View())
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// decodeAndValidate reads the JSON body into dst and validates it.
// It writes a 400 response and returns false on failure.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var vErr *ierrors.ValidationError
		if errors.As(err, &vErr) {
			h.logger.WarnContext(r.Context(), "Request body rejected", "field", vErr.Field, "reason", vErr.Reason)
			web.RespondJSON(w, h.logger, http.StatusBadRequest, map[string]any{"validation_errors": map[string]string{vErr.Field: vErr.Reason}})
			return false
		}
		h.logger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		if errorResponse, ok := web.ValidationErrors(err); ok {
			h.logger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, h.logger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return false
		}
		h.logger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
