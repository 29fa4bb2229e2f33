package vendorsettings

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tradedesk/backoffice/internal/platform/httpx"
	"github.com/tradedesk/backoffice/internal/shared"
	"github.com/tradedesk/backoffice/internal/trading"
)

// SettingsService is the contract the handler depends on.
type SettingsService interface {
	Get(ctx context.Context, key trading.VendorKey) (trading.VendorSetting, error)
	Save(ctx context.Context, input SaveInput) (trading.VendorSetting, error)
	RetryPropagation(ctx context.Context, key trading.VendorKey) (int64, error)
}

// Handler exposes vendor setting endpoints.
type Handler struct {
	logger  *slog.Logger
	service SettingsService
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service SettingsService) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches the vendor setting routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Put("/", h.save)
	r.Get("/{balanceID}/{entryID}/{vendorID}", h.get)
	r.Post("/{balanceID}/{entryID}/{vendorID}/propagate", h.propagate)
}

type saveResponse struct {
	Setting trading.VendorSetting `json:"setting"`
	Synced  bool                  `json:"synced"`
	Message string                `json:"message,omitempty"`
}

type propagateResponse struct {
	Updated int64 `json:"updated"`
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromPath(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	setting, err := h.service.Get(r.Context(), key)
	if err != nil {
		h.logger.Error("get vendor setting", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, setting)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var input SaveInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	setting, err := h.service.Save(r.Context(), input)
	var partial *PartialSyncError
	switch {
	case errors.As(err, &partial):
		httpx.JSON(w, http.StatusAccepted, saveResponse{
			Setting: partial.Setting,
			Synced:  false,
			Message: "settings saved, items not yet synced",
		})
	case err != nil:
		if !errors.Is(err, shared.ErrValidation) {
			h.logger.Error("save vendor setting", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	default:
		httpx.JSON(w, http.StatusOK, saveResponse{Setting: setting, Synced: true})
	}
}

func (h *Handler) propagate(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromPath(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	n, err := h.service.RetryPropagation(r.Context(), key)
	if err != nil {
		h.logger.Error("retry propagation", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, propagateResponse{Updated: n})
}

func keyFromPath(r *http.Request) (trading.VendorKey, error) {
	var key trading.VendorKey
	for _, p := range []struct {
		name string
		dst  *int64
	}{
		{"balanceID", &key.BalanceID},
		{"entryID", &key.BalanceEntryID},
		{"vendorID", &key.VendorID},
	} {
		v, err := strconv.ParseInt(chi.URLParam(r, p.name), 10, 64)
		if err != nil || v <= 0 {
			return trading.VendorKey{}, shared.NewValidationError(p.name, "must be a positive integer")
		}
		*p.dst = v
	}
	return key, nil
}
