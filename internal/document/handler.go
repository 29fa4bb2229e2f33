package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tradedesk/backoffice/internal/platform/httpx"
	"github.com/tradedesk/backoffice/internal/shared"
	"github.com/tradedesk/backoffice/report"
)

// DocumentService is the contract the handler depends on.
type DocumentService interface {
	PurchaseOrder(ctx context.Context, id int64) (PurchaseOrderDocument, error)
	PurchaseOrders(ctx context.Context, ids []int64) ([]PurchaseOrderDocument, error)
}

// Handler serves purchase order documents.
type Handler struct {
	logger   *slog.Logger
	service  DocumentService
	renderer *Renderer
}

// NewHandler constructs the document handler.
func NewHandler(logger *slog.Logger, service DocumentService, renderer *Renderer) *Handler {
	return &Handler{logger: logger, service: service, renderer: renderer}
}

// MountRoutes attaches the document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/documents", h.batch)
	r.Get("/{id}/document", h.document)
	r.Get("/{id}/document.pdf", h.pdf)
}

func (h *Handler) document(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.load(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("format") != "html" {
		httpx.JSON(w, http.StatusOK, doc)
		return
	}
	page, err := h.renderer.HTML(doc)
	if err != nil {
		h.logger.Error("render document html", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (h *Handler) pdf(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.load(w, r)
	if !ok {
		return
	}
	pdf, err := h.renderer.PDF(r.Context(), doc)
	if errors.Is(err, ErrPDFUnavailable) {
		httpx.Problem(w, http.StatusServiceUnavailable, "Renderer Unavailable", "pdf conversion is not configured")
		return
	}
	if errors.Is(err, report.ErrUnavailable) {
		h.logger.Warn("pdf converter circuit open", slog.Int64("po_id", doc.PO.ID))
		httpx.Problem(w, http.StatusServiceUnavailable, "Renderer Unavailable", "pdf conversion is temporarily unavailable")
		return
	}
	if err != nil {
		h.logger.Error("render document pdf", slog.Int64("po_id", doc.PO.ID), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Renderer Failed", "pdf conversion failed")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", "po-"+strings.ReplaceAll(doc.PO.Number, "/", "-")+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) batch(w http.ResponseWriter, r *http.Request) {
	ids, err := httpx.Int64s(r.URL.Query()["ids"])
	if err != nil || len(ids) == 0 {
		httpx.RespondError(w, shared.NewValidationError("ids", "must be a non-empty list of integers"))
		return
	}
	docs, err := h.service.PurchaseOrders(r.Context(), ids)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, docs)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (PurchaseOrderDocument, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.NewValidationError("id", "must be a positive integer"))
		return PurchaseOrderDocument{}, false
	}
	doc, err := h.service.PurchaseOrder(r.Context(), id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("load purchase order document", slog.Int64("po_id", id), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return PurchaseOrderDocument{}, false
	}
	return doc, true
}
