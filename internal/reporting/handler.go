package reporting

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tradedesk/backoffice/internal/platform/httpx"
	"github.com/tradedesk/backoffice/internal/shared"
)

// ReportService is the contract the handler depends on.
type ReportService interface {
	Report(ctx context.Context, q Query) (Report, error)
}

// Handler exposes the sales and purchase reports.
type Handler struct {
	logger   *slog.Logger
	service  ReportService
	validate *validator.Validate
}

// NewHandler constructs the report handler.
func NewHandler(logger *slog.Logger, service ReportService) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches the report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales", h.serve(DimensionCustomer))
	r.Get("/purchases", h.serve(DimensionVendor))
}

type queryParams struct {
	From   string `validate:"omitempty,datetime=2006-01-02"`
	To     string `validate:"omitempty,datetime=2006-01-02"`
	Format string `validate:"omitempty,oneof=json csv xlsx"`
}

func (h *Handler) serve(dim Dimension) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, format, err := h.parseQuery(r, dim)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		report, err := h.service.Report(r.Context(), q)
		if err != nil {
			h.logger.Error("build report", slog.String("dimension", string(dim)), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		var (
			write       func(io.Writer, Report) error
			contentType string
		)
		switch format {
		case "csv":
			write, contentType = WriteCSV, "text/csv; charset=utf-8"
		case "xlsx":
			write, contentType = WriteXLSX, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		default:
			httpx.JSON(w, http.StatusOK, report)
			return
		}
		var buf bytes.Buffer
		if err := write(&buf, report); err != nil {
			h.logger.Error("export report", slog.String("format", format), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		filename := "sales-report." + format
		if dim == DimensionVendor {
			filename = "purchase-report." + format
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

func (h *Handler) parseQuery(r *http.Request, dim Dimension) (Query, string, error) {
	values := r.URL.Query()
	params := queryParams{
		From:   values.Get("from"),
		To:     values.Get("to"),
		Format: values.Get("format"),
	}
	if err := h.validate.Struct(params); err != nil {
		verr := &shared.ValidationError{Fields: map[string]string{}}
		if fes, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fes {
				verr.Fields[fieldName(fe.Field())] = "is invalid"
			}
		}
		return Query{}, "", verr
	}

	q := Query{Dimension: dim}
	if params.From != "" {
		from, _ := time.Parse(time.DateOnly, params.From)
		q.Range.From = &from
	}
	if params.To != "" {
		to, _ := time.Parse(time.DateOnly, params.To)
		q.Range.To = &to
	}
	if q.Range.From != nil && q.Range.To != nil && q.Range.To.Before(*q.Range.From) {
		return Query{}, "", shared.NewValidationError("to", "must not be before from")
	}
	ids, err := httpx.Int64s(values["ids"])
	if err != nil {
		return Query{}, "", shared.NewValidationError("ids", "must be a list of integers")
	}
	if len(ids) > 0 {
		q.FilterIDs = make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			q.FilterIDs[id] = struct{}{}
		}
	}
	return q, params.Format, nil
}

func fieldName(field string) string {
	switch field {
	case "From":
		return "from"
	case "To":
		return "to"
	default:
		return "format"
	}
}
