package document

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/*.html
var templateFS embed.FS

// ErrPDFUnavailable is returned when no PDF converter is configured.
var ErrPDFUnavailable = errors.New("document: pdf converter not configured")

// PDFConverter turns an HTML page into PDF bytes.
type PDFConverter interface {
	RenderHTML(ctx context.Context, html []byte) ([]byte, error)
}

// Renderer lays out assembled documents.
type Renderer struct {
	tmpl *template.Template
	pdf  PDFConverter
}

var months = [...]string{"Januari", "Februari", "Maret", "April", "Mei", "Juni", "Juli", "Agustus", "September", "Oktober", "November", "Desember"}

// NewRenderer parses the embedded templates. pdf may be nil, in which case
// only HTML output is available.
func NewRenderer(pdf PDFConverter) (*Renderer, error) {
	printer := message.NewPrinter(language.Indonesian)
	funcs := template.FuncMap{
		"rupiah": func(d decimal.Decimal) string {
			return printer.Sprintf("%d", d.Round(0).IntPart())
		},
		"qty": func(d decimal.Decimal) string {
			if d.Equal(d.Truncate(0)) {
				return printer.Sprintf("%d", d.IntPart())
			}
			f, _ := d.Float64()
			return printer.Sprintf("%.2f", f)
		},
		"date": func(t time.Time) string {
			return fmt.Sprintf("%d %s %d", t.Day(), months[t.Month()-1], t.Year())
		},
		"inc": func(i int) int { return i + 1 },
	}
	tmpl, err := template.New("document").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl, pdf: pdf}, nil
}

// HTML renders the purchase order page.
func (r *Renderer) HTML(doc PurchaseOrderDocument) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "purchase_order.html", doc); err != nil {
		return nil, fmt.Errorf("document: render purchase order %s: %w", doc.PO.Number, err)
	}
	return buf.Bytes(), nil
}

// PDF renders the page and converts it.
func (r *Renderer) PDF(ctx context.Context, doc PurchaseOrderDocument) ([]byte, error) {
	if r.pdf == nil {
		return nil, ErrPDFUnavailable
	}
	html, err := r.HTML(doc)
	if err != nil {
		return nil, err
	}
	return r.pdf.RenderHTML(ctx, html)
}
