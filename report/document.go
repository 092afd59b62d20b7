package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/meridian-erp/meridian-erp/internal/procurement"
)

// Builder renders requisitions and orders into printable HTML. Rendering is
// read-only: it works from whatever state the document is in.
type Builder struct {
	printer *message.Printer
	tmpl    *template.Template
}

func NewBuilder() *Builder {
	b := &Builder{printer: message.NewPrinter(language.English)}
	b.tmpl = template.Must(template.New("document").Parse(documentTemplate))
	return b
}

func (b *Builder) amount(d decimal.Decimal) string {
	f, _ := d.Float64()
	return b.printer.Sprintf("%.2f", f)
}

type documentLine struct {
	ItemCode    string
	Description string
	Qty         string
	UnitPrice   string
	Total       string
}

type documentData struct {
	Title       string
	Number      string
	Status      string
	Date        string
	Meta        []metaRow
	Lines       []documentLine
	Totals      []metaRow
	TitleColor  string
	AccentColor string
	HeaderHTML  template.HTML
	FooterHTML  template.HTML
	MarkupBody  template.HTML
	Overlays    []overlayData
}

type metaRow struct {
	Label string
	Value string
}

type overlayData struct {
	Src     string
	X       float64
	Y       float64
	Width   float64
	Opacity float64
	ZOrder  int
}

func applyBranding(data *documentData, branding Branding) {
	data.TitleColor = branding.TitleColor
	if data.TitleColor == "" {
		data.TitleColor = "#1a2633"
	}
	data.AccentColor = branding.AccentColor
	if data.AccentColor == "" {
		data.AccentColor = "#2a6fb0"
	}
	switch t := branding.Template.(type) {
	case HTMLTemplate:
		data.HeaderHTML = template.HTML(t.HeaderHTML)
		data.FooterHTML = template.HTML(t.FooterHTML)
	case MarkupTemplate:
		data.MarkupBody = template.HTML(t.Body)
	case ImageTemplate:
		for _, o := range t.SortedOverlays() {
			data.Overlays = append(data.Overlays, overlayData{
				Src: o.AssetPath, X: o.X, Y: o.Y, Width: o.Width, Opacity: o.Opacity, ZOrder: o.ZOrder,
			})
		}
	}
}

// RequisitionHTML renders a purchase requisition.
func (b *Builder) RequisitionHTML(pr procurement.PurchaseRequisition, branding Branding) (string, error) {
	data := documentData{
		Title:  "Purchase Requisition",
		Number: pr.Number,
		Status: string(pr.Status),
		Date:   pr.CreatedAt.Format("02 Jan 2006"),
		Meta: []metaRow{
			{Label: "Procurement type", Value: pr.ProcurementType},
			{Label: "Cost center", Value: fmt.Sprintf("#%d", pr.CostCenterID)},
			{Label: "Requested by", Value: fmt.Sprintf("user %d", pr.RequesterID)},
		},
		Totals: []metaRow{
			{Label: "Total estimate", Value: b.amount(pr.TotalEstimate)},
		},
	}
	for _, l := range pr.Lines {
		data.Lines = append(data.Lines, documentLine{
			ItemCode:    l.ItemCode,
			Description: l.Description,
			Qty:         l.Qty.String(),
			UnitPrice:   b.amount(l.UnitPrice),
			Total:       b.amount(l.Subtotal),
		})
	}
	applyBranding(&data, branding)
	return b.render(data)
}

// OrderHTML renders a purchase order.
func (b *Builder) OrderHTML(po procurement.PurchaseOrder, branding Branding) (string, error) {
	orderDate := po.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now()
	}
	meta := []metaRow{
		{Label: "Currency", Value: po.Currency},
		{Label: "Exchange rate", Value: po.ExchangeRate.String()},
		{Label: "Cost center", Value: fmt.Sprintf("#%d", po.CostCenterID)},
	}
	if po.VendorID != nil {
		meta = append(meta, metaRow{Label: "Vendor", Value: fmt.Sprintf("#%d", *po.VendorID)})
	}
	data := documentData{
		Title:  "Purchase Order",
		Number: po.Number,
		Status: string(po.Status),
		Date:   orderDate.Format("02 Jan 2006"),
		Meta:   meta,
		Totals: []metaRow{
			{Label: "Subtotal", Value: b.amount(po.Subtotal)},
			{Label: fmt.Sprintf("Tax (%s%%)", po.TaxPercent.String()), Value: b.amount(po.TaxAmount)},
			{Label: "Discount", Value: b.amount(po.DiscountAmount)},
			{Label: "Grand total", Value: b.amount(po.GrandTotal)},
		},
	}
	for _, l := range po.Lines {
		data.Lines = append(data.Lines, documentLine{
			ItemCode:    l.ItemCode,
			Description: l.Description,
			Qty:         l.Qty.String(),
			UnitPrice:   b.amount(l.UnitPrice),
			Total:       b.amount(l.LineTotal),
		})
	}
	applyBranding(&data, branding)
	return b.render(data)
}

func (b *Builder) render(data documentData) (string, error) {
	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

const documentTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: Helvetica, Arial, sans-serif; color: #222; font-size: 12px; }
h1 { color: {{.TitleColor}}; margin-bottom: 0; }
.status { color: {{.AccentColor}}; font-weight: bold; text-transform: uppercase; }
table.lines { width: 100%; border-collapse: collapse; margin-top: 16px; }
table.lines th { text-align: left; border-bottom: 2px solid {{.AccentColor}}; padding: 4px; }
table.lines td { border-bottom: 1px solid #ddd; padding: 4px; }
table.totals { margin-top: 12px; margin-left: auto; }
table.totals td { padding: 2px 8px; text-align: right; }
.overlay { position: absolute; }
</style>
</head>
<body>
{{range .Overlays}}<img class="overlay" src="{{.Src}}" style="left:{{.X}}px;top:{{.Y}}px;width:{{.Width}}px;opacity:{{.Opacity}};z-index:{{.ZOrder}}">
{{end}}{{if .HeaderHTML}}<header>{{.HeaderHTML}}</header>{{end}}
{{if .MarkupBody}}{{.MarkupBody}}{{end}}
<h1>{{.Title}} {{.Number}}</h1>
<p class="status">{{.Status}}</p>
<p>{{.Date}}</p>
<table>
{{range .Meta}}<tr><td>{{.Label}}</td><td>{{.Value}}</td></tr>
{{end}}</table>
<table class="lines">
<tr><th>Item</th><th>Description</th><th>Qty</th><th>Unit price</th><th>Total</th></tr>
{{range .Lines}}<tr><td>{{.ItemCode}}</td><td>{{.Description}}</td><td>{{.Qty}}</td><td>{{.UnitPrice}}</td><td>{{.Total}}</td></tr>
{{end}}</table>
<table class="totals">
{{range .Totals}}<tr><td>{{.Label}}</td><td>{{.Value}}</td></tr>
{{end}}</table>
{{if .FooterHTML}}<footer>{{.FooterHTML}}</footer>{{end}}
</body>
</html>`
