package report

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/procurement"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func sampleRequisition() procurement.PurchaseRequisition {
	return procurement.PurchaseRequisition{
		ID:              1,
		Number:          "PR-2026-08-00001",
		RequesterID:     7,
		CostCenterID:    3,
		ProcurementType: "GOODS",
		Status:          procurement.PRStatusSubmitted,
		TotalEstimate:   dec("1250.00"),
		CreatedAt:       time.Date(2026, 8, 14, 9, 0, 0, 0, time.UTC),
		Lines: []procurement.PRLine{
			{ItemCode: "LAPTOP-14", Description: "Developer laptop", Qty: dec("1"), UnitPrice: dec("1200"), Subtotal: dec("1200")},
			{ItemCode: "MOUSE", Qty: dec("2"), UnitPrice: dec("25"), Subtotal: dec("50")},
		},
	}
}

func sampleOrder() procurement.PurchaseOrder {
	vendorID := int64(12)
	return procurement.PurchaseOrder{
		ID:             4,
		Number:         "PO-2026-08-00002",
		VendorID:       &vendorID,
		CostCenterID:   3,
		Currency:       "USD",
		ExchangeRate:   dec("15500"),
		OrderDate:      time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		Status:         procurement.POStatusPending,
		Subtotal:       dec("250.00"),
		TaxPercent:     dec("10"),
		TaxAmount:      dec("25.00"),
		DiscountAmount: dec("20.00"),
		GrandTotal:     dec("255.00"),
		Lines: []procurement.POLine{
			{ItemCode: "CHAIR", Qty: dec("2"), UnitPrice: dec("100"), LineTotal: dec("200")},
			{ItemCode: "DESK-PAD", Qty: dec("1"), UnitPrice: dec("50"), LineTotal: dec("50")},
		},
	}
}

func TestRequisitionHTMLContent(t *testing.T) {
	html, err := NewBuilder().RequisitionHTML(sampleRequisition(), DefaultBranding())
	require.NoError(t, err)
	require.Contains(t, html, "Purchase Requisition")
	require.Contains(t, html, "PR-2026-08-00001")
	require.Contains(t, html, "SUBMITTED")
	require.Contains(t, html, "LAPTOP-14")
	require.Contains(t, html, "Developer laptop")
	require.Contains(t, html, "1,250.00")
	require.Contains(t, html, "14 Aug 2026")
}

func TestOrderHTMLContent(t *testing.T) {
	html, err := NewBuilder().OrderHTML(sampleOrder(), DefaultBranding())
	require.NoError(t, err)
	require.Contains(t, html, "Purchase Order")
	require.Contains(t, html, "PO-2026-08-00002")
	require.Contains(t, html, "Tax (10%)")
	require.Contains(t, html, "255.00")
	require.Contains(t, html, "USD")
	require.Contains(t, html, "15500")
}

func TestBrandingColorsApplied(t *testing.T) {
	b := DefaultBranding()
	b.TitleColor = "#aa0011"
	b.AccentColor = "#0022bb"
	html, err := NewBuilder().OrderHTML(sampleOrder(), b)
	require.NoError(t, err)
	require.Contains(t, html, "#aa0011")
	require.Contains(t, html, "#0022bb")
}

func TestHeaderFooterTemplateRendered(t *testing.T) {
	b := validBranding()
	b.Template = HTMLTemplate{HeaderHTML: "<div id=\"hdr\">Meridian Procurement</div>", FooterHTML: "<div id=\"ftr\">page footer</div>"}
	html, err := NewBuilder().RequisitionHTML(sampleRequisition(), b)
	require.NoError(t, err)
	require.Contains(t, html, "<div id=\"hdr\">Meridian Procurement</div>")
	require.Contains(t, html, "<div id=\"ftr\">page footer</div>")
}

func TestMarkupBodyInjectedUnescaped(t *testing.T) {
	b := validBranding()
	b.Template = MarkupTemplate{Body: "<section class=\"letterhead\">HQ</section>"}
	html, err := NewBuilder().OrderHTML(sampleOrder(), b)
	require.NoError(t, err)
	require.Contains(t, html, "<section class=\"letterhead\">HQ</section>")
}

func TestOverlaysRenderedInZOrder(t *testing.T) {
	b := validBranding()
	b.Template = ImageTemplate{Overlays: []ImageOverlay{
		{AssetPath: "seal.png", Width: 80, Opacity: 0.4, ZOrder: 5},
		{AssetPath: "letterhead.png", Width: 600, Opacity: 1, ZOrder: 1},
	}}
	html, err := NewBuilder().RequisitionHTML(sampleRequisition(), b)
	require.NoError(t, err)
	require.Contains(t, html, "opacity:0.4")
	first := strings.Index(html, "letterhead.png")
	second := strings.Index(html, "seal.png")
	require.Greater(t, first, -1)
	require.Greater(t, second, first)
}
