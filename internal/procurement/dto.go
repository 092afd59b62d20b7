package procurement

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type lineRequest struct {
	ItemCode    string `json:"item_code" validate:"required,max=64"`
	Description string `json:"description" validate:"max=255"`
	Qty         string `json:"qty" validate:"required"`
	UnitPrice   string `json:"unit_price" validate:"required"`
}

type createPRRequest struct {
	CostCenterID    int64         `json:"cost_center_id" validate:"required,gt=0"`
	ProcurementType string        `json:"procurement_type" validate:"required,max=32"`
	SuggestedVendor *int64        `json:"suggested_vendor" validate:"omitempty,gt=0"`
	Note            string        `json:"note" validate:"max=1000"`
	Lines           []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type updatePRRequest struct {
	CostCenterID    int64         `json:"cost_center_id" validate:"required,gt=0"`
	ProcurementType string        `json:"procurement_type" validate:"required,max=32"`
	SuggestedVendor *int64        `json:"suggested_vendor" validate:"omitempty,gt=0"`
	Note            string        `json:"note" validate:"max=1000"`
	Lines           []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type decisionRequest struct {
	Step     int    `json:"step" validate:"required,gt=0"`
	Decision string `json:"decision" validate:"required,oneof=APPROVE REJECT"`
	Note     string `json:"note" validate:"max=1000"`
}

type cancelRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

type convertRequest struct {
	VendorID   *int64 `json:"vendor_id" validate:"omitempty,gt=0"`
	Currency   string `json:"currency" validate:"required,len=3"`
	OrderDate  string `json:"order_date" validate:"omitempty,datetime=2006-01-02"`
	TaxPercent string `json:"tax_percent" validate:"omitempty"`
	Note       string `json:"note" validate:"max=1000"`
}

type poLineRequest struct {
	PRLineID    *int64 `json:"pr_line_id" validate:"omitempty,gt=0"`
	ItemCode    string `json:"item_code" validate:"required,max=64"`
	Description string `json:"description" validate:"max=255"`
	Qty         string `json:"qty" validate:"required"`
	UnitPrice   string `json:"unit_price" validate:"required"`
}

type updatePORequest struct {
	VendorID       *int64          `json:"vendor_id" validate:"omitempty,gt=0"`
	TaxPercent     string          `json:"tax_percent" validate:"omitempty"`
	DiscountAmount string          `json:"discount_amount" validate:"omitempty"`
	Note           string          `json:"note" validate:"max=1000"`
	Lines          []poLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func parsePRLines(reqs []lineRequest) ([]PRLineInput, error) {
	lines := make([]PRLineInput, 0, len(reqs))
	for _, l := range reqs {
		qty, err := decimal.NewFromString(l.Qty)
		if err != nil {
			return nil, fmt.Errorf("%w: qty must be numeric", ErrValidation)
		}
		price, err := decimal.NewFromString(l.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("%w: unit_price must be numeric", ErrValidation)
		}
		lines = append(lines, PRLineInput{ItemCode: l.ItemCode, Description: l.Description, Qty: qty, UnitPrice: price})
	}
	return lines, nil
}

func parsePOLines(reqs []poLineRequest) ([]POLineInput, error) {
	lines := make([]POLineInput, 0, len(reqs))
	for _, l := range reqs {
		qty, err := decimal.NewFromString(l.Qty)
		if err != nil {
			return nil, fmt.Errorf("%w: qty must be numeric", ErrValidation)
		}
		price, err := decimal.NewFromString(l.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("%w: unit_price must be numeric", ErrValidation)
		}
		lines = append(lines, POLineInput{PRLineID: l.PRLineID, ItemCode: l.ItemCode, Description: l.Description, Qty: qty, UnitPrice: price})
	}
	return lines, nil
}

func parseOptionalDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}
