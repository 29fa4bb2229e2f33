package vendorsettings

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/tradedesk/backoffice/internal/shared"
	"github.com/tradedesk/backoffice/internal/trading"
)

const dateLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

// SaveInput is the payload accepted when saving a vendor setting.
type SaveInput struct {
	BalanceID          int64            `json:"balance_id" validate:"required,gt=0"`
	BalanceEntryID     int64            `json:"balance_entry_id" validate:"required,gt=0"`
	VendorID           int64            `json:"vendor_id" validate:"required,gt=0"`
	Discount           *decimal.Decimal `json:"discount" validate:"required"`
	PaymentTerms       string           `json:"payment_terms" validate:"max=255"`
	DPType             string           `json:"dp_type" validate:"omitempty,oneof=percentage amount"`
	DPValue            *decimal.Decimal `json:"dp_value"`
	VendorLetterNumber string           `json:"vendor_letter_number" validate:"max=100"`
	VendorLetterDate   string           `json:"vendor_letter_date" validate:"omitempty,datetime=2006-01-02"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Setting validates the input and converts it to a vendor setting.
func (in SaveInput) Setting() (trading.VendorSetting, error) {
	fields := make(map[string]string)
	if err := validate.Struct(in); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return trading.VendorSetting{}, err
		}
		for _, fe := range verrs {
			fields[fe.Field()] = messageFor(fe)
		}
	}
	if in.Discount != nil && (in.Discount.IsNegative() || in.Discount.GreaterThan(hundred)) {
		fields["discount"] = "must be between 0 and 100"
	}
	dpValue := decimal.Zero
	if in.DPValue != nil {
		dpValue = *in.DPValue
	}
	if dpValue.IsNegative() {
		fields["dp_value"] = "must not be negative"
	}
	if trading.DPType(in.DPType) == trading.DPPercentage && dpValue.GreaterThan(hundred) {
		fields["dp_value"] = "percentage must not exceed 100"
	}
	if in.DPType != "" && in.DPValue == nil {
		fields["dp_value"] = "is required when dp_type is set"
	}
	if len(fields) > 0 {
		return trading.VendorSetting{}, &shared.ValidationError{Fields: fields}
	}

	setting := trading.VendorSetting{
		VendorKey: trading.VendorKey{
			BalanceID:      in.BalanceID,
			BalanceEntryID: in.BalanceEntryID,
			VendorID:       in.VendorID,
		},
		Discount:           *in.Discount,
		PaymentTerms:       strings.TrimSpace(in.PaymentTerms),
		DPType:             trading.DPType(in.DPType),
		DPValue:            dpValue,
		VendorLetterNumber: strings.TrimSpace(in.VendorLetterNumber),
	}
	if in.VendorLetterDate != "" {
		// already checked by the datetime tag
		d, _ := time.Parse(dateLayout, in.VendorLetterDate)
		setting.VendorLetterDate = &d
	}
	return setting, nil
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "datetime":
		return "must be a date formatted as YYYY-MM-DD"
	default:
		return "is invalid"
	}
}
