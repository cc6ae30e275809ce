package wizard

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"promo-wizard/internal/promo"
)

// ValidationError carries per-field rule failures keyed by JSON path,
// e.g. "rows[0].country" -> "required".
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid form: " + strings.Join(parts, ", ")
}

var hundred = decimal.NewFromInt(100)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(optionRules, promo.Option{})
	v.RegisterStructValidation(audienceRules, promo.TargetAudience{})
	v.RegisterStructValidation(incentiveRules, promo.Incentive{})
	v.RegisterStructValidation(rewardRules, promo.Reward{})
	v.RegisterStructValidation(rulesFormRules, RulesForm{})
	v.RegisterStructValidation(partnerRulesFormRules, PartnerRulesForm{})
	return v
}

func optionRules(sl validator.StructLevel) {
	o := sl.Current().Interface().(promo.Option)
	if strings.TrimSpace(o.Value) == "" {
		sl.ReportError(o.Value, "value", "Value", "required", "")
	}
}

func audienceRules(sl validator.StructLevel) {
	a := sl.Current().Interface().(promo.TargetAudience)
	if a.Country == nil || a.Country.Value == "" {
		sl.ReportError(a.Country, "country", "Country", "required", "")
	}
}

func incentiveRules(sl validator.StructLevel) {
	in := sl.Current().Interface().(promo.Incentive)
	if strings.TrimSpace(in.AudienceType) == "" {
		sl.ReportError(in.AudienceType, "audienceType", "AudienceType", "required", "")
	}
	if in.Type != promo.IncentiveFee && in.Type != promo.IncentiveThreshold {
		sl.ReportError(in.Type, "incentiveType", "Type", "oneof", "FEE THRESHOLD")
	}
	if len(in.Lines) == 0 {
		sl.ReportError(in.Lines, "lines", "Lines", "min", "1")
	}
	for _, l := range in.Lines {
		switch l.Trigger {
		case promo.TriggerBookingClass, promo.TriggerFareFamily, promo.TriggerAncillary, promo.TriggerLoyaltyTier:
		default:
			sl.ReportError(l.Trigger, "lines.trigger", "Trigger", "oneof", "")
		}
		if strings.TrimSpace(l.Code) == "" {
			sl.ReportError(l.Code, "lines.code", "Code", "required", "")
		}
		checkAmount(sl, "lines.value", l.Value, l.ValueType)
		if in.Type == promo.IncentiveThreshold && l.Threshold <= 0 {
			sl.ReportError(l.Threshold, "lines.threshold", "Threshold", "gt", "0")
		}
	}
}

func rewardRules(sl validator.StructLevel) {
	r := sl.Current().Interface().(promo.Reward)
	known := false
	for _, s := range promo.LoyaltyStatuses {
		if r.LoyaltyStatus == s {
			known = true
			break
		}
	}
	if !known {
		sl.ReportError(r.LoyaltyStatus, "loyaltyStatus", "LoyaltyStatus", "oneof", "")
	}
	checkAmount(sl, "value", r.Value, r.ValueType)
}

func checkAmount(sl validator.StructLevel, field string, v decimal.Decimal, vt promo.ValueType) {
	if vt != promo.ValueFixed && vt != promo.ValuePercentage {
		sl.ReportError(vt, "valueType", "ValueType", "oneof", "FIXED PERCENTAGE")
	}
	if !v.IsPositive() {
		sl.ReportError(v, field, "Value", "gt", "0")
		return
	}
	if vt == promo.ValuePercentage && v.GreaterThan(hundred) {
		sl.ReportError(v, field, "Value", "lte", "100")
	}
}

func rulesFormRules(sl validator.StructLevel) {
	f := sl.Current().Interface().(RulesForm)
	if before(f.BookingEnd, f.BookingStart) {
		sl.ReportError(f.BookingEnd, "bookingEndDate", "BookingEnd", "gtefield", "bookingStartDate")
	}
	if before(f.TravelEnd, f.TravelStart) {
		sl.ReportError(f.TravelEnd, "travelEndDate", "TravelEnd", "gtefield", "travelStartDate")
	}
}

func partnerRulesFormRules(sl validator.StructLevel) {
	f := sl.Current().Interface().(PartnerRulesForm)
	if before(f.EndDate, f.StartDate) {
		sl.ReportError(f.EndDate, "endDate", "EndDate", "gtefield", "startDate")
	}
}

// before compares YYYY-MM-DD strings; blanks never compare.
func before(a, b string) bool {
	return a != "" && b != "" && a < b
}

// check runs v over form and converts failures into a ValidationError.
func check(v *validator.Validate, form any) error {
	err := v.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		key := fe.Namespace()
		if i := strings.IndexByte(key, '.'); i >= 0 {
			key = key[i+1:]
		}
		if _, seen := out.Fields[key]; !seen {
			out.Fields[key] = fe.Tag()
		}
	}
	return out
}
