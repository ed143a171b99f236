package commission

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/generic"
)

// =============================================================================
// VALIDATOR
// =============================================================================

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// validatorInstance returns the shared validator. Decimal fields are exposed
// to tag rules as float64 so `gte=0` works on amounts.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
		validate = v
	})
	return validate
}

// check runs struct tag validation and converts failures to FieldErrors.
func check(record string, s any) generic.ValidationErrors {
	err := validatorInstance().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return generic.ValidationErrors{{Record: record, Field: "-", Reason: err.Error()}}
	}

	out := make(generic.ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, &generic.FieldError{
			Record: record,
			Field:  fe.Field(),
			Reason: describe(fe),
		})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %v", fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("must be >= %s, got %v", fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("must be <= %s, got %v", fe.Param(), fe.Value())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email", "url":
		return "is not a valid " + fe.Tag()
	default:
		return "failed " + fe.Tag()
	}
}

// =============================================================================
// RECORD VALIDATION
// =============================================================================

func dealRecord(d Deal) string {
	if d.ID == "" {
		return "deal"
	}
	return "deal " + string(d.ID)
}

// ValidateDeal checks a deal against the input contract.
func ValidateDeal(d Deal) error {
	return check(dealRecord(d), d).OrNil()
}

// ValidateProfile checks a rep profile.
func ValidateProfile(p Profile) error {
	return check("profile "+string(p.RepID), p).OrNil()
}

// ValidateMonthlyTarget checks a monthly target row.
func ValidateMonthlyTarget(t MonthlyTarget) error {
	return check("monthly target "+t.Key().String(), t).OrNil()
}

// ValidateQuarterlyTarget checks a quarterly target row.
func ValidateQuarterlyTarget(t QuarterlyTarget) error {
	return check("quarterly target "+t.Key().String(), t).OrNil()
}

// ValidateKpi checks a KPI row.
func ValidateKpi(k KpiRecord) error {
	return check("kpi "+k.Key().String(), k).OrNil()
}

// ValidateInput checks every record of a breakdown request and reports all
// problems together. Targets and KPI rows must belong to the period being
// computed.
func ValidateInput(in BreakdownInput) error {
	var errs generic.ValidationErrors

	errs = append(errs, check("profile "+string(in.Profile.RepID), in.Profile)...)

	if in.Context.Today.IsZero() {
		errs = append(errs, &generic.FieldError{Record: "context", Field: "today", Reason: "is required"})
	}
	if _, err := generic.NewMonthKey(in.Context.Month.Year, int(in.Context.Month.Month)); err != nil {
		errs = append(errs, &generic.FieldError{Record: "context", Field: "month", Reason: err.Error()})
	}

	seen := make(map[generic.DealID]bool, len(in.Deals))
	for _, d := range in.Deals {
		errs = append(errs, check(dealRecord(d), d)...)
		if d.ID != "" {
			if seen[d.ID] {
				errs = append(errs, &generic.FieldError{Record: dealRecord(d), Field: "id", Reason: "appears twice"})
			}
			seen[d.ID] = true
		}
		if in.Profile.RepID != "" && d.RepID != "" && d.RepID != in.Profile.RepID {
			errs = append(errs, &generic.FieldError{Record: dealRecord(d), Field: "sales_rep_id", Reason: "belongs to another rep"})
		}
	}

	if t := in.MonthlyTarget; t != nil {
		record := "monthly target " + t.Key().String()
		errs = append(errs, check(record, *t)...)
		if t.Key() != in.Context.Month {
			errs = append(errs, &generic.FieldError{Record: record, Field: "month", Reason: "does not match period " + in.Context.Month.String()})
		}
	}

	if t := in.QuarterlyTarget; t != nil {
		record := "quarterly target " + t.Key().String()
		errs = append(errs, check(record, *t)...)
		if t.Key() != in.Context.Month.Quarter() {
			errs = append(errs, &generic.FieldError{Record: record, Field: "quarter", Reason: "does not match period " + in.Context.Month.Quarter().String()})
		}
	}

	if k := in.KPI; k != nil {
		record := "kpi " + k.Key().String()
		errs = append(errs, check(record, *k)...)
		if k.Key() != in.Context.Month {
			errs = append(errs, &generic.FieldError{Record: record, Field: "month", Reason: "does not match period " + in.Context.Month.String()})
		}
	}

	return errs.OrNil()
}
