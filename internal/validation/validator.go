package validation

import (
	"reflect"
	"regexp"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/maisoncleo/atelier-tracker/internal/deadline"
	"github.com/maisoncleo/atelier-tracker/internal/production"
)

var articleIDPattern = regexp.MustCompile(`^[0-9]+(_[0-9]+)?$`)

// New returns a configured validator with the domain tags and struct-level
// rules registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// report fields under their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("production_type", func(fl validatorv10.FieldLevel) bool {
		return production.ValidType(fl.Field().String())
	})
	_ = v.RegisterValidation("production_status", func(fl validatorv10.FieldLevel) bool {
		return production.ValidStatus(fl.Field().String())
	})
	_ = v.RegisterValidation("article_id", func(fl validatorv10.FieldLevel) bool {
		return articleIDPattern.MatchString(fl.Field().String())
	})

	// joursOuvrables must only name weekdays and enable at least one of them.
	v.RegisterStructValidation(delaiStructValidation, DelaiRequest{})

	return v
}

func delaiStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(DelaiRequest)
	if req.JoursDelai != 0 {
		if err := deadline.ValidJoursDelai(req.JoursDelai); err != nil {
			sl.ReportError(req.JoursDelai, "joursDelai", "JoursDelai", "jours_delai", err.Error())
		}
	}
	if req.JoursOuvrables == nil {
		return
	}
	if err := deadline.ValidWorkingDays(req.JoursOuvrables); err != nil {
		sl.ReportError(req.JoursOuvrables, "joursOuvrables", "JoursOuvrables", "working_days", err.Error())
	}
}
