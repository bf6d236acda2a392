package attendance

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/rollcall/core"
)

var (
	statusTag  = "attstatus"
	statusText = "status must be one of present, absent or late"
)

// register custom validators
func init() {
	_ = core.Validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(statusTag, statusText)
}

// statusValidation checks that the field is a known attendance Status.
func statusValidation(fl validator.FieldLevel) bool {
	if st, ok := fl.Field().Interface().(Status); ok {
		return st.IsValid()
	}
	return Status(fl.Field().String()).IsValid()
}
