package weighing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type savePrecondition struct {
	Supplier    string  `validate:"required"`
	Product     string  `validate:"required"`
	GrossWeight float64 `validate:"gt=0"`
	NoteWeight  float64 `validate:"gt=0"`
}

var preconditionMessages = map[string]string{
	"Supplier":    "supplier is required",
	"Product":     "product is required",
	"GrossWeight": "gross weight must be greater than zero",
	"NoteWeight":  "note weight must be greater than zero",
}

// ValidateForSave is the only gate before a record is constructed.
func ValidateForSave(supplier, product string, calc Calculation) error {
	err := validate.Struct(savePrecondition{
		Supplier:    strings.TrimSpace(supplier),
		Product:     strings.TrimSpace(product),
		GrossWeight: calc.GrossWeight,
		NoteWeight:  calc.NoteWeight,
	})
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := preconditionMessages[fe.Field()]
		if !ok {
			msg = strings.ToLower(fe.Field()) + " is invalid"
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}
