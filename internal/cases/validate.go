package cases

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError lists the problems found with one record.
type ValidationError struct {
	Index  int
	CRN    string
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record %d (crn %q): invalid %s", e.Index, e.CRN, strings.Join(e.Fields, ", "))
}

// Validate checks every record carries the fields the sampler relies on.
// It returns the first invalid record as a *ValidationError.
func Validate(records []Record) error {
	for i, r := range records {
		var fields []string
		if err := validate.Struct(r); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return fmt.Errorf("validate record %d: %w", i, err)
			}
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
		}
		if r.StartDate.IsZero() {
			fields = append(fields, "StartDate")
		}
		if len(fields) > 0 {
			return &ValidationError{Index: i, CRN: r.CRN, Fields: fields}
		}
	}
	return nil
}
