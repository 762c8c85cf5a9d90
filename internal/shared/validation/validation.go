// Package validation wraps go-playground/validator with English messages.
package validation

import (
	"errors"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

var (
	defaultValidator = validator.New(validator.WithRequiredStructEnabled())
	uni              = ut.New(en.New())
	trans, _         = uni.GetTranslator("en")
)

func init() {
	if err := entranslations.RegisterDefaultTranslations(defaultValidator, trans); err != nil {
		panic(err)
	}
}

// Violation describes one failed rule.
type Violation struct {
	Field   string
	Tag     string
	Message string
}

// StructError is returned when a struct fails validation.
type StructError struct {
	Violations []Violation
}

// Error joins the violation messages.
func (s *StructError) Error() string {
	msgs := make([]string, 0, len(s.Violations))
	for _, v := range s.Violations {
		msgs = append(msgs, v.Message)
	}
	return strings.Join(msgs, "; ")
}

// Struct validates v against its `validate` tags.
func Struct(v any) error {
	err := defaultValidator.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &StructError{Violations: make([]Violation, 0, len(verrs))}
	for _, fe := range verrs {
		out.Violations = append(out.Violations, Violation{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: fe.Translate(trans),
		})
	}
	return out
}
