// Package validate checks stage forms with go-playground/validator.
//
// A [Validator] satisfies editor.Validator. Failures are reported as
// *errors.ValidationError keyed by JSON field name, so callers can show them
// next to the form fields they belong to.
package validate

import (
	"fmt"
	"maps"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/stagemap/pkg/errors"
	"github.com/matzehuels/stagemap/pkg/stage"
)

// Dictionary resolves l10n keys to texts.
type Dictionary interface {
	Get(key string) string
}

// Validator validates stage forms. It is immutable after New and safe for
// concurrent use.
type Validator struct {
	v        *validator.Validate
	messages map[string]string // field -> text overriding the generic message
}

// New returns a Validator. Content types are checked against types when
// given; an empty list accepts any non-empty type.
func New(types ...string) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if len(types) > 0 {
		allowed := make(map[string]bool, len(types))
		for _, t := range types {
			allowed[t] = true
		}
		_ = v.RegisterValidation("contenttype", func(fl validator.FieldLevel) bool {
			return allowed[fl.Field().String()]
		})
	} else {
		_ = v.RegisterValidation("contenttype", func(fl validator.FieldLevel) bool {
			return fl.Field().String() != ""
		})
	}
	return &Validator{v: v, messages: map[string]string{}}
}

// WithMessage returns a copy of val that reports text for field. val itself
// is left unchanged, so a Validator already in use stays safe to share.
func (val *Validator) WithMessage(field, text string) *Validator {
	messages := maps.Clone(val.messages)
	messages[field] = text
	return &Validator{v: val.v, messages: messages}
}

// WithDictionary returns a copy of val with the localized message for a missing content type.
func (val *Validator) WithDictionary(d Dictionary, key string) *Validator {
	return val.WithMessage("type", d.Get(key))
}

// Validate implements editor.Validator.
func (val *Validator) Validate(form stage.Form) error {
	if err := val.v.Struct(form); err != nil {
		return val.convert(err)
	}
	if err := val.v.Var(form.Type, "contenttype"); err != nil {
		msg, ok := val.messages["type"]
		if !ok {
			msg = fmt.Sprintf("unknown content type %q", form.Type)
		}
		return &errors.ValidationError{Fields: map[string]string{"type": msg}}
	}
	return nil
}

// Struct validates any tagged struct, such as an HTTP request body.
func (val *Validator) Struct(s any) error {
	if err := val.v.Struct(s); err != nil {
		return val.convert(err)
	}
	return nil
}

func (val *Validator) convert(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid form")
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		// Slice elements come as neighbors[2].
		name := fe.Field()
		if _, seen := fields[name]; !seen {
			fields[name] = val.message(name, fe.Tag(), fe.Param())
		}
	}
	return &errors.ValidationError{Fields: fields}
}

func (val *Validator) message(field, tag, param string) string {
	if m, ok := val.messages[field]; ok {
		return m
	}
	switch tag {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", param)
	case "gte":
		return fmt.Sprintf("must be at least %s", param)
	case "gt":
		return fmt.Sprintf("must be greater than %s", param)
	case "lte":
		return fmt.Sprintf("must be at most %s", param)
	default:
		return "is invalid"
	}
}
