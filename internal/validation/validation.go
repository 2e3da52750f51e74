// Package validation checks decoded request bodies against their `validate`
// struct tags and turns failures into field-level apperr errors. Messages
// come from a `msg` tag, either a single text or `rule=text` pairs separated
// by `|`.
package validation

import (
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/cashtrackr/internal/apperr"
)

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// positive accepts numbers and numeric strings (json.Number included).
	v.RegisterValidation("positive", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		switch f.Kind() {
		case reflect.String:
			n, err := strconv.ParseFloat(f.String(), 64)
			return err == nil && n > 0
		case reflect.Float32, reflect.Float64:
			return f.Float() > 0
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return f.Int() > 0
		}
		return false
	})
	// pwbytes caps passwords at bcrypt's input limit, counted in bytes.
	v.RegisterValidation("pwbytes", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		return f.Kind() == reflect.String && len(f.String()) <= MaxPasswordBytes
	})
	// finite rejects numeric strings that overflow a float64.
	v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		switch f.Kind() {
		case reflect.String:
			n, err := strconv.ParseFloat(f.String(), 64)
			return err == nil && !math.IsInf(n, 0) && !math.IsNaN(n)
		case reflect.Float32, reflect.Float64:
			return !math.IsInf(f.Float(), 0) && !math.IsNaN(f.Float())
		}
		return true
	})
	return &Validator{v: v}
}

// MaxPasswordBytes is the longest input bcrypt will hash.
const MaxPasswordBytes = 72

// Struct validates s and returns an *apperr.Error listing every failing
// field, or nil.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Internal(err)
	}

	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	fields := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperr.FieldError{
			Field: fe.Field(),
			Msg:   message(t, fe),
		})
	}
	return apperr.Validation(fields)
}

func message(t reflect.Type, fe validator.FieldError) string {
	sf, ok := t.FieldByName(fe.StructField())
	if !ok {
		return fe.Error()
	}
	tag := sf.Tag.Get("msg")
	if tag == "" {
		return fe.Field() + " no válido"
	}
	if !strings.Contains(tag, "=") {
		return tag
	}
	var fallback string
	for _, part := range strings.Split(tag, "|") {
		rule, text, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		if rule == fe.Tag() {
			return text
		}
		if fallback == "" {
			fallback = text
		}
	}
	return fallback
}
