// Package bind turns request parameters into validated structs
package bind

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	perr "nhanes/internal/platform/errors"
	"nhanes/internal/platform/logger"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// FirstCycle is the earliest survey cycle start year
const FirstCycle = 1999

// Validator pairs the shared validator with its english translator
type Validator struct {
	V     *validator.Validate
	Trans ut.Translator
}

var (
	vOnce sync.Once
	vInst *Validator
)

// Get returns the shared validator, building it on first use
func Get() *Validator {
	vOnce.Do(func() {
		loc := en.New()
		trans, _ := ut.New(loc, loc).GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(paramName)
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		short(v, trans, "min", "{0} must be at least {1}")
		short(v, trans, "max", "{0} must be at most {1}")
		_ = v.RegisterValidation("cycle", validCycle)
		short(v, trans, "cycle", "{0} must be an odd survey start year from 1999")

		vInst = &Validator{V: v, Trans: trans}
	})
	return vInst
}

// paramName reports fields by their query or json name
func paramName(f reflect.StructField) string {
	for _, key := range []string{"query", "json"} {
		tag, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if tag != "" && tag != "-" {
			return tag
		}
	}
	return f.Name
}

// validCycle accepts zero (unset) or an odd start year from FirstCycle on
func validCycle(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := f.Int()
		return n == 0 || (n >= FirstCycle && n%2 == 1)
	}
	return false
}

func short(v *validator.Validate, trans ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tag, fe.Field(), fe.Param())
			return msg
		},
	)
}

// Struct validates dst and maps the first failure to a validation error naming its field
func Struct(dst any) error {
	err := Get().V.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		logger.Get().Error().Err(err).Msg("validator internal error")
		return perr.InvalidArgf("cannot validate %T", dst)
	}
	fe := verrs[0]
	return perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s", fe.Translate(Get().Trans)), fe.Field())
}
