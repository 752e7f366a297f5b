package bind

import (
	"net/http"
	"reflect"
	"strconv"

	perr "nhanes/internal/platform/errors"
)

// ParseQuery fills T from URL query parameters named by `query` tags, then validates it
// absent or empty parameters leave the zero value so `omitempty` rules apply
func ParseQuery[T any](r *http.Request) (T, error) {
	var zero, dst T
	rv := reflect.ValueOf(&dst).Elem()
	if rv.Kind() != reflect.Struct {
		return zero, perr.InvalidArgf("query target must be a struct, got %s", rv.Kind())
	}
	q := r.URL.Query()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		name := f.Tag.Get("query")
		if name == "" || name == "-" || !f.IsExported() {
			continue
		}
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		if err := setScalar(rv.Field(i), raw); err != nil {
			return zero, perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s must be a valid %s", name, f.Type.Kind()), name)
		}
	}
	if err := Struct(dst); err != nil {
		return zero, err
	}
	return dst, nil
}

func setScalar(v reflect.Value, raw string) error {
	switch v.Kind() {
	case reflect.String:
		v.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
	default:
		return strconv.ErrSyntax
	}
	return nil
}
