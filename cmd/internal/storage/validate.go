package storage

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// Report json names so field errors line up with the wire format.
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		validate = v
	})
	return validate
}

// ValidationError lists failed fields by json name. Values are the failing
// validator tag ("required", "min", "email", ...).
type ValidationError struct {
	Op     string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+e.Fields[k])
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, ErrInvalidInput, strings.Join(parts, ","))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Validate checks v against its validate tags.
func Validate(op string, v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
	}

	out := &ValidationError{Op: op, Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		if _, seen := out.Fields[fe.Field()]; !seen {
			out.Fields[fe.Field()] = fe.Tag()
		}
	}
	return out
}
