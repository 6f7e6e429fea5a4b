package apiclient

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
)

// Decoder turns a 2xx body into a typed, validated value
type Decoder interface {
	Decode(body []byte, out any) error
}

// validatingDecoder decodes JSON and then checks `validate` struct tags
type validatingDecoder struct {
	validate *validator.Validate
}

// NewDecoder creates the default JSON decoder backed by go-playground/validator
func NewDecoder() Decoder {
	return &validatingDecoder{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Decode unmarshals body into out and validates the result.
// Slices and arrays are validated element by element.
func (d *validatingDecoder) Decode(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return d.check(reflect.ValueOf(out))
}

func (d *validatingDecoder) check(v reflect.Value) error {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		return d.validate.Struct(v.Interface())
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := d.check(v.Index(i)); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	}
	return nil
}
