package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxBodyBytes bounds request payloads; page documents are the largest.
const MaxBodyBytes = 5 << 20

var Validate = newValidator()

var repoNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,100}$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	// jsonvalue: a raw JSON field that is present and not null.
	v.RegisterValidation("jsonvalue", func(fl validator.FieldLevel) bool {
		raw, ok := fl.Field().Interface().(json.RawMessage)
		if !ok {
			return false
		}
		trimmed := bytes.TrimSpace(raw)
		return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
	})

	// reponame: the characters GitHub accepts in a repository name.
	v.RegisterValidation("reponame", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		return repoNamePattern.MatchString(name) && name != "." && name != ".."
	})

	return v
}

// DecodeJSON reads a JSON request body into v without validating it.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	err := json.NewDecoder(body).Decode(v)
	if errors.Is(err, io.EOF) {
		return errors.New("request body is empty")
	}
	if err != nil {
		return fmt.Errorf("request body is not valid JSON: %w", err)
	}

	return nil
}

// ValidateStruct runs the validate tags of v and flattens the first failure
// into a client-facing message.
func ValidateStruct(v any) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return err
	}

	fieldErr := validationErrors[0]
	switch fieldErr.Tag() {
	case "required", "jsonvalue":
		return fmt.Errorf("%s is required", fieldErr.Field())
	default:
		return fmt.Errorf("%s is invalid", fieldErr.Field())
	}
}
