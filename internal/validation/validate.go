package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Error codes carried by FieldError.
const (
	CodeRequired  = "required"
	CodeType      = "type"
	CodeMinLength = "min_length"
	CodeMaxLength = "max_length"
	CodeEmail     = "email"
	CodeUnsafe    = "unsafe"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// FieldError describes one failed check. Message is for operators and tests;
// it is never sent to the client.
type FieldError struct {
	Field   string
	Code    string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FieldErrors is the aggregate failure returned by Validate.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, e := range fe {
		parts = append(parts, e.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields returns the names of the failing fields in schema order.
func (fe FieldErrors) Fields() []string {
	names := make([]string, 0, len(fe))
	for _, e := range fe {
		names = append(names, e.Field)
	}
	return names
}

// Has reports whether field failed with code.
func (fe FieldErrors) Has(field, code string) bool {
	for _, e := range fe {
		if e.Field == field && e.Code == code {
			return true
		}
	}
	return false
}

// Validate checks raw against schema. Every field is checked even after a
// failure, so the returned FieldErrors lists all problems. On success the
// Record holds one sanitized value per schema field. Keys in raw that the
// schema does not declare are ignored.
func Validate(schema Schema, raw map[string]any) (Record, error) {
	var errs FieldErrors
	record := make(Record, len(schema.Fields))

	for _, rule := range schema.Fields {
		value, present, err := lookup(raw, rule)
		if err != nil {
			errs = append(errs, *err)
			continue
		}
		if !present {
			if rule.Required {
				errs = append(errs, FieldError{Field: rule.Name, Code: CodeRequired, Message: "is required"})
				continue
			}
			record[rule.Name] = ""
			continue
		}

		if fieldErr := check(rule, value); fieldErr != nil {
			errs = append(errs, *fieldErr)
			continue
		}

		if rule.Sanitize {
			value = Sanitize(value)
		}
		record[rule.Name] = value
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return record, nil
}

// lookup extracts the string value for rule. A missing key, a JSON null and a
// blank string all count as absent.
func lookup(raw map[string]any, rule FieldRule) (string, bool, *FieldError) {
	v, ok := raw[rule.Name]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, &FieldError{Field: rule.Name, Code: CodeType, Message: fmt.Sprintf("must be a string, got %T", v)}
	}
	if strings.TrimSpace(s) == "" {
		return "", false, nil
	}
	return s, true, nil
}

func check(rule FieldRule, value string) *FieldError {
	n := utf8.RuneCountInString(value)
	if rule.MinLen > 0 && n < rule.MinLen {
		return &FieldError{Field: rule.Name, Code: CodeMinLength, Message: fmt.Sprintf("must be at least %d characters", rule.MinLen)}
	}
	if rule.MaxLen > 0 && n > rule.MaxLen {
		return &FieldError{Field: rule.Name, Code: CodeMaxLength, Message: fmt.Sprintf("must not exceed %d characters", rule.MaxLen)}
	}

	if rule.Kind == KindEmail && !IsEmail(value) {
		return &FieldError{Field: rule.Name, Code: CodeEmail, Message: "invalid email address"}
	}

	if !rule.Sanitize && strings.ContainsAny(value, `&<>"'`) {
		return &FieldError{Field: rule.Name, Code: CodeUnsafe, Message: "contains markup characters"}
	}
	return nil
}

// IsEmail reports whether s is a single address of the form local@domain with
// at least one dot in the domain and no whitespace.
func IsEmail(s string) bool {
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return false
	}
	local, domain, ok := strings.Cut(s, "@")
	if !ok || local == "" || strings.Contains(domain, "@") {
		return false
	}
	dot := strings.LastIndexByte(domain, '.')
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}
	return validate.Var(s, "email") == nil
}
