// Package validation holds the declarative form schemas, the field validator
// and the HTML sanitizer applied to every accepted value.
//
// A Record returned by Validate is safe to interpolate into HTML: every value
// has passed through Sanitize exactly once.
package validation

// Kind selects the grammar check applied to a field after its length checks.
type Kind int

const (
	KindText Kind = iota
	KindEmail
)

func (k Kind) String() string {
	switch k {
	case KindEmail:
		return "email"
	default:
		return "text"
	}
}

// FieldRule is the contract for a single form field. A zero MinLen or MaxLen
// disables that bound.
type FieldRule struct {
	Name     string
	Required bool
	MinLen   int
	MaxLen   int
	Kind     Kind
	Sanitize bool
}

// Schema is an ordered set of field rules. Fields are checked in declaration
// order and errors are reported in the same order.
type Schema struct {
	Name   string
	Fields []FieldRule
}

// Record maps field names to sanitized values. Every field declared by the
// schema is present; absent optional fields hold the empty string.
type Record map[string]string

// Field returns the value of name, or "" when the record does not hold it.
func (r Record) Field(name string) string {
	return r[name]
}

// Field names shared by the schemas and the notification templates.
const (
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldEmail     = "email"
	FieldPhone     = "phone"
	FieldService   = "service"
	FieldMessage   = "message"
)

func emailRule() FieldRule {
	return FieldRule{
		Name:     FieldEmail,
		Required: true,
		MinLen:   5,
		MaxLen:   254,
		Kind:     KindEmail,
		Sanitize: true,
	}
}

// ContactSchema describes the contact inquiry form.
var ContactSchema = Schema{
	Name: "contact",
	Fields: []FieldRule{
		{Name: FieldFirstName, Required: true, MaxLen: 100, Sanitize: true},
		{Name: FieldLastName, Required: true, MaxLen: 100, Sanitize: true},
		emailRule(),
		{Name: FieldPhone, MaxLen: 20, Sanitize: true},
		{Name: FieldService, MaxLen: 200, Sanitize: true},
		{Name: FieldMessage, Required: true, MinLen: 10, MaxLen: 5000, Sanitize: true},
	},
}

// SubscribeSchema describes the newsletter subscription form.
var SubscribeSchema = Schema{
	Name:   "subscribe",
	Fields: []FieldRule{emailRule()},
}
