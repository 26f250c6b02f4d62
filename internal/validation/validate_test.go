package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validContact() map[string]any {
	return map[string]any{
		"firstName": "Jane",
		"lastName":  "Doe",
		"email":     "jane.doe@example.com",
		"phone":     "+1 555 0100",
		"service":   "Strategy consulting",
		"message":   "I would like to discuss a project.",
	}
}

func TestValidate_ContactSuccess(t *testing.T) {
	record, err := Validate(ContactSchema, validContact())
	require.NoError(t, err)

	assert.Equal(t, "Jane", record.Field(FieldFirstName))
	assert.Equal(t, "Doe", record.Field(FieldLastName))
	assert.Equal(t, "jane.doe@example.com", record.Field(FieldEmail))
	assert.Equal(t, "+1 555 0100", record.Field(FieldPhone))
	assert.Equal(t, "Strategy consulting", record.Field(FieldService))
	assert.Equal(t, "I would like to discuss a project.", record.Field(FieldMessage))
	assert.Len(t, record, len(ContactSchema.Fields))
}

func TestValidate_OptionalFieldsNormalizeToEmpty(t *testing.T) {
	raw := validContact()
	delete(raw, "phone")
	raw["service"] = nil

	record, err := Validate(ContactSchema, raw)
	require.NoError(t, err)

	value, ok := record[FieldPhone]
	assert.True(t, ok, "absent optional field should be present in the record")
	assert.Equal(t, "", value)
	assert.Equal(t, "", record[FieldService])
}

func TestValidate_SanitizesValues(t *testing.T) {
	raw := validContact()
	raw["firstName"] = "  <b>Jane</b> "
	raw["message"] = `Hello "team", it's <script>alert(1)</script> & more`

	record, err := Validate(ContactSchema, raw)
	require.NoError(t, err)

	assert.Equal(t, "&lt;b&gt;Jane&lt;/b&gt;", record[FieldFirstName])
	assert.Equal(t, "Hello &quot;team&quot;, it&#39;s &lt;script&gt;alert(1)&lt;/script&gt; &amp; more", record[FieldMessage])
}

func TestValidate_RecordFreeOfMetacharacters(t *testing.T) {
	raw := map[string]any{
		"firstName": `O'Brien & "Sons"`,
		"lastName":  "<Doe>",
		"email":     "o'brien&sons@example.com",
		"phone":     "<1>",
		"service":   `"x" & 'y'`,
		"message":   "<<<<>>>> &&&& '''' \"\"\"\"",
	}

	record, err := Validate(ContactSchema, raw)
	require.NoError(t, err)

	for field, value := range record {
		assert.False(t, strings.ContainsAny(value, `<>"'`), "field %s holds raw markup: %q", field, value)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	raw := map[string]any{
		"firstName": "",
		"lastName":  "Doe",
		"email":     "bad",
		"message":   "short",
	}

	record, err := Validate(ContactSchema, raw)
	require.Error(t, err)
	assert.Nil(t, record)

	var fieldErrs FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, []string{FieldFirstName, FieldEmail, FieldMessage}, fieldErrs.Fields())
	assert.True(t, fieldErrs.Has(FieldFirstName, CodeRequired))
	assert.True(t, fieldErrs.Has(FieldEmail, CodeMinLength))
	assert.True(t, fieldErrs.Has(FieldMessage, CodeMinLength))
}

func TestValidate_LengthBounds(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
		code  string
	}{
		{name: "first name too long", field: FieldFirstName, value: strings.Repeat("a", 101), code: CodeMaxLength},
		{name: "last name too long", field: FieldLastName, value: strings.Repeat("a", 101), code: CodeMaxLength},
		{name: "phone too long", field: FieldPhone, value: strings.Repeat("1", 21), code: CodeMaxLength},
		{name: "service too long", field: FieldService, value: strings.Repeat("s", 201), code: CodeMaxLength},
		{name: "message too short", field: FieldMessage, value: "123456789", code: CodeMinLength},
		{name: "message too long", field: FieldMessage, value: strings.Repeat("m", 5001), code: CodeMaxLength},
		{name: "email too long", field: FieldEmail, value: strings.Repeat("a", 250) + "@b.co", code: CodeMaxLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validContact()
			raw[tt.field] = tt.value

			_, err := Validate(ContactSchema, raw)
			var fieldErrs FieldErrors
			require.ErrorAs(t, err, &fieldErrs)
			assert.True(t, fieldErrs.Has(tt.field, tt.code), "got %v", fieldErrs)
		})
	}
}

func TestValidate_LengthBoundariesAccepted(t *testing.T) {
	raw := validContact()
	raw["firstName"] = strings.Repeat("a", 100)
	raw["phone"] = strings.Repeat("1", 20)
	raw["message"] = strings.Repeat("m", 10)

	_, err := Validate(ContactSchema, raw)
	assert.NoError(t, err)
}

func TestValidate_LongMessageIsTruncated(t *testing.T) {
	raw := validContact()
	raw["message"] = strings.Repeat("m", 4000)

	record, err := Validate(ContactSchema, raw)
	require.NoError(t, err)
	assert.Len(t, record[FieldMessage], MaxSanitizedLength)
}

func TestValidate_NonStringValue(t *testing.T) {
	raw := validContact()
	raw["firstName"] = 42.0
	raw["email"] = []any{"a@b.co"}

	_, err := Validate(ContactSchema, raw)
	var fieldErrs FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.True(t, fieldErrs.Has(FieldFirstName, CodeType))
	assert.True(t, fieldErrs.Has(FieldEmail, CodeType))
}

func TestValidate_BlankRequiredField(t *testing.T) {
	raw := validContact()
	raw["lastName"] = "   "

	_, err := Validate(ContactSchema, raw)
	var fieldErrs FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.True(t, fieldErrs.Has(FieldLastName, CodeRequired))
}

func TestValidate_IgnoresUnknownFields(t *testing.T) {
	raw := map[string]any{"email": "reader@example.com", "admin": true}

	record, err := Validate(SubscribeSchema, raw)
	require.NoError(t, err)
	assert.Equal(t, Record{FieldEmail: "reader@example.com"}, record)
}

func TestValidate_SubscribeMissingEmail(t *testing.T) {
	_, err := Validate(SubscribeSchema, map[string]any{})

	var fieldErrs FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, []string{FieldEmail}, fieldErrs.Fields())
	assert.Contains(t, err.Error(), "email: is required")
}

func TestValidate_UnsanitizedFieldRejectsMarkup(t *testing.T) {
	schema := Schema{Name: "raw", Fields: []FieldRule{{Name: "token", Required: true}}}

	record, err := Validate(schema, map[string]any{"token": "abc123"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", record["token"])

	_, err = Validate(schema, map[string]any{"token": "<abc>"})
	var fieldErrs FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.True(t, fieldErrs.Has("token", CodeUnsafe))
}

func TestIsEmail(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"user@example.com", true},
		{"first.last+tag@sub.example.co.uk", true},
		{"user@localhost", false},
		{"user@example.", false},
		{"user@.com", false},
		{"@example.com", false},
		{"user.example.com", false},
		{"user@@example.com", false},
		{"us er@example.com", false},
		{"user@exa mple.com", false},
		{"user@example.com ", false},
		{"bad", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsEmail(tt.input))
		})
	}
}

func TestFieldErrors_ErrorMessage(t *testing.T) {
	errs := FieldErrors{
		{Field: "email", Code: CodeEmail, Message: "invalid email address"},
		{Field: "message", Code: CodeMinLength, Message: "must be at least 10 characters"},
	}

	assert.Equal(t, "validation failed: email: invalid email address; message: must be at least 10 characters", errs.Error())
}
