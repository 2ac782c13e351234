// Package contact holds the contact form's state machine and its validator.
//
// A Controller owns the values of one visitor's form, the per-field error
// messages from the last submit attempt, and the transient submitted flag.
// Validate is the pure rule set the controller runs on submit.
package contact

import "fmt"

// Field names one input of the contact form. The string value is the name
// used in HTML forms and live messages.
type Field string

const (
	FieldFullName Field = "fullName"
	FieldEmail    Field = "email"
	FieldSubject  Field = "subject"
	FieldMessage  Field = "message"
)

// Fields lists every form field in display order.
var Fields = []Field{FieldFullName, FieldEmail, FieldSubject, FieldMessage}

// ParseField resolves a field name received from a client.
func ParseField(name string) (Field, error) {
	for _, f := range Fields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown field %q", name)
}

// Values is the current content of the four form fields.
type Values struct {
	FullName string `json:"fullName" yaml:"fullName"`
	Email    string `json:"email" yaml:"email"`
	Subject  string `json:"subject" yaml:"subject"`
	Message  string `json:"message" yaml:"message"`
}

// Get returns the value of one field.
func (v Values) Get(f Field) string {
	switch f {
	case FieldFullName:
		return v.FullName
	case FieldEmail:
		return v.Email
	case FieldSubject:
		return v.Subject
	case FieldMessage:
		return v.Message
	default:
		return ""
	}
}

// Set replaces the value of one field. Unknown fields are ignored.
func (v *Values) Set(f Field, value string) {
	switch f {
	case FieldFullName:
		v.FullName = value
	case FieldEmail:
		v.Email = value
	case FieldSubject:
		v.Subject = value
	case FieldMessage:
		v.Message = value
	}
}

// IsEmpty reports whether every field is the empty string.
func (v Values) IsEmpty() bool {
	return v == Values{}
}

// Errors maps a field to its current error message. A missing key means the
// field is valid or has not been validated yet.
type Errors map[Field]string

// Clone returns an independent copy.
func (e Errors) Clone() Errors {
	out := make(Errors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}
