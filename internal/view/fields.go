// Package view renders the contact form as templ components.
//
// The components are written against templ's runtime directly
// (templ.ComponentFunc) so the package builds without a generate step. Every
// visitor-supplied string passes through templ.EscapeString.
package view

import (
	"strings"
	"unicode"

	"github.com/joaovieira77/contactForm/internal/contact"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fixed copy shown on the form.
const (
	Heading        = "Contact Us"
	SubmitLabel    = "Send Message"
	SuccessMessage = "Thank you for contacting us!"
)

// InputKind selects the element rendered for a field.
type InputKind string

const (
	InputText     InputKind = "text"
	InputEmail    InputKind = "email"
	InputTextarea InputKind = "textarea"
)

// FieldSpec is the presentation metadata for one field.
type FieldSpec struct {
	Field       contact.Field
	Label       string
	Kind        InputKind
	Placeholder string
	Wide        bool
}

var titleCaser = cases.Title(language.English)

// DisplayName turns a field name such as "fullName" into "Full Name".
func DisplayName(f contact.Field) string {
	var b strings.Builder
	for i, r := range string(f) {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return titleCaser.String(b.String())
}

// Specs lists the rendered fields in display order.
var Specs = []FieldSpec{
	{
		Field:       contact.FieldFullName,
		Label:       DisplayName(contact.FieldFullName),
		Kind:        InputText,
		Placeholder: "Your full name",
	},
	{
		Field:       contact.FieldEmail,
		Label:       DisplayName(contact.FieldEmail) + " Address",
		Kind:        InputEmail,
		Placeholder: "you@email.com",
	},
	{
		Field:       contact.FieldSubject,
		Label:       DisplayName(contact.FieldSubject),
		Kind:        InputText,
		Placeholder: "Subject of your message",
		Wide:        true,
	},
	{
		Field:       contact.FieldMessage,
		Label:       DisplayName(contact.FieldMessage),
		Kind:        InputTextarea,
		Placeholder: "Type your message here...",
		Wide:        true,
	},
}
