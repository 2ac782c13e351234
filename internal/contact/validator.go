package contact

import (
	"regexp"
	"strings"
	"unicode"

	formerrors "github.com/joaovieira77/contactForm/internal/errors"
)

// Error messages shown beneath invalid fields.
const (
	MsgFullNameRequired = "Full Name is required"
	MsgEmailRequired    = "Email is required"
	MsgEmailInvalid     = "Invalid email format"
	MsgSubjectRequired  = "Subject is required"
	MsgMessageRequired  = "Message is required"
)

// nonSpace matches one rune for which isSpace is false. RE2's \S only excludes
// ASCII whitespace, so the Unicode separators and the BOM are listed.
const nonSpace = `[^\t\n\v\f\r\p{Z}\x{FEFF}]`

// emailPattern is a shape check only: something, '@', something, '.',
// something, with no whitespace anywhere.
var emailPattern = regexp.MustCompile(`^` + nonSpace + `+@` + nonSpace + `+\.` + nonSpace + `+$`)

// ValidEmail reports whether s has the minimal address shape.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidateDetailed checks every field independently and returns one
// FieldError per failing field, in display order.
func ValidateDetailed(v Values) []*formerrors.FieldError {
	var errs []*formerrors.FieldError

	if isBlank(v.FullName) {
		errs = append(errs, formerrors.RequiredFieldMissing(string(FieldFullName), MsgFullNameRequired))
	}

	if isBlank(v.Email) {
		errs = append(errs, formerrors.RequiredFieldMissing(string(FieldEmail), MsgEmailRequired))
	} else if !ValidEmail(v.Email) {
		errs = append(errs, formerrors.InvalidFormat(string(FieldEmail), MsgEmailInvalid))
	}

	if isBlank(v.Subject) {
		errs = append(errs, formerrors.RequiredFieldMissing(string(FieldSubject), MsgSubjectRequired))
	}

	if isBlank(v.Message) {
		errs = append(errs, formerrors.RequiredFieldMissing(string(FieldMessage), MsgMessageRequired))
	}

	return errs
}

// Validate returns the error message for each failing field. Passing fields
// are absent from the result; an empty map means the form is valid.
func Validate(v Values) Errors {
	out := make(Errors)
	for _, fe := range ValidateDetailed(v) {
		out[Field(fe.Field)] = fe.Message
	}
	return out
}

// isSpace is the whitespace set shared by the blank checks and nonSpace.
// NEL (U+0085) is not part of it.
func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', '\uFEFF':
		return true
	}
	return unicode.In(r, unicode.Z)
}

func isBlank(s string) bool {
	return strings.TrimFunc(s, isSpace) == ""
}
