package view

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/joaovieira77/contactForm/internal/contact"
)

// FormID is the id of the form element; live updates replace it wholesale.
const FormID = "contact-form"

// ErrorID returns the id of the inline error paragraph for f.
func ErrorID(f contact.Field) string {
	return "error-" + string(f)
}

// Form renders the form fragment for one snapshot: every field with its
// value and inline error, the submit button and, while the submitted flag is
// up, the success message.
func Form(snap contact.Snapshot) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}

		ew.printf(`<form id="%s" class="contact-form" method="post" action="/submit" novalidate data-state="%s">`,
			FormID, snap.State.String())
		ew.printf(`<h2 class="contact-form__heading">%s</h2>`, templ.EscapeString(Heading))
		ew.write(`<div class="contact-form__grid">`)
		if ew.err != nil {
			return ew.err
		}

		for _, spec := range Specs {
			if err := Field(spec, snap.Values.Get(spec.Field), snap.Errors[spec.Field]).Render(ctx, w); err != nil {
				return err
			}
		}

		ew.write(`</div>`)
		ew.printf(`<button type="submit" class="contact-form__submit">%s</button>`, templ.EscapeString(SubmitLabel))
		if snap.Submitted {
			ew.printf(`<p class="contact-form__success" role="status">%s</p>`, templ.EscapeString(SuccessMessage))
		}
		ew.write(`</form>`)
		return ew.err
	})
}

// Field renders one labelled input or textarea.
func Field(spec FieldSpec, value, errMsg string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		name := templ.EscapeString(string(spec.Field))

		wrapper := "contact-form__field"
		if spec.Wide {
			wrapper += " contact-form__field--wide"
		}
		inputClass := "contact-form__input"
		if errMsg != "" {
			inputClass += " contact-form__input--error"
		}

		ew.printf(`<div class="%s">`, wrapper)
		ew.printf(`<label for="%s">%s</label>`, name, templ.EscapeString(spec.Label))

		switch spec.Kind {
		case InputTextarea:
			ew.printf(`<textarea id="%s" name="%s" class="%s" placeholder="%s" required>%s</textarea>`,
				name, name, inputClass, templ.EscapeString(spec.Placeholder), templ.EscapeString(value))
		default:
			ew.printf(`<input type="%s" id="%s" name="%s" class="%s" value="%s" placeholder="%s" required>`,
				spec.Kind, name, name, inputClass, templ.EscapeString(value), templ.EscapeString(spec.Placeholder))
		}

		ew.printf(`<p id="%s" class="contact-form__error"%s>%s</p>`,
			ErrorID(spec.Field), hiddenAttr(errMsg == ""), templ.EscapeString(errMsg))
		ew.write(`</div>`)
		return ew.err
	})
}

// RenderString renders c to a string.
func RenderString(ctx context.Context, c templ.Component) (string, error) {
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func hiddenAttr(hidden bool) string {
	if hidden {
		return " hidden"
	}
	return ""
}

// errWriter stops writing after the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) write(s string) {
	if e.err != nil {
		return
	}
	_, e.err = io.WriteString(e.w, s)
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
