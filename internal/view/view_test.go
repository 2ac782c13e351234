package view

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/joaovieira77/contactForm/internal/contact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func parse(t *testing.T, markup string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && attr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func findByClass(n *html.Node, class string) []*html.Node {
	var out []*html.Node
	if n.Type == html.ElementNode {
		for _, c := range strings.Fields(attr(n, "class")) {
			if c == class {
				out = append(out, n)
				break
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, findByClass(c, class)...)
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func render(t *testing.T, snap contact.Snapshot) *html.Node {
	t.Helper()
	out, err := RenderString(context.Background(), Form(snap))
	require.NoError(t, err)
	return parse(t, out)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Full Name", DisplayName(contact.FieldFullName))
	assert.Equal(t, "Email", DisplayName(contact.FieldEmail))
	assert.Equal(t, "Subject", DisplayName(contact.FieldSubject))
	assert.Equal(t, "Message", DisplayName(contact.FieldMessage))
}

func TestSpecs(t *testing.T) {
	require.Len(t, Specs, len(contact.Fields))
	labels := make([]string, 0, len(Specs))
	for i, spec := range Specs {
		assert.Equal(t, contact.Fields[i], spec.Field)
		labels = append(labels, spec.Label)
	}
	assert.Equal(t, []string{"Full Name", "Email Address", "Subject", "Message"}, labels)
}

func TestFormEmpty(t *testing.T) {
	doc := render(t, contact.Snapshot{Errors: contact.Errors{}})

	form := findByID(doc, FormID)
	require.NotNil(t, form)
	assert.True(t, hasAttr(form, "novalidate"))
	assert.Equal(t, "/submit", attr(form, "action"))
	assert.Equal(t, "editing", attr(form, "data-state"))
	assert.Contains(t, text(form), Heading)
	assert.Contains(t, text(form), SubmitLabel)

	for _, spec := range Specs {
		input := findByID(doc, string(spec.Field))
		require.NotNil(t, input, spec.Field)
		assert.Equal(t, string(spec.Field), attr(input, "name"))
		assert.Equal(t, spec.Placeholder, attr(input, "placeholder"))
		assert.True(t, hasAttr(input, "required"))

		errP := findByID(doc, ErrorID(spec.Field))
		require.NotNil(t, errP)
		assert.True(t, hasAttr(errP, "hidden"))
	}

	assert.Equal(t, "textarea", findByID(doc, "message").Data)
	assert.Equal(t, "email", attr(findByID(doc, "email"), "type"))
	assert.Empty(t, findByClass(doc, "contact-form__success"))
}

func TestFormErrorsAndValues(t *testing.T) {
	snap := contact.Snapshot{
		Values: contact.Values{FullName: "Jo", Email: "bad-email", Message: "a < b & c"},
		Errors: contact.Errors{
			contact.FieldEmail:   contact.MsgEmailInvalid,
			contact.FieldSubject: contact.MsgSubjectRequired,
		},
		State: contact.StateInvalid,
	}
	doc := render(t, snap)

	assert.Equal(t, "invalid", attr(findByID(doc, FormID), "data-state"))
	assert.Equal(t, "Jo", attr(findByID(doc, "fullName"), "value"))
	assert.Equal(t, "bad-email", attr(findByID(doc, "email"), "value"))
	assert.Equal(t, "a < b & c", text(findByID(doc, "message")))

	emailErr := findByID(doc, ErrorID(contact.FieldEmail))
	assert.False(t, hasAttr(emailErr, "hidden"))
	assert.Equal(t, contact.MsgEmailInvalid, text(emailErr))
	assert.Equal(t, contact.MsgSubjectRequired, text(findByID(doc, ErrorID(contact.FieldSubject))))
	assert.True(t, hasAttr(findByID(doc, ErrorID(contact.FieldFullName)), "hidden"))

	marked := findByClass(doc, "contact-form__input--error")
	require.Len(t, marked, 2)
	assert.Equal(t, "email", attr(marked[0], "name"))
	assert.Equal(t, "subject", attr(marked[1], "name"))
}

func TestFormEscapesValues(t *testing.T) {
	snap := contact.Snapshot{
		Values: contact.Values{FullName: `"><script>alert(1)</script>`},
		Errors: contact.Errors{},
	}
	out, err := RenderString(context.Background(), Form(snap))
	require.NoError(t, err)

	assert.NotContains(t, out, "<script>")
	doc := parse(t, out)
	assert.Equal(t, `"><script>alert(1)</script>`, attr(findByID(doc, "fullName"), "value"))
}

func TestFormSuccessMessage(t *testing.T) {
	doc := render(t, contact.Snapshot{Errors: contact.Errors{}, Submitted: true, State: contact.StateSubmittedSuccess})

	success := findByClass(doc, "contact-form__success")
	require.Len(t, success, 1)
	assert.Equal(t, SuccessMessage, text(success[0]))
	assert.Equal(t, "submitted_success", attr(findByID(doc, FormID), "data-state"))
}

func TestPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Page(contact.Snapshot{Errors: contact.Errors{}}, PageOptions{LivePath: "/ws"}).Render(context.Background(), &buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, `var path="/ws",fields=["fullName","email","subject","message"],formId="contact-form"`)

	doc := parse(t, out)
	assert.NotNil(t, findByID(doc, FormID))

	buf.Reset()
	require.NoError(t, Page(contact.Snapshot{Errors: contact.Errors{}}, PageOptions{Title: "Reach us"}).Render(context.Background(), &buf))
	assert.NotContains(t, buf.String(), "<script>")
	assert.Contains(t, buf.String(), "<title>Reach us</title>")
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("closed pipe") }

func TestRenderPropagatesWriteErrors(t *testing.T) {
	err := Form(contact.Snapshot{Errors: contact.Errors{}}).Render(context.Background(), failingWriter{})
	assert.EqualError(t, err, "closed pipe")

	err = Page(contact.Snapshot{Errors: contact.Errors{}}, PageOptions{}).Render(context.Background(), failingWriter{})
	assert.Error(t, err)
}
