package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/service"
)

// NoteForm is the form object behind the add and edit pages.
// Errors maps a field name ("title", "text", "slug", "form") to its message.
type NoteForm struct {
	Title   string
	Text    string
	Slug    string
	Editing bool
	Errors  map[string]string
}

func newNoteForm(r *http.Request) (*NoteForm, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return &NoteForm{
		Title: strings.TrimSpace(r.PostForm.Get("title")),
		Text:  r.PostForm.Get("text"),
		Slug:  strings.TrimSpace(r.PostForm.Get("slug")),
	}, nil
}

func noteFormFrom(n *model.Note) *NoteForm {
	return &NoteForm{Title: n.Title, Text: n.Text, Slug: n.Slug, Editing: true}
}

// Valid checks what the HTML form requires before the service sees it.
// The JSON API skips this: there only the title is mandatory.
func (f *NoteForm) Valid() bool {
	if f.Title == "" {
		f.setError("title", "This field is required.")
	}
	if strings.TrimSpace(f.Text) == "" {
		f.setError("text", "This field is required.")
	}
	return len(f.Errors) == 0
}

func (f *NoteForm) Input() service.NoteInput {
	return service.NoteInput{Title: f.Title, Text: f.Text, Slug: f.Slug}
}

func (f *NoteForm) setError(field, msg string) {
	if f.Errors == nil {
		f.Errors = make(map[string]string)
	}
	f.Errors[field] = msg
}

// LoginForm is the form object behind the login page.
type LoginForm struct {
	Username string
	Errors   map[string]string
}

// SignupForm is the form object behind the signup page.
type SignupForm struct {
	Username string
	Errors   map[string]string
}

// fieldErrors turns a validation or conflict error into form errors.
// It returns nil for anything else, which the caller treats as a 500.
func fieldErrors(err error) map[string]string {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return nil
	}
	if !errors.Is(err, apperror.ErrValidation) && !errors.Is(err, apperror.ErrConflict) {
		return nil
	}
	field := appErr.Field
	if field == "" {
		field = service.FormField
	}
	return map[string]string{field: appErr.Message}
}
