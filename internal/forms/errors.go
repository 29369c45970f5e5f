package forms

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// NonField is the Errors key for messages that apply to the whole form.
const NonField = "__all__"

// Errors maps a form field name to its validation messages.
type Errors map[string][]string

// Add appends msg to field.
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Get returns the messages for field.
func (e Errors) Get(field string) []string {
	return e[field]
}

// Has reports whether field has at least one message.
func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// Any reports whether the form has any message at all.
func (e Errors) Any() bool {
	return len(e) > 0
}

// Form is a struct decoded from posted values. Normalize runs after decoding
// and before validation (trimming, lowercasing).
type Form interface {
	Normalize()
}

// Decode maps values onto form using its `form` tags, normalises it and
// validates it with gin's `binding` tags. A nil or empty Errors means valid.
func Decode(values url.Values, form Form) Errors {
	errs := Errors{}
	if err := binding.MapFormWithTag(form, values, "form"); err != nil {
		errs.Add(NonField, "The submitted data could not be read.")
		return errs
	}
	form.Normalize()
	return Validate(form)
}

// Validate checks form against its `binding` tags.
func Validate(form any) Errors {
	errs := Errors{}
	err := binding.Validator.ValidateStruct(form)
	if err == nil {
		return errs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add(NonField, err.Error())
		return errs
	}
	for _, fe := range verrs {
		errs.Add(fieldName(form, fe.StructField()), message(fe))
	}
	return errs
}

// fieldName resolves the posted name of a struct field from its `form` tag.
func fieldName(form any, structField string) string {
	t := reflect.TypeOf(form)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return structField
	}
	f, ok := t.FieldByName(structField)
	if !ok {
		return structField
	}
	name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
	if name == "" || name == "-" {
		return structField
	}
	return name
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "oneof":
		return "Select a valid choice."
	case "eqfield":
		return "The two password fields didn't match."
	default:
		return "Enter a valid value."
	}
}
