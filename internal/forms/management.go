package forms

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

const (
	// TotalFormsField is the management field holding the number of rows posted.
	TotalFormsField = "TOTAL_FORMS"
	// InitialFormsField is the management field holding the number of rows bound to stored records.
	InitialFormsField = "INITIAL_FORMS"
	// DeleteField marks a row for deletion.
	DeleteField = "DELETE"
	// MaxForms caps TOTAL_FORMS.
	MaxForms = 1000
)

var (
	// ErrManagementForm is returned when the management fields are missing or inconsistent.
	ErrManagementForm = errors.New("management form data is missing or has been tampered with")
	// ErrTooManyForms is returned when TOTAL_FORMS exceeds MaxForms.
	ErrTooManyForms = fmt.Errorf("please submit at most %d forms", MaxForms)
)

// Management is the decoded management form of a formset.
type Management struct {
	Total   int
	Initial int
}

// FieldName returns the posted name of a row field.
func FieldName(prefix string, index int, field string) string {
	return fmt.Sprintf("%s-%d-%s", prefix, index, field)
}

// ManagementName returns the posted name of a management field.
func ManagementName(prefix, field string) string {
	return prefix + "-" + field
}

// ParseManagement reads TOTAL_FORMS and INITIAL_FORMS for prefix.
func ParseManagement(values url.Values, prefix string) (Management, error) {
	total, err := strconv.Atoi(values.Get(ManagementName(prefix, TotalFormsField)))
	if err != nil {
		return Management{}, ErrManagementForm
	}
	initial, err := strconv.Atoi(values.Get(ManagementName(prefix, InitialFormsField)))
	if err != nil {
		return Management{}, ErrManagementForm
	}
	if total < 0 || initial < 0 || initial > total {
		return Management{}, ErrManagementForm
	}
	if total > MaxForms {
		return Management{}, ErrTooManyForms
	}
	return Management{Total: total, Initial: initial}, nil
}

// HasManagement reports whether values carry a management form for prefix.
func HasManagement(values url.Values, prefix string) bool {
	_, ok := values[ManagementName(prefix, TotalFormsField)]
	return ok
}

// checked interprets a checkbox value the way browsers and htmx post it.
func checked(v string) bool {
	switch v {
	case "on", "true", "1", "yes", "checked":
		return true
	default:
		return false
	}
}
