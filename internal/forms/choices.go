package forms

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/survey-studio/backend/internal/models"
)

const (
	// MinChoices is the fewest choices a multiple choice question may keep.
	MinChoices = 2
	// MaxChoiceTitle is the maximum choice title length in characters.
	MaxChoiceTitle = 255

	MsgTooFewChoices   = "A multiple choice question needs at least 2 choices."
	MsgEmptyExisting   = "Enter a title or tick delete to remove this choice."
	MsgUnknownChoice   = "Select a valid choice. That choice is no longer available."
	MsgDuplicateTitle  = "Choice titles must be unique within a question."
	MsgDuplicateStored = "This question already has a choice with one of these titles. Reload the editor to see its current choices."
)

// ChoiceForm is one row of a ChoiceFormSet.
type ChoiceForm struct {
	Prefix   string
	Index    int
	ChoiceID uuid.UUID
	// Initial is the stored title of a bound existing choice.
	Initial string
	Title   string
	Delete  bool
	Errors  []string
}

// Name returns the posted name for one of the row's fields.
func (f *ChoiceForm) Name(field string) string {
	return FieldName(f.Prefix, f.Index, field)
}

// Existing reports whether the row edits a stored choice.
func (f *ChoiceForm) Existing() bool {
	return f.ChoiceID != uuid.Nil
}

// Counts reports whether the row survives the save as a choice.
func (f *ChoiceForm) Counts() bool {
	return !f.Delete && f.Title != ""
}

// ChoiceFormSet edits the choices of one question.
type ChoiceFormSet struct {
	Prefix        string
	Forms         []*ChoiceForm
	Initial       int
	NonFormErrors []string
	// SkipMinCheck disables the minimum count rule. Set when re-rendering
	// a partially filled editor, never on save.
	SkipMinCheck bool
	Bound        bool
}

// NewChoiceFormSet returns an unbound formset prefilled with existing
// choices followed by extra blank rows.
func NewChoiceFormSet(prefix string, existing []models.Choice, extra int) *ChoiceFormSet {
	fs := &ChoiceFormSet{Prefix: prefix, Initial: len(existing)}
	for i, ch := range existing {
		fs.Forms = append(fs.Forms, &ChoiceForm{
			Prefix:   prefix,
			Index:    i,
			ChoiceID: ch.ID,
			Initial:  ch.Title,
			Title:    ch.Title,
		})
	}
	for i := 0; i < extra; i++ {
		fs.AddBlank()
	}
	return fs
}

// BindChoiceFormSet binds posted rows for prefix. Rows below INITIAL_FORMS
// must reference one of existing by id.
func BindChoiceFormSet(values url.Values, prefix string, existing []models.Choice) (*ChoiceFormSet, error) {
	m, err := ParseManagement(values, prefix)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Choice, len(existing))
	for _, ch := range existing {
		byID[ch.ID] = ch
	}
	seen := make(map[uuid.UUID]bool, m.Initial)

	fs := &ChoiceFormSet{Prefix: prefix, Initial: m.Initial, Bound: true}
	for i := 0; i < m.Total; i++ {
		f := &ChoiceForm{Prefix: prefix, Index: i}
		f.Title = strings.TrimSpace(values.Get(f.Name("title")))
		f.Delete = checked(values.Get(f.Name(DeleteField)))
		if utf8.RuneCountInString(f.Title) > MaxChoiceTitle {
			f.Errors = append(f.Errors, fmt.Sprintf("Ensure this value has at most %d characters.", MaxChoiceTitle))
		}
		if i < m.Initial {
			id, perr := uuid.Parse(values.Get(f.Name("id")))
			ch, ok := byID[id]
			if perr != nil || !ok || seen[id] {
				f.Errors = append(f.Errors, MsgUnknownChoice)
			} else {
				seen[id] = true
				f.ChoiceID = ch.ID
				f.Initial = ch.Title
			}
		}
		fs.Forms = append(fs.Forms, f)
	}
	return fs, nil
}

// AddBlank appends an empty row for a new choice.
func (fs *ChoiceFormSet) AddBlank() {
	fs.Forms = append(fs.Forms, &ChoiceForm{Prefix: fs.Prefix, Index: len(fs.Forms)})
}

// TotalForms is the value rendered into the TOTAL_FORMS management field.
func (fs *ChoiceFormSet) TotalForms() int {
	return len(fs.Forms)
}

// TotalFormsName is the posted name of the TOTAL_FORMS field.
func (fs *ChoiceFormSet) TotalFormsName() string {
	return ManagementName(fs.Prefix, TotalFormsField)
}

// InitialFormsName is the posted name of the INITIAL_FORMS field.
func (fs *ChoiceFormSet) InitialFormsName() string {
	return ManagementName(fs.Prefix, InitialFormsField)
}

// Count returns the number of rows that would remain as choices.
func (fs *ChoiceFormSet) Count() int {
	n := 0
	for _, f := range fs.Forms {
		if f.Counts() {
			n++
		}
	}
	return n
}

// Validate applies the formset rules and reports whether the formset is
// valid. Row errors already recorded during binding are kept.
func (fs *ChoiceFormSet) Validate(multipleChoice bool) bool {
	for _, f := range fs.Forms {
		if f.Existing() && !f.Delete && f.Title == "" {
			f.Errors = append(f.Errors, MsgEmptyExisting)
		}
	}

	folder := cases.Fold()
	groups := make(map[string]int, len(fs.Forms))
	keys := make([]string, len(fs.Forms))
	for i, f := range fs.Forms {
		if !f.Counts() {
			continue
		}
		keys[i] = folder.String(f.Title)
		groups[keys[i]]++
	}
	for i, f := range fs.Forms {
		if f.Counts() && groups[keys[i]] > 1 {
			f.Errors = append(f.Errors, MsgDuplicateTitle)
		}
	}

	if multipleChoice && !fs.SkipMinCheck && fs.Count() < MinChoices {
		fs.NonFormErrors = append(fs.NonFormErrors, MsgTooFewChoices)
	}
	return fs.Valid()
}

// Valid reports whether no row or formset error is recorded.
func (fs *ChoiceFormSet) Valid() bool {
	if len(fs.NonFormErrors) > 0 {
		return false
	}
	for _, f := range fs.Forms {
		if len(f.Errors) > 0 {
			return false
		}
	}
	return true
}

// ChoiceChanges is the set of writes a valid formset produces.
type ChoiceChanges struct {
	Update []models.Choice
	Create []models.Choice
	Delete []uuid.UUID
}

// Changes derives the writes for a validated formset. Positions follow row order.
func (fs *ChoiceFormSet) Changes() ChoiceChanges {
	var ch ChoiceChanges
	pos := 0
	for _, f := range fs.Forms {
		switch {
		case f.Existing() && f.Delete:
			ch.Delete = append(ch.Delete, f.ChoiceID)
		case f.Existing():
			ch.Update = append(ch.Update, models.Choice{ID: f.ChoiceID, Title: f.Title, Position: pos})
			pos++
		case f.Counts():
			ch.Create = append(ch.Create, models.Choice{Title: f.Title, Position: pos})
			pos++
		}
	}
	return ch
}

// ResolveMultipleChoice decides whether a formset belongs to a multiple
// choice question. The parent, with any posted type already applied, wins;
// without one the posted question_type field decides.
func ResolveMultipleChoice(parent *models.Question, values url.Values) bool {
	if parent != nil {
		return parent.IsMultipleChoice()
	}
	return models.QuestionType(strings.TrimSpace(values.Get("question_type"))) == models.QuestionTypeMultipleChoice
}
