package forms

import (
	"net/url"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/survey-studio/backend/internal/models"
)

type row struct {
	id     uuid.UUID
	title  string
	delete bool
}

func post(prefix string, initial int, rows ...row) url.Values {
	v := url.Values{}
	v.Set(ManagementName(prefix, TotalFormsField), strconv.Itoa(len(rows)))
	v.Set(ManagementName(prefix, InitialFormsField), strconv.Itoa(initial))
	for i, r := range rows {
		if r.id != uuid.Nil {
			v.Set(FieldName(prefix, i, "id"), r.id.String())
		}
		v.Set(FieldName(prefix, i, "title"), r.title)
		if r.delete {
			v.Set(FieldName(prefix, i, DeleteField), "on")
		}
	}
	return v
}

func TestBindChoiceFormSet_ManagementForm(t *testing.T) {
	_, err := BindChoiceFormSet(url.Values{}, "choices", nil)
	assert.ErrorIs(t, err, ErrManagementForm)

	v := post("choices", 2, row{title: "a"})
	_, err = BindChoiceFormSet(v, "choices", nil)
	assert.ErrorIs(t, err, ErrManagementForm)

	v = url.Values{}
	v.Set("choices-TOTAL_FORMS", "1001")
	v.Set("choices-INITIAL_FORMS", "0")
	_, err = BindChoiceFormSet(v, "choices", nil)
	assert.ErrorIs(t, err, ErrTooManyForms)
}

func TestValidate_MinimumChoices(t *testing.T) {
	tests := []struct {
		name  string
		rows  []row
		mc    bool
		skip  bool
		valid bool
	}{
		{"one choice rejected", []row{{title: "Yes"}, {title: ""}}, true, false, false},
		{"two choices accepted", []row{{title: "Yes"}, {title: "No"}}, true, false, true},
		{"blank rows ignored", []row{{title: "Yes"}, {title: " "}, {title: ""}}, true, false, false},
		{"deleted rows ignored", []row{{title: "Yes"}, {title: "No", delete: true}}, true, false, false},
		{"text question skips rule", nil, false, false, true},
		{"re-render skips rule", []row{{title: "Yes"}}, true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, err := BindChoiceFormSet(post("p", 0, tt.rows...), "p", nil)
			require.NoError(t, err)
			fs.SkipMinCheck = tt.skip
			assert.Equal(t, tt.valid, fs.Validate(tt.mc))
			if !tt.valid {
				assert.Contains(t, fs.NonFormErrors, MsgTooFewChoices)
			}
		})
	}
}

func TestValidate_DuplicatesFlaggedOnEveryRow(t *testing.T) {
	fs, err := BindChoiceFormSet(post("p", 0,
		row{title: "Blue"},
		row{title: "  blue "},
		row{title: "Red"},
		row{title: "BLUE"},
	), "p", nil)
	require.NoError(t, err)

	assert.False(t, fs.Validate(true))
	assert.Contains(t, fs.Forms[0].Errors, MsgDuplicateTitle)
	assert.Contains(t, fs.Forms[1].Errors, MsgDuplicateTitle)
	assert.Empty(t, fs.Forms[2].Errors)
	assert.Contains(t, fs.Forms[3].Errors, MsgDuplicateTitle)
	assert.Empty(t, fs.NonFormErrors)
}

func TestValidate_DuplicateOfDeletedRowAllowed(t *testing.T) {
	existing := []models.Choice{{ID: uuid.New(), Title: "Blue"}, {ID: uuid.New(), Title: "Red"}}
	fs, err := BindChoiceFormSet(post("p", 2,
		row{id: existing[0].ID, title: "Blue", delete: true},
		row{id: existing[1].ID, title: "Red"},
		row{title: "blue"},
	), "p", existing)
	require.NoError(t, err)
	assert.True(t, fs.Validate(true))
}

func TestValidate_EmptiedExistingChoice(t *testing.T) {
	existing := []models.Choice{{ID: uuid.New(), Title: "A"}, {ID: uuid.New(), Title: "B"}, {ID: uuid.New(), Title: "C"}}

	fs, err := BindChoiceFormSet(post("p", 3,
		row{id: existing[0].ID, title: ""},
		row{id: existing[1].ID, title: "B"},
		row{id: existing[2].ID, title: "C"},
	), "p", existing)
	require.NoError(t, err)
	assert.False(t, fs.Validate(true))
	assert.Equal(t, []string{MsgEmptyExisting}, fs.Forms[0].Errors)

	fs, err = BindChoiceFormSet(post("p", 3,
		row{id: existing[0].ID, title: "", delete: true},
		row{id: existing[1].ID, title: "B"},
		row{id: existing[2].ID, title: "C"},
	), "p", existing)
	require.NoError(t, err)
	assert.True(t, fs.Validate(true))
}

func TestBindChoiceFormSet_UnknownChoice(t *testing.T) {
	existing := []models.Choice{{ID: uuid.New(), Title: "A"}}
	fs, err := BindChoiceFormSet(post("p", 2,
		row{id: uuid.New(), title: "X"},
		row{id: existing[0].ID, title: "A"},
	), "p", existing)
	require.NoError(t, err)
	assert.Equal(t, []string{MsgUnknownChoice}, fs.Forms[0].Errors)
	assert.False(t, fs.Valid())
}

func TestChanges(t *testing.T) {
	existing := []models.Choice{{ID: uuid.New(), Title: "A"}, {ID: uuid.New(), Title: "B"}}
	fs, err := BindChoiceFormSet(post("p", 2,
		row{id: existing[0].ID, title: "A1"},
		row{id: existing[1].ID, title: "B", delete: true},
		row{title: "C"},
		row{title: ""},
		row{title: "D", delete: true},
	), "p", existing)
	require.NoError(t, err)
	require.True(t, fs.Validate(true))

	ch := fs.Changes()
	assert.Equal(t, []models.Choice{{ID: existing[0].ID, Title: "A1", Position: 0}}, ch.Update)
	assert.Equal(t, []models.Choice{{Title: "C", Position: 1}}, ch.Create)
	assert.Equal(t, []uuid.UUID{existing[1].ID}, ch.Delete)
}

func TestNewChoiceFormSet_AddBlank(t *testing.T) {
	existing := []models.Choice{{ID: uuid.New(), Title: "A"}}
	fs := NewChoiceFormSet("choices-x", existing, 1)
	require.Len(t, fs.Forms, 2)
	assert.Equal(t, 1, fs.Initial)
	assert.Equal(t, "choices-x-1-title", fs.Forms[1].Name("title"))

	fs.AddBlank()
	assert.Equal(t, 3, fs.TotalForms())
	assert.Equal(t, 2, fs.Forms[2].Index)
	assert.Equal(t, "choices-x-TOTAL_FORMS", fs.TotalFormsName())
}

func TestResolveMultipleChoice(t *testing.T) {
	v := url.Values{"question_type": {"multiple_choice"}}
	assert.True(t, ResolveMultipleChoice(nil, v))
	assert.False(t, ResolveMultipleChoice(nil, url.Values{"question_type": {"text"}}))

	parent := &models.Question{Type: models.QuestionTypeText}
	assert.False(t, ResolveMultipleChoice(parent, v))
}
