// Package forms binds posted HTML form values to typed forms and validates
// them, including the nested choice formset edited alongside a question.
//
// Field errors are keyed by the posted field name so templates can render
// them next to the input that produced them. Formset rows follow the
// "<prefix>-<index>-<field>" naming scheme with "<prefix>-TOTAL_FORMS" and
// "<prefix>-INITIAL_FORMS" management fields.
package forms
