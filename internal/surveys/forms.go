package surveys

import "strings"

// TitleForm is posted to /surveys/create/title.
type TitleForm struct {
	Title string `form:"title" binding:"required,max=255"`
}

func (f *TitleForm) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
}

// DescriptionForm is posted to /surveys/:slug/edit.
type DescriptionForm struct {
	Description string `form:"description" binding:"max=10000"`
}

func (f *DescriptionForm) Normalize() {
	f.Description = strings.TrimSpace(f.Description)
}
