package forms

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleForm struct {
	Title string `form:"title" binding:"required,max=10"`
	Kind  string `form:"kind" binding:"required,oneof=a b"`
}

func (f *sampleForm) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
}

func TestDecode(t *testing.T) {
	var f sampleForm
	errs := Decode(url.Values{"title": {"  ok  "}, "kind": {"a"}}, &f)
	assert.False(t, errs.Any())
	assert.Equal(t, "ok", f.Title)

	f = sampleForm{}
	errs = Decode(url.Values{"title": {"   "}, "kind": {"z"}}, &f)
	assert.Equal(t, []string{"This field is required."}, errs.Get("title"))
	assert.Equal(t, []string{"Select a valid choice."}, errs.Get("kind"))

	f = sampleForm{}
	errs = Decode(url.Values{"title": {"abcdefghijk"}, "kind": {"b"}}, &f)
	assert.Equal(t, []string{"Ensure this value has at most 10 characters."}, errs.Get("title"))
}
