package web

import "github.com/google/uuid"

const (
	HomeURL    = "/"
	ProfileURL = "/accounts/profile"
)

// SurveyURL returns /surveys/<slug>/<action>.
func SurveyURL(slug, action string) string {
	return "/surveys/" + slug + "/" + action
}

// QuestionURL returns the question route for action; an empty action is the
// question detail fragment.
func QuestionURL(slug string, id uuid.UUID, action string) string {
	u := "/surveys/" + slug + "/question/" + id.String()
	if action != "" {
		u += "/" + action
	}
	return u
}
