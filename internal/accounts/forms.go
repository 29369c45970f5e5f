package accounts

import (
	"regexp"
	"strings"

	"github.com/survey-studio/backend/internal/forms"
	"github.com/survey-studio/backend/internal/models"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// RegisterForm is posted to /accounts/register.
type RegisterForm struct {
	Username  string `form:"username" binding:"required,max=150"`
	Password1 string `form:"password1" binding:"required,min=8"`
	Password2 string `form:"password2" binding:"required,eqfield=Password1"`
}

func (f *RegisterForm) Normalize() {
	f.Username = strings.TrimSpace(f.Username)
}

// Check adds the rules binding tags cannot express.
func (f *RegisterForm) Check(errs forms.Errors) {
	if f.Username != "" && !usernamePattern.MatchString(f.Username) {
		errs.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}
}

// LoginForm is posted to /accounts/login.
type LoginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
	Next     string `form:"next"`
}

func (f *LoginForm) Normalize() {
	f.Username = strings.TrimSpace(f.Username)
}

// ProfileForm is posted to /accounts/profile-completion.
type ProfileForm struct {
	FirstName string `form:"first_name" binding:"max=63"`
	LastName  string `form:"last_name" binding:"max=63"`
	Bio       string `form:"bio"`
	Email     string `form:"email" binding:"omitempty,email,max=254"`
}

func (f *ProfileForm) Normalize() {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Bio = strings.TrimSpace(f.Bio)
	f.Email = strings.TrimSpace(f.Email)
}

func profileFormFrom(p *models.Profile) ProfileForm {
	return ProfileForm{FirstName: p.FirstName, LastName: p.LastName, Bio: p.Bio, Email: p.Email}
}

func (f *ProfileForm) apply(p *models.Profile) {
	p.FirstName = f.FirstName
	p.LastName = f.LastName
	p.Bio = f.Bio
	p.Email = f.Email
}

// safeNext accepts only local absolute paths as post-login targets.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
