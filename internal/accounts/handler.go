package accounts

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/survey-studio/backend/internal/auth"
	"github.com/survey-studio/backend/internal/forms"
	"github.com/survey-studio/backend/internal/middleware"
	"github.com/survey-studio/backend/internal/models"
	"github.com/survey-studio/backend/internal/web"
	"github.com/survey-studio/backend/pkg/database"
	"github.com/survey-studio/backend/pkg/response"
	"github.com/survey-studio/backend/pkg/utils"
)

const msgInvalidLogin = "Please enter a correct username and password. Note that both fields may be case-sensitive."

// UserStore creates and looks up users.
type UserStore interface {
	Create(ctx context.Context, username, passwordHash string, role models.Role) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ProfileStore reads and writes profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	EmailInUse(ctx context.Context, email string, userID uuid.UUID) (bool, error)
	UpdateProfile(ctx context.Context, p *models.Profile) error
}

// TokenIssuer issues session tokens.
type TokenIssuer interface {
	Generate(user *models.User) (string, *auth.Claims, error)
	Lifetime() time.Duration
}

// Revoker revokes sessions at logout.
type Revoker interface {
	Revoke(ctx context.Context, sessionID string, expiresAt time.Time) error
}

// SessionStore is the part of the session store the account pages use.
type SessionStore interface {
	AddFlash(ctx context.Context, sid, msg string) error
	Destroy(ctx context.Context, sid string) error
}

// Handler serves the account pages.
type Handler struct {
	users         UserStore
	profiles      ProfileStore
	tokens        TokenIssuer
	revoker       Revoker
	sessions      SessionStore
	render        *web.Renderer
	secureCookies bool
	logger        *zap.Logger
}

// Deps groups the collaborators of Handler.
type Deps struct {
	Users         UserStore
	Profiles      ProfileStore
	Tokens        TokenIssuer
	Revoker       Revoker
	Sessions      SessionStore
	Renderer      *web.Renderer
	SecureCookies bool
	Logger        *zap.Logger
}

// NewHandler creates an accounts handler.
func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Handler{
		users:         d.Users,
		profiles:      d.Profiles,
		tokens:        d.Tokens,
		revoker:       d.Revoker,
		sessions:      d.Sessions,
		render:        d.Renderer,
		secureCookies: d.SecureCookies,
		logger:        d.Logger,
	}
}

// Register handles GET and POST /accounts/register.
func (h *Handler) Register(c *gin.Context) {
	var form RegisterForm
	if c.Request.Method != http.MethodPost {
		h.render.Render(c, http.StatusOK, "register", gin.H{"Form": form, "Errors": forms.Errors{}})
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		response.BadRequest(c, "invalid form")
		return
	}
	errs := forms.Decode(c.Request.PostForm, &form)
	form.Check(errs)
	if !errs.Any() {
		errs = h.createUser(c, &form)
		if errs == nil {
			return
		}
	}
	form.Password1, form.Password2 = "", ""
	h.render.Render(c, web.FormStatus(c), "register", gin.H{"Form": form, "Errors": errs})
}

// createUser returns nil after redirecting on success.
func (h *Handler) createUser(c *gin.Context, form *RegisterForm) forms.Errors {
	errs := forms.Errors{}
	hash, err := utils.HashPassword(form.Password1)
	if err != nil {
		h.logger.Error("hash password", zap.Error(err))
		errs.Add(forms.NonField, "Account could not be created, please try again.")
		return errs
	}
	user, err := h.users.Create(c.Request.Context(), form.Username, hash, models.RoleUser)
	if errors.Is(err, auth.ErrUsernameTaken) {
		errs.Add("username", "A user with that username already exists.")
		return errs
	}
	if err != nil {
		h.logger.Error("create user", zap.String("username", form.Username), zap.Error(err))
		errs.Add(forms.NonField, "Account could not be created, please try again.")
		return errs
	}
	h.logger.Info("user registered", zap.String("user_id", user.ID.String()))
	response.Redirect(c, web.HomeURL)
	return nil
}

// Login handles GET and POST /accounts/login.
func (h *Handler) Login(c *gin.Context) {
	form := LoginForm{Next: c.Query("next")}
	if c.Request.Method != http.MethodPost {
		h.render.Render(c, http.StatusOK, "login", gin.H{"Form": form, "Next": form.Next, "Errors": forms.Errors{}})
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		response.BadRequest(c, "invalid form")
		return
	}
	errs := forms.Decode(c.Request.PostForm, &form)
	if !errs.Any() {
		user, err := h.users.GetByUsername(c.Request.Context(), form.Username)
		switch {
		case err == nil && utils.CheckPassword(form.Password, user.Password):
			if h.startSession(c, user) {
				response.Redirect(c, safeNext(form.Next))
			}
			return
		case err != nil && !errors.Is(err, database.ErrNotFound):
			h.logger.Error("load user", zap.String("username", form.Username), zap.Error(err))
			response.InternalText(c)
			return
		default:
			errs.Add(forms.NonField, msgInvalidLogin)
		}
	}
	form.Password = ""
	h.render.Render(c, web.FormStatus(c), "login", gin.H{"Form": form, "Next": form.Next, "Errors": errs})
}

func (h *Handler) startSession(c *gin.Context, user *models.User) bool {
	token, claims, err := h.tokens.Generate(user)
	if err != nil {
		h.logger.Error("issue session token", zap.String("user_id", user.ID.String()), zap.Error(err))
		response.InternalText(c)
		return false
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, int(h.tokens.Lifetime().Seconds()), "/", "", h.secureCookies, true)
	h.logger.Info("user logged in", zap.String("user_id", user.ID.String()), zap.String("session_id", claims.SessionID()))
	return true
}

// Logout handles GET (confirmation page) and POST /accounts/logout.
func (h *Handler) Logout(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		h.render.Render(c, http.StatusOK, "logout", nil)
		return
	}
	if identity, ok := auth.CurrentIdentity(c); ok {
		ctx := c.Request.Context()
		if err := h.revoker.Revoke(ctx, identity.SessionID, time.Now().Add(h.tokens.Lifetime())); err != nil {
			h.logger.Error("revoke session", zap.String("session_id", identity.SessionID), zap.Error(err))
		}
		if err := h.sessions.Destroy(ctx, identity.SessionID); err != nil {
			h.logger.Warn("destroy session", zap.String("session_id", identity.SessionID), zap.Error(err))
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secureCookies, true)
	response.Redirect(c, web.HomeURL)
}

// Profile handles GET /accounts/profile.
func (h *Handler) Profile(c *gin.Context) {
	identity, _ := auth.CurrentIdentity(c)
	ctx := c.Request.Context()
	user, err := h.users.GetByID(ctx, identity.UserID)
	if err != nil {
		h.notFoundOrInternal(c, "load user", err)
		return
	}
	profile, err := h.profiles.GetProfile(ctx, identity.UserID)
	if err != nil {
		h.notFoundOrInternal(c, "load profile", err)
		return
	}
	h.render.Render(c, http.StatusOK, "profile", gin.H{"User": user.ToPublic(), "Profile": profile})
}

// ProfileCompletion handles GET and POST /accounts/profile-completion.
func (h *Handler) ProfileCompletion(c *gin.Context) {
	identity, _ := auth.CurrentIdentity(c)
	ctx := c.Request.Context()
	profile, err := h.profiles.GetProfile(ctx, identity.UserID)
	if err != nil {
		h.notFoundOrInternal(c, "load profile", err)
		return
	}
	if c.Request.Method != http.MethodPost {
		h.render.Render(c, http.StatusOK, "profile_completion", gin.H{"Form": profileFormFrom(profile), "Errors": forms.Errors{}})
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		response.BadRequest(c, "invalid form")
		return
	}

	var form ProfileForm
	errs := forms.Decode(c.Request.PostForm, &form)
	if !errs.Has("email") && form.Email != "" {
		taken, err := h.profiles.EmailInUse(ctx, form.Email, identity.UserID)
		if err != nil {
			h.logger.Error("check email", zap.Error(err))
			response.InternalText(c)
			return
		}
		if taken {
			errs.Add("email", "This email is already in use.")
		}
	}
	if !errs.Any() {
		form.apply(profile)
		err = h.profiles.UpdateProfile(ctx, profile)
		if errors.Is(err, ErrEmailTaken) {
			errs.Add("email", "This email is already in use.")
		} else if err != nil {
			h.logger.Error("update profile", zap.String("user_id", identity.UserID.String()), zap.Error(err))
			response.InternalText(c)
			return
		} else {
			if err := h.sessions.AddFlash(ctx, identity.SessionID, "Profile updated."); err != nil {
				h.logger.Warn("add flash", zap.Error(err))
			}
			response.Redirect(c, web.ProfileURL)
			return
		}
	}
	h.render.Render(c, web.FormStatus(c), "profile_completion", gin.H{"Form": form, "Errors": errs})
}

func (h *Handler) notFoundOrInternal(c *gin.Context, op string, err error) {
	if errors.Is(err, database.ErrNotFound) {
		response.NotFoundText(c, "not found")
		return
	}
	h.logger.Error(op, zap.Error(err))
	response.InternalText(c)
}
