package controllers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/princinho/smartshop/authbridge"
	"github.com/princinho/smartshop/dto"
	"github.com/princinho/smartshop/middleware"
	"github.com/princinho/smartshop/utils"
)

const refreshCookieMaxAge = 30 * 24 * 60 * 60

func setSessionCookies(c *gin.Context, app *App, s *authbridge.Session) {
	maxAge := s.ExpiresIn
	if maxAge <= 0 {
		maxAge = int(app.Config.Auth.AccessTTL.Seconds())
	}
	writeCookie(c, app, middleware.AccessTokenCookie, s.AccessToken, maxAge)
	if s.RefreshToken != "" {
		writeCookie(c, app, middleware.RefreshTokenCookie, s.RefreshToken, refreshCookieMaxAge)
	}
}

func clearSessionCookies(c *gin.Context, app *App) {
	writeCookie(c, app, middleware.AccessTokenCookie, "", -1)
	writeCookie(c, app, middleware.RefreshTokenCookie, "", -1)
}

func writeCookie(c *gin.Context, app *App, name, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   app.Config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   app.Config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, authbridge.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, authbridge.ErrEmailTaken):
		return "An account with this email already exists"
	case errors.Is(err, authbridge.ErrWeakPassword):
		return authbridge.ErrWeakPassword.Error()
	case errors.Is(err, authbridge.ErrInvalidToken):
		return "Your session has expired, please sign in again"
	default:
		return "Authentication failed, please try again"
	}
}

func authFailed(c *gin.Context, app *App, back string, err error) {
	log.Printf("WARN: %s: %v", c.Request.URL.Path, err)
	redirectWithFlash(c, app, back, utils.FlashError, authMessage(err))
}

// GET /login, /signup, /forgot-password, /update-password
// The forms post back to the same path and land here on failure.
func AuthPage(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"toast": middleware.FlashFrom(c),
			"user":  viewer(c, app),
		})
	}
}

// POST /login
func Login(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form dto.CredentialsForm
		if err := c.ShouldBind(&form); err != nil {
			redirectWithFlash(c, app, "/login", utils.FlashError, "Please enter a valid email and password")
			return
		}

		ctx := c.Request.Context()
		session, err := app.Auth.SignIn(ctx, strings.TrimSpace(form.Email), form.Password)
		if err != nil {
			authFailed(c, app, "/login", err)
			return
		}
		if _, err := app.Users.EnsureUser(ctx, session.User.ID, session.User.Email); err != nil {
			log.Println("ERROR: ensure user:", err)
			redirectWithFlash(c, app, "/login", utils.FlashError, "Something went wrong")
			return
		}

		setSessionCookies(c, app, session)
		redirectWithFlash(c, app, "/dashboard", utils.FlashSuccess, "Logged In successfully")
	}
}

// POST /signup
func Signup(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form dto.CredentialsForm
		if err := c.ShouldBind(&form); err != nil {
			redirectWithFlash(c, app, "/signup", utils.FlashError, "Please enter a valid email and a password of at least 6 characters")
			return
		}

		ctx := c.Request.Context()
		session, err := app.Auth.SignUp(ctx, strings.TrimSpace(form.Email), form.Password)
		if err != nil {
			authFailed(c, app, "/signup", err)
			return
		}
		if _, err := app.Users.EnsureUser(ctx, session.User.ID, session.User.Email); err != nil {
			log.Println("ERROR: ensure user:", err)
			redirectWithFlash(c, app, "/signup", utils.FlashError, "Something went wrong")
			return
		}

		if session.AccessToken == "" {
			redirectWithFlash(c, app, "/login", utils.FlashInfo, "Check your email to confirm your account")
			return
		}
		setSessionCookies(c, app, session)
		redirectWithFlash(c, app, "/", utils.FlashSuccess, "Account created successfully")
	}
}

// POST /logout
func Logout(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := app.Auth.SignOut(c.Request.Context(), middleware.AccessToken(c)); err != nil {
			log.Println("WARN: sign out:", err)
		}
		clearSessionCookies(c, app)
		redirectWithFlash(c, app, "/login", utils.FlashSuccess, "Logged Out successfully")
	}
}

// POST /forgot-password
func ForgotPassword(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form dto.ForgotPasswordForm
		if err := c.ShouldBind(&form); err != nil {
			redirectWithFlash(c, app, "/forgot-password", utils.FlashError, "Email is required")
			return
		}
		if err := app.Auth.ResetPassword(c.Request.Context(), strings.TrimSpace(form.Email), app.Config.Auth.ResetRedirect); err != nil {
			authFailed(c, app, "/forgot-password", err)
			return
		}
		redirectWithFlash(c, app, "/forgot-password", utils.FlashSuccess, "Check your email for the reset link")
	}
}

// POST /update-password
func UpdatePassword(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form dto.UpdatePasswordForm
		_ = c.ShouldBind(&form)

		if form.Password == "" || form.ConfirmPassword == "" {
			redirectWithFlash(c, app, "/update-password", utils.FlashError, "All fields are required")
			return
		}
		if form.Password != form.ConfirmPassword {
			redirectWithFlash(c, app, "/update-password", utils.FlashError, "Passwords do not match")
			return
		}

		token := strings.TrimSpace(form.Token)
		if token == "" {
			token = middleware.AccessToken(c)
		}
		if err := app.Auth.UpdatePassword(c.Request.Context(), token, form.Password); err != nil {
			authFailed(c, app, "/update-password", err)
			return
		}
		redirectWithFlash(c, app, "/", utils.FlashSuccess, "Password updated successfully")
	}
}
