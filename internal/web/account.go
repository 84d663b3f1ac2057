package web

import (
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/znwiqn/anidao/internal/apperr"
	"github.com/znwiqn/anidao/internal/auth"
)

const historyPageSize = 50

type SignInData struct {
	CallbackURL string
	Username    string
	Error       string
}

var signInErrors = map[string]string{
	"credentials":  "Invalid username or password",
	"rate_limited": "Too many attempts. Please wait a minute and try again.",
}

func (p *Pages) signInForm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p.render(w, r, http.StatusOK, "signin", "Sign in", SignInData{
		CallbackURL: safeCallback(q.Get("callbackUrl")),
		Error:       signInErrors[q.Get("error")],
	})
}

func (p *Pages) signIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	username := r.PostForm.Get("username")
	callback := safeCallback(r.PostForm.Get("callbackUrl"))

	user, err := p.Users.Authenticate(r.Context(), username, r.PostForm.Get("password"))
	if errors.Is(err, apperr.ErrUnauthorized) {
		p.render(w, r, http.StatusUnauthorized, "signin", "Sign in", SignInData{
			CallbackURL: callback,
			Username:    username,
			Error:       signInErrors["credentials"],
		})
		return
	}
	if err != nil {
		p.fail(w, r, err)
		return
	}

	token, expires, err := p.Tokens.Generate(user, r.PostForm.Get("rememberMe") != "")
	if err != nil {
		p.fail(w, r, err)
		return
	}
	auth.SetCookie(w, token, expires, p.SecureCookies)

	log.WithField("user_id", user.ID).Info("user signed in")
	http.Redirect(w, r, callback, http.StatusSeeOther)
}

func (p *Pages) registerForm(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusOK, "register", "Create account", nil)
}

func (p *Pages) signOut(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (p *Pages) profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}

	user, err := p.Users.GetByID(r.Context(), claims.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		// The account was deleted after the token was issued.
		auth.ClearCookie(w)
		http.Redirect(w, r, "/auth/signin?callbackUrl="+url.QueryEscape("/profile"), http.StatusSeeOther)
		return
	}
	if err != nil {
		p.fail(w, r, err)
		return
	}
	p.render(w, r, http.StatusOK, "profile", "Profile", user)
}

func (p *Pages) favorites(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}

	favs, err := p.Favorites.List(r.Context(), claims.UserID)
	if err != nil {
		p.fail(w, r, err)
		return
	}
	p.render(w, r, http.StatusOK, "favorites", "My favorites", favs)
}

func (p *Pages) history(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}

	entries, err := p.History.List(r.Context(), claims.UserID, nil, historyPageSize)
	if err != nil {
		p.fail(w, r, err)
		return
	}
	p.render(w, r, http.StatusOK, "history", "Watch history", entries)
}
