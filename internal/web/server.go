package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/schema"
	"github.com/letterdrop/letterdrop/internal"
	"github.com/letterdrop/letterdrop/internal/auth"
	"github.com/letterdrop/letterdrop/internal/email"
	"github.com/letterdrop/letterdrop/internal/errorz"
	"github.com/letterdrop/letterdrop/internal/krypto"
	"github.com/letterdrop/letterdrop/internal/subscription"
	"github.com/letterdrop/letterdrop/internal/web/sessions"
)

// ViewRenderer renders named views with the given data.
type ViewRenderer interface {
	Render(w io.Writer, name string, data any) error
}

// ServerDeps are the dependencies for the server.
type ServerDeps struct {
	Logger        *slog.Logger
	ViewRenderer  ViewRenderer
	AuthService   *auth.Service
	Subscriptions *subscription.Service
	SessionStore  *sessions.Store
	StaticFS      http.FileSystem
}

type Server struct {
	deps    *ServerDeps
	mux     *http.ServeMux
	decoder *schema.Decoder
	handler http.Handler
}

func NewServer(deps *ServerDeps) *Server {
	s := &Server{
		deps:    deps,
		mux:     http.NewServeMux(),
		decoder: schema.NewDecoder(),
	}

	s.decoder.IgnoreUnknownKeys(true)

	s.mux.HandleFunc("GET /health_check", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Public pages.
	s.mux.Handle("GET /{$}", s.viewHandler("home"))

	// Subscribe endpoints.
	{
		type subscribeForm struct {
			Name  subscription.Name `schema:"name,required"`
			Email email.Address     `schema:"email,required"`
		}

		h := newInputHandler(s, func(ctx context.Context, form subscribeForm) error {
			return deps.Subscriptions.Subscribe(ctx, subscription.NewSubscriber{
				Name:  form.Name,
				Email: form.Email,
			})
		})
		h.onSuccess = func(r result[subscribeForm, struct{}]) error {
			return r.s.writeView(r.w, r.r, "subscribed", nil)
		}

		s.mux.Handle("POST /subscription", h)
	}

	// Confirm endpoint, linked from the confirmation email.
	{
		type confirmQuery struct {
			Token krypto.Token `schema:"subscription_token,required"`
		}

		h := newInputHandler(s, func(ctx context.Context, q confirmQuery) error {
			return deps.Subscriptions.Confirm(ctx, q.Token)
		})
		h.onSuccess = func(r result[confirmQuery, struct{}]) error {
			return r.s.writeView(r.w, r.r, "confirmed", nil)
		}

		s.mux.Handle("GET /subscription/confirm", h)
	}

	// Login endpoints.
	s.publicOnly("GET /login", s.viewHandler("login"))
	{
		type loginForm struct {
			Username string        `schema:"username,required"`
			Password auth.Password `schema:"password,required"`
		}

		h := newHandler(s, func(ctx context.Context, form loginForm) (uuid.UUID, error) {
			return deps.AuthService.Authenticate(ctx, auth.Credentials{
				Username: form.Username,
				Password: form.Password,
			})
		})
		h.onSuccess = func(r result[loginForm, uuid.UUID]) error {
			// Renew before establishing the user id so nothing from the
			// anonymous session survives into the authenticated one.
			r.sess.Renew()
			r.sess.SetUserID(r.out)
			err := r.s.deps.SessionStore.Save(r.r, r.w, r.sess)
			if err != nil {
				return err
			}

			http.Redirect(r.w, r.r, "/admin/dashboard", http.StatusFound)
			return nil
		}
		h.onFail = func(w http.ResponseWriter, r *http.Request, err error) {
			// Every rejected login reads the same, no matter the cause.
			var invalidInput errorz.InvalidInput
			if errors.Is(err, auth.ErrInvalidCredentials) || errors.As(err, &invalidInput) {
				s.flashRedirect(w, r, "Invalid username or password.", "/login")
				return
			}

			s.handleError(w, r, err)
		}

		s.publicOnly("POST /login", h)
	}

	// Admin endpoints.
	s.loggedIn("GET /admin/dashboard", s.viewHandler("dashboard"))
	s.loggedIn("GET /admin/change/password", s.viewHandler("change-password"))
	s.loggedIn("POST /admin/change/password", http.HandlerFunc(s.handleChangePassword))
	s.loggedIn("POST /admin/logout", http.HandlerFunc(s.handleLogout))

	// Newsletter publishing, Basic auth instead of a session because
	// the caller is tooling, not a browser.
	s.mux.HandleFunc("POST /newsletter", s.handlePublishNewsletter)

	if deps.StaticFS != nil {
		s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(deps.StaticFS)))
	}

	s.handler = sessionMiddleware(s)(s.mux)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// publicOnly routes redirect logged in users to the dashboard.
func (s *Server) publicOnly(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromCtx(r.Context())
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		if _, ok := sess.UserID(); ok {
			http.Redirect(w, r, "/admin/dashboard", http.StatusFound)
			return
		}

		handler.ServeHTTP(w, r)
	}))
}

// loggedIn routes redirect anonymous users to the login page.
func (s *Server) loggedIn(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromCtx(r.Context())
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		if _, ok := sess.UserID(); !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		handler.ServeHTTP(w, r)
	}))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromCtx(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	sess.Destroy()
	err = s.deps.SessionStore.Save(r, w, sess)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromCtx(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	userID, ok := sess.UserID()
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	type changePasswordForm struct {
		Password        string `schema:"password,required"`
		ConfirmPassword string `schema:"confirmpassword,required"`
	}

	form, err := decodeRequest[changePasswordForm](s, r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if form.Password != form.ConfirmPassword {
		s.flashRedirect(w, r, "The passwords do not match.", "/admin/change/password")
		return
	}

	password, err := auth.ParsePassword(form.Password)
	if err != nil {
		s.flashRedirect(w, r, "The new password is not acceptable, it needs at least 8 characters.", "/admin/change/password")
		return
	}

	err = s.deps.AuthService.ChangePassword(r.Context(), userID, password)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.flashRedirect(w, r, "Your password has been changed.", "/admin/dashboard")
}

func (s *Server) handlePublishNewsletter(w http.ResponseWriter, r *http.Request) {
	username, password, ok := r.BasicAuth()
	if !ok {
		s.unauthorizedBasic(w)
		return
	}

	pwd, err := auth.ParsePassword(password)
	if err != nil {
		// Cannot possibly match a stored hash.
		s.unauthorizedBasic(w)
		return
	}

	_, err = s.deps.AuthService.Authenticate(r.Context(), auth.Credentials{
		Username: username,
		Password: pwd,
	})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.unauthorizedBasic(w)
			return
		}

		s.handleError(w, r, err)
		return
	}

	type contentPayload struct {
		HTML string `json:"html"`
		Text string `json:"text"`
	}
	type newsletterPayload struct {
		Title   string         `json:"title"`
		Content contentPayload `json:"content"`
	}

	var payload newsletterPayload
	err = json.NewDecoder(r.Body).Decode(&payload)
	if err != nil {
		s.handleError(w, r, errorz.InvalidInput{err})
		return
	}

	err = s.deps.Subscriptions.PublishNewsletter(r.Context(), subscription.Newsletter{
		Title: payload.Title,
		Content: subscription.NewsletterContent{
			HTML: payload.Content.HTML,
			Text: payload.Content.Text,
		},
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) unauthorizedBasic(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="publish"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func (s *Server) viewHandler(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := s.writeView(w, r, name, nil)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
	})
}

func (s *Server) writeView(w http.ResponseWriter, r *http.Request, name string, data any) error {
	sess, err := sessionFromCtx(r.Context())
	if err != nil {
		return err
	}

	_, loggedIn := sess.UserID()

	viewData := struct {
		Version    string
		IsLoggedIn bool
		Flashes    []any
		Data       any
	}{
		Version:    internal.BuildRevision,
		IsLoggedIn: loggedIn,
		Flashes:    sess.ConsumeFlashes(),
		Data:       data,
	}

	// Save before rendering, consuming the flashes modified the session
	// and headers cannot be written after the body.
	if sess.NeedsSave() {
		err = s.deps.SessionStore.Save(r, w, sess)
		if err != nil {
			return err
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return s.deps.ViewRenderer.Render(w, name, viewData)
}

func (s *Server) flashRedirect(w http.ResponseWriter, r *http.Request, flash, target string) {
	sess, err := sessionFromCtx(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	sess.AddFlash(flash)
	err = s.deps.SessionStore.Save(r, w, sess)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var invalidInput errorz.InvalidInput

	switch {
	case errors.Is(err, subscription.ErrAlreadySubscribed):
		http.Error(w, "already subscribed", http.StatusBadRequest)
	case errors.As(err, &invalidInput):
		http.Error(w, "invalid input", http.StatusBadRequest)
	case errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, subscription.ErrUnknownToken):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, errorz.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		s.deps.Logger.Error("internal server error", "url", r.URL.String(), "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
