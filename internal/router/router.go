// Package router wires the HTTP surface: session-resolving middleware,
// the server-rendered account and link pages, the public redirect, and the
// urls.json debug dump. Handlers read the caller's identity from the request
// context only; all authorization decisions live in the service layer.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tinylink/internal/logger"
	"tinylink/internal/models"
	"tinylink/internal/session"
)

type shortener interface {
	RegisterUser(ctx context.Context, email, password string) (*models.User, error)

	AuthenticateUser(ctx context.Context, email, password string) (*models.User, error)

	UserByID(ctx context.Context, userID string) (*models.User, bool, error)

	ShortenURL(ctx context.Context, longURL, ownerID string) (string, error)

	GetOwnedLink(ctx context.Context, short, callerID string) (*models.Link, error)

	UpdateLink(ctx context.Context, short, newLongURL, callerID string) error

	DeleteLink(ctx context.Context, short, callerID string) error

	UserLinks(ctx context.Context, userID string) (models.OwnedLinks, error)

	ResolveShort(ctx context.Context, short string) (string, error)

	DumpLinks(ctx context.Context) (map[string]models.Link, error)
}

type sessionManager interface {
	Establish(response http.ResponseWriter, userID string) error
	Clear(response http.ResponseWriter)
	ResolveUser(h http.Handler) http.Handler
}

// Router holds the collaborators of every handler.
type Router struct {
	service      shortener
	sessions     sessionManager
	templates    *template.Template
	shortURLBase string
}

// New builds the chi mux with the full route set and middleware chain.
func New(
	service shortener,
	sessions sessionManager,
	templates *template.Template,
	shortURLBase string,
) *chi.Mux {
	theRouter := &Router{
		service:      service,
		sessions:     sessions,
		templates:    templates,
		shortURLBase: shortURLBase,
	}

	router := chi.NewRouter()
	router.Use(
		logger.WithLoggingHTTPMiddleware,
		sessions.ResolveUser,
	)

	router.Get(`/`, theRouter.GetRoot)
	router.Get(`/register`, theRouter.GetRegister)
	router.Post(`/register`, theRouter.PostRegister)
	router.Get(`/login`, theRouter.GetLogin)
	router.Post(`/login`, theRouter.PostLogin)
	router.Post(`/logout`, theRouter.PostLogout)

	router.Get(`/urls.json`, theRouter.GetUrlsJSON)
	router.Get(`/urls`, theRouter.GetUrls)
	router.Get(`/urls/new`, theRouter.GetUrlsNew)
	router.Post(`/urls`, theRouter.PostUrls)
	router.Get(`/urls/{short}`, theRouter.GetUrlDetail)
	router.Post(`/urls/{short}`, theRouter.PostUrlEdit)
	router.Post(`/urls/{short}/delete`, theRouter.PostUrlDelete)

	router.Get(`/u/{short}`, theRouter.GetRedirecttofullurl)

	return router
}

type errorPage struct {
	UserEmail  string
	Status     int
	StatusText string
	Message    string
}

type formPage struct {
	UserEmail string
}

type urlsIndexPage struct {
	UserEmail string
	Urls      models.OwnedLinks
}

type urlsShowPage struct {
	UserEmail string
	Short     string
	ShortURL  string
	LongURL   string
}

// currentUser returns the resolved caller identity and, when authenticated,
// the account email for page headers.
func (theRouter *Router) currentUser(request *http.Request) (userID, userEmail string) {
	userID = session.UserID(request.Context())
	if userID == "" {
		return "", ""
	}

	usr, found, err := theRouter.service.UserByID(request.Context(), userID)
	if err != nil || !found {
		return userID, ""
	}

	return userID, usr.Email
}

func (theRouter *Router) render(response http.ResponseWriter, name string, data interface{}) {
	response.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := theRouter.templates.ExecuteTemplate(response, name, data); err != nil {
		logger.Log.Debugln("Error rendering the template: ", zap.Error(err))
	}
}

func (theRouter *Router) renderError(
	response http.ResponseWriter,
	request *http.Request,
	status int,
	message string,
) {
	_, userEmail := theRouter.currentUser(request)
	response.Header().Set("Content-Type", "text/html; charset=utf-8")
	response.WriteHeader(status)
	page := errorPage{
		UserEmail:  userEmail,
		Status:     status,
		StatusText: http.StatusText(status),
		Message:    message,
	}
	if err := theRouter.templates.ExecuteTemplate(response, "error.gohtml", page); err != nil {
		logger.Log.Debugln("Error rendering the error template: ", zap.Error(err))
	}
}

// statusFromError maps the service error kinds onto the one HTTP status
// chosen for each failure kind.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrDuplicateEmail):
		return http.StatusForbidden
	case errors.Is(err, models.ErrAuthenticationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	}

	return http.StatusInternalServerError
}

// GetRoot redirects to the links list for authenticated callers and to the
// login form otherwise.
func (theRouter *Router) GetRoot(response http.ResponseWriter, request *http.Request) {
	if session.UserID(request.Context()) != "" {
		http.Redirect(response, request, "/urls", http.StatusFound)
		return
	}
	http.Redirect(response, request, "/login", http.StatusFound)
}

// GetRegister renders the registration form for anonymous callers.
func (theRouter *Router) GetRegister(response http.ResponseWriter, request *http.Request) {
	if session.UserID(request.Context()) != "" {
		http.Redirect(response, request, "/urls", http.StatusFound)
		return
	}
	theRouter.render(response, "user_register.gohtml", formPage{})
}

// GetLogin renders the login form for anonymous callers.
func (theRouter *Router) GetLogin(response http.ResponseWriter, request *http.Request) {
	if session.UserID(request.Context()) != "" {
		http.Redirect(response, request, "/urls", http.StatusFound)
		return
	}
	theRouter.render(response, "user_login.gohtml", formPage{})
}

// PostRegister creates an account from the form fields and establishes a
// session for it.
func (theRouter *Router) PostRegister(response http.ResponseWriter, request *http.Request) {
	if session.UserID(request.Context()) != "" {
		http.Redirect(response, request, "/urls", http.StatusFound)
		return
	}

	if err := request.ParseForm(); err != nil {
		theRouter.renderError(response, request, http.StatusBadRequest, "Invalid form body")
		return
	}

	usr, err := theRouter.service.RegisterUser(
		request.Context(),
		request.PostFormValue("email"),
		request.PostFormValue("password"),
	)
	if errors.Is(err, models.ErrValidation) {
		theRouter.renderError(response, request, statusFromError(err), "Invalid email or password.")
		return
	}
	if errors.Is(err, models.ErrDuplicateEmail) {
		theRouter.renderError(response, request, statusFromError(err), "Duplicate email found")
		return
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `service.RegisterUser()`: ", zap.Error(err))
		theRouter.renderError(response, request, http.StatusInternalServerError, "Registration failed")
		return
	}

	if err := theRouter.sessions.Establish(response, usr.ID); err != nil {
		logger.Log.Debugln("Error establishing the session: ", zap.Error(err))
		theRouter.renderError(response, request, http.StatusInternalServerError, "Registration failed")
		return
	}

	http.Redirect(response, request, "/urls", http.StatusFound)
}

// PostLogin verifies the form credentials and establishes a session.
func (theRouter *Router) PostLogin(response http.ResponseWriter, request *http.Request) {
	if session.UserID(request.Context()) != "" {
		http.Redirect(response, request, "/urls", http.StatusFound)
		return
	}

	if err := request.ParseForm(); err != nil {
		theRouter.renderError(response, request, http.StatusBadRequest, "Invalid form body")
		return
	}

	usr, err := theRouter.service.AuthenticateUser(
		request.Context(),
		request.PostFormValue("email"),
		request.PostFormValue("password"),
	)
	if errors.Is(err, models.ErrValidation) {
		theRouter.renderError(response, request, statusFromError(err), "Invalid email or password.")
		return
	}
	if errors.Is(err, models.ErrAuthenticationFailed) {
		theRouter.renderError(response, request, statusFromError(err), "Incorrect email or password")
		return
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `service.AuthenticateUser()`: ", zap.Error(err))
		theRouter.renderError(response, request, http.StatusInternalServerError, "Login failed")
		return
	}

	if err := theRouter.sessions.Establish(response, usr.ID); err != nil {
		logger.Log.Debugln("Error establishing the session: ", zap.Error(err))
		theRouter.renderError(response, request, http.StatusInternalServerError, "Login failed")
		return
	}

	http.Redirect(response, request, "/urls", http.StatusFound)
}

// PostLogout clears the session cookie. It never fails.
func (theRouter *Router) PostLogout(response http.ResponseWriter, request *http.Request) {
	theRouter.sessions.Clear(response)
	http.Redirect(response, request, "/login", http.StatusFound)
}

// GetUrls renders the caller's links, filtered to the ones they own.
func (theRouter *Router) GetUrls(response http.ResponseWriter, request *http.Request) {
	userID, userEmail := theRouter.currentUser(request)
	if userID == "" {
		theRouter.renderError(
			response,
			request,
			http.StatusUnauthorized,
			"Please log in or register to see your URLs",
		)
		return
	}

	urls, err := theRouter.service.UserLinks(request.Context(), userID)
	if err != nil {
		logger.Log.Debugln("Error calling the `service.UserLinks()`: ", zap.Error(err))
		theRouter.renderError(response, request, http.StatusInternalServerError, "Failed to list URLs")
		return
	}

	theRouter.render(response, "urls_index.gohtml", urlsIndexPage{
		UserEmail: userEmail,
		Urls:      urls,
	})
}

// GetUrlsNew renders the link-creation form; anonymous callers are sent to
// the login form instead.
func (theRouter *Router) GetUrlsNew(response http.ResponseWriter, request *http.Request) {
	userID, userEmail := theRouter.currentUser(request)
	if userID == "" {
		http.Redirect(response, request, "/login", http.StatusFound)
		return
	}

	theRouter.render(response, "urls_new.gohtml", formPage{UserEmail: userEmail})
}

// PostUrls creates a link owned by the caller and redirects to its detail page.
func (theRouter *Router) PostUrls(response http.ResponseWriter, request *http.Request) {
	userID := session.UserID(request.Context())
	if userID == "" {
		theRouter.renderError(
			response,
			request,
			http.StatusUnauthorized,
			"Please log in to create a short URL",
		)
		return
	}

	if err := request.ParseForm(); err != nil {
		theRouter.renderError(response, request, http.StatusBadRequest, "Invalid form body")
		return
	}

	short, err := theRouter.service.ShortenURL(
		request.Context(),
		request.PostFormValue("longURL"),
		userID,
	)
	if errors.Is(err, models.ErrValidation) {
		theRouter.renderError(response, request, statusFromError(err), "Please provide a URL to shorten")
		return
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `service.ShortenURL()`: ", zap.Error(err))
		theRouter.renderError(response, request, http.StatusInternalServerError, "Failed to create a short URL")
		return
	}

	http.Redirect(response, request, "/urls/"+short, http.StatusFound)
}

// GetUrlDetail renders the detail page of a link the caller owns.
func (theRouter *Router) GetUrlDetail(response http.ResponseWriter, request *http.Request) {
	userID, userEmail := theRouter.currentUser(request)
	if userID == "" {
		theRouter.renderError(
			response,
			request,
			http.StatusUnauthorized,
			"Please log in or register to edit your URLs",
		)
		return
	}

	short := chi.URLParam(request, "short")
	link, err := theRouter.service.GetOwnedLink(request.Context(), short, userID)
	if errors.Is(err, models.ErrNotFound) {
		theRouter.renderError(response, request, statusFromError(err), "No such short URL")
		return
	}
	if errors.Is(err, models.ErrForbidden) {
		theRouter.renderError(
			response,
			request,
			statusFromError(err),
			"Invalid URL to edit. To edit this URL, please log into the correct account",
		)
		return
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `service.GetOwnedLink()`: ", zap.Error(err))
		theRouter.renderError(response, request, http.StatusInternalServerError, "Failed to load the URL")
		return
	}

	shortURL, err := url.JoinPath(theRouter.shortURLBase, "u", link.Short)
	if err != nil {
		theRouter.renderError(response, request, http.StatusInternalServerError, "Failed to load the URL")
		return
	}

	theRouter.render(response, "urls_show.gohtml", urlsShowPage{
		UserEmail: userEmail,
		Short:     link.Short,
		ShortURL:  shortURL,
		LongURL:   link.LongURL,
	})
}

// PostUrlEdit replaces the long URL of a link the caller owns.
func (theRouter *Router) PostUrlEdit(response http.ResponseWriter, request *http.Request) {
	userID := session.UserID(request.Context())
	if userID == "" {
		theRouter.renderError(
			response,
			request,
			http.StatusUnauthorized,
			"Please log in or register to edit your URLs",
		)
		return
	}

	if err := request.ParseForm(); err != nil {
		theRouter.renderError(response, request, http.StatusBadRequest, "Invalid form body")
		return
	}

	short := chi.URLParam(request, "short")
	err := theRouter.service.UpdateLink(
		request.Context(),
		short,
		request.PostFormValue("longURL"),
		userID,
	)
	if err != nil {
		theRouter.handleLinkMutationError(response, request, err, "edit")
		return
	}

	http.Redirect(response, request, "/urls", http.StatusFound)
}

// PostUrlDelete removes a link the caller owns.
func (theRouter *Router) PostUrlDelete(response http.ResponseWriter, request *http.Request) {
	userID := session.UserID(request.Context())
	if userID == "" {
		theRouter.renderError(
			response,
			request,
			http.StatusUnauthorized,
			"Please log in or register to delete your URLs",
		)
		return
	}

	short := chi.URLParam(request, "short")
	if err := theRouter.service.DeleteLink(request.Context(), short, userID); err != nil {
		theRouter.handleLinkMutationError(response, request, err, "delete")
		return
	}

	http.Redirect(response, request, "/urls", http.StatusFound)
}

func (theRouter *Router) handleLinkMutationError(
	response http.ResponseWriter,
	request *http.Request,
	err error,
	action string,
) {
	switch {
	case errors.Is(err, models.ErrValidation):
		theRouter.renderError(response, request, statusFromError(err), "Please provide a URL")
	case errors.Is(err, models.ErrNotFound):
		theRouter.renderError(response, request, statusFromError(err), "No such short URL")
	case errors.Is(err, models.ErrForbidden):
		theRouter.renderError(
			response,
			request,
			statusFromError(err),
			"Invalid URL to "+action+". To "+action+" this URL, please log into the correct account",
		)
	default:
		logger.Log.Debugln("Error mutating the link: ", zap.Error(err))
		theRouter.renderError(response, request, http.StatusInternalServerError, "Failed to "+action+" the URL")
	}
}

// GetRedirecttofullurl is the public redirect: no session, no ownership.
func (theRouter *Router) GetRedirecttofullurl(response http.ResponseWriter, request *http.Request) {
	short := chi.URLParam(request, "short")
	full, err := theRouter.service.ResolveShort(request.Context(), short)
	if errors.Is(err, models.ErrNotFound) {
		theRouter.renderError(response, request, http.StatusNotFound, "No such short URL")
		return
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `service.ResolveShort()`: ", zap.Error(err))
		theRouter.renderError(response, request, http.StatusInternalServerError, "Failed to resolve the URL")
		return
	}

	http.Redirect(response, request, full, http.StatusFound)
}

// GetUrlsJSON dumps the entire link store as JSON. Deliberately
// unauthenticated: a debug endpoint, not a security feature.
func (theRouter *Router) GetUrlsJSON(response http.ResponseWriter, request *http.Request) {
	links, err := theRouter.service.DumpLinks(request.Context())
	if err != nil {
		http.Error(response, err.Error(), http.StatusInternalServerError)
		return
	}

	response.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(response).Encode(links); err != nil {
		logger.Log.Debugln("Error encoding the urls.json response: ", zap.Error(err))
	}
}
