// Package httpapi exposes the REST API over the application services.
package httpapi

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	app "github.com/campuslink/platform/internal/app"
	"github.com/campuslink/platform/internal/app/domain/listing"
	"github.com/campuslink/platform/internal/app/domain/payment"
	"github.com/campuslink/platform/internal/app/domain/user"
	"github.com/campuslink/platform/internal/app/services/listings"
	"github.com/campuslink/platform/internal/app/services/users"
	"github.com/campuslink/platform/internal/errors"
	"github.com/campuslink/platform/internal/httputil"
	"github.com/campuslink/platform/internal/logging"
	"github.com/campuslink/platform/internal/middleware"
)

const maxWebhookBody = 64 * 1024

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
	log *logging.Logger
}

// NewHandler returns a router exposing the REST API under /api/v1.
func NewHandler(application *app.Application, log *logging.Logger) http.Handler {
	if log == nil {
		log = logging.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log}

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Accounts and sessions.
	api.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost)
	api.HandleFunc("/me", h.me).Methods(http.MethodGet)
	api.HandleFunc("/me", h.updateProfile).Methods(http.MethodPatch)
	api.HandleFunc("/users", h.listUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", h.getUser).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/promote", h.promoteUser).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}/verify", h.verifyUser).Methods(http.MethodPost)

	// Listings and applications.
	api.HandleFunc("/listings", h.createListing).Methods(http.MethodPost)
	api.HandleFunc("/listings", h.searchListings).Methods(http.MethodGet)
	api.HandleFunc("/listings/{id}", h.getListing).Methods(http.MethodGet)
	api.HandleFunc("/listings/{id}", h.updateListing).Methods(http.MethodPatch)
	api.HandleFunc("/listings/{id}/close", h.closeListing).Methods(http.MethodPost)
	api.HandleFunc("/listings/{id}/applications", h.apply).Methods(http.MethodPost)
	api.HandleFunc("/listings/{id}/applications", h.listApplications).Methods(http.MethodGet)
	api.HandleFunc("/applications", h.myApplications).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id}/review", h.reviewApplication).Methods(http.MethodPost)

	// Messaging.
	api.HandleFunc("/messages", h.sendMessage).Methods(http.MethodPost)
	api.HandleFunc("/threads", h.openThread).Methods(http.MethodPost)
	api.HandleFunc("/threads", h.listThreads).Methods(http.MethodGet)
	api.HandleFunc("/threads/{id}/messages", h.threadMessages).Methods(http.MethodGet)
	api.HandleFunc("/ws", h.websocket).Methods(http.MethodGet)

	// Forums.
	api.HandleFunc("/boards", h.listBoards).Methods(http.MethodGet)
	api.HandleFunc("/boards", h.createBoard).Methods(http.MethodPost)
	api.HandleFunc("/boards/{slug}/topics", h.listTopics).Methods(http.MethodGet)
	api.HandleFunc("/boards/{slug}/topics", h.createTopic).Methods(http.MethodPost)
	api.HandleFunc("/topics/{id}/posts", h.listPosts).Methods(http.MethodGet)
	api.HandleFunc("/topics/{id}/posts", h.reply).Methods(http.MethodPost)
	api.HandleFunc("/topics/{id}/moderate", h.moderateTopic).Methods(http.MethodPost)
	api.HandleFunc("/posts/{id}", h.editPost).Methods(http.MethodPatch)

	// Points and referrals.
	api.HandleFunc("/points/me", h.myPoints).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", h.leaderboard).Methods(http.MethodGet)
	api.HandleFunc("/referrals/me", h.myReferrals).Methods(http.MethodGet)

	// Payments.
	api.HandleFunc("/payments", h.createPayment).Methods(http.MethodPost)
	api.HandleFunc("/payments", h.myPayments).Methods(http.MethodGet)
	api.HandleFunc("/payments/{id}", h.getPayment).Methods(http.MethodGet)
	api.HandleFunc("/webhooks/payments", h.paymentWebhook).Methods(http.MethodPost)

	// Notifications.
	api.HandleFunc("/notifications", h.myNotifications).Methods(http.MethodGet)

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	return r
}

// SkipAuthPaths lists API routes served without a session token.
func SkipAuthPaths() []string {
	return []string{
		"/api/v1/auth/register",
		"/api/v1/auth/login",
		"/api/v1/webhooks/payments",
	}
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- accounts ----------------------------------------------------------------

type userResponse struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Role           string    `json:"role"`
	Bio            string    `json:"bio,omitempty"`
	GraduationYear int       `json:"graduation_year,omitempty"`
	Verified       bool      `json:"verified"`
	ReferralCode   string    `json:"referral_code,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toUserResponse(u user.User) userResponse {
	return userResponse{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Role:           string(u.Role),
		Bio:            u.Bio,
		GraduationYear: u.GraduationYear,
		Verified:       u.Verified,
		ReferralCode:   u.ReferralCode,
		CreatedAt:      u.CreatedAt,
	}
}

// publicUserResponse strips the fields only the account holder should see.
func publicUserResponse(u user.User) userResponse {
	resp := toUserResponse(u)
	resp.Email = ""
	resp.ReferralCode = ""
	return resp
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email          string `json:"email"`
		Name           string `json:"name"`
		Password       string `json:"password"`
		Role           string `json:"role"`
		GraduationYear int    `json:"graduation_year"`
		ReferralCode   string `json:"referral_code"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, errors.InvalidInput(err.Error()))
		return
	}
	created, err := h.app.Users.Register(r.Context(), users.RegisterInput{
		Email:          payload.Email,
		Name:           payload.Name,
		Password:       payload.Password,
		Role:           user.Role(payload.Role),
		GraduationYear: payload.GraduationYear,
		ReferralCode:   payload.ReferralCode,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toUserResponse(created))
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, errors.InvalidInput(err.Error()))
		return
	}
	u, token, err := h.app.Users.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  toUserResponse(u),
	})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		httputil.Unauthorized(w, "")
		return
	}
	var expiry time.Time
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}
	if err := h.app.Users.Logout(r.Context(), claims.ID, expiry); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.app.Users.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name           *string `json:"name"`
		Bio            *string `json:"bio"`
		GraduationYear *int    `json:"graduation_year"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, errors.InvalidInput(err.Error()))
		return
	}
	updated, err := h.app.Users.UpdateProfile(r.Context(), middleware.GetUserID(r.Context()), payload.Name, payload.Bio, payload.GraduationYear)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toUserResponse(updated))
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUserRole(r.Context()) != string(user.RoleAdmin) {
		httputil.WriteError(w, errors.Forbidden("admin role required"))
		return
	}
	all, err := h.app.Users.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := make([]userResponse, 0, len(all))
	for _, u := range all {
		resp = append(resp, toUserResponse(u))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.app.Users.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, publicUserResponse(u))
}

func (h *handler) promoteUser(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Role string `json:"role"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, errors.InvalidInput(err.Error()))
		return
	}
	updated, err := h.app.Users.Promote(r.Context(), middleware.GetUserRole(r.Context()), mux.Vars(r)["id"], user.Role(payload.Role))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toUserResponse(updated))
}

func (h *handler) verifyUser(w http.ResponseWriter, r *http.Request) {
	updated, err := h.app.Users.Verify(r.Context(), middleware.GetUserRole(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toUserResponse(updated))
}

// --- listings ----------------------------------------------------------------

func (h *handler) createListing(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Kind         string    `json:"kind"`
		Title        string    `json:"title"`
		Company      string    `json:"company"`
		Description  string    `json:"description"`
		Location     string    `json:"location"`
		Compensation string    `json:"compensation"`
		Deadline     time.Time `json:"deadline"`
		Tags         []string  `json:"tags"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, errors.InvalidInput(err.Error()))
		return
	}
	created, err := h.app.Listings.Create(r.Context(), middleware.GetUserID(r.Context()), middleware.GetUserRole(r.Context()), listings.CreateInput{
		Kind:         listing.Kind(payload.Kind),
		Title:        payload.Title,
		Company:      payload.Company,
		Description:  payload.Description,
		Location:     payload.Location,
		Compensation: payload.Compensation,
		Deadline:     payload.Deadline,
		Tags:         payload.Tags,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) searchListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := listing.Status(q.Get("status"))
	if status == "" {
		status = listing.StatusOpen
	}
	results, err := h.app.Listings.Search(r.Context(), listing.Filter{
		Kind:     listing.Kind(q.Get("kind")),
		Tag:      q.Get("tag"),
		Location: q.Get("location"),
		Status:   status,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, results)
}

func (h *handler) getListing(w http.ResponseWriter, r *http.Request) {
	l, err := h.app.Listings.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, l)
}

func (h *handler) updateListing(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title        *string    `json:"title"`
		Company      *string    `json:"company"`
		Description  *string    `json:"description"`
		Location     *string    `json:"location"`
		Compensation *string    `json:"compensation"`
		Deadline     *time.Time `json:"deadline"`
		Tags         []string   `json:"tags"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, errors.InvalidInput(err.Error()))
		return
	}
	updated, err := h.app.Listings.Update(r.Context(), middleware.GetUserID(r.Context()), middleware.GetUserRole(r.Context()), mux.Vars(r)["id"], listings.UpdateInput{
		Title:        payload.Title,
		Company:      payload.Company,
		Description:  payload.Description,
		Location:     payload.Location,
		Compensation: payload.Compensation,
		Deadline:     payload.Deadline,
		Tags:         payload.Tags,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *handler) closeListing(w http.ResponseWriter, r *http.Request) {
	closed, err := h.app.Listings.Close(r.Context(), middleware.GetUserID(r.Context()), middleware.GetUserRole(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, closed)
}

func (h *handler) apply(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Note string `json:"note"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, errors.InvalidInput(err.Error()))
		return
	}
	created, err := h.app.Listings.Apply(r.Context(), middleware.GetUserID(r.Context()), middleware.GetUserRole(r.Context()), mux.Vars(r)["id"], payload.Note)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) listApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.app.Listings.Applications(r.Context(), middleware.GetUserID(r.Context()), middleware.GetUserRole(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, apps)
}

func (h *handler) myApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.app.Listings.MyApplications(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, apps)
}

func (h *handler) reviewApplication(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status string `json:"status"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, errors.InvalidInput(err.Error()))
		return
	}
	updated, err := h.app.Listings.Review(r.Context(), middleware.GetUserID(r.Context()), middleware.GetUserRole(r.Context()), mux.Vars(r)["id"], listing.ApplicationStatus(payload.Status))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

// --- messaging ---------------------------------------------------------------

func (h *handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RecipientID string `json:"recipient_id"`
		Body        string `json:"body"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, errors.InvalidInput(err.Error()))
		return
	}
	sent, err := h.app.Messaging.Send(r.Context(), middleware.GetUserID(r.Context()), payload.RecipientID, payload.Body)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sent)
}

func (h *handler) openThread(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RecipientID string `json:"recipient_id"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, errors.InvalidInput(err.Error()))
		return
	}
	thread, err := h.app.Messaging.OpenThread(r.Context(), middleware.GetUserID(r.Context()), payload.RecipientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, thread)
}

func (h *handler) listThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := h.app.Messaging.Threads(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, threads)
}

func (h *handler) threadMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.app.Messaging.Messages(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, msgs)
}

func (h *handler) websocket(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.Unauthorized(w, "")
		return
	}
	if err := h.app.Hub.Serve(w, r, userID); err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
	}
}

// --- forums ------------------------------------------------------------------

func (h *handler) listBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := h.app.Forums.Boards(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, boards)
}

func (h *handler) createBoard(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Slug        string `json:"slug"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, errors.InvalidInput(err.Error()))
		return
	}
	created, err := h.app.Forums.CreateBoard(r.Context(), middleware.GetUserRole(r.Context()), payload.Slug, payload.Title, payload.Description)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) listTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.app.Forums.Topics(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, topics)
}

func (h *handler) createTopic(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, errors.InvalidInput(err.Error()))
		return
	}
	topic, first, err := h.app.Forums.CreateTopic(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["slug"], payload.Title, payload.Body)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"topic":      topic,
		"first_post": first,
	})
}

func (h *handler) listPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.app.Forums.Posts(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, posts)
}

func (h *handler) reply(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Body string `json:"body"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, errors.InvalidInput(err.Error()))
		return
	}
	post, err := h.app.Forums.Reply(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["id"], payload.Body)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, post)
}

func (h *handler) moderateTopic(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Pinned *bool `json:"pinned"`
		Locked *bool `json:"locked"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, errors.InvalidInput(err.Error()))
		return
	}
	updated, err := h.app.Forums.Moderate(r.Context(), middleware.GetUserRole(r.Context()), mux.Vars(r)["id"], payload.Pinned, payload.Locked)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *handler) editPost(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Body string `json:"body"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, errors.InvalidInput(err.Error()))
		return
	}
	updated, err := h.app.Forums.EditPost(r.Context(), middleware.GetUserID(r.Context()), middleware.GetUserRole(r.Context()), mux.Vars(r)["id"], payload.Body)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

// --- points and referrals ----------------------------------------------------

func (h *handler) myPoints(w http.ResponseWriter, r *http.Request) {
	total, awards, badges, err := h.app.Points.Summary(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"total":  total,
		"awards": awards,
		"badges": badges,
	})
}

func (h *handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.app.Points.Leaderboard(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func (h *handler) myReferrals(w http.ResponseWriter, r *http.Request) {
	stats, err := h.app.Referrals.Stats(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// --- payments ----------------------------------------------------------------

func (h *handler) createPayment(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Purpose     string `json:"purpose"`
		AmountCents int64  `json:"amount_cents"`
		Currency    string `json:"currency"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, errors.InvalidInput(err.Error()))
		return
	}
	created, err := h.app.Payments.Create(r.Context(), middleware.GetUserID(r.Context()), payment.Purpose(payload.Purpose), payload.AmountCents, payload.Currency)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) myPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.app.Payments.ListMine(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, payments)
}

func (h *handler) getPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Payments.Get(r.Context(), middleware.GetUserID(r.Context()), middleware.GetUserRole(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httputil.WriteError(w, errors.InvalidInput("unreadable payload"))
		return
	}
	signature := r.Header.Get("X-Gateway-Signature")
	if err := h.app.Payments.HandleWebhook(r.Context(), payload, signature); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- notifications -----------------------------------------------------------

func (h *handler) myNotifications(w http.ResponseWriter, r *http.Request) {
	mine, err := h.app.Notifications.ListMine(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, mine)
}
