// Package api is the HTTP surface of the wizard: one JSON endpoint per step
// plus the draft, navigation and audience-selector helpers the pages call.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"promo-wizard/internal/auth"
	"promo-wizard/internal/cache"
	"promo-wizard/internal/client"
	"promo-wizard/internal/draft"
	"promo-wizard/internal/loader"
	"promo-wizard/internal/session"
	"promo-wizard/internal/wizard"
)

// SessionCookie identifies the wizard session a draft belongs to.
const SessionCookie = "wizard_session"

const sessionMaxAge = 7 * 24 * time.Hour

// Deps wires the handler to its collaborators.
type Deps struct {
	Service  *wizard.Service
	Drafts   draft.Repository
	DraftKey string
	Options  *wizard.Options
	Source   loader.Source
	Labels   *cache.Labels
	Watcher  *session.Watcher
	Restrict bool
	Secure   bool
}

type Handler struct {
	svc      *wizard.Service
	drafts   draft.Repository
	key      string
	options  *wizard.Options
	source   loader.Source
	labels   *cache.Labels
	watcher  *session.Watcher
	restrict bool
	secure   bool
	locks    *ownerLocks
}

func NewHandler(d Deps) *Handler {
	labels := d.Labels
	if labels == nil {
		labels = cache.NewLabels()
	}
	return &Handler{
		svc:      d.Service,
		drafts:   d.Drafts,
		key:      d.DraftKey,
		options:  d.Options,
		source:   d.Source,
		labels:   labels,
		watcher:  d.Watcher,
		restrict: d.Restrict,
		secure:   d.Secure,
		locks:    newOwnerLocks(),
	}
}

type ownerKey struct{}

func ownerFrom(ctx context.Context) string {
	s, _ := ctx.Value(ownerKey{}).(string)
	return s
}

// session assigns the wizard session id, rejects sessions the idle watcher
// expired and records activity for the rest.
func (h *Handler) session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(SessionCookie); err == nil {
			if _, perr := uuid.Parse(c.Value); perr == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, h.sessionCookie(id, int(sessionMaxAge.Seconds())))
		}

		if h.watcher != nil {
			if h.watcher.Expired(id) {
				h.expire(w)
				return
			}
			if err := h.watcher.Touch(r.Context(), id); err != nil {
				log.Warn().Err(err).Str("session", id).Msg("record activity")
			}
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, id)))
	})
}

func (h *Handler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

// tokens hands the caller's cookies to the REST client so it can refresh them.
func (h *Handler) tokens(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var access, refresh string
		if c, err := r.Cookie(auth.AccessCookie); err == nil {
			access = c.Value
		}
		if c, err := r.Cookie(auth.RefreshCookie); err == nil {
			refresh = c.Value
		}
		ctx := client.WithSession(r.Context(), client.NewSession(access, refresh))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) open(r *http.Request) *draft.Store {
	return draft.Open(r.Context(), h.drafts, ownerFrom(r.Context()), h.key)
}

// mutate runs fn against the caller's draft while holding the owner lock.
// Once fn leaves the draft empty the owner's selector state is dropped too.
func (h *Handler) mutate(r *http.Request, fn func(st *draft.Store)) {
	owner := ownerFrom(r.Context())
	unlock := h.locks.lock(owner)
	defer unlock()

	st := h.open(r)
	fn(st)
	if st.Draft().IsZero() {
		h.release(owner)
	}
}

func (h *Handler) release(owner string) {
	if h.options != nil {
		h.options.Forget(owner)
	}
}

// ReleaseExpired subscribes to idle logouts and returns a loop that drops
// the selector state of every logged-out session until ctx is done.
func (h *Handler) ReleaseExpired() func(ctx context.Context) {
	if h.watcher == nil {
		return func(context.Context) {}
	}
	events, cancel := h.watcher.Subscribe()
	return func(ctx context.Context) {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				h.release(ev.SessionID)
				log.Debug().Str("session", ev.SessionID).Msg("released selector state")
			}
		}
	}
}

// expire clears every session cookie and points the client at the landing page.
func (h *Handler) expire(w http.ResponseWriter) {
	auth.ClearSession(w, h.secure)
	http.SetCookie(w, h.sessionCookie("", -1))
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"error":    wizard.UserMessage(client.ErrSessionExpired),
		"redirect": "/",
	})
}

// respond writes rotated tokens back before the body.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if sess := client.SessionFrom(r.Context()); sess != nil && sess.Refreshed() {
		access, refresh := sess.Tokens()
		auth.WriteTokens(w, access, refresh, h.secure)
	}
	writeJSON(w, status, v)
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr   *wizard.ValidationError
		apiErr *client.APIError
	)
	msg := wizard.UserMessage(err)
	switch {
	case errors.As(err, &verr):
		h.respond(w, r, http.StatusUnprocessableEntity, errorBody{Error: msg, Fields: verr.Fields})
	case errors.Is(err, client.ErrSessionExpired):
		h.expire(w)
	case errors.Is(err, wizard.ErrNoPromo), errors.Is(err, wizard.ErrWrongFlow):
		h.respond(w, r, http.StatusConflict, errorBody{Error: msg})
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		h.respond(w, r, apiErr.Status, errorBody{Error: msg})
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Str("owner", ownerFrom(r.Context())).Msg("wizard request failed")
		h.respond(w, r, http.StatusBadGateway, errorBody{Error: msg})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	return dec.Decode(v)
}

const (
	maxJSONBody   = 1 << 20
	maxUploadBody = 10 << 20
)
