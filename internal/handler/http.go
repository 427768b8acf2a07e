package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"wedding-invites/internal/apperr"
	"wedding-invites/internal/models"
)

// RSVPView is the public representation of a guest behind /rsvp/<guestId>.
type RSVPView struct {
	GuestID string            `json:"guest_id"`
	Name    string            `json:"name"`
	Status  models.RSVPStatus `json:"status"`
	Event   models.Event      `json:"event"`
}

type rsvpRequest struct {
	Status models.RSVPStatus `json:"status"`
}

// API serves the public confirmation links.
type API struct {
	statuses StatusSetter
	guests   GuestFinder
	event    models.Event
	log      zerolog.Logger
}

func NewAPI(statuses StatusSetter, guests GuestFinder, event models.Event, log zerolog.Logger) *API {
	return &API{
		statuses: statuses,
		guests:   guests,
		event:    event,
		log:      log.With().Str("component", "http").Logger(),
	}
}

// RegisterRoutes registers the RSVP routes on r
func (a *API) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", a.health).Methods(http.MethodGet)
	r.HandleFunc("/rsvp/{guestId}", a.getRSVP).Methods(http.MethodGet)
	r.HandleFunc("/rsvp/{guestId}", a.postRSVP).Methods(http.MethodPost)
}

// Handler returns the routes wrapped in CORS handling for allowedOrigins
func (a *API) Handler(allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	a.RegisterRoutes(r)
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (a *API) getRSVP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["guestId"]
	guest, ok := a.find(r, id)
	if !ok {
		a.writeError(w, apperr.NotFound("guest", id))
		return
	}
	writeJSON(w, http.StatusOK, a.view(guest))
}

func (a *API) postRSVP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["guestId"]

	var req rsvpRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.writeError(w, apperr.Validation("body", "invalid JSON"))
			return
		}
	} else {
		req.Status = models.RSVPStatus(r.FormValue("status"))
	}
	if _, ok := a.find(r, id); !ok {
		a.writeError(w, apperr.NotFound("guest", id))
		return
	}

	guest, err := a.statuses.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.log.Info().Str("guest_id", id).Str("status", string(guest.Status)).Msg("RSVP received over HTTP")
	writeJSON(w, http.StatusOK, a.view(guest))
}

func (a *API) find(r *http.Request, id string) (models.Guest, bool) {
	return findGuest(r.Context(), a.guests, a.log, func() (models.Guest, bool) {
		return a.guests.Guest(id)
	})
}

func (a *API) view(g models.Guest) RSVPView {
	return RSVPView{GuestID: g.ID, Name: g.Name, Status: g.Status, Event: a.event}
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var (
		ve *apperr.ValidationError
		ne *apperr.NotFoundError
		te *apperr.TransportError
	)
	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
	case errors.As(err, &ne):
		status = http.StatusNotFound
	case errors.As(err, &te):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		a.log.Error().Err(err).Msg("RSVP request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
