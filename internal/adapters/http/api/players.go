package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/okian/ranking/internal/domain/model"
	"github.com/okian/ranking/pkg/logger"
)

const (
	maxBodyBytes = 1 << 16

	msgMalformedBody = "Malformed or missing body"
)

// PlayerService is the ranking service seen by the players handlers.
type PlayerService interface {
	Add(ctx context.Context, p model.Player) (model.RankedPlayer, error)
	Update(ctx context.Context, p model.Player) (model.RankedPlayer, bool, error)
	By(ctx context.Context, pseudo string) (model.RankedPlayer, bool, error)
	AllSortedByRank(ctx context.Context) ([]model.RankedPlayer, error)
	DeleteAll(ctx context.Context) error
}

// PlayersHandler serves the /players resource.
type PlayersHandler struct {
	svc PlayerService
	log logger.Logger
}

// NewPlayersHandler creates a new players handler.
func NewPlayersHandler(svc PlayerService, log logger.Logger) *PlayersHandler {
	return &PlayersHandler{svc: svc, log: log}
}

// Routes mounts the handlers on r relative to the resource root.
func (h *PlayersHandler) Routes(r chi.Router) {
	r.Get("/", MetricsMiddleware(h.HandleList, "players_list"))
	r.Post("/", MetricsMiddleware(h.HandleCreate, "players_create"))
	r.Delete("/", MetricsMiddleware(h.HandleDeleteAll, "players_delete_all"))
	r.Get("/{pseudo}", MetricsMiddleware(h.HandleGet, "players_get"))
	r.Put("/{pseudo}", MetricsMiddleware(h.HandleUpdate, "players_update"))
}

// HandleList handles GET /players requests.
func (h *PlayersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_players"
	all, err := h.svc.AllSortedByRank(r.Context())
	if err != nil {
		h.fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toRankedPlayerResponses(all))
}

// HandleGet handles GET /players/{pseudo} requests.
func (h *PlayersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_player"
	pseudo := pseudoParam(r)
	rp, found, err := h.svc.By(r.Context(), pseudo)
	if err != nil {
		h.fail(r.Context(), w, Wrap(op, err))
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", notFoundMessage(pseudo))
		return
	}
	writeJSON(w, http.StatusOK, toRankedPlayerResponse(rp))
}

// HandleCreate handles POST /players requests.
func (h *PlayersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_player"
	var req createPlayerRequest
	if err := decodeBody(r, &req); err != nil || !req.complete() {
		writeError(w, http.StatusBadRequest, "bad_request", msgMalformedBody)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_player", err.Error())
		return
	}
	p, err := model.NewPlayer(*req.Pseudo, *req.Points)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_player", err.Error())
		return
	}

	rp, err := h.svc.Add(r.Context(), p)
	switch {
	case errors.Is(err, model.ErrDuplicatePlayer):
		h.log.Debug(r.Context(), "player already exists", logger.Error(WrapKind(op, ErrConflict, err)))
		writeError(w, http.StatusConflict, "conflict", fmt.Sprintf("Player with pseudo '%s' already exists", p.Pseudo()))
		return
	case err != nil:
		h.fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, toRankedPlayerResponse(rp))
}

// HandleUpdate handles PUT /players/{pseudo} requests.
func (h *PlayersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_player"
	pseudo := pseudoParam(r)
	var req updatePlayerRequest
	if err := decodeBody(r, &req); err != nil || !req.complete() {
		writeError(w, http.StatusBadRequest, "bad_request", msgMalformedBody)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_player", err.Error())
		return
	}
	p, err := model.NewPlayer(pseudo, *req.Points)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_player", err.Error())
		return
	}

	rp, found, err := h.svc.Update(r.Context(), p)
	if err != nil {
		h.fail(r.Context(), w, Wrap(op, err))
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", notFoundMessage(pseudo))
		return
	}
	writeJSON(w, http.StatusOK, toRankedPlayerResponse(rp))
}

// HandleDeleteAll handles DELETE /players requests.
func (h *PlayersHandler) HandleDeleteAll(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_all_players"
	if err := h.svc.DeleteAll(r.Context()); err != nil {
		h.fail(r.Context(), w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail answers a server-side failure. A written player that cannot be read
// back is reported as inconsistent_state, anything else as internal_error.
func (h *PlayersHandler) fail(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, model.ErrInconsistentState) {
		h.log.Error(ctx, "ranking invariant violated", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "inconsistent_state",
			"Player was stored but its rank could not be read back")
		return
	}
	h.log.Error(ctx, "request failed", logger.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", http.StatusText(http.StatusInternalServerError))
}

// pseudoParam returns the decoded pseudo. chi matches on RawPath when the
// request carries one, and the parameter is then still escaped.
func pseudoParam(r *http.Request) string {
	param := chi.URLParam(r, "pseudo")
	if r.URL.RawPath == "" {
		return param
	}
	if p, err := url.PathUnescape(param); err == nil {
		return p
	}
	return param
}

func notFoundMessage(pseudo string) string {
	return fmt.Sprintf("No player found for pseudo '%s'", pseudo)
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return io.EOF
	}
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}
