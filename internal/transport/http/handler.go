package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"contest-platform-service/internal/app"
	"contest-platform-service/internal/domain"
)

// Handler exposes the participation core over JSON. The caller identity is
// attached by the upstream auth layer as X-User-Id / X-User-Role headers; a
// missing principal is a guest.
type Handler struct {
	service *app.Service
}

func NewHandler(service *app.Service) *Handler {
	return &Handler{service: service}
}

// Register wires the API routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/participation/join", h.join)
	mux.HandleFunc("POST /api/participation", h.submit)
	mux.HandleFunc("GET /api/participation/leaderboard/{contestID}", h.leaderboard)
	mux.HandleFunc("GET /api/participation/mine", h.myActivity)
	mux.HandleFunc("GET /api/contests", h.listContests)
	mux.HandleFunc("GET /api/contests/{contestID}", h.contestDetail)
	mux.HandleFunc("DELETE /api/contests/{contestID}", h.purgeContest)
}

type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Kind    string      `json:"kind,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type joinRequest struct {
	ContestID string `json:"contestId"`
}

type submitRequest struct {
	ContestID string              `json:"contestId"`
	Answers   map[string][]string `json:"answers"`
}

type submitResponse struct {
	ContestID   string `json:"contestId"`
	Score       int    `json:"score"`
	SubmittedAt string `json:"submittedAt"`
}

func (h *Handler) join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidSubmission)
		return
	}
	if err := h.service.Join(r.Context(), principalFrom(r), req.ContestID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "joined"})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidSubmission)
		return
	}
	participation, err := h.service.Submit(r.Context(), principalFrom(r), req.ContestID, domain.AnswerSet(req.Answers))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "participation submitted", Data: submitResponse{
		ContestID:   participation.ContestID,
		Score:       participation.Score,
		SubmittedAt: participation.SubmittedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}})
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.service.Leaderboard(r.Context(), r.PathValue("contestID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: lb})
}

func (h *Handler) myActivity(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	if !p.Role.CanParticipate() {
		writeError(w, domain.ErrNotEligible)
		return
	}
	activity, err := h.service.MyActivity(r.Context(), p.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: activity})
}

func (h *Handler) listContests(w http.ResponseWriter, r *http.Request) {
	contests, err := h.service.VisibleContests(r.Context(), principalFrom(r).Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: contests})
}

func (h *Handler) contestDetail(w http.ResponseWriter, r *http.Request) {
	contest, questions, err := h.service.ContestDetail(r.Context(), principalFrom(r), r.PathValue("contestID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]interface{}{
		"contest":   contest,
		"questions": questions,
	}})
}

func (h *Handler) purgeContest(w http.ResponseWriter, r *http.Request) {
	if principalFrom(r).Role != domain.RoleAdmin {
		writeError(w, domain.ErrNotEligible)
		return
	}
	if err := h.service.PurgeContest(r.Context(), r.PathValue("contestID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "contest purged"})
}

func principalFrom(r *http.Request) domain.Principal {
	return domain.Principal{
		UserID: r.Header.Get("X-User-Id"),
		Role:   domain.ParseRole(r.Header.Get("X-User-Role")),
	}
}

// errorKind maps a domain error to its machine-readable kind.
func errorKind(err error) (string, int) {
	switch {
	case errors.Is(err, domain.ErrInvalidSubmission):
		return "validation", http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadySubmitted):
		return "conflict", http.StatusConflict
	case errors.Is(err, domain.ErrContestNotFound), errors.Is(err, domain.ErrQuestionNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, domain.ErrNotEligible), errors.Is(err, domain.ErrVIPOnly), errors.Is(err, domain.ErrContestNotActive):
		return "forbidden", http.StatusForbidden
	case errors.Is(err, domain.ErrCatalogUnavailable), errors.Is(err, domain.ErrDirectoryUnavailable):
		return "dependency", http.StatusBadGateway
	default:
		return "internal", http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind, status := errorKind(err)
	writeJSON(w, status, envelope{Success: false, Message: err.Error(), Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
