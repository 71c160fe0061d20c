package handler

import (
	"log/slog"
	"net/http"

	"cartsync/internal/model"
	"cartsync/internal/session"
)

// SessionRequest is the JSON form of PUT /session.
type SessionRequest struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"`
	Token         string `json:"token,omitempty"`
}

// handleGetSession returns the session signal.
// GET /session
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.sessionView())
}

// handlePutSession replaces the session signal. The new state comes from the
// Commerce-Session header when present, otherwise from the JSON body.
// PUT /session
func (h *Handler) handlePutSession(w http.ResponseWriter, r *http.Request) {
	var next session.State
	if header := r.Header.Get(session.HeaderName); header != "" {
		st, err := session.ParseHeader(header)
		if err != nil {
			h.writeError(w, model.NewValidationError(session.HeaderName, err.Error()))
			return
		}
		next = st
	} else {
		var req SessionRequest
		if err := decodeJSON(r, &req); err != nil {
			h.writeError(w, err)
			return
		}
		if req.Authenticated && req.UserID == "" {
			h.writeError(w, model.NewValidationError("user_id", "required when authenticated"))
			return
		}
		if req.Authenticated {
			next = session.Authenticated(req.UserID, req.Token)
		}
	}

	if h.engine.Session.Set(next) {
		h.logger.InfoContext(r.Context(), "session changed",
			slog.Bool("authenticated", next.Authenticated),
			slog.String("user_id", next.UserID),
		)
	}
	h.writeJSON(w, http.StatusOK, h.sessionView())
}

func (h *Handler) sessionView() SessionView {
	st := h.engine.Session.Current()
	return SessionView{
		Authenticated:  st.Authenticated,
		UserID:         st.UserID,
		MergeCompleted: h.engine.MergeCompleted(),
	}
}
