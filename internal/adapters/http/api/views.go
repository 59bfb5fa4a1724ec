package api

import (
	"net/http"
)

// ViewHandler serves the derived dashboard pages.
type ViewHandler struct {
	deps ViewDependencies
}

// NewViewHandler creates a new view handler.
func NewViewHandler(deps ViewDependencies) *ViewHandler {
	return &ViewHandler{deps: deps}
}

// HandleView handles GET /api/view?q=&sort=&order= requests.
func (h *ViewHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	vm, err := h.deps.View(r.Context(), queryFrom(r))
	if err != nil {
		writeFailure(w, "api.get_view", err)
		return
	}
	writeJSON(w, http.StatusOK, vm)
}

// HandleDashboard handles GET /api/dashboard requests.
func (h *ViewHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.deps.Dashboard(r.Context())
	if err != nil {
		writeFailure(w, "api.get_dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// HandleAnalytics handles GET /api/analytics requests.
func (h *ViewHandler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.deps.Analytics(r.Context())
	if err != nil {
		writeFailure(w, "api.get_analytics", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleActivity handles GET /api/activity requests.
func (h *ViewHandler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	a, err := h.deps.Activity(r.Context())
	if err != nil {
		writeFailure(w, "api.get_activity", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleFeedback handles GET /api/feedback requests.
func (h *ViewHandler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	f, err := h.deps.Feedback(r.Context())
	if err != nil {
		writeFailure(w, "api.get_feedback", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// HandleUsers handles GET /api/users?q=&sort=&order= requests.
func (h *ViewHandler) HandleUsers(w http.ResponseWriter, r *http.Request) {
	u, err := h.deps.Users(r.Context(), queryFrom(r))
	if err != nil {
		writeFailure(w, "api.get_users", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// HandleStatus handles GET /api/status requests.
func (h *ViewHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.deps.Status(r.Context())
	if err != nil {
		writeFailure(w, "api.get_status", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
