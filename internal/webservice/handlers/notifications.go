package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/inmobiliaria/backoffice/internal/common/validate"
	"github.com/inmobiliaria/backoffice/internal/models"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 500
)

// NotificationService serves the inbox of the agents.
type NotificationService interface {
	List(ctx context.Context, agentID int64, unreadOnly bool, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, agentID int64) (int, error)
	MarkRead(ctx context.Context, agentID, id int64) error
	MarkAllRead(ctx context.Context, agentID int64) (int64, error)
	Preferences(ctx context.Context, agentID int64) (models.NotificationPreference, error)
	SavePreferences(ctx context.Context, p models.NotificationPreference) error
}

// Notifications is the agent inbox module. Every route is scoped to the agent of the path.
type Notifications struct {
	svc NotificationService
}

// NewNotifications creates the notifications module.
func NewNotifications(svc NotificationService) *Notifications {
	return &Notifications{svc: svc}
}

// Name implements webservice.Module.
func (*Notifications) Name() string { return "notifications" }

// Register implements webservice.Module.
func (n *Notifications) Register(r *mux.Router) {
	agent := r.PathPrefix("/{agent:[0-9]+}").Subrouter()
	agent.HandleFunc("/", n.list).Methods(http.MethodGet)
	agent.HandleFunc("/unread", n.unreadCount).Methods(http.MethodGet)
	agent.HandleFunc("/read", n.markAllRead).Methods(http.MethodPost)
	agent.HandleFunc("/{id:[0-9]+}/read", n.markRead).Methods(http.MethodPost)
	agent.HandleFunc("/preferences", n.preferences).Methods(http.MethodGet)
	agent.HandleFunc("/preferences", n.savePreferences).Methods(http.MethodPut)
}

func (n *Notifications) list(w http.ResponseWriter, r *http.Request) {
	agentID, err := pathID(r, "agent")
	if err != nil {
		writeError(w, r, err)
		return
	}
	unread, err := queryBool(r, "unread")
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit := defaultNotificationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit <= 0 || limit > maxNotificationLimit {
			writeError(w, r, validate.Errorf("limit must be between 1 and %d", maxNotificationLimit))
			return
		}
	}

	notifications, err := n.svc.List(r.Context(), agentID, unread, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list(notifications))
}

func (n *Notifications) unreadCount(w http.ResponseWriter, r *http.Request) {
	agentID, err := pathID(r, "agent")
	if err != nil {
		writeError(w, r, err)
		return
	}
	count, err := n.svc.UnreadCount(r.Context(), agentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int{"unread": count})
}

func (n *Notifications) markRead(w http.ResponseWriter, r *http.Request) {
	agentID, err := pathID(r, "agent")
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := n.svc.MarkRead(r.Context(), agentID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (n *Notifications) markAllRead(w http.ResponseWriter, r *http.Request) {
	agentID, err := pathID(r, "agent")
	if err != nil {
		writeError(w, r, err)
		return
	}
	count, err := n.svc.MarkAllRead(r.Context(), agentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int64{"marked": count})
}

func (n *Notifications) preferences(w http.ResponseWriter, r *http.Request) {
	agentID, err := pathID(r, "agent")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := n.svc.Preferences(r.Context(), agentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (n *Notifications) savePreferences(w http.ResponseWriter, r *http.Request) {
	agentID, err := pathID(r, "agent")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var p models.NotificationPreference
	if err := readJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	p.AgentID = agentID
	if err := n.svc.SavePreferences(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}
