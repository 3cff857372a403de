// Package notifications creates the inbox messages of the agents and serves their inbox.
//
// Checkers scan contracts and invoices for events an agent must act on: contracts about to expire,
// overdue invoices, rent increases and invoices close to their due date. A notification is not
// repeated for the same agent, type and object within the deduplication window, and each kind of
// notification can be turned off in the agent preferences.
package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/inmobiliaria/backoffice/internal/common/constants"
	"github.com/inmobiliaria/backoffice/internal/common/validate"
	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/models"
)

// Store is the persistence used by the notifications service.
type Store interface {
	ListContracts(ctx context.Context, f database.ContractFilter) ([]models.Contract, error)
	ListOpenContractInvoices(ctx context.Context, from, to models.Date) ([]models.AgentInvoice, error)
	ContractAgent(ctx context.Context, invoiceID int64) (int64, error)

	CreateNotificationIfAbsent(ctx context.Context, n models.Notification, since time.Time) (models.Notification, bool, error)
	ListNotifications(ctx context.Context, agentID int64, unreadOnly bool, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, agentID int64) (int, error)
	MarkNotificationRead(ctx context.Context, agentID, id int64) error
	MarkAllNotificationsRead(ctx context.Context, agentID int64) (int64, error)

	GetNotificationPreference(ctx context.Context, agentID int64) (models.NotificationPreference, error)
	SaveNotificationPreference(ctx context.Context, p models.NotificationPreference) error
}

// Service creates and lists notifications.
type Service struct {
	store Store
	today func() models.Date
	now   func() time.Time
}

type options struct {
	today func() models.Date
	now   func() time.Time
}

// Options represents an optional function to override Service default values.
type Options func(*options)

// WithClock overrides the current day and time.
func WithClock(today func() models.Date, now func() time.Time) Options {
	return func(o *options) {
		o.today = today
		o.now = now
	}
}

// New returns a notifications service backed by store.
func New(store Store, args ...Options) *Service {
	opts := options{
		today: func() models.Date { return models.TodayIn(constants.DefaultTimeZone) },
		now:   time.Now,
	}
	for _, opt := range args {
		opt(&opts)
	}
	return &Service{store: store, today: opts.today, now: opts.now}
}

// List returns the latest notifications of an agent.
func (s *Service) List(ctx context.Context, agentID int64, unreadOnly bool, limit int) ([]models.Notification, error) {
	return s.store.ListNotifications(ctx, agentID, unreadOnly, limit)
}

// UnreadCount returns how many notifications of an agent are unread.
func (s *Service) UnreadCount(ctx context.Context, agentID int64) (int, error) {
	return s.store.UnreadCount(ctx, agentID)
}

// MarkRead marks a notification of an agent as read.
func (s *Service) MarkRead(ctx context.Context, agentID, id int64) error {
	return s.store.MarkNotificationRead(ctx, agentID, id)
}

// MarkAllRead marks every notification of an agent as read and returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, agentID int64) (int64, error) {
	n, err := s.store.MarkAllNotificationsRead(ctx, agentID)
	if err != nil {
		return 0, err
	}
	slog.Debug("Notifications marked as read", "agent", agentID, "count", n)
	return n, nil
}

// Preferences returns the notification preferences of an agent.
func (s *Service) Preferences(ctx context.Context, agentID int64) (models.NotificationPreference, error) {
	return s.store.GetNotificationPreference(ctx, agentID)
}

// SavePreferences stores the notification preferences of an agent.
func (s *Service) SavePreferences(ctx context.Context, p models.NotificationPreference) error {
	if p.AgentID == 0 {
		return validate.Errorf("agent is required")
	}
	if err := validate.Struct(p); err != nil {
		return err
	}
	return s.store.SaveNotificationPreference(ctx, p)
}

// notify creates n unless an identical notification is recent. It reports whether n was created.
func (s *Service) notify(ctx context.Context, n models.Notification) (bool, error) {
	_, created, err := s.store.CreateNotificationIfAbsent(ctx, n, s.now().Add(-constants.NotificationDedupeWindow))
	if err != nil {
		return false, err
	}
	if created {
		slog.Debug("Notification created", "agent", n.AgentID, "type", n.Type, "related", n.RelatedID)
	} else {
		slog.Debug("Duplicate notification skipped", "agent", n.AgentID, "type", n.Type, "related", n.RelatedID)
	}
	return created, nil
}

// preferences caches the preferences of the agents during a check.
type preferences struct {
	store Store
	byID  map[int64]models.NotificationPreference
}

func (s *Service) newPreferences() *preferences {
	return &preferences{store: s.store, byID: make(map[int64]models.NotificationPreference)}
}

func (p *preferences) get(ctx context.Context, agentID int64) (models.NotificationPreference, error) {
	if pref, ok := p.byID[agentID]; ok {
		return pref, nil
	}
	pref, err := p.store.GetNotificationPreference(ctx, agentID)
	if err != nil {
		return models.NotificationPreference{}, err
	}
	p.byID[agentID] = pref
	return pref, nil
}
