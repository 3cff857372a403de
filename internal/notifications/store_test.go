package notifications_test

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/models"
)

type memStore struct {
	mu sync.Mutex

	contracts     []models.Contract
	invoices      []models.AgentInvoice
	invoiceAgents map[int64]int64
	prefs         map[int64]models.NotificationPreference
	notifications []models.Notification

	// now stamps the created notifications.
	now func() time.Time
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{
		invoiceAgents: make(map[int64]int64),
		prefs:         make(map[int64]models.NotificationPreference),
		now:           now,
	}
}

func (m *memStore) ListContracts(_ context.Context, f database.ContractFilter) ([]models.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Contract
	for _, c := range m.contracts {
		if f.Live && (!c.IsActive || (c.Status != models.ContractActive && c.Status != models.ContractExpiringSoon)) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *memStore) ListOpenContractInvoices(_ context.Context, from, to models.Date) ([]models.AgentInvoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AgentInvoice
	for _, inv := range m.invoices {
		if !inv.Status.Open() || inv.DueDate.Before(from) || inv.DueDate.After(to) {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func (m *memStore) ContractAgent(_ context.Context, invoiceID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invoiceAgents[invoiceID], nil
}

func (m *memStore) CreateNotificationIfAbsent(_ context.Context, n models.Notification, since time.Time) (models.Notification, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.notifications {
		if e.AgentID == n.AgentID && e.Type == n.Type && e.RelatedKind == n.RelatedKind &&
			e.RelatedID == n.RelatedID && !e.CreatedAt.Before(since) {
			return models.Notification{}, false, nil
		}
	}
	n.ID = int64(len(m.notifications) + 1)
	n.CreatedAt = m.now()
	m.notifications = append(m.notifications, n)
	return n, true, nil
}

func (m *memStore) ListNotifications(_ context.Context, agentID int64, unreadOnly bool, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range slices.Backward(m.notifications) {
		if n.AgentID != agentID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) UnreadCount(_ context.Context, agentID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int
	for _, n := range m.notifications {
		if n.AgentID == agentID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *memStore) MarkNotificationRead(_ context.Context, agentID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.notifications {
		if n.ID == id && n.AgentID == agentID {
			m.notifications[i].IsRead = true
			return nil
		}
	}
	return database.ErrNotFound
}

func (m *memStore) MarkAllNotificationsRead(_ context.Context, agentID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changed int64
	for i, n := range m.notifications {
		if n.AgentID == agentID && !n.IsRead {
			m.notifications[i].IsRead = true
			changed++
		}
	}
	return changed, nil
}

func (m *memStore) GetNotificationPreference(_ context.Context, agentID int64) (models.NotificationPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.prefs[agentID]; ok {
		return p, nil
	}
	return models.DefaultNotificationPreference(agentID), nil
}

func (m *memStore) SaveNotificationPreference(_ context.Context, p models.NotificationPreference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[p.AgentID] = p
	return nil
}

// ofType returns the notifications of the given type.
func (m *memStore) ofType(t models.NotificationType) []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.notifications {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}
