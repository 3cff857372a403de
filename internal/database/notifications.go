package database

import (
	"context"
	"time"

	"github.com/inmobiliaria/backoffice/internal/models"
	"github.com/jackc/pgx/v5"
)

const notificationColumns = `id, agent_id, title, message, notification_type, is_read, related_kind, related_id, created_at`

func scanNotification(row pgx.Row) (n models.Notification, err error) {
	err = row.Scan(&n.ID, &n.AgentID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.RelatedKind, &n.RelatedID, &n.CreatedAt)
	return n, err
}

// CreateNotificationIfAbsent inserts n unless the agent already received a notification of the same type
// about the same object since the given time. It reports whether a notification was created.
func (db *Manager) CreateNotificationIfAbsent(ctx context.Context, n models.Notification, since time.Time) (models.Notification, bool, error) {
	created, err := scanNotification(db.dbpool.QueryRow(ctx, `INSERT INTO notifications
		(agent_id, title, message, notification_type, related_kind, related_id)
		SELECT $1::bigint, $2::text, $3::text, $4::text, $5::text, $6::bigint
		WHERE NOT EXISTS (
			SELECT 1 FROM notifications WHERE agent_id = $1 AND notification_type = $4
			AND related_kind = $5 AND related_id = $6 AND created_at >= $7)
		RETURNING `+notificationColumns,
		n.AgentID, n.Title, n.Message, string(n.Type), n.RelatedKind, n.RelatedID, since))
	if err != nil {
		err = translate(err)
		if err == ErrNotFound {
			return models.Notification{}, false, nil
		}
		return models.Notification{}, false, err
	}
	return created, true, nil
}

// ListNotifications returns the notifications of an agent, newest first.
func (db *Manager) ListNotifications(ctx context.Context, agentID int64, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.dbpool.Query(ctx, `SELECT `+notificationColumns+` FROM notifications
		WHERE agent_id = $1 AND (NOT $2 OR NOT is_read) ORDER BY created_at DESC, id DESC LIMIT $3`,
		agentID, unreadOnly, limit)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, scanNotification)
}

// UnreadCount returns the number of unread notifications of an agent.
func (db *Manager) UnreadCount(ctx context.Context, agentID int64) (int, error) {
	var n int
	err := db.dbpool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE agent_id = $1 AND NOT is_read`, agentID).Scan(&n)
	return n, translate(err)
}

// MarkNotificationRead marks one notification of an agent as read.
func (db *Manager) MarkNotificationRead(ctx context.Context, agentID, id int64) error {
	return expectOne(db.dbpool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND agent_id = $2`,
		id, agentID))
}

// MarkAllNotificationsRead marks every notification of an agent as read and returns how many changed.
func (db *Manager) MarkAllNotificationsRead(ctx context.Context, agentID int64) (int64, error) {
	tag, err := db.dbpool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE agent_id = $1 AND NOT is_read`, agentID)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}

// GetNotificationPreference returns the preferences of an agent, or the defaults when none are stored.
func (db *Manager) GetNotificationPreference(ctx context.Context, agentID int64) (models.NotificationPreference, error) {
	p := models.NotificationPreference{AgentID: agentID}
	err := db.dbpool.QueryRow(ctx, `SELECT receive_invoice_due_soon, receive_invoice_overdue, receive_invoice_payment,
		receive_contract_expiration, receive_rent_increase, days_before_due_date
		FROM notification_preferences WHERE agent_id = $1`, agentID).Scan(
		&p.ReceiveInvoiceDueSoon, &p.ReceiveInvoiceOverdue, &p.ReceiveInvoicePayment,
		&p.ReceiveContractExpiration, &p.ReceiveRentIncrease, &p.DaysBeforeDueDate)
	if err = translate(err); err == ErrNotFound {
		return models.DefaultNotificationPreference(agentID), nil
	}
	return p, err
}

// SaveNotificationPreference stores the preferences of an agent.
func (db *Manager) SaveNotificationPreference(ctx context.Context, p models.NotificationPreference) error {
	_, err := db.dbpool.Exec(ctx, `INSERT INTO notification_preferences
		(agent_id, receive_invoice_due_soon, receive_invoice_overdue, receive_invoice_payment,
		 receive_contract_expiration, receive_rent_increase, days_before_due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (agent_id) DO UPDATE SET
			receive_invoice_due_soon = EXCLUDED.receive_invoice_due_soon,
			receive_invoice_overdue = EXCLUDED.receive_invoice_overdue,
			receive_invoice_payment = EXCLUDED.receive_invoice_payment,
			receive_contract_expiration = EXCLUDED.receive_contract_expiration,
			receive_rent_increase = EXCLUDED.receive_rent_increase,
			days_before_due_date = EXCLUDED.days_before_due_date`,
		p.AgentID, p.ReceiveInvoiceDueSoon, p.ReceiveInvoiceOverdue, p.ReceiveInvoicePayment,
		p.ReceiveContractExpiration, p.ReceiveRentIncrease, p.DaysBeforeDueDate)
	return translate(err)
}
