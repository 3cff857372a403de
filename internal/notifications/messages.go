package notifications

import (
	"fmt"

	"github.com/inmobiliaria/backoffice/internal/models"
)

// days returns "1 día" or "n días".
func days(n int) string {
	if n == 1 || n == -1 {
		return fmt.Sprintf("%d día", n)
	}
	return fmt.Sprintf("%d días", n)
}

func displayDate(d models.Date) string {
	return d.Time().Format("02/01/2006")
}

func expirationNotification(c models.Contract, daysLeft int) models.Notification {
	n := models.Notification{AgentID: c.AgentID, RelatedKind: models.RelatedContract, RelatedID: c.ID}
	switch {
	case daysLeft < 0:
		n.Type = models.NotifyContractExpired
		n.Title = "Contrato Vencido - " + c.PropertyTitle
		n.Message = fmt.Sprintf("El contrato para la propiedad '%s' del cliente %s venció el %s. Se requiere acción inmediata.",
			c.PropertyTitle, c.CustomerName, displayDate(c.EndDate))
	case daysLeft <= urgentExpirationDays:
		n.Type = models.NotifyContractExpiringUrgent
		n.Title = "Contrato Vence Pronto - " + c.PropertyTitle
		n.Message = fmt.Sprintf("El contrato para la propiedad '%s' del cliente %s vence en %s (%s). Se requiere renovación o finalización.",
			c.PropertyTitle, c.CustomerName, days(daysLeft), displayDate(c.EndDate))
	default:
		n.Type = models.NotifyContractExpiringSoon
		n.Title = "Contrato Próximo a Vencer - " + c.PropertyTitle
		n.Message = fmt.Sprintf("El contrato para la propiedad '%s' del cliente %s vence en %s (%s). Considere iniciar el proceso de renovación.",
			c.PropertyTitle, c.CustomerName, days(daysLeft), displayDate(c.EndDate))
	}
	return n
}

func overdueNotification(inv models.AgentInvoice, daysLate int) models.Notification {
	n := models.Notification{AgentID: inv.AgentID, RelatedKind: models.RelatedInvoice, RelatedID: inv.ID}
	late := fmt.Sprintf("La factura N° %s del cliente %s está vencida hace %s. Saldo pendiente: %s.",
		inv.Number, inv.CustomerName, days(daysLate), inv.Balance().Format())
	switch {
	case daysLate >= criticalOverdueDays:
		n.Type = models.NotifyInvoiceOverdueCritical
		n.Title = "Factura Crítica Vencida - " + inv.Number
		n.Message = late + " Se requiere acción urgente para la cobranza."
	case daysLate >= urgentOverdueDays:
		n.Type = models.NotifyInvoiceOverdueUrgent
		n.Title = "Factura Urgente Vencida - " + inv.Number
		n.Message = late + " Se recomienda contactar al cliente."
	default:
		n.Type = models.NotifyInvoiceOverdue
		n.Title = "Factura Vencida - " + inv.Number
		n.Message = late
	}
	return n
}

func rentIncreaseNotification(c models.Contract, daysLeft int) models.Notification {
	n := models.Notification{AgentID: c.AgentID, RelatedKind: models.RelatedContract, RelatedID: c.ID}
	if daysLeft < 0 {
		n.Type = models.NotifyRentIncreaseOverdue
		n.Title = "Aumento de Alquiler Vencido - " + c.PropertyTitle
		n.Message = fmt.Sprintf("El aumento de alquiler para la propiedad '%s' del cliente %s estaba programado para el %s (hace %s). "+
			"Monto actual: %s. Frecuencia: %s. Se requiere procesar el aumento urgentemente.",
			c.PropertyTitle, c.CustomerName, displayDate(c.NextIncreaseDate), days(-daysLeft), c.Amount.Format(), frequencyLabel(c.Frequency))
		return n
	}
	n.Type = models.NotifyRentIncreaseDue
	n.Title = "Aumento de Alquiler Próximo - " + c.PropertyTitle
	n.Message = fmt.Sprintf("El aumento de alquiler para la propiedad '%s' del cliente %s está programado para el %s (%s). "+
		"Monto actual: %s. Frecuencia: %s. Prepare el nuevo monto para el aumento.",
		c.PropertyTitle, c.CustomerName, displayDate(c.NextIncreaseDate), days(daysLeft), c.Amount.Format(), frequencyLabel(c.Frequency))
	return n
}

func frequencyLabel(f models.Frequency) string {
	if f == "" {
		return "Sin frecuencia definida"
	}
	return f.Label()
}

func dueSoonNotification(inv models.AgentInvoice, daysLeft int) models.Notification {
	n := models.Notification{AgentID: inv.AgentID, RelatedKind: models.RelatedInvoice, RelatedID: inv.ID}
	due := fmt.Sprintf("La factura N° %s del cliente %s vence en %s (%s). Saldo pendiente: %s.",
		inv.Number, inv.CustomerName, days(daysLeft), displayDate(inv.DueDate), inv.Balance().Format())
	if daysLeft <= urgentDueDays {
		n.Type = models.NotifyInvoiceDueUrgent
		n.Title = "Factura Vence Pronto - " + inv.Number
		n.Message = due + " Se recomienda recordar al cliente sobre el vencimiento."
		return n
	}
	n.Type = models.NotifyInvoiceDueSoon
	n.Title = "Recordatorio de Vencimiento - " + inv.Number
	n.Message = due
	return n
}

func paymentNotification(agentID int64, inv models.Invoice, p models.Payment) models.Notification {
	n := models.Notification{AgentID: agentID, RelatedKind: models.RelatedInvoice, RelatedID: inv.ID}
	if balance := inv.Balance(); balance > 0 {
		n.Type = models.NotifyInvoicePaymentReceived
		n.Title = "Pago Parcial Recibido - " + inv.Number
		n.Message = fmt.Sprintf("Se recibió un pago de %s para la factura N° %s del cliente %s. Saldo restante: %s.",
			p.Amount.Format(), inv.Number, inv.CustomerName, balance.Format())
		return n
	}
	n.Type = models.NotifyInvoiceFullyPaid
	n.Title = "Factura Totalmente Pagada - " + inv.Number
	n.Message = fmt.Sprintf("La factura N° %s del cliente %s ha sido completamente pagada con un pago de %s. "+
		"El estado de la factura ha sido actualizado automáticamente.", inv.Number, inv.CustomerName, p.Amount.Format())
	return n
}
