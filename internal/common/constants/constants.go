// Package constants defines the names and defaults shared by the back office services.
package constants

import (
	"log/slog"
	"time"
)

var (
	// Version is the version of the application.
	Version = "Dev"
)

const (
	// WebServiceCmdName is the name of the web service command.
	WebServiceCmdName = "backoffice-web"

	// BeatServiceCmdName is the name of the beat (scheduler) service command.
	BeatServiceCmdName = "backoffice-beat"

	// SchedulerAppName is the name of the task application.
	SchedulerAppName = "real_estate_management"

	// DefaultLogLevel is the default log level selected without any verbosity flags.
	DefaultLogLevel = slog.LevelWarn
)

const (
	// DefaultMediaURL is the URL prefix media files are served under in debug mode.
	DefaultMediaURL = "/media/"

	// DefaultMediaRoot is the directory media files are read from.
	DefaultMediaRoot = "media"

	// DefaultCompanyConfig is the default company configuration file.
	DefaultCompanyConfig = "company.toml"

	// DefaultScheduleConfig is the default beat schedule file.
	DefaultScheduleConfig = "schedule.yaml"

	// DefaultTimeZone is the zone "today" is computed in.
	DefaultTimeZone = "America/Argentina/Buenos_Aires"
)

const (
	// AdminPageSize is the number of rows of an admin changelist page.
	AdminPageSize = 100

	// InvoicePaymentTerm is the number of days between an automatic invoice and its due date.
	InvoicePaymentTerm = 30

	// NotificationDedupeWindow is how long a notification suppresses an identical one.
	NotificationDedupeWindow = 24 * time.Hour

	// DefaultTaskRetries is the number of retries of a failing task.
	DefaultTaskRetries = 3

	// DefaultTaskRetryDelay is the base delay between two task attempts.
	DefaultTaskRetryDelay = 60 * time.Second

	// ReceiptSendAttempts is the number of deliveries tried for an owner receipt.
	ReceiptSendAttempts = 3

	// ReceiptRetryDelay is the pause between two deliveries of an owner receipt.
	ReceiptRetryDelay = 5 * time.Second
)
