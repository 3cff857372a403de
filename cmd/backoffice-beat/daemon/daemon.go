// Package daemon provides the beat daemon of the back office: it runs the periodic tasks
// listed in the schedule file.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"github.com/inmobiliaria/backoffice/internal/accounting"
	"github.com/inmobiliaria/backoffice/internal/common/cli"
	"github.com/inmobiliaria/backoffice/internal/common/config"
	"github.com/inmobiliaria/backoffice/internal/common/constants"
	"github.com/inmobiliaria/backoffice/internal/common/metrics"
	"github.com/inmobiliaria/backoffice/internal/company"
	"github.com/inmobiliaria/backoffice/internal/contracts"
	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/mailer"
	"github.com/inmobiliaria/backoffice/internal/notifications"
	"github.com/inmobiliaria/backoffice/internal/scheduler"
	"github.com/inmobiliaria/backoffice/internal/tasks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// App represents the application.
type App struct {
	cmd    *cobra.Command
	viper  *viper.Viper
	config appConfig

	daemon *scheduler.Service

	ready chan struct{}
}

// appConfig holds the configuration for the application.
type appConfig struct {
	Verbosity int
	JSONLogs  bool

	MetricsConfig metrics.Config
	DBconfig      database.Config
	Mailer        mailer.Config

	ScheduleConfig string
	CompanyConfig  string
	TaskRetries    int
	TaskRetryDelay time.Duration
}

// LogValue masks the credentials of the configuration when it is logged.
func (c appConfig) LogValue() slog.Value {
	type plain appConfig
	c.DBconfig = c.DBconfig.Redacted()
	c.Mailer = c.Mailer.Redacted()
	return slog.AnyValue(plain(c))
}

// New creates a new App instance with default values.
func New() (*App, error) {
	a := App{ready: make(chan struct{})}

	a.cmd = &cobra.Command{
		Use:           constants.BeatServiceCmdName,
		Short:         "Real estate back office beat",
		Long:          "Real estate back office beat, running the periodic tasks of the " + constants.SchedulerAppName + " application listed in the schedule file.",
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Command parsing has been successful. Returns to not print usage anymore.
			a.cmd.SilenceUsage = true
			cli.SetSlog(a.config.Verbosity, a.config.JSONLogs) // Set verbosity before loading config
			if err := cli.InitViperConfig(constants.BeatServiceCmdName, a.cmd, a.viper); err != nil {
				return err
			}
			if err := a.viper.Unmarshal(&a.config); err != nil {
				return fmt.Errorf("unable to strictly decode configuration into struct: %w", err)
			}
			slog.Info("got app config", "config", a.config)

			cli.SetSlog(a.config.Verbosity, a.config.JSONLogs) // Update logging after loading config if necessary
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a.cmd.SilenceUsage = true

			return a.run()
		},
	}
	a.viper = viper.New()
	a.cmd.CompletionOptions.HiddenDefaultCmd = true

	installRootCmd(&a)
	installRunCmd(&a)
	installScheduleCmd(&a)
	cli.InstallConfigFlag(a.cmd)

	if err := a.viper.BindPFlags(a.cmd.PersistentFlags()); err != nil {
		return nil, err
	}

	cli.AddVersionCmd(a.cmd, constants.BeatServiceCmdName)

	return &a, nil
}

func installRootCmd(app *App) {
	cmd := app.cmd

	cmd.PersistentFlags().CountVarP(&app.config.Verbosity, "verbose", "v", "issue INFO (-v), DEBUG (-vv)")
	cmd.PersistentFlags().BoolVar(&app.config.JSONLogs, "json-logs", false, "enable JSON formatted logs")

	cmd.PersistentFlags().StringVarP(&app.config.ScheduleConfig, "schedule", "S", constants.DefaultScheduleConfig, "path to the beat schedule file")
	cmd.PersistentFlags().StringVar(&app.config.CompanyConfig, "company-config", constants.DefaultCompanyConfig, "path to the company configuration file")
	cmd.PersistentFlags().IntVar(&app.config.TaskRetries, "task-retries", constants.DefaultTaskRetries, "number of retries of a failing task")
	cmd.PersistentFlags().DurationVar(&app.config.TaskRetryDelay, "task-retry-delay", constants.DefaultTaskRetryDelay, "base delay between two attempts of a task, doubled after each attempt")

	// Metrics server flags
	cmd.Flags().DurationVar(&app.config.MetricsConfig.ReadTimeout, "read-timeout", 5*time.Second, "read timeout for the metrics HTTP server")
	cmd.Flags().DurationVar(&app.config.MetricsConfig.WriteTimeout, "write-timeout", 10*time.Second, "write timeout for the metrics HTTP server")
	cmd.Flags().StringVar(&app.config.MetricsConfig.Host, "metrics-host", "", "host for the metrics endpoint")
	cmd.Flags().IntVar(&app.config.MetricsConfig.Port, "metrics-port", 2113, "port for the metrics endpoint")

	addDBFlags(cmd, &app.config.DBconfig)

	if err := cmd.MarkPersistentFlagFilename("schedule", "yaml", "yml"); err != nil {
		panic(fmt.Errorf("failed to mark schedule flag as filename: %w", err))
	}
}

func addDBFlags(cmd *cobra.Command, config *database.Config) {
	cmd.PersistentFlags().StringVar(&config.Host, "db-host", "", "database host")
	cmd.PersistentFlags().IntVarP(&config.Port, "db-port", "p", 5432, "database port")
	cmd.PersistentFlags().StringVarP(&config.User, "db-user", "u", "", "database user")
	cmd.PersistentFlags().StringVarP(&config.Password, "db-password", "P", "", "database password")
	cmd.PersistentFlags().StringVarP(&config.DBName, "db-name", "n", "", "database name")
	cmd.PersistentFlags().StringVarP(&config.SSLMode, "db-sslmode", "s", "", "database SSL mode")
}

// Run executes the command and associated process, returning an error if any.
func (a App) Run() error {
	return a.cmd.Execute()
}

// UsageError returns if the error is a command parsing or runtime one.
func (a App) UsageError() bool {
	return !a.cmd.SilenceUsage
}

// Hup prints all goroutine stack traces and return false to signal you shouldn't quit.
func (a App) Hup() (shouldQuit bool) {
	buf := make([]byte, 1<<16)
	runtime.Stack(buf, true)
	fmt.Printf("%s", buf)
	return false
}

// Quit gracefully shuts down the daemon.
func (a *App) Quit() {
	a.WaitReady()
	if a.daemon != nil {
		a.daemon.Quit(false)
	}
}

// WaitReady waits for the daemon to be ready.
func (a *App) WaitReady() {
	<-a.ready
}

// RootCmd returns the root command.
func (a App) RootCmd() cobra.Command {
	return *a.cmd
}

func (a *App) run() (err error) {
	ctx := context.Background()

	var db *database.Manager
	a.daemon, db, err = a.newDaemon(ctx)
	close(a.ready)
	if err != nil {
		return fmt.Errorf("failed to create beat: %v", err)
	}
	defer func() {
		err = errors.Join(err, db.Close())
	}()

	return a.daemon.Run()
}

func (a *App) newDaemon(ctx context.Context) (*scheduler.Service, *database.Manager, error) {
	schedulePath, err := filepath.Abs(a.config.ScheduleConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get absolute path for schedule file: %v", err)
	}

	registry := prometheus.NewRegistry()
	taskMetrics, err := metrics.NewTaskMetrics(registry)
	if err != nil {
		return nil, nil, err
	}

	app, db, err := a.newSchedulerApp(ctx, scheduler.WithMetrics(taskMetrics))
	if err != nil {
		return nil, nil, err
	}

	pool := scheduler.NewPool(config.New(schedulePath), app, scheduler.WithPoolMetrics(taskMetrics))
	metricsServer := metrics.New(a.config.MetricsConfig, registry)

	return scheduler.NewService(ctx, pool, metricsServer), db, nil
}

// newSchedulerApp connects to the database and registers every task. The caller closes the database.
func (a *App) newSchedulerApp(ctx context.Context, args ...scheduler.Options) (*scheduler.App, *database.Manager, error) {
	comp := company.New(a.config.CompanyConfig)
	if err := comp.Load(); err != nil {
		return nil, nil, err
	}

	db, err := database.New(ctx, a.config.DBconfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	notifier := notifications.New(db)
	biller := accounting.New(db,
		accounting.WithNotifier(notifier),
		accounting.WithMailer(mailer.New(a.config.Mailer)),
		accounting.WithCompany(comp))

	args = append([]scheduler.Options{scheduler.WithRetries(a.config.TaskRetries, a.config.TaskRetryDelay)}, args...)
	app := scheduler.New(constants.SchedulerAppName, args...)
	if err := tasks.Register(app, notifier, biller, contracts.New(db)); err != nil {
		return nil, nil, errors.Join(err, db.Close())
	}
	return app, db, nil
}
