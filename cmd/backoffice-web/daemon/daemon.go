// Package daemon provides the web service daemon of the back office.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/inmobiliaria/backoffice/internal/accounting"
	"github.com/inmobiliaria/backoffice/internal/admin"
	"github.com/inmobiliaria/backoffice/internal/common/cli"
	"github.com/inmobiliaria/backoffice/internal/common/constants"
	"github.com/inmobiliaria/backoffice/internal/common/metrics"
	"github.com/inmobiliaria/backoffice/internal/company"
	"github.com/inmobiliaria/backoffice/internal/contracts"
	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/locations"
	"github.com/inmobiliaria/backoffice/internal/mailer"
	"github.com/inmobiliaria/backoffice/internal/models"
	"github.com/inmobiliaria/backoffice/internal/notifications"
	"github.com/inmobiliaria/backoffice/internal/webservice"
	"github.com/inmobiliaria/backoffice/internal/webservice/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// App represents the application.
type App struct {
	cmd    *cobra.Command
	viper  *viper.Viper
	config appConfig

	daemon *webservice.Server
	db     *database.Manager

	ready chan struct{}
}

// appConfig holds the configuration for the application.
type appConfig struct {
	Verbosity int
	JSONLogs  bool
	// Debug serves the media files.
	Debug bool

	Daemon        webservice.StaticConfig
	MetricsConfig metrics.Config
	DBconfig      database.Config
	Mailer        mailer.Config

	MediaURL      string
	MediaRoot     string
	CompanyConfig string
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
		Use:           constants.WebServiceCmdName,
		Short:         "Real estate back office web service",
		Long:          "Real estate back office web service serving the admin site, the public site and the JSON modules of the agency.",
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Command parsing has been successful. Returns to not print usage anymore.
			a.cmd.SilenceUsage = true
			cli.SetSlog(a.config.Verbosity, a.config.JSONLogs) // Set verbosity before loading config
			if err := cli.InitViperConfig(constants.WebServiceCmdName, a.cmd, a.viper); err != nil {
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
	installMigrateCmd(&a)
	installRoutesCmd(&a)
	installLoadLocationsCmd(&a)
	installAssignNumbersCmd(&a)
	cli.InstallConfigFlag(a.cmd)

	if err := a.viper.BindPFlags(a.cmd.PersistentFlags()); err != nil {
		return nil, err
	}

	cli.AddVersionCmd(a.cmd, constants.WebServiceCmdName)

	return &a, nil
}

func installRootCmd(app *App) {
	cmd := app.cmd

	defaultConf := webservice.StaticConfig{
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   30 * time.Second,
		RequestTimeout: 20 * time.Second,
		MaxHeaderBytes: 1 << 13, // 8 KB
		ListenPort:     8000,
	}

	cmd.PersistentFlags().CountVarP(&app.config.Verbosity, "verbose", "v", "issue INFO (-v), DEBUG (-vv)")
	cmd.PersistentFlags().BoolVar(&app.config.JSONLogs, "json-logs", false, "enable JSON formatted logs")
	cmd.PersistentFlags().BoolVar(&app.config.Debug, "debug", false, "serve media files from the media root")
	cmd.PersistentFlags().StringVar(&app.config.MediaURL, "media-url", constants.DefaultMediaURL, "URL prefix of the media files")
	cmd.PersistentFlags().StringVar(&app.config.MediaRoot, "media-root", constants.DefaultMediaRoot, "directory of the media files")
	cmd.PersistentFlags().StringVar(&app.config.CompanyConfig, "company-config", constants.DefaultCompanyConfig, "path to the company configuration file")

	// Daemon flags
	cmd.Flags().DurationVar(&app.config.Daemon.ReadTimeout, "read-timeout", defaultConf.ReadTimeout, "read timeout for the HTTP server")
	cmd.Flags().DurationVar(&app.config.Daemon.WriteTimeout, "write-timeout", defaultConf.WriteTimeout, "write timeout for the HTTP server")
	cmd.Flags().DurationVar(&app.config.Daemon.RequestTimeout, "request-timeout", defaultConf.RequestTimeout, "request timeout for the HTTP server")
	cmd.Flags().IntVar(&app.config.Daemon.MaxHeaderBytes, "max-header-bytes", defaultConf.MaxHeaderBytes, "maximum header bytes for the HTTP server")
	cmd.Flags().StringVar(&app.config.Daemon.ListenHost, "listen-host", defaultConf.ListenHost, "host to listen on")
	cmd.Flags().IntVar(&app.config.Daemon.ListenPort, "listen-port", defaultConf.ListenPort, "port to listen on")

	// Metrics server flags
	cmd.Flags().DurationVar(&app.config.MetricsConfig.ReadTimeout, "metrics-read-timeout", 5*time.Second, "read timeout for the metrics HTTP server")
	cmd.Flags().DurationVar(&app.config.MetricsConfig.WriteTimeout, "metrics-write-timeout", 10*time.Second, "write timeout for the metrics HTTP server")
	cmd.Flags().StringVar(&app.config.MetricsConfig.Host, "metrics-host", "", "host for the metrics endpoint")
	cmd.Flags().IntVar(&app.config.MetricsConfig.Port, "metrics-port", 2112, "port for the metrics endpoint")

	// Mailer flags
	cmd.Flags().StringVar(&app.config.Mailer.FromName, "mail-from-name", "", "name of the sender of the e-mails")
	cmd.Flags().StringVar(&app.config.Mailer.FromAddress, "mail-from-address", "", "address of the sender of the e-mails")

	addDBFlags(cmd, &app.config.DBconfig)

	if err := cmd.MarkPersistentFlagDirname("media-root"); err != nil {
		panic(fmt.Errorf("failed to mark media-root flag as directory: %w", err))
	}
	if err := cmd.MarkPersistentFlagFilename("company-config", "toml"); err != nil {
		panic(fmt.Errorf("failed to mark company-config flag as filename: %w", err))
	}
}

// addDBFlags adds the connection flags, shared with the subcommands using the database.
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

	a.daemon, err = a.newDaemon(ctx)
	close(a.ready)
	if err != nil {
		return fmt.Errorf("failed to create server: %v", err)
	}
	defer func() {
		err = errors.Join(err, a.db.Close())
	}()

	return a.daemon.Run()
}

func (a *App) newDaemon(ctx context.Context) (*webservice.Server, error) {
	comp := company.New(a.config.CompanyConfig)
	if err := comp.Load(); err != nil {
		return nil, err
	}

	db, err := database.New(ctx, a.config.DBconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}
	a.db = db

	registry := prometheus.NewRegistry()
	rt, err := a.newRouter(db, comp, registry)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}

	metricsServer := metrics.New(a.config.MetricsConfig, registry)
	return webservice.New(ctx, a.config.Daemon, rt.Handler(), metricsServer), nil
}

// newRouter builds the prefix table of the service. db is only queried when requests are served.
func (a *App) newRouter(db *database.Manager, comp *company.Store, registry prometheus.Registerer) (*webservice.Router, error) {
	today := func() models.Date { return models.TodayIn(constants.DefaultTimeZone) }

	notifier := notifications.New(db)
	acc := accounting.New(db,
		accounting.WithNotifier(notifier),
		accounting.WithMailer(mailer.New(a.config.Mailer)),
		accounting.WithCompany(comp))
	ctr := contracts.New(db)

	site := admin.New(db)
	if err := admin.RegisterInvoicing(site); err != nil {
		return nil, err
	}

	rt := webservice.NewRouter(a.config.Debug, a.config.MediaURL, a.config.MediaRoot, registry)
	includes := []struct {
		prefix string
		module webservice.Module
	}{
		{"admin/", site},
		{"", handlers.NewSite(db, comp)},
		{"app/", handlers.NewApp(db, comp, today)},
		{"agents/", handlers.NewAgents(db)},
		{"properties/", handlers.NewProperties(db)},
		{"customers/", handlers.NewCustomers(db)},
		{"contracts/", handlers.NewContracts(ctr)},
		{"payments/", handlers.NewPayments(ctr)},
		{"notifications/", handlers.NewNotifications(notifier)},
		{"contabilidad/", handlers.NewAccounting(acc)},
		{"locations/", handlers.NewLocations(locations.New(db))},
	}
	for _, inc := range includes {
		if err := rt.Include(inc.prefix, inc.module); err != nil {
			return nil, err
		}
	}
	return rt, nil
}

// connect opens the database for the subcommands.
func (a *App) connect(ctx context.Context) (*database.Manager, error) {
	db, err := database.New(ctx, a.config.DBconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}
	return db, nil
}
