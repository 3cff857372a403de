package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/inmobiliaria/backoffice/internal/common/config"
	"github.com/inmobiliaria/backoffice/internal/common/constants"
	"github.com/inmobiliaria/backoffice/internal/scheduler"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func installRunCmd(app *App) {
	var options string

	cmd := &cobra.Command{
		Use:   "run task",
		Short: "Run a task once and exit",
		Long: `Run a registered task once, with the retries of a scheduled run, and print its result.
Options are given as a YAML or JSON mapping, like --options '{message: hola}'.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("run command accepts exactly one task name")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			app.cmd.SilenceUsage = false
			var opts map[string]any
			if err := yaml.Unmarshal([]byte(options), &opts); err != nil {
				return fmt.Errorf("options should be a YAML mapping: %v", err)
			}
			app.cmd.SilenceUsage = true

			ctx := context.Background()
			sched, db, err := app.newSchedulerApp(ctx)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, db.Close()) }()

			if !sched.Has(args[0]) {
				app.cmd.SilenceUsage = false
				return fmt.Errorf("%w: %q, registered tasks are %v", scheduler.ErrUnknownTask, args[0], sched.Tasks())
			}

			result, err := sched.Run(ctx, args[0], opts)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("could not encode the task result: %v", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&options, "options", "o", "", "task options as a YAML mapping")
	app.cmd.AddCommand(cmd)
}

func installScheduleCmd(app *App) {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the beat schedule",
		Long:  "Load the schedule file and print its entries with their next run. An empty schedule runs nothing.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cm := config.New(app.config.ScheduleConfig)
			if err := cm.Load(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			entries := cm.Entries()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No periodic task is scheduled in %s\n", cm.Path())
				return nil
			}

			loc, err := time.LoadLocation(constants.DefaultTimeZone)
			if err != nil {
				slog.Warn("Could not load time zone, using local time", "zone", constants.DefaultTimeZone, "err", err)
				loc = time.Local
			}
			now := time.Now().In(loc)

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTASK\tWHEN\tNEXT RUN")
			for _, e := range entries {
				when := "every " + e.Every.String()
				if e.Every == 0 {
					when = "daily at " + e.At
				}
				next, err := scheduler.Next(e, now)
				if err != nil {
					return fmt.Errorf("invalid entry %s: %v", e.Name, err)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.Task, when, next.Format(time.DateTime))
			}
			return w.Flush()
		},
	}
	app.cmd.AddCommand(cmd)
}
