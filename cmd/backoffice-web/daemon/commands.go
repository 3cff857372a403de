package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/inmobiliaria/backoffice/internal/accounting"
	"github.com/inmobiliaria/backoffice/internal/company"
	"github.com/inmobiliaria/backoffice/internal/locations"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func installRoutesCmd(app *App) {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the route table of the web service",
		Long:  "Print every route of the web service in matching order, with the module serving it and its methods.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := app.newRouter(nil, company.New(app.config.CompanyConfig), prometheus.NewRegistry())
			if err != nil {
				return err
			}
			routes, err := rt.Routes()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MODULE\tPATH\tMETHODS")
			for _, r := range routes {
				methods := strings.Join(r.Methods, ",")
				if methods == "" {
					methods = "ANY"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Module, r.Path, methods)
			}
			return w.Flush()
		},
	}
	app.cmd.AddCommand(cmd)
}

func installLoadLocationsCmd(app *App) {
	cmd := &cobra.Command{
		Use:   "load-locations path-to-ini-file",
		Short: "Load countries, states and cities",
		Long: `Load the locations of an INI file into the database.
Sections are named Country/State and list their cities in a comma separated "cities" key.
Existing locations are kept.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("load-locations command accepts exactly one argument")
			}
			return nil
		},
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return []string{"ini"}, cobra.ShellCompDirectiveFilterFileExt
		},
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			app.cmd.SilenceUsage = false
			fileInfo, err := os.Stat(args[0])
			if err != nil {
				return fmt.Errorf("the provided locations file is not valid: %v", err)
			}
			if fileInfo.IsDir() {
				return errors.New("the provided locations file should be a file, not a directory")
			}
			app.cmd.SilenceUsage = true

			ctx := context.Background()
			db, err := app.connect(ctx)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, db.Close()) }()

			report, err := locations.New(db).Load(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "States: %d, new cities: %d\n", report.States, report.CitiesInserted)
			return nil
		},
	}
	app.cmd.AddCommand(cmd)
}

func installAssignNumbersCmd(app *App) {
	var (
		year   int
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "assign-numbers",
		Short: "Give a number to the invoices without one",
		Long: `Give a number of the given year to every invoice without one, oldest first.
The numbering continues after the highest number of the year.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := context.Background()
			db, err := app.connect(ctx)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, db.Close()) }()

			assigned, err := accounting.New(db).AssignNumbers(ctx, year, dryRun)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			verb := "Assigned"
			if dryRun {
				verb = "Would assign"
			}
			for _, a := range assigned {
				fmt.Fprintf(out, "%s %s to invoice %d\n", verb, a.Number, a.InvoiceID)
			}
			fmt.Fprintf(out, "%d invoice(s) numbered\n", len(assigned))
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year of the numbers, the current one by default")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the numbers without storing them")
	app.cmd.AddCommand(cmd)
}
