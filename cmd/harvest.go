package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-harvest/internal/model"
)

var harvestSync bool

var harvestCmd = &cobra.Command{
	Use:   "harvest <event-id>",
	Short: "Discover and enrich companies for one event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("harvest"); err != nil {
			return err
		}

		ctx := cmd.Context()
		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.loadEvents(ctx); err != nil {
			return err
		}

		eventID := args[0]
		if err := env.Harvester.Run(ctx, eventID); err != nil {
			return err
		}

		event, _ := env.State.Event(eventID)
		if event.Status != model.EventStatusCompleted {
			return eris.Errorf("harvest finished with status %q", event.Status)
		}

		companies := env.State.Companies()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tWEBSITE\tLOCATION\tINDUSTRY\tREMOTE")
		for _, c := range companies {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.Name, c.Website, c.Location, c.Industry, c.Remote)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if !harvestSync {
			return nil
		}

		var failed int
		for _, c := range companies {
			if c.Status != model.CompanyStatusReady {
				continue
			}
			if err := env.Harvester.SyncCompany(ctx, c.ID); err != nil {
				zap.L().Warn("sync failed", zap.String("company", c.Name), zap.Error(err))
				failed++
			}
		}
		if failed > 0 {
			return eris.Errorf("%d of %d companies failed to sync", failed, len(companies))
		}
		return nil
	},
}

func init() {
	harvestCmd.Flags().BoolVar(&harvestSync, "sync", false, "write all ready companies to the destination table")
	rootCmd.AddCommand(harvestCmd)
}
