package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List events from the records store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("events"); err != nil {
			return err
		}

		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		events, err := env.Records.ListEvents(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tLOCATION\tCATEGORY")
		for _, ev := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ev.ID, ev.Name, ev.Location, ev.Category)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}
