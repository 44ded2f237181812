package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdSummary = &cobra.Command{
	Use:   "summary [agreementID]",
	Short: "Print the financial summary, or one agreement with its purchases.",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) > 1 {
			return errors.New("Incorrect argument count")
		}

		ctx := Context()
		masterDB, _, reg, _ := platform(ctx)
		defer masterDB.Close()

		if len(args) == 0 {
			summary, err := reg.FinancialSummary(ctx)
			if err != nil {
				return err
			}
			return dumpJSON(summary)
		}

		ag, err := reg.Agreement(ctx, args[0])
		if err != nil {
			return err
		}
		if err := dumpJSON(ag); err != nil {
			return err
		}

		purchases, err := reg.Purchases(ctx, args[0])
		if err != nil {
			return err
		}
		for _, p := range purchases {
			if err := dumpJSON(p); err != nil {
				return err
			}
		}

		return nil
	},
}

func init() {
}
