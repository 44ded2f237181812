package cmd

import (
	"github.com/rwaledger/pledge-core/internal/executor"
	"github.com/rwaledger/pledge-core/internal/platform/protomux"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdPay = &cobra.Command{
	Use:   "pay <agreementID>",
	Short: "Pay the client their discounted advance.",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("Incorrect argument count")
		}

		who, err := caller(c)
		if err != nil {
			return err
		}

		ctx := Context()
		masterDB, _, _, exec := platform(ctx)
		defer masterDB.Close()

		req, err := executor.NewRequest(protomux.TargetRegistry, executor.OpPayClient, who,
			&executor.PayClientParams{AgreementID: args[0]})
		if err != nil {
			return err
		}

		return run(ctx, masterDB, exec, req)
	},
}

func init() {
}
