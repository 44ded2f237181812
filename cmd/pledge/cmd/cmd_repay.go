package cmd

import (
	"strconv"

	"github.com/rwaledger/pledge-core/internal/executor"
	"github.com/rwaledger/pledge-core/internal/platform/protomux"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdRepay = &cobra.Command{
	Use:   "repay <agreementID> <stableAmount>",
	Short: "Settle a pledge: pull the repayment from the client and release the asset. Amount is in atomic stable units.",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 2 {
			return errors.New("Incorrect argument count")
		}

		who, err := caller(c)
		if err != nil {
			return err
		}

		amount, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return errors.Wrap(err, "amount")
		}

		ctx := Context()
		masterDB, _, _, exec := platform(ctx)
		defer masterDB.Close()

		req, err := executor.NewRequest(protomux.TargetRegistry, executor.OpRepayPledge, who,
			&executor.RepayPledgeParams{
				AgreementID: args[0],
				Amount:      amount,
			})
		if err != nil {
			return err
		}

		return run(ctx, masterDB, exec, req)
	},
}

func init() {
}
