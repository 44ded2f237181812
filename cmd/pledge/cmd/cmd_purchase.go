package cmd

import (
	"strconv"

	"github.com/rwaledger/pledge-core/internal/executor"
	"github.com/rwaledger/pledge-core/internal/platform/protomux"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdPurchase = &cobra.Command{
	Use:   "purchase <agreementID> <tokens> <purchaseID>",
	Short: "Buy tokens from the registry pool. The caller is the investor.",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 3 {
			return errors.New("Incorrect argument count")
		}

		who, err := caller(c)
		if err != nil {
			return err
		}

		tokens, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return errors.Wrap(err, "tokens")
		}

		ctx := Context()
		masterDB, _, _, exec := platform(ctx)
		defer masterDB.Close()

		req, err := executor.NewRequest(protomux.TargetRegistry, executor.OpPurchaseTokens, who,
			&executor.PurchaseTokensParams{
				AgreementID: args[0],
				TokenAmount: tokens,
				PurchaseID:  args[2],
			})
		if err != nil {
			return err
		}

		return run(ctx, masterDB, exec, req)
	},
}

func init() {
}
