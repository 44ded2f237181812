package cmd

import (
	"strconv"

	"github.com/rwaledger/pledge-core/internal/executor"
	"github.com/rwaledger/pledge-core/internal/platform/protomux"
	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdTransfer = &cobra.Command{
	Use:   "transfer <to> <tokens>",
	Short: "Transfer tokens from the caller to another account.",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 2 {
			return errors.New("Incorrect argument count")
		}

		who, err := caller(c)
		if err != nil {
			return err
		}

		to, err := account.FromString(args[0])
		if err != nil {
			return errors.Wrap(err, "to")
		}

		tokens, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return errors.Wrap(err, "tokens")
		}

		ctx := Context()
		masterDB, _, _, exec := platform(ctx)
		defer masterDB.Close()

		req, err := executor.NewRequest(protomux.TargetLedger, executor.OpTransfer, who,
			&executor.TransferParams{To: to, Amount: tokens})
		if err != nil {
			return err
		}

		return run(ctx, masterDB, exec, req)
	},
}

func init() {
}
