package cmd

import (
	"strconv"
	"strings"

	"github.com/rwaledger/pledge-core/internal/executor"
	"github.com/rwaledger/pledge-core/internal/platform/protomux"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdRate = &cobra.Command{
	Use:   "rate <discount|spread> <percent>",
	Short: "Set the ledger discount rate or the registry spread rate.",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 2 {
			return errors.New("Incorrect argument count")
		}

		who, err := caller(c)
		if err != nil {
			return err
		}

		rate, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return errors.Wrap(err, "percent")
		}

		var target, operation string
		switch strings.ToLower(args[0]) {
		case "discount":
			target, operation = protomux.TargetLedger, executor.OpSetDiscountRate
		case "spread":
			target, operation = protomux.TargetRegistry, executor.OpSetSpreadRate
		default:
			return errors.Errorf("Unknown rate : %s", args[0])
		}

		ctx := Context()
		masterDB, _, _, exec := platform(ctx)
		defer masterDB.Close()

		req, err := executor.NewRequest(target, operation, who,
			&executor.SetRateParams{Rate: uint32(rate)})
		if err != nil {
			return err
		}

		return run(ctx, masterDB, exec, req)
	},
}

func init() {
}
