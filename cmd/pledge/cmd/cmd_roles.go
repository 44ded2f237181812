package cmd

import (
	"github.com/rwaledger/pledge-core/internal/executor"
	"github.com/rwaledger/pledge-core/internal/platform/protomux"
	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdGrant = &cobra.Command{
	Use:   "grant <account> <role>",
	Short: "Grant a role on the registry, or on the ledger with --ledger.",
	RunE:  roleRunner(executor.OpGrantRole),
}

var cmdRevoke = &cobra.Command{
	Use:   "revoke <account> <role>",
	Short: "Revoke a role on the registry, or on the ledger with --ledger.",
	RunE:  roleRunner(executor.OpRevokeRole),
}

func roleRunner(operation string) func(*cobra.Command, []string) error {
	return func(c *cobra.Command, args []string) error {
		if len(args) != 2 {
			return errors.New("Incorrect argument count")
		}

		who, err := caller(c)
		if err != nil {
			return err
		}

		target, err := account.FromString(args[0])
		if err != nil {
			return errors.Wrap(err, "account")
		}

		route := protomux.TargetRegistry
		if onLedger, _ := c.Flags().GetBool(FlagLedger); onLedger {
			route = protomux.TargetLedger
		}

		ctx := Context()
		masterDB, _, _, exec := platform(ctx)
		defer masterDB.Close()

		req, err := executor.NewRequest(route, operation, who,
			&executor.RoleParams{Target: target, Role: args[1]})
		if err != nil {
			return err
		}

		return run(ctx, masterDB, exec, req)
	}
}

func init() {
	cmdGrant.Flags().Bool(FlagLedger, false, "Apply to the token ledger")
	cmdRevoke.Flags().Bool(FlagLedger, false, "Apply to the token ledger")
}
