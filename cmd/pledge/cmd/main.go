package cmd

import (
	"context"
	"fmt"

	"github.com/rwaledger/pledge-core/cmd/pledged/bootstrap"
	"github.com/rwaledger/pledge-core/internal/assetledger"
	"github.com/rwaledger/pledge-core/internal/executor"
	"github.com/rwaledger/pledge-core/internal/platform/db"
	"github.com/rwaledger/pledge-core/internal/platform/node"
	"github.com/rwaledger/pledge-core/internal/platform/protomux"
	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/internal/registry"
	"github.com/rwaledger/pledge-core/internal/stable"
	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	FlagCaller = "caller"
	FlagLedger = "ledger"
)

var pledgeCmd = &cobra.Command{
	Use:   "pledge",
	Short: "Pledge Platform CLI",
}

func Execute() {
	pledgeCmd.PersistentFlags().String(FlagCaller, "", "Account id performing the operation")

	pledgeCmd.AddCommand(cmdGen)
	pledgeCmd.AddCommand(cmdInit)
	pledgeCmd.AddCommand(cmdState)
	pledgeCmd.AddCommand(cmdSummary)
	pledgeCmd.AddCommand(cmdPledge)
	pledgeCmd.AddCommand(cmdPay)
	pledgeCmd.AddCommand(cmdPurchase)
	pledgeCmd.AddCommand(cmdRepay)
	pledgeCmd.AddCommand(cmdTransfer)
	pledgeCmd.AddCommand(cmdGrant)
	pledgeCmd.AddCommand(cmdRevoke)
	pledgeCmd.AddCommand(cmdRate)
	pledgeCmd.AddCommand(cmdIssue)
	pledgeCmd.AddCommand(cmdApprove)
	pledgeCmd.AddCommand(cmdBalance)
	pledgeCmd.Execute()
}

// Context returns a context carrying a logger and operation values the way
// the daemon provides them.
func Context() context.Context {
	ctx := bootstrap.NewContextWithLogger()

	return context.WithValue(ctx, node.KeyValues, &node.Values{
		TraceID: "cli",
		Now:     state.CurrentTimestamp(),
	})
}

// platform opens storage and assembles the components the CLI drives. The
// caller owns the DB and must flush modified caches before it closes.
func platform(ctx context.Context) (*db.DB, *assetledger.Ledger, *registry.Registry,
	*executor.Executor) {

	cfg := bootstrap.NewConfigFromEnv(ctx)
	masterDB := bootstrap.NewMasterDB(ctx, cfg)

	ledger := &assetledger.Ledger{MasterDB: masterDB}
	reg := &registry.Registry{
		MasterDB: masterDB,
		Ledger:   ledger,
		Stable:   stable.NewLedger(masterDB),
	}

	return masterDB, ledger, reg, executor.New(ledger, reg)
}

// caller reads the account behind the --caller flag.
func caller(c *cobra.Command) (account.ID, error) {
	raw, err := c.Flags().GetString(FlagCaller)
	if err != nil {
		return account.ID{}, err
	}
	if len(raw) == 0 {
		return account.ID{}, errors.New("Missing --caller")
	}

	return account.FromString(raw)
}

// run executes one operation and reports the outcome. Modified caches are
// flushed so the result is durable when the process exits.
func run(ctx context.Context, masterDB *db.DB, exec *executor.Executor,
	req *protomux.Request) error {

	receipt, err := exec.Execute(ctx, req)
	if err != nil {
		fmt.Printf("Rejected : %s\n", err)
		return nil
	}

	fmt.Printf("Committed %s/%s : %s\n", receipt.Target, receipt.Operation, receipt.TxRef)
	return bootstrap.Flush(ctx, masterDB)
}
