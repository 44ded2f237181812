package cmd

import (
	"fmt"
	"strconv"

	"github.com/rwaledger/pledge-core/cmd/pledged/bootstrap"
	"github.com/rwaledger/pledge-core/internal/stable"
	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// The stable asset has no mutating routes on the executor. Issuance is an
// off-platform custody event, so the CLI applies it directly and flushes.

var cmdIssue = &cobra.Command{
	Use:   "issue <account> <amount>",
	Short: "Issue stable units to an account. Amounts are atomic units.",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 2 {
			return errors.New("Incorrect argument count")
		}

		to, err := account.FromString(args[0])
		if err != nil {
			return errors.Wrap(err, "account")
		}

		amount, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return errors.Wrap(err, "amount")
		}

		ctx := Context()
		cfg := bootstrap.NewConfigFromEnv(ctx)
		if !cfg.Registry.IsTest {
			return errors.New("Issuance is a test facility")
		}

		masterDB := bootstrap.NewMasterDB(ctx, cfg)
		defer masterDB.Close()

		cash := stable.NewLedger(masterDB)
		if err := cash.Issue(ctx, to, amount); err != nil {
			fmt.Printf("Rejected : %s\n", err)
			return nil
		}

		if err := bootstrap.Flush(ctx, masterDB); err != nil {
			return err
		}

		balance, err := cash.BalanceOf(ctx, to)
		if err != nil {
			return err
		}

		fmt.Printf("Issued %d to %s. Balance %d\n", amount, to, balance)
		return nil
	},
}

var cmdApprove = &cobra.Command{
	Use:   "approve <spender> <amount>",
	Short: "Approve a spender against the caller's stable balance.",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 2 {
			return errors.New("Incorrect argument count")
		}

		owner, err := caller(c)
		if err != nil {
			return err
		}

		spender, err := account.FromString(args[0])
		if err != nil {
			return errors.Wrap(err, "spender")
		}

		amount, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return errors.Wrap(err, "amount")
		}

		ctx := Context()
		cfg := bootstrap.NewConfigFromEnv(ctx)
		masterDB := bootstrap.NewMasterDB(ctx, cfg)
		defer masterDB.Close()

		cash := stable.NewLedger(masterDB)
		if err := cash.Approve(ctx, owner, spender, amount); err != nil {
			fmt.Printf("Rejected : %s\n", err)
			return nil
		}

		if err := bootstrap.Flush(ctx, masterDB); err != nil {
			return err
		}

		allowance, err := cash.Allowance(ctx, owner, spender)
		if err != nil {
			return err
		}

		fmt.Printf("Approved %s for %d\n", spender, allowance)
		return nil
	},
}

var cmdBalance = &cobra.Command{
	Use:   "balance <account>",
	Short: "Show the token and stable balances of an account.",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("Incorrect argument count")
		}

		owner, err := account.FromString(args[0])
		if err != nil {
			return errors.Wrap(err, "account")
		}

		ctx := Context()
		masterDB, ledger, reg, _ := platform(ctx)
		defer masterDB.Close()

		tokens, err := ledger.BalanceOf(ctx, owner)
		if err != nil {
			return err
		}

		cash, err := reg.Stable.BalanceOf(ctx, owner)
		if err != nil {
			return err
		}

		fmt.Printf("Tokens : %d\n", tokens)
		fmt.Printf("Stable : %d\n", cash)
		return nil
	},
}

func init() {
}
