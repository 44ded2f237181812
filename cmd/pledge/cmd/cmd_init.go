package cmd

import (
	"fmt"

	"github.com/rwaledger/pledge-core/cmd/pledged/bootstrap"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdInit = &cobra.Command{
	Use:   "init",
	Short: "Initialize platform state from the environment config",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 0 {
			return errors.New("Incorrect argument count")
		}

		ctx := Context()
		cfg := bootstrap.NewConfigFromEnv(ctx)

		key := bootstrap.RegistryKey(ctx, cfg)
		admin, operator, finance := bootstrap.Accounts(ctx, cfg)

		masterDB := bootstrap.NewMasterDB(ctx, cfg)
		defer masterDB.Close()

		bootstrap.EnsureComponents(ctx, cfg, masterDB, key.ID, admin, operator, finance)

		if err := bootstrap.Flush(ctx, masterDB); err != nil {
			return err
		}

		fmt.Printf("Registry : %s\n", key.ID)
		fmt.Printf("Admin : %s\n", admin)
		fmt.Printf("Operator : %s\n", operator)
		fmt.Printf("Finance : %s\n", finance)
		return nil
	},
}

func init() {
}
