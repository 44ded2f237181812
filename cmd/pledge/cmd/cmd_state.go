package cmd

import (
	"fmt"

	"github.com/rwaledger/pledge-core/internal/assetledger"
	"github.com/rwaledger/pledge-core/internal/platform/node"
	"github.com/rwaledger/pledge-core/internal/registry"
	"github.com/rwaledger/pledge-core/internal/treasury"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdState = &cobra.Command{
	Use:   "state",
	Short: "Load and print the ledger, registry and treasury state.",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 0 {
			return errors.New("Incorrect argument count")
		}

		ctx := Context()
		v := node.ContextValues(ctx)

		masterDB, _, _, _ := platform(ctx)
		defer masterDB.Close()

		led, err := assetledger.Retrieve(ctx, masterDB)
		if err != nil {
			return err
		}
		fmt.Printf("# Ledger\n%s", spew.Sdump(led))

		reg, err := registry.Retrieve(ctx, masterDB)
		if err != nil {
			return err
		}
		fmt.Printf("# Registry\n%s", spew.Sdump(reg))

		tre, err := treasury.Retrieve(ctx, masterDB, v.Now)
		if err != nil {
			return err
		}
		fmt.Printf("# Treasury\n%s", spew.Sdump(tre))

		return nil
	},
}

func init() {
}
