package cmd

import (
	"strconv"

	"github.com/rwaledger/pledge-core/internal/executor"
	"github.com/rwaledger/pledge-core/internal/platform/protomux"
	"github.com/rwaledger/pledge-core/internal/platform/state"
	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	FlagAssetType   = "type"
	FlagDescription = "description"
	FlagDocHash     = "document"
)

var cmdPledge = &cobra.Command{
	Use:   "pledge <agreementID> <assetID> <client> <wholeValue>",
	Short: "Create a pledge agreement and mint its tokens.",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 4 {
			return errors.New("Incorrect argument count")
		}

		who, err := caller(c)
		if err != nil {
			return err
		}

		client, err := account.FromString(args[2])
		if err != nil {
			return errors.Wrap(err, "client")
		}

		whole, err := strconv.ParseUint(args[3], 10, 64)
		if err != nil {
			return errors.Wrap(err, "value")
		}

		assetType, _ := c.Flags().GetString(FlagAssetType)
		description, _ := c.Flags().GetString(FlagDescription)
		docHash, _ := c.Flags().GetString(FlagDocHash)

		ctx := Context()
		masterDB, _, _, exec := platform(ctx)
		defer masterDB.Close()

		req, err := executor.NewRequest(protomux.TargetRegistry, executor.OpCreatePledge, who,
			&executor.CreatePledgeParams{
				AgreementID:   args[0],
				Client:        client,
				AssetID:       args[1],
				AssetType:     assetType,
				Description:   description,
				OriginalValue: state.NewValue(whole),
				DocumentHash:  docHash,
			})
		if err != nil {
			return err
		}

		return run(ctx, masterDB, exec, req)
	},
}

func init() {
	cmdPledge.Flags().String(FlagAssetType, "INVOICE", "Asset type code")
	cmdPledge.Flags().String(FlagDescription, "", "Asset description")
	cmdPledge.Flags().String(FlagDocHash, "", "Hex hash of the agreement document")
}
