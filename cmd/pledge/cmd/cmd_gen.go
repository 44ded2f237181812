package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/rwaledger/pledge-core/pkg/account"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdGen = &cobra.Command{
	Use:   "gen",
	Short: "Generate an account key pair",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 0 {
			return errors.New("Incorrect argument count")
		}

		key, err := account.NewKey()
		if err != nil {
			fmt.Printf("Failed to generate key : %s\n", err)
			return nil
		}

		fmt.Printf("PrivKey : %s\n", hex.EncodeToString(key.PrivateKey.Serialize()))
		fmt.Printf("PubKey : %s\n", hex.EncodeToString(key.PublicKey.SerializeCompressed()))
		fmt.Printf("Account : %s\n", key.ID)
		return nil
	},
}

func init() {
}
