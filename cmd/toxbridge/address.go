package main

import (
	"fmt"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"
)

// addressCmd prints the address friends use to send a request
var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Prints the address of the identity in the data directory",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		initLog(viper.GetString("log-level"), viper.GetString("log"))

		id, db, err := openData()
		if err != nil {
			jww.FATAL.Panicf("%+v", err)
		}
		defer db.Close()

		cfg, err := loadState(db)
		if err != nil {
			jww.FATAL.Panicf("%+v", err)
		}
		fmt.Println(crypto.NewAddress(id.PublicKey(), cfg.Nospam))
	},
}

func init() {
	rootCmd.AddCommand(addressCmd)
}
