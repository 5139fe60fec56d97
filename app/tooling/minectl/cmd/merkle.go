package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/blockminer/foundation/blockchain/merkle"
	"github.com/ardanlabs/blockminer/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var merkleCmd = &cobra.Command{
	Use:   "merkle <txid>...",
	Short: "Print the merkle root of the specified transaction ids.",
	Args:  cobra.MinimumNArgs(1),
	Run:   merkleRun,
}

func init() {
	rootCmd.AddCommand(merkleCmd)
}

func merkleRun(cmd *cobra.Command, args []string) {
	leafs := make([][]byte, len(args))
	for i, arg := range args {
		id, err := signature.HexToHash(arg)
		if err != nil {
			log.Fatalf("txid %d: %s", i, err)
		}
		leafs[i] = id.Bytes()
	}

	root, err := merkle.Root(leafs)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(hexutil.Encode(root))
}
