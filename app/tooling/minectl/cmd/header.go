package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var headerCmd = &cobra.Command{
	Use:   "header <hex>",
	Short: "Decode an encoded block header and check its hash against its target.",
	Args:  cobra.ExactArgs(1),
	Run:   headerRun,
}

func init() {
	rootCmd.AddCommand(headerCmd)
}

func headerRun(cmd *cobra.Command, args []string) {
	data, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(args[0]), "0x"))
	if err != nil {
		log.Fatal(err)
	}

	bh, err := database.DecodeBlockHeader(data)
	if err != nil {
		log.Fatal(err)
	}

	hash := bh.Hash()
	target := bh.Target.Bytes32()

	out := struct {
		Hash   string              `json:"hash"`
		Solved bool                `json:"solved"`
		Header database.HeaderData `json:"header"`
	}{
		Hash:   hash.String(),
		Solved: hash.Uint256().Lt(bh.Target),
		Header: database.HeaderData{
			Version:       bh.Version,
			PrevBlockHash: bh.PrevBlockHash,
			MerkleRoot:    bh.MerkleRoot,
			TimeStamp:     bh.TimeStamp,
			Target:        hex.EncodeToString(target[:]),
			Nonce:         bh.Nonce,
		},
	}

	data, err = json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(string(data))
}
