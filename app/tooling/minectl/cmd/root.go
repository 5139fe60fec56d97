// Package cmd contains the minectl app.
package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/blockminer/foundation/blockchain/genesis"
	"github.com/spf13/cobra"
)

var (
	accountName string
	accountPath string
	genesisPath string
	mempoolDir  string
)

const (
	keyExtension = ".ecdsa"
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "miner1.ecdsa", "Name of the miner's private key.")
	rootCmd.PersistentFlags().StringVarP(&accountPath, "account-path", "p", "zblock/accounts/", "Path to the directory with private keys.")
	rootCmd.PersistentFlags().StringVarP(&genesisPath, "genesis", "g", "zblock/genesis.json", "Path to the genesis file, defaults are used when it does not exist.")
	rootCmd.PersistentFlags().StringVarP(&mempoolDir, "mempool", "m", "zblock/mempool/", "Path to the directory with mempool records.")
}

var rootCmd = &cobra.Command{
	Use:   "minectl",
	Short: "Inspect a mempool and mine a block from it",
}

// Execute runs the command named on the command line.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func getPrivateKeyPath() string {
	name := accountName
	if !strings.HasSuffix(name, keyExtension) {
		name += keyExtension
	}

	return filepath.Join(accountPath, name)
}

func loadGenesis() (genesis.Genesis, error) {
	if _, err := os.Stat(genesisPath); errors.Is(err, os.ErrNotExist) {
		return genesis.Default(), nil
	}

	return genesis.Load(genesisPath)
}
