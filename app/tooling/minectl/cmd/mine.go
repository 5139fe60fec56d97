package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/ardanlabs/blockminer/foundation/blockchain/signature"
	"github.com/ardanlabs/blockminer/foundation/blockchain/state"
	"github.com/ardanlabs/blockminer/foundation/blockchain/storage"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	outputPath  string
	workers     int
	maxAttempts uint64
	timeout     time.Duration
	verbose     bool
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine a block from the mempool and write the result.",
	Run:   mineRun,
}

func init() {
	rootCmd.AddCommand(mineCmd)
	mineCmd.Flags().StringVarP(&outputPath, "out", "o", "zblock/out.txt", "Path to the result file.")
	mineCmd.Flags().IntVarP(&workers, "workers", "w", 1, "Number of G's searching for a nonce.")
	mineCmd.Flags().Uint64Var(&maxAttempts, "max-attempts", 0, "Stop after this many attempts, 0 means no limit.")
	mineCmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "Stop the search after this long, 0 means no limit.")
	mineCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print mining events.")
}

func mineRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	gen, err := loadGenesis()
	if err != nil {
		log.Fatal(err)
	}

	strg, err := storage.NewDisk(mempoolDir, outputPath)
	if err != nil {
		log.Fatal(err)
	}

	ev := func(v string, args ...any) {
		if verbose {
			fmt.Printf(v+"\n", args...)
		}
	}

	st, err := state.New(state.Config{
		Genesis:       gen,
		Storage:       strg,
		Beneficiary:   signature.BeneficiaryScript(privateKey.PublicKey),
		Workers:       workers,
		SearchOptions: database.SearchOptions{MaxAttempts: maxAttempts},
		EvHandler:     ev,
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	bd, err := st.MineAndWrite(ctx)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Block:   ", bd.Hash)
	fmt.Println("Nonce:   ", bd.Header.Nonce)
	fmt.Println("Txs:     ", len(bd.TxIDs))
	fmt.Println("Fees:    ", bd.TotalFees)
	fmt.Println("Attempts:", bd.Attempts)
	fmt.Println("Output:  ", outputPath)
}
