package cmd

import (
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/ardanlabs/blockminer/foundation/blockchain/mempool"
	"github.com/ardanlabs/blockminer/foundation/blockchain/storage"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate every record in the mempool and print its fee.",
	Run:   validateRun,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateRun(cmd *cobra.Command, args []string) {
	gen, err := loadGenesis()
	if err != nil {
		log.Fatal(err)
	}

	strg, err := storage.NewDisk(mempoolDir, "")
	if err != nil {
		log.Fatal(err)
	}

	records, err := strg.ReadMempool()
	if err != nil {
		log.Fatal(err)
	}

	mp, malformed, err := mempool.Build(gen.SelectStrategy, records, nil)
	if err != nil {
		log.Fatal(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TXID\tSIZE\tFEE\tSTATUS")

	for _, e := range mp.Entries() {
		status := "valid"
		if e.Err != nil {
			status = e.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", e.ID, e.Size, e.Fee, status)
	}

	for _, rec := range malformed {
		fmt.Fprintf(w, "%s\t-\t-\t%s\n", rec.Source, rec.Malformed)
	}

	w.Flush()
}
