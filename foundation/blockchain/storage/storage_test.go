package storage_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/ardanlabs/blockminer/foundation/blockchain/storage"
	"github.com/ardanlabs/blockminer/foundation/blockchain/storage/memory"
	"github.com/holiman/uint256"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const record = `{
	"version": 1,
	"locktime": 0,
	"vin": [{"prevout": {"txid": "aa00000000000000000000000000000000000000000000000000000000000000", "voutIndex": 0}}],
	"vout": [{"value": 10, "scriptPubKey": "bob"}]
}`

func mineBlock(t *testing.T) database.BlockData {
	coinbase, err := database.NewCoinbase(50, 0, []byte("miner"))
	if err != nil {
		t.Fatalf("Should be able to construct the coinbase: %s", err)
	}

	parsed := database.ParseRecord("tx.json", []byte(record))
	if parsed.IsMalformed() {
		t.Fatalf("Should be able to parse the record: %s", parsed.Malformed)
	}

	args := database.POWArgs{
		TimeStamp: 1234567890,
		Target:    new(uint256.Int).Lsh(uint256.NewInt(1), 254),
		Trans:     []database.Tx{coinbase, parsed.Tx},
	}

	block, sol, err := database.POW(context.Background(), args)
	if err != nil {
		t.Fatalf("Should be able to mine the block: %s", err)
	}

	bd, err := database.NewBlockData(block, 0, sol.Attempts)
	if err != nil {
		t.Fatalf("Should be able to construct the block data: %s", err)
	}

	return bd
}

func TestDisk(t *testing.T) {
	t.Log("Given the need to read a mempool directory and write a result.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen reading a directory of records.", testID)
		{
			dir := t.TempDir()
			files := map[string]string{
				"b.json":    record,
				"a.json":    `{"version": 1, "vin": []}`,
				"notes.txt": "ignored",
			}
			for name, content := range files {
				if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to write %s: %s", failed, testID, name, err)
				}
			}

			disk, err := storage.NewDisk(dir, filepath.Join(dir, "out.txt"))
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open the directory: %s", failed, testID, err)
			}

			records, err := disk.ReadMempool()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to read the mempool: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to read the mempool.", success, testID)

			if len(records) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould only read json files, got %d records.", failed, testID, len(records))
			}
			t.Logf("\t%s\tTest %d:\tShould only read json files.", success, testID)

			if records[0].Source != "a.json" || records[1].Source != "b.json" {
				t.Fatalf("\t%s\tTest %d:\tShould read files in name order, got %s %s.", failed, testID, records[0].Source, records[1].Source)
			}
			t.Logf("\t%s\tTest %d:\tShould read files in name order.", success, testID)

			if !records[0].IsMalformed() || !errors.Is(records[0].Malformed, database.ErrMalformedTransaction) {
				t.Fatalf("\t%s\tTest %d:\tShould report the incomplete record as malformed.", failed, testID)
			}
			if records[1].IsMalformed() {
				t.Fatalf("\t%s\tTest %d:\tShould parse the good record: %s", failed, testID, records[1].Malformed)
			}
			t.Logf("\t%s\tTest %d:\tShould keep malformed records as records.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the mempool directory does not exist.", testID)
		{
			if _, err := storage.NewDisk(filepath.Join(t.TempDir(), "missing"), "out.txt"); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould get an error.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get an error.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen writing the result of a mined block.", testID)
		{
			bd := mineBlock(t)

			dir := t.TempDir()
			out := filepath.Join(dir, "out.txt")

			disk, err := storage.NewDisk(dir, out)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open the directory: %s", failed, testID, err)
			}

			if err := disk.WriteResult(bd); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to write the result: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to write the result.", success, testID)

			data, err := os.ReadFile(out)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to read the result: %s", failed, testID, err)
			}

			var lines []string
			scanner := bufio.NewScanner(bytes.NewReader(data))
			for scanner.Scan() {
				lines = append(lines, scanner.Text())
			}

			if len(lines) != 4 {
				t.Fatalf("\t%s\tTest %d:\tShould get a header, a coinbase and two ids, got %d lines.", failed, testID, len(lines))
			}
			t.Logf("\t%s\tTest %d:\tShould get a header, a coinbase and two ids.", success, testID)

			if lines[0] != bd.HeaderHex || len(lines[0]) != database.HeaderSize*2 {
				t.Fatalf("\t%s\tTest %d:\tShould write the header hex first.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould write the header hex first.", success, testID)

			var coinbase database.TxData
			if err := json.Unmarshal([]byte(lines[1]), &coinbase); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould write the coinbase as json: %s", failed, testID, err)
			}
			if coinbase.ID != bd.TxIDs[0] || lines[2] != bd.TxIDs[0].String() {
				t.Fatalf("\t%s\tTest %d:\tShould write the coinbase id first.", failed, testID)
			}
			if lines[3] != bd.TxIDs[1].String() {
				t.Fatalf("\t%s\tTest %d:\tShould write the transaction id after the coinbase.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould write the ids in block order.", success, testID)

			matches, _ := filepath.Glob(filepath.Join(dir, ".out.txt.*"))
			if len(matches) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould not leave temporary files behind: %v", failed, testID, matches)
			}
			t.Logf("\t%s\tTest %d:\tShould not leave temporary files behind.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the output directory does not exist.", testID)
		{
			bd := mineBlock(t)

			err := storage.WriteResult(filepath.Join(t.TempDir(), "missing", "out.txt"), bd)
			if err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould get an error.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get an error.", success, testID)
		}
	}
}

func TestMemory(t *testing.T) {
	t.Log("Given the need to run the miner without a disk.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen serving records and keeping results.", testID)
		{
			rec := database.ParseRecord("tx.json", []byte(record))

			var s storage.Storage
			mem, err := memory.New(rec)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the storage: %s", failed, testID, err)
			}
			s = mem

			records, err := s.ReadMempool()
			if err != nil || len(records) != 1 || records[0].Source != "tx.json" {
				t.Fatalf("\t%s\tTest %d:\tShould read back the records, got %v %v.", failed, testID, records, err)
			}
			t.Logf("\t%s\tTest %d:\tShould read back the records.", success, testID)

			bd := mineBlock(t)
			if err := s.WriteResult(bd); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to write the result: %s", failed, testID, err)
			}

			results := mem.Results()
			if len(results) != 1 || results[0].Hash != bd.Hash {
				t.Fatalf("\t%s\tTest %d:\tShould keep the result.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould keep the result.", success, testID)
		}
	}
}
