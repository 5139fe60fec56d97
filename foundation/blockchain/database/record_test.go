package database_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
)

const goodRecord = `{
	"version": 1,
	"locktime": 0,
	"vin": [
		{"prevout": {"txid": "1111111111111111111111111111111111111111111111111111111111111111", "voutIndex": 2}}
	],
	"vout": [
		{"value": 900, "scriptPubKey": {"address": "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"}}
	]
}`

func Test_ParseRecord(t *testing.T) {
	t.Log("Given the need to parse transaction records.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen parsing a well formed record.", testID)
		{
			rec := database.ParseRecord("good.json", []byte(goodRecord))
			if rec.IsMalformed() {
				t.Fatalf("\t%s\tTest %d:\tShould parse the record: %s", failed, testID, rec.Malformed)
			}
			t.Logf("\t%s\tTest %d:\tShould parse the record.", success, testID)

			tx := rec.Tx
			if tx.Version != 1 || len(tx.Inputs) != 1 || len(tx.Outputs) != 1 || tx.Inputs[0].PrevOut.Index != 2 || tx.Outputs[0].Value != 900 {
				dump(t, tx)
				t.Fatalf("\t%s\tTest %d:\tShould get back the fields of the record.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get back the fields of the record.", success, testID)

			if tx.IsCoinbase() {
				t.Fatalf("\t%s\tTest %d:\tShould never parse a coinbase.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould never parse a coinbase.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the script formatting or key differs.", testID)
		{
			compact := strings.NewReplacer("\n", "", "\t", "", " ", "").Replace(goodRecord)
			renamed := strings.Replace(goodRecord, "scriptPubKey", "script", 1)

			id1, err := database.ParseRecord("a.json", []byte(goodRecord)).Tx.ID()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to compute the id: %s", failed, testID, err)
			}
			id2, _ := database.ParseRecord("b.json", []byte(compact)).Tx.ID()
			id3, _ := database.ParseRecord("c.json", []byte(renamed)).Tx.ID()

			if id1 != id2 || id1 != id3 {
				t.Fatalf("\t%s\tTest %d:\tShould get the same id for the same content.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get the same id for the same content.", success, testID)
		}
	}
}

func Test_MalformedRecord(t *testing.T) {
	type table struct {
		name  string
		data  string
		field string
	}

	tt := []table{
		{name: "missing version", data: strings.Replace(goodRecord, `"version": 1,`, "", 1), field: "version"},
		{name: "missing locktime", data: strings.Replace(goodRecord, `"locktime": 0,`, "", 1), field: "locktime"},
		{name: "missing vin", data: `{"version":1,"locktime":0,"vout":[{"value":1}]}`, field: "vin"},
		{name: "missing vout", data: `{"version":1,"locktime":0,"vin":[]}`, field: "vout"},
		{name: "missing txid", data: strings.Replace(goodRecord, `"txid": "1111111111111111111111111111111111111111111111111111111111111111", `, "", 1), field: "vin[0].prevout.txid"},
		{name: "missing value", data: strings.Replace(goodRecord, `"value": 900, `, "", 1), field: "vout[0].value"},
		{name: "short txid", data: strings.Replace(goodRecord, "11111111", "", 1), field: "vin[0].prevout.txid"},
		{name: "wrong type", data: strings.Replace(goodRecord, `"value": 900`, `"value": "900"`, 1), field: "value"},
		{name: "negative value", data: strings.Replace(goodRecord, `"value": 900`, `"value": -900`, 1), field: "value"},
		{name: "not json", data: `{"version":`, field: ""},
	}

	t.Log("Given the need to name the field of a malformed record.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling %s.", testID, tst.name)
			{
				f := func(t *testing.T) {
					rec := database.ParseRecord(tst.name, []byte(tst.data))
					if !rec.IsMalformed() {
						dump(t, rec.Tx)
						t.Fatalf("\t%s\tTest %d:\tShould get a malformed record.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get a malformed record.", success, testID)

					if !strings.HasSuffix(rec.Malformed.Field, tst.field) {
						t.Logf("\t%s\tTest %d:\tgot: %q", failed, testID, rec.Malformed.Field)
						t.Logf("\t%s\tTest %d:\texp: %q", failed, testID, tst.field)
						t.Fatalf("\t%s\tTest %d:\tShould name the field.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould name the field.", success, testID)

					if !errors.Is(rec.Malformed, database.ErrMalformedTransaction) {
						t.Fatalf("\t%s\tTest %d:\tShould match ErrMalformedTransaction.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould match ErrMalformedTransaction.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}
