package signature_test

import (
	"encoding/json"
	"testing"

	"github.com/ardanlabs/blockminer/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	from     = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"
)

// =============================================================================

func Test_Sum(t *testing.T) {
	tt := []struct {
		data string
		exp  string
	}{
		{data: "", exp: "5df6e0e2761359d30a8275058e299fcc0381534545f55cf43e41983f5d4c9456"},
		{data: "abc", exp: "4f8b42c22dd3729b519ba6f68d2da7cc5b2d606d05daed5ad5128cc03e6c6358"},
	}

	for _, tst := range tt {
		got := signature.Sum([]byte(tst.data)).String()
		if got != tst.exp {
			t.Logf("got: %s", got)
			t.Logf("exp: %s", tst.exp)
			t.Fatalf("Should get back the double sha256 of %q.", tst.data)
		}
	}
}

func Test_HexRoundTrip(t *testing.T) {
	h := signature.Sum([]byte("abc"))

	for _, s := range []string{h.String(), h.Hex()} {
		got, err := signature.HexToHash(s)
		if err != nil {
			t.Fatalf("Should be able to decode %s: %s", s, err)
		}
		if got != h {
			t.Fatalf("Should get back the same hash for %s.", s)
		}
	}

	if _, err := signature.HexToHash("abcd"); err == nil {
		t.Fatalf("Should not accept a short hash.")
	}
}

func Test_Uint256(t *testing.T) {
	var h signature.Hash
	h[31] = 0x01

	if h.Uint256().Uint64() != 1 {
		t.Fatalf("Should read the hash as a big-endian integer.")
	}

	h = signature.Hash{}
	h[0] = 0x01
	if h.Uint256().BitLen() != 249 {
		t.Fatalf("Should place the first byte in the most significant position, bitlen %d", h.Uint256().BitLen())
	}
}

func Test_BeneficiaryScript(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	script := signature.BeneficiaryScript(pk.PublicKey)

	var addr string
	if err := json.Unmarshal(script, &addr); err != nil {
		t.Fatalf("Should be able to decode the script: %s", err)
	}

	if addr != from {
		t.Logf("got: %s", addr)
		t.Logf("exp: %s", from)
		t.Fatalf("Should get back the right address.")
	}
}
