// Package nameservice reads the zblock/accounts folder and creates a name
// service lookup for the beneficiary scripts of the known miners.
package nameservice

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/blockminer/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// NameService maintains a map of beneficiary scripts for name lookup.
type NameService struct {
	scripts map[string]string
}

// New constructs a name service with the accounts from the specified folder.
func New(root string) (*NameService, error) {
	ns := NameService{
		scripts: make(map[string]string),
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != ".ecdsa" {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return err
		}

		script := signature.BeneficiaryScript(privateKey.PublicKey)
		ns.scripts[string(script)] = strings.TrimSuffix(path.Base(fileName), ".ecdsa")

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified script. The script is returned
// as is when it belongs to no known account.
func (ns *NameService) Lookup(script []byte) string {
	name, exists := ns.scripts[string(script)]
	if !exists {
		return string(script)
	}
	return name
}

// Copy returns a copy of the map of scripts and names.
func (ns *NameService) Copy() map[string]string {
	cpy := make(map[string]string, len(ns.scripts))
	for script, name := range ns.scripts {
		cpy[script] = name
	}
	return cpy
}
