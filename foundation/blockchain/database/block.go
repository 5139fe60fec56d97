package database

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/bits"

	"github.com/ardanlabs/blockminer/foundation/blockchain/merkle"
	"github.com/ardanlabs/blockminer/foundation/blockchain/signature"
	"github.com/holiman/uint256"
)

// BlockVersion is the only header version produced and accepted.
const BlockVersion = 1

// Byte layout of an encoded block header. Every field has a fixed width and
// the nonce is last so a search only rewrites the trailing bytes.
const (
	versionOffset   = 0
	prevHashOffset  = 4
	rootOffset      = 36
	timeStampOffset = 68
	targetOffset    = 76
	nonceOffset     = 108

	// HeaderSize is the number of bytes of an encoded block header.
	HeaderSize = 116
)

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Version       uint32         // Bitcoin: Block format version, fixed to 1.
	PrevBlockHash signature.Hash // Bitcoin: Hash of the previous block in the chain.
	MerkleRoot    signature.Hash // Bitcoin: Merkle root of the transaction ids in this block.
	TimeStamp     uint64         // Bitcoin: Time the block was mined.
	Target        *uint256.Int   // Bitcoin: The header hash must be below this value.
	Nonce         uint64         // Bitcoin: Value identified to solve the hash solution.
}

// Encode returns the fixed width binary form of the header.
//
//	version(4 LE) | prev(32) | root(32) | timestamp(8 LE) | target(32 BE) | nonce(8 LE)
func (bh BlockHeader) Encode() []byte {
	buf := make([]byte, HeaderSize)

	binary.LittleEndian.PutUint32(buf[versionOffset:], bh.Version)
	copy(buf[prevHashOffset:rootOffset], bh.PrevBlockHash[:])
	copy(buf[rootOffset:timeStampOffset], bh.MerkleRoot[:])
	binary.LittleEndian.PutUint64(buf[timeStampOffset:], bh.TimeStamp)

	if bh.Target != nil {
		target := bh.Target.Bytes32()
		copy(buf[targetOffset:nonceOffset], target[:])
	}

	binary.LittleEndian.PutUint64(buf[nonceOffset:], bh.Nonce)

	return buf
}

// DecodeBlockHeader reads a header produced by Encode.
func DecodeBlockHeader(data []byte) (BlockHeader, error) {
	if len(data) != HeaderSize {
		return BlockHeader{}, fmt.Errorf("header must be %d bytes, got %d", HeaderSize, len(data))
	}

	bh := BlockHeader{
		Version:   binary.LittleEndian.Uint32(data[versionOffset:]),
		TimeStamp: binary.LittleEndian.Uint64(data[timeStampOffset:]),
		Target:    new(uint256.Int).SetBytes32(data[targetOffset:nonceOffset]),
		Nonce:     binary.LittleEndian.Uint64(data[nonceOffset:]),
	}
	copy(bh.PrevBlockHash[:], data[prevHashOffset:rootOffset])
	copy(bh.MerkleRoot[:], data[rootOffset:timeStampOffset])

	return bh, nil
}

// Hash returns the double sha256 of the encoded header.
func (bh BlockHeader) Hash() signature.Hash {
	return signature.Sum(bh.Encode())
}

// isHashSolved checks the hash to make sure it complies with the POW rules.
// The hash read as a big-endian integer must be strictly below the target.
func isHashSolved(target *uint256.Int, hash signature.Hash) bool {
	if target == nil {
		return false
	}

	return hash.Uint256().Lt(target)
}

// =============================================================================

// Block represents a group of transactions batched together. The coinbase
// is always the first transaction.
type Block struct {
	Header BlockHeader
	Trans  *merkle.Tree[Tx]
}

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	PrevBlockHash signature.Hash
	TimeStamp     uint64
	Target        *uint256.Int
	Trans         []Tx // Coinbase first.
	Search        SearchFunc
	EvHandler     func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle.
func POW(ctx context.Context, args POWArgs) (Block, Solution, error) {
	ev := args.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	// Construct a merkle tree from the transactions for this block. The root
	// of this tree will be part of the block to be mined.
	tree, err := merkle.NewTree(args.Trans)
	if err != nil {
		return Block{}, Solution{}, err
	}

	header := BlockHeader{
		Version:       BlockVersion,
		PrevBlockHash: args.PrevBlockHash,
		MerkleRoot:    signature.Hash(tree.MerkleRoot),
		TimeStamp:     args.TimeStamp,
		Target:        args.Target,
		Nonce:         0, // Will be identified by the POW algorithm.
	}

	ev("database: POW: MINING: started: root[%s]: trans[%d]", header.MerkleRoot, len(args.Trans))
	for _, tx := range args.Trans {
		ev("database: POW: MINING: tx[%s]", tx)
	}

	search := args.Search
	if search == nil {
		search = SequentialSearch(SearchOptions{})
	}

	sol, err := search(ctx, header, ev)
	if err != nil {
		ev("database: POW: MINING: CANCELLED: %s", err)
		return Block{}, Solution{}, err
	}

	ev("database: POW: MINING: SOLVED: nonce[%d]: blk[%s]: attempts[%d]", sol.Header.Nonce, sol.Hash, sol.Attempts)

	nb := Block{
		Header: sol.Header,
		Trans:  tree,
	}

	return nb, sol, nil
}

// Hash returns the unique hash for the Block.
func (b Block) Hash() signature.Hash {

	// Only the header is hashed. The header commits to the transactions
	// through the merkle root.
	return b.Header.Hash()
}

// Coinbase returns the first transaction of the block.
func (b Block) Coinbase() (Tx, error) {
	values := b.Trans.Values()
	if len(values) == 0 || !values[0].IsCoinbase() {
		return Tx{}, fmt.Errorf("%w: first transaction is not a coinbase", ErrInvalidBlock)
	}

	return values[0], nil
}

// TxIDs returns the ids of the transactions in block order.
func (b Block) TxIDs() ([]signature.Hash, error) {
	values := b.Trans.Values()

	ids := make([]signature.Hash, len(values))
	for i, tx := range values {
		id, err := tx.ID()
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}

	return ids, nil
}

// ValidateBlock checks a mined block before it is handed to a caller. Every
// transaction is revalidated against the resolver and the coinbase must pay
// exactly the subsidy plus the fees.
func ValidateBlock(b Block, subsidy uint64, resolver Resolver, evHandler func(v string, args ...any)) error {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	if b.Trans == nil {
		return fmt.Errorf("%w: %w", ErrInvalidBlock, merkle.ErrEmptyTransactionSet)
	}

	evHandler("database: ValidateBlock: validate: blk[%s]: check: header version", b.Hash())

	if b.Header.Version != BlockVersion {
		return fmt.Errorf("%w: header version %d", ErrInvalidBlock, b.Header.Version)
	}

	evHandler("database: ValidateBlock: validate: blk[%s]: check: coinbase is first and well formed", b.Hash())

	values := b.Trans.Values()
	coinbase, err := b.Coinbase()
	if err != nil {
		return err
	}

	if len(coinbase.Inputs) != 0 || len(coinbase.Outputs) != 1 {
		return fmt.Errorf("%w: coinbase has %d inputs and %d outputs", ErrInvalidBlock, len(coinbase.Inputs), len(coinbase.Outputs))
	}

	if _, err := Validate(coinbase, resolver); err != nil {
		return fmt.Errorf("%w: coinbase: %w", ErrInvalidBlock, err)
	}

	evHandler("database: ValidateBlock: validate: blk[%s]: check: transactions are valid", b.Hash())

	spent := make(map[OutPoint]struct{})

	var fees uint64
	for _, tx := range values[1:] {
		if tx.IsCoinbase() {
			return fmt.Errorf("%w: more than one coinbase", ErrInvalidBlock)
		}

		fee, err := Validate(tx, resolver)
		if err != nil {
			return fmt.Errorf("%w: tx[%s]: %w", ErrInvalidBlock, tx, err)
		}

		for _, in := range tx.Inputs {
			if _, exists := spent[in.PrevOut]; exists {
				return fmt.Errorf("%w: tx[%s]: outpoint %s spent twice", ErrInvalidBlock, tx, in.PrevOut)
			}
			spent[in.PrevOut] = struct{}{}
		}

		var carry uint64
		fees, carry = bits.Add64(fees, fee, 0)
		if carry != 0 {
			return fmt.Errorf("%w: %w: fee total", ErrInvalidBlock, ErrValueOverflow)
		}
	}

	evHandler("database: ValidateBlock: validate: blk[%s]: check: coinbase pays subsidy plus fees", b.Hash())

	reward, carry := bits.Add64(subsidy, fees, 0)
	if carry != 0 {
		return fmt.Errorf("%w: %w: reward", ErrInvalidBlock, ErrValueOverflow)
	}

	if coinbase.Outputs[0].Value != reward {
		return fmt.Errorf("%w: coinbase pays %d, exp %d", ErrInvalidBlock, coinbase.Outputs[0].Value, reward)
	}

	evHandler("database: ValidateBlock: validate: blk[%s]: check: merkle root does match transactions", b.Hash())

	ids, err := b.TxIDs()
	if err != nil {
		return err
	}

	leafs := make([][]byte, len(ids))
	for i := range ids {
		leafs[i] = ids[i].Bytes()
	}

	root, err := merkle.Root(leafs)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBlock, err)
	}

	if !bytes.Equal(root, b.Header.MerkleRoot.Bytes()) {
		return fmt.Errorf("%w: merkle root does not match transactions, got %x, exp %s", ErrInvalidBlock, root, b.Header.MerkleRoot)
	}

	evHandler("database: ValidateBlock: validate: blk[%s]: check: block hash has been solved", b.Hash())

	if !isHashSolved(b.Header.Target, b.Hash()) {
		return fmt.Errorf("%w: %s invalid block hash", ErrInvalidBlock, b.Hash())
	}

	return nil
}

// =============================================================================

// HeaderData represents the header fields as they are written out.
type HeaderData struct {
	Version       uint32         `json:"version"`
	PrevBlockHash signature.Hash `json:"prev_block_hash"`
	MerkleRoot    signature.Hash `json:"merkle_root"`
	TimeStamp     uint64         `json:"timestamp"`
	Target        string         `json:"target"`
	Nonce         uint64         `json:"nonce"`
}

// BlockData represents the result of mining a block as it is written out.
type BlockData struct {
	HeaderHex string           `json:"header_hex"`
	Hash      signature.Hash   `json:"hash"`
	Header    HeaderData       `json:"header"`
	Coinbase  TxData           `json:"coinbase"`
	TxIDs     []signature.Hash `json:"txids"` // Coinbase first.
	TotalFees uint64           `json:"total_fees"`
	Attempts  uint64           `json:"attempts"`
}

// NewBlockData constructs the value to serialize.
func NewBlockData(block Block, totalFees uint64, attempts uint64) (BlockData, error) {
	coinbase, err := block.Coinbase()
	if err != nil {
		return BlockData{}, err
	}

	coinbaseData, err := NewTxData(coinbase)
	if err != nil {
		return BlockData{}, err
	}

	ids, err := block.TxIDs()
	if err != nil {
		return BlockData{}, err
	}

	bh := block.Header
	target := uint256.NewInt(0)
	if bh.Target != nil {
		target = bh.Target
	}
	targetBytes := target.Bytes32()

	bd := BlockData{
		HeaderHex: hex.EncodeToString(bh.Encode()),
		Hash:      block.Hash(),
		Header: HeaderData{
			Version:       bh.Version,
			PrevBlockHash: bh.PrevBlockHash,
			MerkleRoot:    bh.MerkleRoot,
			TimeStamp:     bh.TimeStamp,
			Target:        hex.EncodeToString(targetBytes[:]),
			Nonce:         bh.Nonce,
		},
		Coinbase:  coinbaseData,
		TxIDs:     ids,
		TotalFees: totalFees,
		Attempts:  attempts,
	}

	return bd, nil
}
