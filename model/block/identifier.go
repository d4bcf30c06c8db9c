package block

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// Identifier names a block either by its hash or by its height. The zero value is
// Number(0), the genesis block.
type Identifier struct {
	hash   common.Hash
	number uint64
	byHash bool
}

// HashIdentifier returns an Identifier referencing the block with the given hash.
func HashIdentifier(hash common.Hash) Identifier {
	return Identifier{hash: hash, byHash: true}
}

// NumberIdentifier returns an Identifier referencing the block at the given height.
func NumberIdentifier(number uint64) Identifier {
	return Identifier{number: number}
}

// ParseIdentifier parses either a 32 byte hex hash (with or without 0x prefix) or a
// decimal block height. Hash syntax takes precedence.
func ParseIdentifier(s string) (Identifier, error) {
	s = strings.TrimSpace(s)
	if hash, ok := parseHash(s); ok {
		return HashIdentifier(hash), nil
	}
	number, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return Identifier{}, fmt.Errorf("invalid block identifier %q: expected a 32 byte hex hash or a block number", s)
	}
	return NumberIdentifier(number), nil
}

func parseHash(s string) (common.Hash, bool) {
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != 2*common.HashLength {
		return common.Hash{}, false
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return common.Hash{}, false
	}
	return common.BytesToHash(b), true
}

// Hash returns the referenced hash and true if the identifier is hash based.
func (id Identifier) Hash() (common.Hash, bool) {
	return id.hash, id.byHash
}

// Number returns the referenced height and true if the identifier is height based.
func (id Identifier) Number() (uint64, bool) {
	return id.number, !id.byHash
}

// IsHash reports whether the identifier references a block by hash.
func (id Identifier) IsHash() bool {
	return id.byHash
}

func (id Identifier) String() string {
	if id.byHash {
		return id.hash.Hex()
	}
	return strconv.FormatUint(id.number, 10)
}

// EncodeRLP writes the identifier as the eth wire origin field: the raw hash or the
// height as an unsigned integer.
func (id Identifier) EncodeRLP(w io.Writer) error {
	if id.byHash {
		return rlp.Encode(w, id.hash)
	}
	return rlp.Encode(w, id.number)
}

// DecodeRLP decodes an eth wire origin field, telling hashes from heights by payload size.
func (id *Identifier) DecodeRLP(s *rlp.Stream) error {
	_, size, err := s.Kind()
	switch {
	case err != nil:
		return err
	case size == common.HashLength:
		*id = Identifier{byHash: true}
		return s.Decode(&id.hash)
	case size <= 8:
		*id = Identifier{}
		return s.Decode(&id.number)
	default:
		return fmt.Errorf("invalid input size %d for block identifier", size)
	}
}
