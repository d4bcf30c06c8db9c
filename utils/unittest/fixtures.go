package unittest

import (
	"crypto/ecdsa"
	"crypto/rand"
	"math/big"
	"net"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"

	"github.com/onflow/evm-p2p-fetch/model/block"
	"github.com/onflow/evm-p2p-fetch/model/chain"
)

// KeyFixture returns a fresh secp256k1 node key.
func KeyFixture(t testing.TB) *ecdsa.PrivateKey {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

// NodeFixture returns a v4 node record for a fresh key listening on localhost.
func NodeFixture(t testing.TB) *enode.Node {
	return enode.NewV4(&KeyFixture(t).PublicKey, net.IP{127, 0, 0, 1}, 30303, 30303)
}

// HashFixture returns a random hash.
func HashFixture() common.Hash {
	var hash common.Hash
	_, _ = rand.Read(hash[:])
	return hash
}

// AddressFixture returns a random address.
func AddressFixture() common.Address {
	var address common.Address
	_, _ = rand.Read(address[:])
	return address
}

// HeaderFixture returns a header at the given height with random content.
func HeaderFixture(number uint64, opts ...func(*types.Header)) *types.Header {
	header := &types.Header{
		ParentHash:  HashFixture(),
		UncleHash:   types.EmptyUncleHash,
		Coinbase:    AddressFixture(),
		Root:        HashFixture(),
		TxHash:      types.EmptyTxsHash,
		ReceiptHash: types.EmptyReceiptsHash,
		Difficulty:  big.NewInt(0),
		Number:      new(big.Int).SetUint64(number),
		GasLimit:    30_000_000,
		Time:        1_700_000_000 + number*12,
		Extra:       []byte("fixture"),
	}
	for _, apply := range opts {
		apply(header)
	}
	return header
}

// WithParent links the header to the given parent.
func WithParent(parent *types.Header) func(*types.Header) {
	return func(header *types.Header) {
		header.ParentHash = parent.Hash()
		header.Number = new(big.Int).Add(parent.Number, big.NewInt(1))
		header.Time = parent.Time + 12
	}
}

// HeaderChainFixture returns count linked headers starting at height 0.
func HeaderChainFixture(count int) []*types.Header {
	headers := make([]*types.Header, 0, count)
	for i := 0; i < count; i++ {
		if i == 0 {
			headers = append(headers, HeaderFixture(0))
			continue
		}
		headers = append(headers, HeaderFixture(0, WithParent(headers[i-1])))
	}
	return headers
}

// TransactionFixture returns a legacy transaction signed with a random key.
func TransactionFixture(t testing.TB, nonce uint64) *types.Transaction {
	to := AddressFixture()
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: big.NewInt(1_000_000_000),
		Gas:      21_000,
		To:       &to,
		Value:    big.NewInt(1),
	})
	signed, err := types.SignTx(tx, types.HomesteadSigner{}, KeyFixture(t))
	require.NoError(t, err)
	return signed
}

// BodyFixture returns a block body holding txCount transactions and one withdrawal.
func BodyFixture(t testing.TB, txCount int) *block.Body {
	body := &block.Body{
		Transactions: make([]*types.Transaction, 0, txCount),
		Uncles:       []*types.Header{},
		Withdrawals: []*types.Withdrawal{{
			Index:     1,
			Validator: 2,
			Address:   AddressFixture(),
			Amount:    32,
		}},
	}
	for i := 0; i < txCount; i++ {
		body.Transactions = append(body.Transactions, TransactionFixture(t, uint64(i)))
	}
	return body
}

// ChainSpecFixture returns the spec of a small proof-of-work dev chain without bootnodes.
func ChainSpecFixture(t testing.TB) chain.Spec {
	spec, err := chain.NewGenesisSpec("fixture", &core.Genesis{
		Config:     params.AllEthashProtocolChanges,
		Difficulty: big.NewInt(1),
		GasLimit:   5_000_000,
		Alloc:      core.GenesisAlloc{},
	}, nil)
	require.NoError(t, err)
	return spec
}
