package block

import (
	"github.com/ethereum/go-ethereum/core/types"
)

// Body is the non-header part of a block as served over the eth wire protocol.
type Body struct {
	Transactions []*types.Transaction
	Uncles       []*types.Header
	Withdrawals  []*types.Withdrawal `rlp:"optional"`
}
