package eth

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/forkid"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/onflow/evm-p2p-fetch/model/block"
)

const (
	// ProtocolName is the devp2p capability name of the eth protocol.
	ProtocolName = "eth"

	// ETH68 is the only eth protocol version spoken by the node.
	ETH68 = 68

	// protocolLength is the number of message codes reserved by eth/68.
	protocolLength = 17

	// maxMessageSize is the maximum accepted size of a single eth message.
	maxMessageSize = 10 * 1024 * 1024
)

// eth/68 message codes
const (
	StatusMsg                     = 0x00
	NewBlockHashesMsg             = 0x01
	TransactionsMsg               = 0x02
	GetBlockHeadersMsg            = 0x03
	BlockHeadersMsg               = 0x04
	GetBlockBodiesMsg             = 0x05
	BlockBodiesMsg                = 0x06
	NewBlockMsg                   = 0x07
	NewPooledTransactionHashesMsg = 0x08
	GetPooledTransactionsMsg      = 0x09
	PooledTransactionsMsg         = 0x0a
	GetReceiptsMsg                = 0x0f
	ReceiptsMsg                   = 0x10
)

// StatusPacket is exchanged once when an eth session starts.
type StatusPacket struct {
	ProtocolVersion uint32
	NetworkID       uint64
	TD              *big.Int
	Head            common.Hash
	Genesis         common.Hash
	ForkID          forkid.ID
}

// GetBlockHeadersRequest selects a run of headers.
type GetBlockHeadersRequest struct {
	Origin  block.Identifier
	Amount  uint64
	Skip    uint64
	Reverse bool
}

type GetBlockHeadersPacket struct {
	RequestID uint64
	Request   GetBlockHeadersRequest
}

type BlockHeadersPacket struct {
	RequestID uint64
	Headers   []*types.Header
}

type GetBlockBodiesPacket struct {
	RequestID uint64
	Hashes    []common.Hash
}

type BlockBodiesPacket struct {
	RequestID uint64
	Bodies    []*block.Body
}

// requestEnvelope decodes the request ID of any request packet and keeps its payload raw.
type requestEnvelope struct {
	RequestID uint64
	Payload   rlp.RawValue
}

// emptyResponse answers a request with an empty item list.
type emptyResponse struct {
	RequestID uint64
	Items     []rlp.RawValue
}
