package blockfetch

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/onflow/evm-p2p-fetch/model/block"
	"github.com/onflow/evm-p2p-fetch/module/metrics"
	"github.com/onflow/evm-p2p-fetch/network"
	mocknetwork "github.com/onflow/evm-p2p-fetch/network/mock"
	"github.com/onflow/evm-p2p-fetch/utils/retry"
	"github.com/onflow/evm-p2p-fetch/utils/unittest"
)

var errPeer = errors.New("peer went away")

func TestFetcher(t *testing.T) {
	suite.Run(t, new(FetcherSuite))
}

type FetcherSuite struct {
	suite.Suite

	client  *mocknetwork.FetchClient
	out     *bytes.Buffer
	peer    enode.ID
	fetcher *Fetcher
}

func (s *FetcherSuite) SetupTest() {
	s.client = mocknetwork.NewFetchClient(s.T())
	s.out = &bytes.Buffer{}
	s.peer = enode.ID{0xab}
	s.fetcher = s.newFetcher(5)
}

func (s *FetcherSuite) newFetcher(attempts uint) *Fetcher {
	return NewFetcher(unittest.Logger(), s.client, retry.NewPolicy(attempts, 0), s.out, metrics.NewNoopCollector())
}

func (s *FetcherSuite) headersRequest(id block.Identifier) network.HeadersRequest {
	return network.HeadersRequest{Origin: id, Amount: 1}
}

func (s *FetcherSuite) headers(headers ...*types.Header) network.PeerResponse[[]*types.Header] {
	return network.PeerResponse[[]*types.Header]{Peer: s.peer, Data: headers}
}

func (s *FetcherSuite) bodies(bodies ...*block.Body) network.PeerResponse[[]*block.Body] {
	return network.PeerResponse[[]*block.Body]{Peer: s.peer, Data: bodies}
}

// lines returns the non-empty lines written to the output.
func (s *FetcherSuite) lines() []string {
	var lines []string
	for _, line := range strings.Split(s.out.String(), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// TestResolveHash_Hash checks that a hash resolves to itself without any request.
func (s *FetcherSuite) TestResolveHash_Hash() {
	hash := unittest.HashFixture()

	resolved, err := s.fetcher.ResolveHash(context.Background(), block.HashIdentifier(hash))
	s.Require().NoError(err)
	s.Assert().Equal(hash, resolved)
	s.client.AssertNotCalled(s.T(), "GetBlockHeaders", mock.Anything, mock.Anything)
	s.Assert().Empty(s.out.String())
}

// TestResolveHash_Number checks that a number resolves to the hash of the header at that height.
func (s *FetcherSuite) TestResolveHash_Number() {
	header := unittest.HeaderFixture(1024)
	id := block.NumberIdentifier(1024)
	s.client.On("GetBlockHeaders", mock.Anything, s.headersRequest(id)).Return(s.headers(header), nil).Once()

	resolved, err := s.fetcher.ResolveHash(context.Background(), id)
	s.Require().NoError(err)
	s.Assert().Equal(header.Hash(), resolved)
	s.Assert().Equal([]string{"Block number provided. Downloading header first..."}, s.lines())
}

// TestHeader_RetriesUntilSuccess checks that four failures followed by a success under a
// five attempt policy yield the header after four notices.
func (s *FetcherSuite) TestHeader_RetriesUntilSuccess() {
	header := unittest.HeaderFixture(7)
	id := block.NumberIdentifier(7)
	s.client.On("GetBlockHeaders", mock.Anything, s.headersRequest(id)).Return(s.headers(), errPeer).Times(4)
	s.client.On("GetBlockHeaders", mock.Anything, s.headersRequest(id)).Return(s.headers(header), nil).Once()

	actual, err := s.fetcher.Header(context.Background(), id)
	s.Require().NoError(err)
	s.Assert().Equal(header.Hash(), actual.Hash())

	lines := s.lines()
	s.Require().Len(lines, 4)
	for _, line := range lines {
		s.Assert().Equal("Error requesting header: peer went away. Retrying...", line)
	}
}

// TestHeader_Exhausted checks that the number of attempts is max(1, retries).
func (s *FetcherSuite) TestHeader_Exhausted() {
	for _, attempts := range []uint{0, 1, 3} {
		s.SetupTest()
		s.fetcher = s.newFetcher(attempts)
		expected := retry.NewPolicy(attempts, 0).Attempts()

		id := block.NumberIdentifier(7)
		s.client.On("GetBlockHeaders", mock.Anything, s.headersRequest(id)).Return(s.headers(), errPeer).Times(int(expected))

		_, err := s.fetcher.Header(context.Background(), id)
		s.Require().Error(err)
		s.Assert().True(retry.IsExhaustedError(err))
		s.Assert().ErrorIs(err, errPeer)
		s.Assert().Len(s.lines(), int(expected)-1)
		s.client.AssertNumberOfCalls(s.T(), "GetBlockHeaders", int(expected))
	}
}

// TestHeader_InvalidResponses checks that mismatching responses are retried and the peer is reported.
func (s *FetcherSuite) TestHeader_InvalidResponses() {
	s.Run("wrong height", func() {
		s.SetupTest()
		id := block.NumberIdentifier(10)
		s.client.On("GetBlockHeaders", mock.Anything, s.headersRequest(id)).Return(s.headers(unittest.HeaderFixture(11)), nil).Once()
		s.client.On("GetBlockHeaders", mock.Anything, s.headersRequest(id)).Return(s.headers(unittest.HeaderFixture(10)), nil).Once()
		s.client.On("ReportBadPeer", s.peer).Once()

		header, err := s.fetcher.Header(context.Background(), id)
		s.Require().NoError(err)
		s.Assert().Equal(uint64(10), header.Number.Uint64())
		s.Require().Len(s.lines(), 1)
		s.Assert().Contains(s.lines()[0], "invalid header for block 10")
	})

	s.Run("wrong hash", func() {
		s.SetupTest()
		s.fetcher = s.newFetcher(1)
		id := block.HashIdentifier(unittest.HashFixture())
		s.client.On("GetBlockHeaders", mock.Anything, s.headersRequest(id)).Return(s.headers(unittest.HeaderFixture(1)), nil).Once()
		s.client.On("ReportBadPeer", s.peer).Once()

		_, err := s.fetcher.Header(context.Background(), id)
		s.Require().Error(err)
		s.Assert().True(IsInvalidHeaderError(err))
	})

	s.Run("wrong count", func() {
		s.SetupTest()
		s.fetcher = s.newFetcher(2)
		id := block.NumberIdentifier(1)
		chain := unittest.HeaderChainFixture(2)
		s.client.On("GetBlockHeaders", mock.Anything, s.headersRequest(id)).Return(s.headers(chain...), nil).Once()
		s.client.On("GetBlockHeaders", mock.Anything, s.headersRequest(id)).Return(s.headers(), nil).Once()
		s.client.On("ReportBadPeer", s.peer).Twice()

		_, err := s.fetcher.Header(context.Background(), id)
		s.Require().Error(err)
		var mismatch CountMismatchError
		s.Require().ErrorAs(err, &mismatch)
		s.Assert().Equal(CountMismatchError{Expected: 1, Actual: 0}, mismatch)
	})
}

// TestBody_ByHash checks that a body is requested for the given hash directly.
func (s *FetcherSuite) TestBody_ByHash() {
	hash := unittest.HashFixture()
	body := unittest.BodyFixture(s.T(), 2)
	s.client.On("GetBlockBodies", mock.Anything, []common.Hash{hash}).Return(s.bodies(body), nil).Once()

	actual, err := s.fetcher.Body(context.Background(), block.HashIdentifier(hash))
	s.Require().NoError(err)
	s.Assert().Same(body, actual)
	s.Assert().Empty(s.out.String())
	s.client.AssertNotCalled(s.T(), "GetBlockHeaders", mock.Anything, mock.Anything)
}

// TestBody_ByNumber checks that the header is downloaded before the body and its hash is requested.
func (s *FetcherSuite) TestBody_ByNumber() {
	header := unittest.HeaderFixture(42)
	body := unittest.BodyFixture(s.T(), 1)
	id := block.NumberIdentifier(42)

	headerCall := s.client.On("GetBlockHeaders", mock.Anything, s.headersRequest(id)).Return(s.headers(header), nil).Once()
	s.client.On("GetBlockBodies", mock.Anything, []common.Hash{header.Hash()}).Return(s.bodies(body), nil).Once().NotBefore(headerCall)

	actual, err := s.fetcher.Body(context.Background(), id)
	s.Require().NoError(err)
	s.Assert().Same(body, actual)
	s.Assert().Equal([]string{"Block number provided. Downloading header first..."}, s.lines())
}

// TestBody_Retries checks the notices written while retrying a body request.
func (s *FetcherSuite) TestBody_Retries() {
	hash := unittest.HashFixture()
	body := unittest.BodyFixture(s.T(), 0)
	s.client.On("GetBlockBodies", mock.Anything, []common.Hash{hash}).Return(s.bodies(), errPeer).Twice()
	s.client.On("GetBlockBodies", mock.Anything, []common.Hash{hash}).Return(s.bodies(body), nil).Once()

	actual, err := s.fetcher.Body(context.Background(), block.HashIdentifier(hash))
	s.Require().NoError(err)
	s.Assert().Same(body, actual)
	s.Assert().Equal([]string{
		"Error requesting block: peer went away. Retrying...",
		"Error requesting block: peer went away. Retrying...",
	}, s.lines())
}

// TestBody_CountMismatch checks that a response with other than one body is rejected without retrying.
func (s *FetcherSuite) TestBody_CountMismatch() {
	for _, count := range []int{0, 2} {
		s.SetupTest()
		hash := unittest.HashFixture()
		var bodies []*block.Body
		for i := 0; i < count; i++ {
			bodies = append(bodies, unittest.BodyFixture(s.T(), 1))
		}
		s.client.On("GetBlockBodies", mock.Anything, []common.Hash{hash}).Return(s.bodies(bodies...), nil).Once()

		actual, err := s.fetcher.Body(context.Background(), block.HashIdentifier(hash))
		s.Require().Error(err)
		s.Assert().Nil(actual)
		s.Assert().True(IsCountMismatchError(err))
		s.Assert().False(retry.IsExhaustedError(err))
		s.Assert().Equal(NewCountMismatchError(1, count), err)
		s.Assert().Empty(s.out.String())
	}
}

// TestBody_HeaderFailurePropagates checks that no body is requested when the number cannot be resolved.
func (s *FetcherSuite) TestBody_HeaderFailurePropagates() {
	s.fetcher = s.newFetcher(2)
	id := block.NumberIdentifier(5)
	s.client.On("GetBlockHeaders", mock.Anything, s.headersRequest(id)).Return(s.headers(), errPeer).Twice()

	_, err := s.fetcher.Body(context.Background(), id)
	s.Require().Error(err)
	s.Assert().True(retry.IsExhaustedError(err))
	s.client.AssertNotCalled(s.T(), "GetBlockBodies", mock.Anything, mock.Anything)
}

// TestCancelled checks that a cancelled context ends the retry loop.
func (s *FetcherSuite) TestCancelled() {
	ctx, cancel := context.WithCancel(context.Background())
	id := block.NumberIdentifier(5)
	s.client.On("GetBlockHeaders", mock.Anything, s.headersRequest(id)).
		Run(func(mock.Arguments) { cancel() }).
		Return(s.headers(), context.Canceled).Once()

	_, err := s.fetcher.Header(ctx, id)
	s.Require().ErrorIs(err, context.Canceled)
	s.Assert().Empty(s.out.String())
}

func TestGetSingleHeader(t *testing.T) {
	client := mocknetwork.NewFetchClient(t)
	header := unittest.HeaderFixture(3)
	id := block.HashIdentifier(header.Hash())
	client.On("GetBlockHeaders", mock.Anything, network.HeadersRequest{Origin: id, Amount: 1}).
		Return(network.PeerResponse[[]*types.Header]{Data: []*types.Header{header}}, nil).Once()

	actual, err := GetSingleHeader(context.Background(), client, id)
	require.NoError(t, err)
	require.Equal(t, header.Hash(), actual.Hash())
}
