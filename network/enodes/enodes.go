// Package enodes holds helpers for handling sets of node records.
package enodes

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/hashicorp/go-multierror"
)

// ParseNodes parses enode URLs or ENR records. All malformed entries are reported.
func ParseNodes(records []string) ([]*enode.Node, error) {
	var errs *multierror.Error
	nodes := make([]*enode.Node, 0, len(records))
	for _, record := range records {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}
		node, err := enode.Parse(enode.ValidSchemes, record)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("invalid node record %q: %w", record, err))
			continue
		}
		nodes = append(nodes, node)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return nodes, nil
}

// Union returns the nodes of all given lists, each node ID appearing once. When the same
// ID is listed more than once the first record wins.
func Union(lists ...[]*enode.Node) []*enode.Node {
	seen := make(map[enode.ID]struct{})
	var union []*enode.Node
	for _, list := range lists {
		for _, node := range list {
			if _, ok := seen[node.ID()]; ok {
				continue
			}
			seen[node.ID()] = struct{}{}
			union = append(union, node)
		}
	}
	return union
}

// IDs returns the set of IDs of the given nodes.
func IDs(nodes []*enode.Node) map[enode.ID]struct{} {
	ids := make(map[enode.ID]struct{}, len(nodes))
	for _, node := range nodes {
		ids[node.ID()] = struct{}{}
	}
	return ids
}

// URLs returns the enode URLs of the given nodes, for logging.
func URLs(nodes []*enode.Node) []string {
	urls := make([]string, 0, len(nodes))
	for _, node := range nodes {
		urls = append(urls, node.URLv4())
	}
	return urls
}
