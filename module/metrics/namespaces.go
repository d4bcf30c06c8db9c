package metrics

// Prometheus metric namespaces
const (
	namespaceNetwork = "network"
	namespaceFetch   = "fetch"
)

// Network subsystems
const (
	subsystemPeers = "peers"
)

// Fetch subsystems
const (
	subsystemRequests = "requests"
)
