package testutils

import "sync"

// IntegrationTestsEnv enables tests that start a Solana validator container. Docker is required.
const IntegrationTestsEnv = "SOLANA_INTEGRATION_TESTS"

var (
	// DefaultNetworkOnce is a sync.Once instance that ensures the CTF framework only sets up the
	// DefaultNetwork once.
	DefaultNetworkOnce = &sync.Once{}
)
