//go:build e2e

package e2e

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"
)

var testCtx *TestContext

// TestMain boots one elkstaking node on a Postgres container. Every test
// shares its chain, so tests use their own dev accounts and assert on
// relative time.
func TestMain(m *testing.M) {
	flag.Parse()
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()
	testCtx = &TestContext{}

	var err error
	testCtx.PostgresContainer, testCtx.ConnString, err = setupPostgresE(ctx)
	if err != nil {
		log.Printf("postgres container: %v", err)
		return 1
	}
	defer func() {
		if err := testCtx.PostgresContainer.Terminate(ctx); err != nil {
			log.Printf("terminating postgres container: %v", err)
		}
	}()

	testCtx.Node, err = startNodeE(testCtx.ConnString)
	if err != nil {
		log.Printf("starting node: %v", err)
		return 1
	}
	defer testCtx.Node.Store.Close()
	defer testCtx.Node.Close()

	// Writes, /rpc and /ws need a key since the node runs with AUTH_TYPE=api-key
	testCtx.APIKey, err = testCtx.Node.Store.CreateAPIKey(ctx, "e2e")
	if err != nil {
		log.Printf("creating API key: %v", err)
		return 1
	}

	log.Printf("elkstaking node on %s (chain %d, genesis %d)",
		testCtx.Node.TestServer.URL, testCtx.Node.Config.Chain.ChainID, genesis)
	return m.Run()
}
