// Package cli implements the vestctl subcommands on top of the EquityService client.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	grpcadapter "github.com/simaogato/vestflow-backend/internal/adapter/grpc"
)

var (
	serverAddr = flag.String("addr", envOr("VESTCTL_ADDR", "localhost:8080"), "EquityService address")
	apiToken   = flag.String("token", envOr("API_TOKEN", "dev-token"), "API token sent in the authorization header")
	userID     = flag.String("user", os.Getenv("VESTCTL_USER"), "user id sent in the x-user-id header")
	currency   = flag.String("currency", envOr("VESTCTL_CURRENCY", "USD"), "ISO currency code used to display amounts")
)

// Register the subcommands.
func Register(c *subcommands.Commander) {
	c.Register(&createGrantCmd{}, "grants")
	c.Register(&listGrantsCmd{}, "grants")
	c.Register(&showGrantCmd{}, "grants")
	c.Register(&cancelGrantCmd{}, "grants")
	c.Register(&plansCmd{}, "grants")
	c.Register(&changePlanCmd{}, "grants")

	c.Register(&recordSaleCmd{}, "sales")
	c.Register(&previewTaxCmd{}, "sales")
	c.Register(&listSalesCmd{}, "sales")
	c.Register(&deleteSaleCmd{}, "sales")

	c.Register(&timelineCmd{}, "portfolio")
	c.Register(&validateCmd{}, "portfolio")

	c.Register(&setPriceCmd{}, "prices")
	c.Register(&getPriceCmd{}, "prices")
	c.Register(&priceHistoryCmd{}, "prices")
}

// connect dials the server and returns a client plus an outgoing context carrying the credentials.
func connect(ctx context.Context) (*grpcadapter.Client, context.Context, func(), error) {
	conn, err := grpc.NewClient(*serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to %s: %w", *serverAddr, err)
	}

	pairs := []string{"authorization", *apiToken}
	if *userID != "" {
		pairs = append(pairs, "x-user-id", *userID)
	}
	ctx = metadata.AppendToOutgoingContext(ctx, pairs...)

	return grpcadapter.NewClient(conn), ctx, func() { _ = conn.Close() }, nil
}

// run connects, runs call and maps its error to an exit status.
func run(ctx context.Context, call func(ctx context.Context, client *grpcadapter.Client) error) subcommands.ExitStatus {
	client, ctx, closeConn, err := connect(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeConn()

	if err := call(ctx, client); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func usageError(f *flag.FlagSet, format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	f.Usage()
	return subcommands.ExitUsageError
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
