// Command datavents streams normalized prediction-market data from
// Kalshi and Polymarket to stdout as NDJSON, or runs a one-shot
// cross-provider search with -search.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/datavents/datavents/internal/adapter/kalshi"
	"github.com/datavents/datavents/internal/adapter/poly"
	"github.com/datavents/datavents/internal/client"
	"github.com/datavents/datavents/internal/config"
	"github.com/datavents/datavents/internal/resolver"
	"github.com/datavents/datavents/internal/schema"
	"github.com/datavents/datavents/internal/stream"
)

func main() {
	var (
		vendors      = flag.String("vendors", "all", "comma-separated vendors (kalshi, polymarket, all)")
		tickers      = flag.String("tickers", "", "comma-separated vendor-neutral tickers or ids")
		eventTickers = flag.String("event-tickers", "", "comma-separated Kalshi event tickers to expand")
		assetIDs     = flag.String("assets", "", "comma-separated Polymarket CLOB asset ids")
		search       = flag.String("search", "", "run a one-shot search instead of streaming")
		status       = flag.String("status", "", "search status filter: open or closed")
		limit        = flag.Int("limit", 10, "search result limit per vendor")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	httpClient := &http.Client{Timeout: 15 * time.Second}
	kalshiClient := kalshi.NewClient(httpClient, cfg.Kalshi.RESTBaseURL)
	polyClient := poly.NewClient(httpClient, cfg.Polymarket.GammaBaseURL)

	var creds *resolver.KalshiCredentials
	if cfg.Kalshi.HasCredentials() {
		creds, err = resolver.LoadKalshiCredentials(cfg.Kalshi.APIKey, cfg.Kalshi.PrivateKeyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load kalshi credentials: %v\n", err)
			os.Exit(1)
		}
		kalshiClient = kalshiClient.WithHeaders(creds.Headers)
	}

	selected := schema.ParseVendors(splitCSV(*vendors))

	if *search != "" {
		api := client.New(kalshiClient, polyClient)
		runSearch(ctx, api, selected, *search, *status, *limit)
		return
	}

	sub := schema.Subscription{
		Vendors:            selected,
		TickersOrIDs:       splitCSV(*tickers),
		KalshiEventTickers: splitCSV(*eventTickers),
		PolymarketAssetIDs: splitCSV(*assetIDs),
	}
	if err := runStream(ctx, cfg, creds, kalshiClient, sub); err != nil {
		fmt.Fprintf(os.Stderr, "stream failed: %v\n", err)
		os.Exit(1)
	}
}

func runSearch(ctx context.Context, api *client.Client, providers []schema.Provider, query, status string, limit int) {
	resp, errs := api.Search(ctx, client.SearchRequest{
		Providers: providers,
		Query:     query,
		Status:    status,
		Limit:     limit,
	})
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "search: %v\n", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		log.Printf("encode: %v", err)
	}
}

func runStream(ctx context.Context, cfg *config.Config, creds *resolver.KalshiCredentials, kalshiClient *kalshi.Client, sub schema.Subscription) error {
	var lookup resolver.KalshiLookup
	if creds != nil {
		lookup = kalshiClient
	}
	res := resolver.New(lookup, cfg.Stream.ResolveTimeout())

	streamCfg := stream.Config{
		WSURL: map[schema.Provider]string{
			schema.ProviderKalshi:     cfg.Kalshi.WSURL,
			schema.ProviderPolymarket: cfg.Polymarket.ClobWSURL,
		},
		Headers:     map[schema.Provider]http.Header{},
		EventBuffer: cfg.Stream.EventBuffer,
	}
	if creds != nil {
		u, err := url.Parse(cfg.Kalshi.WSURL)
		if err != nil {
			return fmt.Errorf("parse kalshi ws url: %w", err)
		}
		h, err := creds.Headers("GET", u.Path)
		if err != nil {
			return fmt.Errorf("sign kalshi handshake: %w", err)
		}
		streamCfg.Headers[schema.ProviderKalshi] = h
	}

	mux := stream.New(streamCfg, res, kalshi.NewDriver(), poly.NewDriver())

	go func() {
		for st := range mux.Status() {
			fmt.Fprintf(os.Stderr, "[%s] %s: %s %s\n",
				st.At.Format(time.RFC3339), st.Vendor, st.State, st.Detail)
		}
	}()

	enc := json.NewEncoder(os.Stdout)
	return mux.Run(ctx, sub, func(ev schema.NormalizedEvent) {
		if err := enc.Encode(ev); err != nil {
			log.Printf("encode: %v", err)
		}
	})
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
