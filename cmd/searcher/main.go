package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/groundwork"
	"github.com/poiesic/groundwork/config"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/retrieval"
	"github.com/tmc/langchaingo/vectorstores"
)

var (
	configPath = flag.String("config", "", "config file")
	k          = flag.Int("k", 5, "number of hits")
	threshold  = flag.Float64("min-score", 0, "drop hits scoring below this")
	source     = flag.String("source", "", "only show hits from this source")
)

func init() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	ws, err := groundwork.Open(cfg)
	if err != nil {
		panic(err)
	}
	defer ws.Close()

	ctx := context.Background()
	collection, err := ws.Collection(ctx)
	if err != nil {
		panic(err)
	}
	store, err := retrieval.NewVectorStore(collection)
	if err != nil {
		panic(err)
	}

	opts := []vectorstores.Option{vectorstores.WithScoreThreshold(float32(*threshold))}
	if *source != "" {
		opts = append(opts, vectorstores.WithFilters(map[string]string{core.MetaSource: *source}))
	}
	retriever := vectorstores.ToRetriever(store, *k, opts...)

	query := "tomato"
	if flag.NArg() > 0 {
		query = strings.Join(flag.Args(), " ")
	}
	docs, err := retriever.GetRelevantDocuments(ctx, query)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Found %d hits\n", len(docs))
	for i, doc := range docs {
		fmt.Printf("%d: '%s' (%v p.%v)[%0.3f]\n", i, doc.PageContent,
			doc.Metadata[core.MetaSource], doc.Metadata[core.MetaPage], doc.Score)
	}
}
