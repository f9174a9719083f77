package main

import (
	"bufio"
	"context"
	"flag"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/poiesic/groundwork"
	"github.com/poiesic/groundwork/config"
	"github.com/poiesic/groundwork/ingestion"
)

// guide is one built-in seed source. Each page becomes a document.
type guide struct {
	source string
	pages  []string
}

var guides = []guide{
	{
		source: "seed/tomatoes",
		pages: []string{
			"Tomatoes need at least six hours of direct sun each day. Start seed indoors six to eight weeks before the last frost and harden the seedlings off for a week before planting out.",
			"Water deeply and less often to encourage deep roots. Irregular watering causes blossom end rot and split fruit. Mulch keeps the soil cool and holds moisture through summer.",
			"Pinch out side shoots on cordon varieties so the plant puts its energy into fruit. Feed with a high potash fertilizer once the first truss has set.",
		},
	},
	{
		source: "seed/carrots",
		pages: []string{
			"Carrots prefer light, stone-free soil. Heavy or stony ground gives forked roots. Sow thinly in drills one centimetre deep from early spring.",
			"Cover sowings with fine mesh or fleece to keep carrot fly away. Thin in the evening, when the flies are less active, and firm the soil back around the remaining roots.",
		},
	},
	{
		source: "seed/lettuce",
		pages: []string{
			"Lettuce bolts in hot weather, so sow little and often. Sowings made in midsummer germinate poorly when the soil is above twenty five degrees.",
			"Harvest outer leaves of loose leaf varieties to keep the plants producing for weeks. Slugs are the main pest; check plants at dusk after rain.",
		},
	},
	{
		source: "seed/beans",
		pages: []string{
			"Runner and pole beans climb and need a trellis or wigwam of canes at least two metres tall. Bush beans need no support.",
			"Beans are tender and should not be sown outdoors until the soil has warmed. Pick pods young and often; plants stop flowering once seeds ripen.",
		},
	},
	{
		source: "seed/garlic",
		pages: []string{
			"Plant garlic cloves in autumn, pointed end up, about two centimetres below the surface. A period of cold is needed for the bulbs to split into cloves.",
			"Lift garlic in summer when the lower leaves turn yellow. Dry the bulbs in a warm, airy place for two weeks before storing.",
		},
	},
	{
		source: "seed/compost",
		pages: []string{
			"A compost heap needs a balance of green material, such as grass clippings and vegetable peelings, and brown material, such as cardboard and dry leaves.",
			"Turn the heap every few weeks to let air in. Finished compost is dark and crumbly and smells of earth; dig it into beds in autumn or use it as a mulch.",
		},
	},
}

var (
	configPath   = flag.String("config", "", "config file")
	seedFileName = flag.String("src", "", "text file of seed data; blank lines separate pages")
	batchSize    = flag.Int("batch", 5, "sources per ingestion run")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// pagesFromFile returns an iterator over the blank-line separated pages of a file.
func pagesFromFile(filename string) (iter.Seq[string], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		var page []string
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				page = append(page, line)
				continue
			}
			if len(page) > 0 {
				if !yield(strings.Join(page, "\n")) {
					return
				}
				page = page[:0]
			}
		}
		if len(page) > 0 {
			yield(strings.Join(page, "\n"))
		}
	}, nil
}

// ingestBatched ingests sources in runs of batchSize.
func ingestBatched(ctx context.Context, pipeline *ingestion.Pipeline, sources iter.Seq[string], batchSize int) error {
	batch := make([]string, 0, batchSize)

	for source := range sources {
		batch = append(batch, source)
		if len(batch) == batchSize {
			if _, err := pipeline.Ingest(ctx, batch...); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}

	// Process any remaining sources
	if len(batch) > 0 {
		if _, err := pipeline.Ingest(ctx, batch...); err != nil {
			return err
		}
	}

	return nil
}

func main() {
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	ws, err := groundwork.Open(cfg)
	if err != nil {
		panic(err)
	}
	defer ws.Close()

	loader := ingestion.NewStaticLoader()
	if *seedFileName != "" {
		pages, err := pagesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
		var texts []string
		for page := range pages {
			texts = append(texts, page)
		}
		loader.Add("seed/"+filepath.Base(*seedFileName), texts...)
	} else {
		for _, g := range guides {
			loader.Add(g.source, g.pages...)
		}
	}

	ctx := context.Background()
	pipeline, err := ws.NewIngestionPipeline(ctx, ingestion.WithLoaders(loader))
	if err != nil {
		panic(err)
	}

	if err := ingestBatched(ctx, pipeline, slices.Values(loader.Sources()), max(*batchSize, 1)); err != nil {
		panic(err)
	}
}
