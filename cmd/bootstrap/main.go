// Command bootstrap ingests a feed dump into a signals database: every
// post runs through the full analysis pipeline and the derived hashtag,
// term and reference rows land in SQLite.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/macanudo/pulso/internal/feed"
	"github.com/macanudo/pulso/internal/llm"
	"github.com/macanudo/pulso/pkg/pulso"
	"github.com/macanudo/pulso/pkg/pulso/config"
	"github.com/macanudo/pulso/pkg/pulso/store/sqlite"
)

func main() {
	var (
		posts     = flag.String("posts", "", "Path to posts JSONL file (required)")
		dbPath    = flag.String("db", "pulso.db", "Path to the SQLite signals database")
		topics    = flag.String("topics", "", "Topic catalog YAML (optional)")
		stopwords = flag.String("stopwords", "", "Stopwords YAML (optional)")
		weights   = flag.String("weights", "", "Event weights YAML (optional)")
		llmBase   = flag.String("llm-base", "", "Optional: OpenAI-compatible endpoint for the AI classifier")
		llmModel  = flag.String("llm-model", "", "Optional: model name for the classifier")
		llmAPIKey = flag.String("llm-api-key", "", "Optional: API key for the classifier endpoint")
		verbose   = flag.Bool("verbose", false, "Debug logging")
	)
	flag.Parse()

	if *posts == "" {
		log.Fatal("--posts required")
	}

	logger, err := buildLogger(*verbose)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	loader := config.Loader{
		CatalogPath:   *topics,
		StopwordsPath: *stopwords,
		WeightsPath:   *weights,
	}
	comp, err := loader.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	st, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		logger.Fatal("open database", zap.String("path", *dbPath), zap.Error(err))
	}
	defer st.Close()

	var classifier pulso.Classifier
	if *llmBase != "" && *llmModel != "" {
		client := &llm.Client{BaseURL: *llmBase, Model: *llmModel, APIKey: *llmAPIKey}
		classifier = llm.NewClassifier(client, comp.Catalog, logger)
		logger.Info("AI classifier enabled", zap.String("model", *llmModel))
	} else {
		logger.Info("no classifier configured, dictionary-only signals")
	}

	engine := pulso.New(pulso.Options{
		Store:      st,
		Pipeline:   comp.Pipeline,
		Classifier: classifier,
		Weights:    comp.Weights,
		Logger:     logger,
	})

	items, err := feed.LoadFromJSONL(*posts)
	if err != nil {
		logger.Fatal("load posts", zap.String("path", *posts), zap.Error(err))
	}
	logger.Info("ingesting posts", zap.Int("count", len(items)))

	var ingested, references, failures int
	for _, item := range items {
		ref, err := engine.IngestPost(ctx, pulso.Post{
			ID:       item.ID,
			AuthorID: item.AuthorID,
			Content:  item.Content,
			Tags:     item.Tags,
		})
		if err != nil {
			logger.Warn("partial ingest", zap.String("post_id", item.ID), zap.Error(err))
			failures++
		}
		if ref != nil {
			references++
		}
		ingested++
		if ingested%500 == 0 {
			logger.Info("progress", zap.Int("ingested", ingested))
		}
	}

	printSummary(ctx, engine, ingested, references, failures)
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func printSummary(ctx context.Context, engine *pulso.Pulso, ingested, references, failures int) {
	fmt.Printf("\nIngested %d posts (%d with references, %d partial failures)\n\n", ingested, references, failures)

	tags, err := engine.TrendingHashtags(ctx, 10)
	if err == nil && len(tags) > 0 {
		fmt.Println("Trending hashtags:")
		for _, tag := range tags {
			fmt.Printf("  #%-20s %d uses\n", tag.Display, tag.UseCount)
		}
		fmt.Println()
	}

	terms, err := engine.TopTerms(ctx, 10)
	if err == nil && len(terms) > 0 {
		fmt.Println("Top terms:")
		for _, term := range terms {
			fmt.Printf("  %-20s %d\n", term.Term, term.TotalCount)
		}
	}

	if failures > 0 {
		os.Exit(1)
	}
}
