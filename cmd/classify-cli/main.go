// Command classify-cli analyzes a single post text from the command line
// and prints the derived signals as JSON. Useful for poking at a topic
// catalog or an AI endpoint without setting up a database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/macanudo/pulso/internal/llm"
	"github.com/macanudo/pulso/pkg/pulso"
	"github.com/macanudo/pulso/pkg/pulso/config"
	"github.com/macanudo/pulso/pkg/pulso/store/memstore"
)

type output struct {
	Hashtags   []hashtagJSON `json:"hashtags"`
	Tags       []string      `json:"tags"`
	Terms      []termJSON    `json:"terms"`
	Implicit   implicitJSON  `json:"implicit_reference"`
	AIFallback bool          `json:"ai_fallback,omitempty"`
}

type hashtagJSON struct {
	Raw       string `json:"raw"`
	Canonical string `json:"canonical"`
}

type termJSON struct {
	Raw          string `json:"raw"`
	Normalized   string `json:"normalized"`
	IsProperName bool   `json:"is_proper_name,omitempty"`
}

type implicitJSON struct {
	Present        bool   `json:"present"`
	Kind           string `json:"kind"`
	TargetIsPerson bool   `json:"target_is_person"`
}

func main() {
	var (
		topics    = flag.String("topics", "", "Topic catalog YAML (optional)")
		stopwords = flag.String("stopwords", "", "Stopwords YAML (optional)")
		llmBase   = flag.String("llm-base", "", "Optional: OpenAI-compatible endpoint for the AI classifier")
		llmModel  = flag.String("llm-model", "", "Optional: model name for the classifier")
		llmAPIKey = flag.String("llm-api-key", "", "Optional: API key for the classifier endpoint")
	)
	flag.Parse()

	text := strings.Join(flag.Args(), " ")
	if strings.TrimSpace(text) == "" {
		log.Fatal("usage: classify-cli [flags] <post text>")
	}

	loader := config.Loader{CatalogPath: *topics, StopwordsPath: *stopwords}
	comp, err := loader.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var classifier pulso.Classifier
	if *llmBase != "" && *llmModel != "" {
		client := &llm.Client{BaseURL: *llmBase, Model: *llmModel, APIKey: *llmAPIKey}
		classifier = llm.NewClassifier(client, comp.Catalog, nil)
	}

	engine := pulso.New(pulso.Options{
		Store:      memstore.New(),
		Pipeline:   comp.Pipeline,
		Classifier: classifier,
	})
	defer engine.Close()

	signals := engine.AnalyzePost(context.Background(), text)

	out := output{
		Tags:       signals.Tags,
		AIFallback: signals.AIFallback,
		Implicit: implicitJSON{
			Present:        signals.ImplicitRef.Present,
			Kind:           signals.ImplicitRef.Kind,
			TargetIsPerson: signals.ImplicitRef.TargetIsPerson,
		},
	}
	for _, h := range signals.Hashtags {
		out.Hashtags = append(out.Hashtags, hashtagJSON{Raw: h.Raw, Canonical: h.Canonical})
	}
	for _, term := range signals.Terms {
		out.Terms = append(out.Terms, termJSON{
			Raw:          term.Raw,
			Normalized:   term.Normalized,
			IsProperName: term.IsProperName,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode: %v", err)
	}
}
