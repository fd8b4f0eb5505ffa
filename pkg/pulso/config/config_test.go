package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/macanudo/pulso/pkg/pulso/internalerr"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCatalog(t *testing.T) {
	path := writeFile(t, "topics.yaml", `
topics:
  - tag: f1
    description: Automovilismo
    keywords: ["f1", "fórmula 1", "colapinto"]
  - tag: mate
    keywords: ["mate", "termo"]
`)

	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(cat.Topics) != 2 {
		t.Fatalf("topics = %v", cat.Topics)
	}
	if cat.Topics[0].Tag != "f1" || len(cat.Topics[0].Keywords) != 3 {
		t.Errorf("topic 0 = %+v", cat.Topics[0])
	}
}

func TestLoadCatalogEmptyTag(t *testing.T) {
	path := writeFile(t, "topics.yaml", `
topics:
  - tag: ""
    keywords: ["x"]
`)

	_, err := LoadCatalog(path)
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadCatalogDuplicateTag(t *testing.T) {
	path := writeFile(t, "topics.yaml", `
topics:
  - tag: mate
    keywords: ["mate"]
  - tag: mate
    keywords: ["termo"]
`)

	_, err := LoadCatalog(path)
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadStopwords(t *testing.T) {
	path := writeFile(t, "stopwords.yaml", `
terms: ["el", "la", "de"]
`)

	sw, err := LoadStopwords(path)
	if err != nil {
		t.Fatalf("LoadStopwords: %v", err)
	}
	if len(sw.Terms) != 3 {
		t.Errorf("terms = %v", sw.Terms)
	}
}

func TestLoadWeights(t *testing.T) {
	path := writeFile(t, "weights.yaml", `
events:
  like: 0.02
  repost: 0.07
`)

	w, err := LoadWeights(path)
	if err != nil {
		t.Fatalf("LoadWeights: %v", err)
	}
	if w.Events["repost"] != 0.07 {
		t.Errorf("events = %v", w.Events)
	}
}

func TestLoadWeightsNegative(t *testing.T) {
	path := writeFile(t, "weights.yaml", `
events:
  like: -0.5
`)

	_, err := LoadWeights(path)
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoaderDefaults(t *testing.T) {
	var l Loader

	comp, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if comp.Pipeline == nil || comp.Catalog == nil {
		t.Fatal("defaults must produce working components")
	}
	if comp.Catalog.Len() != 0 {
		t.Errorf("default catalog should be empty, got %d topics", comp.Catalog.Len())
	}
	if comp.Weights["like"] != 0.01 {
		t.Errorf("default weights missing: %v", comp.Weights)
	}

	// Default stopwords apply.
	terms := comp.Pipeline.Extractor().Extract("el mate")
	if len(terms) != 1 || terms[0].Normalized != "mate" {
		t.Errorf("terms = %v", terms)
	}
}

func TestLoaderWithFiles(t *testing.T) {
	catalogPath := writeFile(t, "topics.yaml", `
topics:
  - tag: futbol
    keywords: ["gol", "partido"]
`)
	weightsPath := writeFile(t, "weights.yaml", `
events:
  like: 0.02
`)

	l := Loader{CatalogPath: catalogPath, WeightsPath: weightsPath}
	comp, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !comp.Catalog.Contains("futbol") {
		t.Error("catalog should contain futbol")
	}
	if comp.Weights["like"] != 0.02 {
		t.Errorf("weights = %v", comp.Weights)
	}
	// The file table replaces the defaults entirely.
	if _, ok := comp.Weights["comment"]; ok {
		t.Error("file weights must replace defaults, not merge")
	}
}
