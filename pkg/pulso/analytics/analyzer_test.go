package analytics

import (
	"testing"

	"github.com/macanudo/pulso/pkg/pulso/ingest"
)

func testPipeline() *ingest.Pipeline {
	catalog := ingest.NewCatalog([]ingest.Topic{
		{Tag: "mate", Keywords: []string{"mate", "termo"}},
		{Tag: "futbol", Keywords: []string{"gol", "partido"}},
	})
	return ingest.NewPipeline(ingest.NewTermExtractor(ingest.DefaultStopwords()), catalog)
}

func TestAnalyzerCounts(t *testing.T) {
	p := testPipeline()
	a := NewAnalyzer()

	posts := []string{
		"tomando mate con amigos #Mate",
		"mate amargo y bizcochitos",
		"golazo en el partido #Boca",
	}
	for _, post := range posts {
		a.Process(p.Process(post))
	}

	stats := a.Snapshot()
	if stats.TotalPosts != 3 {
		t.Errorf("total posts = %d", stats.TotalPosts)
	}
	if stats.TermDF["mate"] != 2 {
		t.Errorf("mate DF = %d, want 2", stats.TermDF["mate"])
	}
	if stats.Hashtags["mate"] != 1 || stats.Hashtags["boca"] != 1 {
		t.Errorf("hashtags = %v", stats.Hashtags)
	}
	if stats.Topics["mate"] != 2 || stats.Topics["futbol"] != 1 {
		t.Errorf("topics = %v", stats.Topics)
	}
}

func TestAnalyzerDedupesTermsPerPost(t *testing.T) {
	p := testPipeline()
	a := NewAnalyzer()

	a.Process(p.Process("mate mate mate"))

	stats := a.Snapshot()
	if stats.TermDF["mate"] != 1 {
		t.Errorf("DF counts posts, not occurrences: %d", stats.TermDF["mate"])
	}
}

func TestAnalyzerTermTopics(t *testing.T) {
	p := testPipeline()
	a := NewAnalyzer()

	a.Process(p.Process("cebando mate con el termo"))

	stats := a.Snapshot()
	if stats.TermTopics["cebando"]["mate"] != 1 {
		t.Errorf("term topics = %v", stats.TermTopics)
	}
}

func TestTopTermsRanking(t *testing.T) {
	p := testPipeline()
	a := NewAnalyzer()

	a.Process(p.Process("asado rico"))
	a.Process(p.Process("asado otra vez"))
	a.Process(p.Process("Asado siempre"))

	top := a.Snapshot().TopTerms(2)
	if len(top) != 2 {
		t.Fatalf("top = %v", top)
	}
	if top[0].Key != "asado" || top[0].Count != 3 {
		t.Errorf("top[0] = %+v", top[0])
	}
	// Display keeps the first raw spelling.
	if top[0].Display != "asado" {
		t.Errorf("display = %q", top[0].Display)
	}
}

func TestRelatedTerms(t *testing.T) {
	p := testPipeline()
	a := NewAnalyzer()

	// "yerba" and "cebada" always travel together; the filler posts push
	// the corpus size up so the association stands out from chance.
	a.Process(p.Process("yerba cebada"))
	a.Process(p.Process("yerba cebada"))
	a.Process(p.Process("solo"))
	a.Process(p.Process("otro"))
	a.Process(p.Process("tema"))

	pairs := a.Snapshot().RelatedTerms(10, 2)
	if len(pairs) != 1 {
		t.Fatalf("pairs = %v", pairs)
	}
	if pairs[0].Support != 2 {
		t.Errorf("support = %d", pairs[0].Support)
	}
	if pairs[0].PMI <= 0 {
		t.Errorf("strongly associated pair should have positive PMI: %v", pairs[0].PMI)
	}
}

func TestRelatedTermsMinSupport(t *testing.T) {
	p := testPipeline()
	a := NewAnalyzer()

	a.Process(p.Process("una sola vez juntos"))

	if pairs := a.Snapshot().RelatedTerms(10, 2); len(pairs) != 0 {
		t.Errorf("pairs below min support must be dropped: %v", pairs)
	}
}

func TestAnalyzerEmpty(t *testing.T) {
	a := NewAnalyzer()

	stats := a.Snapshot()
	if stats.TotalPosts != 0 || len(stats.TermDF) != 0 {
		t.Errorf("empty analyzer stats = %+v", stats)
	}
	if stats.RelatedTerms(10, 1) != nil {
		t.Error("no posts, no pairs")
	}
}
