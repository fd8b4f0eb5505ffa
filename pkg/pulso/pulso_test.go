package pulso

import (
	"context"
	"testing"

	"github.com/macanudo/pulso/pkg/pulso/ingest"
	"github.com/macanudo/pulso/pkg/pulso/relation"
	"github.com/macanudo/pulso/pkg/pulso/resolve"
	"github.com/macanudo/pulso/pkg/pulso/store/memstore"
)

// fakeClassifier returns a fixed result without any network.
type fakeClassifier struct {
	result ClassifierResult
	calls  int
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) ClassifierResult {
	f.calls++
	return f.result
}

func testPipeline() *ingest.Pipeline {
	catalog := ingest.NewCatalog([]ingest.Topic{
		{Tag: "f1", Keywords: []string{"f1", "fórmula 1", "colapinto"}},
		{Tag: "mate", Keywords: []string{"mate", "termo", "yerba"}},
		{Tag: "futbol", Keywords: []string{"gol", "partido"}},
	})
	return ingest.NewPipeline(ingest.NewTermExtractor(ingest.DefaultStopwords()), catalog)
}

func TestAnalyzePostDictionaryOnly(t *testing.T) {
	p := New(Options{Store: memstore.New(), Pipeline: testPipeline()})

	signals := p.AnalyzePost(context.Background(), "Feliz con mi #F1 y mi mate")

	if len(signals.Hashtags) != 1 || signals.Hashtags[0].Canonical != "f1" {
		t.Errorf("hashtags = %v", signals.Hashtags)
	}
	if len(signals.Tags) != 2 {
		t.Errorf("tags = %v", signals.Tags)
	}
	if signals.ImplicitRef.Present {
		t.Error("no classifier, no implicit reference")
	}
	if signals.AIFallback {
		t.Error("no classifier configured is not a fallback")
	}
}

func TestAnalyzePostValidatesClassifierTopics(t *testing.T) {
	fake := &fakeClassifier{result: ClassifierResult{
		// "futbol" is in the catalog but the text has no keyword evidence;
		// "politica" is not in the catalog at all.
		Topics: []string{"futbol", "politica", "mate"},
	}}
	p := New(Options{Store: memstore.New(), Pipeline: testPipeline(), Classifier: fake})

	signals := p.AnalyzePost(context.Background(), "tomando unos mates")

	for _, tag := range signals.Tags {
		if tag == "futbol" || tag == "politica" {
			t.Errorf("unvalidated tag %q kept", tag)
		}
	}
	found := false
	for _, tag := range signals.Tags {
		if tag == "mate" {
			found = true
		}
	}
	if !found {
		t.Errorf("evidenced tag mate missing: %v", signals.Tags)
	}
}

func TestAnalyzePostMergesAIHashtags(t *testing.T) {
	fake := &fakeClassifier{result: ClassifierResult{
		Hashtags: []string{"Mate", "rondademate", "uno", "otra", "tercera", "cuarta", "quinta", "sexta"},
	}}
	p := New(Options{Store: memstore.New(), Pipeline: testPipeline(), Classifier: fake})

	signals := p.AnalyzePost(context.Background(), "ronda de #Mate")

	// "#Mate" was already extracted, so the suggestion "Mate" deduplicates
	// against it and the rest cap at the default of five.
	if len(signals.Hashtags) != 1+5 {
		t.Fatalf("hashtags = %v", signals.Hashtags)
	}
	if signals.Hashtags[0].Raw != "#Mate" {
		t.Errorf("extracted hashtag must come first: %v", signals.Hashtags[0])
	}
}

func TestAnalyzePostClassifierFallback(t *testing.T) {
	fake := &fakeClassifier{result: FallbackResult()}
	p := New(Options{Store: memstore.New(), Pipeline: testPipeline(), Classifier: fake})

	signals := p.AnalyzePost(context.Background(), "tomando mate")

	if !signals.AIFallback {
		t.Error("fallback flag must surface")
	}
	// Dictionary signals survive.
	if len(signals.Tags) != 1 || signals.Tags[0] != "mate" {
		t.Errorf("tags = %v", signals.Tags)
	}
	if signals.ImplicitRef.Present {
		t.Error("fallback carries no reference judgment")
	}
}

func TestIngestPostWritesSignals(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	p := New(Options{Store: st, Pipeline: testPipeline()})

	ref, err := p.IngestPost(ctx, Post{
		ID:       "p1",
		AuthorID: "ana",
		Content:  "Feliz con mi #F1 y mi mate",
	})
	if err != nil {
		t.Fatal(err)
	}
	if ref != nil {
		t.Error("no classifier, no reference")
	}

	tags, err := p.TrendingHashtags(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 || tags[0].Canonical != "f1" {
		t.Errorf("hashtags = %v", tags)
	}

	terms, err := p.TopTerms(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(terms) == 0 {
		t.Fatal("expected global terms")
	}

	// Topic terms flow from the detected tags.
	f1Terms, err := p.TopicTerms(ctx, "f1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(f1Terms) == 0 {
		t.Error("detected topic should accumulate terms")
	}
}

func TestIngestPostMergesExternalTags(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	p := New(Options{Store: st, Pipeline: testPipeline()})

	_, err := p.IngestPost(ctx, Post{
		ID:       "p1",
		AuthorID: "ana",
		Content:  "lindo día",
		Tags:     []string{"editorial"},
	})
	if err != nil {
		t.Fatal(err)
	}

	terms, err := p.TopicTerms(ctx, "editorial", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(terms) == 0 {
		t.Error("externally assigned tags must reach the topic stats")
	}
}

func TestEndToEndImplicitReference(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	fake := &fakeClassifier{result: ClassifierResult{
		Topics: []string{"mate"},
		ImplicitRef: resolve.ImplicitReference{
			Present:        true,
			Kind:           resolve.KindRomantic,
			TargetIsPerson: true,
		},
	}}
	p := New(Options{Store: st, Pipeline: testPipeline(), Classifier: fake})

	// Interaction history: beto is closest to ana, caro liked once, diego
	// never interacted.
	p.RegisterInteraction(ctx, "ana", "beto", relation.EventFriendAccept)
	p.RegisterInteraction(ctx, "ana", "beto", relation.EventMessage)
	p.RegisterInteraction(ctx, "ana", "caro", relation.EventLike)

	// Reactions on the post before resolving.
	for _, reactor := range []string{"beto", "caro", "diego"} {
		if err := p.RegisterLike(ctx, "p1", reactor, "ana"); err != nil {
			t.Fatal(err)
		}
	}

	ref, err := p.IngestPost(ctx, Post{
		ID:       "p1",
		AuthorID: "ana",
		Content:  "Tomando mate con el más hermoso del mundo",
	})
	if err != nil {
		t.Fatal(err)
	}
	if ref == nil {
		t.Fatal("expected a reference")
	}
	if ref.Label != "possible_love_interest" || ref.Sentiment != "positive" {
		t.Errorf("ref = %+v", ref)
	}

	stored, candidates, ok, err := p.ReferenceForPost(ctx, "p1")
	if err != nil || !ok {
		t.Fatalf("reference lookup: ok=%v err=%v", ok, err)
	}
	if stored.ID != ref.ID {
		t.Errorf("stored %q != created %q", stored.ID, ref.ID)
	}
	// diego reacted but has zero affinity with ana, so two candidates.
	if len(candidates) != 2 {
		t.Fatalf("candidates = %v", candidates)
	}
	if candidates[0].TargetUserID != "beto" {
		t.Errorf("closest relation should rank first: %v", candidates)
	}
	if candidates[0].Confidence <= candidates[1].Confidence {
		t.Errorf("confidence not descending: %v", candidates)
	}

	// The likes also moved the affinity table.
	score, err := p.RelationScore(ctx, "ana", "beto")
	if err != nil {
		t.Fatal(err)
	}
	if score <= 0.25 {
		t.Errorf("score = %v, want friend_accept + message + like", score)
	}

	top, err := p.TopRelations(ctx, "ana", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 || top[0].OtherUserID != "beto" {
		t.Errorf("top relations = %v", top)
	}
}

func TestMergeAIHashtagsTruncation(t *testing.T) {
	merged := mergeAIHashtags(nil, []string{"a", "b", "a", "", "c"}, 2)
	if len(merged) != 2 {
		t.Fatalf("merged = %v", merged)
	}
	if merged[0].Canonical != "a" || merged[1].Canonical != "b" {
		t.Errorf("merged = %v", merged)
	}
}

func TestMergeTags(t *testing.T) {
	out := mergeTags([]string{"a", "b", ""}, []string{"b", "c"})
	if len(out) != 3 {
		t.Errorf("out = %v", out)
	}
}
