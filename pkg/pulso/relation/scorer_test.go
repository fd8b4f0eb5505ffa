package relation

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/macanudo/pulso/pkg/pulso/store/memstore"
)

func TestRegisterAccumulates(t *testing.T) {
	ctx := context.Background()
	s := NewScorer(memstore.New(), nil)

	if err := s.Register(ctx, "u1", "u2", EventLike); err != nil {
		t.Fatal(err)
	}
	if err := s.Register(ctx, "u2", "u1", EventComment); err != nil {
		t.Fatal(err)
	}

	score, err := s.Score(ctx, "u1", "u2")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(score-0.04) > 1e-9 {
		t.Errorf("score = %v, want 0.04", score)
	}
}

func TestScoreSymmetric(t *testing.T) {
	ctx := context.Background()
	s := NewScorer(memstore.New(), nil)

	if err := s.Register(ctx, "ana", "beto", EventMessage); err != nil {
		t.Fatal(err)
	}

	ab, _ := s.Score(ctx, "ana", "beto")
	ba, _ := s.Score(ctx, "beto", "ana")
	if ab != ba {
		t.Errorf("score not symmetric: %v vs %v", ab, ba)
	}
	if ab != 0.05 {
		t.Errorf("score = %v, want 0.05", ab)
	}
}

func TestScoreSelfAndUnknown(t *testing.T) {
	ctx := context.Background()
	s := NewScorer(memstore.New(), nil)

	if score, _ := s.Score(ctx, "u1", "u1"); score != 1 {
		t.Errorf("self score = %v, want 1", score)
	}
	if score, _ := s.Score(ctx, "u1", "u2"); score != 0 {
		t.Errorf("unknown pair score = %v, want 0", score)
	}
}

func TestRegisterNoOps(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	s := NewScorer(st, nil)

	// Self-interaction, empty ids and unknown events leave no trace.
	if err := s.Register(ctx, "u1", "u1", EventLike); err != nil {
		t.Fatal(err)
	}
	if err := s.Register(ctx, "", "u2", EventLike); err != nil {
		t.Fatal(err)
	}
	if err := s.Register(ctx, "u1", "", EventLike); err != nil {
		t.Fatal(err)
	}
	if err := s.Register(ctx, "u1", "u2", "poke"); err != nil {
		t.Fatal(err)
	}

	rels, err := st.RelationsForUser(ctx, "u1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rels) != 0 {
		t.Errorf("expected no relations, got %v", rels)
	}
}

func TestScoreSaturatesAtOne(t *testing.T) {
	ctx := context.Background()
	s := NewScorer(memstore.New(), nil)

	// 0.2 per accepted friendship; six of them would exceed 1.
	for i := 0; i < 200; i++ {
		if err := s.Register(ctx, "u1", "u2", EventFriendAccept); err != nil {
			t.Fatal(err)
		}
	}

	score, err := s.Score(ctx, "u1", "u2")
	if err != nil {
		t.Fatal(err)
	}
	if score != 1 {
		t.Errorf("score = %v, want exactly 1", score)
	}
}

func TestCustomWeights(t *testing.T) {
	ctx := context.Background()
	s := NewScorer(memstore.New(), Weights{"boost": 0.5})

	if err := s.Register(ctx, "u1", "u2", "boost"); err != nil {
		t.Fatal(err)
	}
	// Default events are unknown under a custom table.
	if err := s.Register(ctx, "u1", "u2", EventLike); err != nil {
		t.Fatal(err)
	}

	score, _ := s.Score(ctx, "u1", "u2")
	if score != 0.5 {
		t.Errorf("score = %v, want 0.5", score)
	}
}

func TestTopResolvesOtherParty(t *testing.T) {
	ctx := context.Background()
	s := NewScorer(memstore.New(), nil)

	// "zoe" sorts after "mia" in the pair key; "abel" sorts before.
	s.Register(ctx, "mia", "zoe", EventFriendAccept)
	s.Register(ctx, "mia", "abel", EventLike)

	top, err := s.Top(ctx, "mia", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 relations, got %d", len(top))
	}
	if top[0].OtherUserID != "zoe" || top[0].Score != 0.2 {
		t.Errorf("top[0] = %+v", top[0])
	}
	if top[1].OtherUserID != "abel" || top[1].Score != 0.01 {
		t.Errorf("top[1] = %+v", top[1])
	}
}

func TestRegisterConcurrent(t *testing.T) {
	// The register path is read-clamp-write, so concurrent increments may
	// be lost. The invariants that must survive are the bounds and a score
	// reflecting at least one increment.
	ctx := context.Background()
	s := NewScorer(memstore.New(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Register(ctx, "u1", "u2", EventLike)
		}()
	}
	wg.Wait()

	score, err := s.Score(ctx, "u1", "u2")
	if err != nil {
		t.Fatal(err)
	}
	if score < 0.01 || score > 0.5+1e-9 {
		t.Errorf("score = %v, want within (0, 0.5]", score)
	}
}

func TestOrderPair(t *testing.T) {
	a, b := OrderPair("zoe", "abel")
	if a != "abel" || b != "zoe" {
		t.Errorf("OrderPair = (%q, %q)", a, b)
	}
	a, b = OrderPair("abel", "zoe")
	if a != "abel" || b != "zoe" {
		t.Errorf("OrderPair = (%q, %q)", a, b)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(-0.1) != 0 {
		t.Error("negative scores clamp to 0")
	}
	if Clamp(1.5) != 1 {
		t.Error("scores above 1 clamp to 1")
	}
	if Clamp(0.42) != 0.42 {
		t.Error("in-range scores pass through")
	}
}
