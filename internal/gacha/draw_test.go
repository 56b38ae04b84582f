package gacha_test

import (
	"testing"

	"github.com/xtding233/gacha-stage/internal/gacha"
)

func TestDrawBounds(t *testing.T) {
	got, err := gacha.Draw(0, gacha.NewSeededRNG(1))
	if err != nil || got {
		t.Fatalf("p=0 should never hit; got=%v err=%v", got, err)
	}
	got, err = gacha.Draw(1, gacha.NewSeededRNG(1))
	if err != nil || !got {
		t.Fatalf("p=1 should always hit; got=%v err=%v", got, err)
	}
	if _, err := gacha.Draw(-0.1, nil); err == nil {
		t.Fatalf("negative p must error")
	}
	if _, err := gacha.Draw(1.1, nil); err == nil {
		t.Fatalf("p>1 must error")
	}
}

func TestDrawStatApprox(t *testing.T) {
	const p = 0.3
	const n = 100000
	rng := gacha.NewSeededRNG(42)
	hit := 0
	for i := 0; i < n; i++ {
		ok, err := gacha.Draw(p, rng)
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			hit++
		}
	}
	freq := float64(hit) / float64(n)
	if diff := freq - p; diff > 0.01 || diff < -0.01 {
		t.Fatalf("freq=%f not close to p=%f", freq, p)
	}
}

func TestPickStaysInRange(t *testing.T) {
	rng := gacha.NewSeededRNG(7)
	seen := make(map[int]bool)
	for i := 0; i < 10000; i++ {
		idx := gacha.Pick(rng, 5)
		if idx < 0 || idx >= 5 {
			t.Fatalf("index %d out of range", idx)
		}
		seen[idx] = true
	}
	if len(seen) != 5 {
		t.Fatalf("expected every index to be picked, got %v", seen)
	}
	if gacha.Pick(rng, 0) != 0 || gacha.Pick(rng, 1) != 0 {
		t.Fatalf("degenerate pools must pick index 0")
	}
}
