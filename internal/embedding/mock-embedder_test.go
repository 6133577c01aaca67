package embedding

import (
	"context"
	"math"
	"testing"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(64)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "Senior Go backend engineer")
	b, _ := e.Embed(ctx, "Senior Go backend engineer")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding differs at %d", i)
		}
	}
	var sum float64
	for _, v := range a {
		sum += float64(v * v)
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Errorf("norm^2=%v, want 1", sum)
	}
}

func TestMockEmbedder_SharedWordsAreCloser(t *testing.T) {
	e := NewMockEmbedder(256)
	ctx := context.Background()
	resume, _ := e.Embed(ctx, "Senior Go backend engineer with Kubernetes")
	query, _ := e.Embed(ctx, "Go backend engineer")
	other, _ := e.Embed(ctx, "Pastry chef and bakery manager")
	if cosine(resume, query) <= cosine(resume, other) {
		t.Errorf("expected overlapping text to score higher: %v vs %v", cosine(resume, query), cosine(resume, other))
	}
}

func TestMockEmbedder_Blank(t *testing.T) {
	e := NewMockEmbedder(8)
	v, err := e.Embed(context.Background(), "   ")
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 8 || v[0] != 1 {
		t.Errorf("blank embedding=%v", v)
	}
}
