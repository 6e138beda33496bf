package matching

import (
	"reflect"
	"testing"

	"github.com/trgnexus/platform/services/network-service/internal/model"
)

func TestTopMatchHighestRating(t *testing.T) {
	candidates := []model.Therapist{
		{ID: "a", Rating: 4.8},
		{ID: "b", Rating: 4.9},
		{ID: "c", Rating: 4.2},
	}
	top, ok := TopMatch(candidates)
	if !ok {
		t.Fatal("expected a match")
	}
	if top.ID != "b" {
		t.Fatalf("top match = %s (%.1f), want b (4.9)", top.ID, top.Rating)
	}
}

func TestTopMatchEmpty(t *testing.T) {
	if _, ok := TopMatch(nil); ok {
		t.Fatal("expected no match for empty candidate set")
	}
}

func TestRankIsStableOnTies(t *testing.T) {
	candidates := []model.Therapist{
		{ID: "first", Rating: 4.5},
		{ID: "second", Rating: 4.5},
		{ID: "third", Rating: 4.5},
	}
	ranked := Rank(candidates)
	got := []string{ranked[0].ID, ranked[1].ID, ranked[2].ID}
	want := []string{"first", "second", "third"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tie order = %v, want input order %v", got, want)
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	candidates := []model.Therapist{
		{ID: "a", Rating: 1.0},
		{ID: "b", Rating: 5.0},
	}
	_ = Rank(candidates)
	if candidates[0].ID != "a" || candidates[1].ID != "b" {
		t.Fatal("Rank must not reorder its input slice")
	}
}

func TestRankOrdersDescending(t *testing.T) {
	candidates := []model.Therapist{
		{ID: "low", Rating: 3.1},
		{ID: "high", Rating: 4.9},
		{ID: "mid", Rating: 4.0},
		{ID: "mid2", Rating: 4.0},
	}
	ranked := Rank(candidates)
	got := []string{ranked[0].ID, ranked[1].ID, ranked[2].ID, ranked[3].ID}
	want := []string{"high", "mid", "mid2", "low"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}
