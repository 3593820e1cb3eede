package store

import (
	"context"
	"reflect"
	"testing"
	"time"

	"latmrg/merit"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunsAndCandidates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := &Run{Kind: "lattest", Generator: "lcg m=2^31-1 k=1 a=(16807)", Test: "spectral(dual,L2,bestlat)", Dims: []int{8}, Merit: 0.3375, Elapsed: 1500 * time.Microsecond}
	if err := s.SaveRun(ctx, first); err != nil {
		t.Fatal(err)
	}
	if first.ID == "" {
		t.Fatalf("no id assigned")
	}
	second := &Run{Kind: "seek", Generator: "mrg m=1021 k=2", Test: "spectral(dual,L2,bestlat)", Dims: []int{8, 6}, Merit: 0.71, CreatedAt: first.CreatedAt.Add(time.Second)}
	if err := s.SaveRun(ctx, second); err != nil {
		t.Fatal(err)
	}

	cands := []Candidate{
		{Rank: 1, Generator: "mrg m=1021 k=2 a=(3 5)", Coefficients: "3 5", Merit: 0.71, Worst: []int{1, 4},
			Values: []merit.ProjValue{{Coords: []int{1, 2, 3}, Raw: 7.1, Value: 0.8}, {Coords: []int{1, 4}, Raw: 3, Value: 0.71}}},
		{Rank: 2, Generator: "mrg m=1021 k=2 a=(7 2)", Coefficients: "7 2", Merit: 0.65, Worst: []int{1, 2, 3, 4}},
	}
	if err := s.SaveCandidates(ctx, second.ID, cands); err != nil {
		t.Fatal(err)
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != first.ID || runs[1].ID != second.ID {
		t.Fatalf("unexpected runs %+v", runs)
	}
	if runs[0].Elapsed != first.Elapsed || !reflect.DeepEqual(runs[1].Dims, []int{8, 6}) {
		t.Fatalf("round trip lost data: %+v", runs)
	}

	got, err := s.Candidates(ctx, second.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Coefficients != "3 5" || !reflect.DeepEqual(got[0].Worst, []int{1, 4}) {
		t.Fatalf("unexpected candidates %+v", got)
	}
	if !reflect.DeepEqual(got[0].Values, cands[0].Values) {
		t.Fatalf("values %+v want %+v", got[0].Values, cands[0].Values)
	}

	if err := s.DeleteRun(ctx, second.ID); err != nil {
		t.Fatal(err)
	}
	got, err = s.Candidates(ctx, second.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("candidates survived their run")
	}
}

func TestCandidatesNeedRun(t *testing.T) {
	s := newTestStore(t)
	err := s.SaveCandidates(context.Background(), "missing", []Candidate{{Rank: 1, Generator: "g", Coefficients: "1"}})
	if err == nil {
		t.Fatalf("candidate without run accepted")
	}
}

func TestSaveResultNumbersCandidates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	run := &Run{Kind: "seek", Generator: "mrg m=1021 k=1", Test: "spectral", Dims: []int{8}, Merit: 0.9}
	cands := []Candidate{
		{Generator: "a", Coefficients: "65", Merit: 0.9},
		{Generator: "b", Coefficients: "209", Merit: 0.8},
		{Generator: "c", Coefficients: "331", Merit: 0.7},
	}
	if err := s.SaveResult(ctx, run, cands); err != nil {
		t.Fatal(err)
	}
	got, err := s.Candidates(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d candidates, want 3", len(got))
	}
	for i, c := range got {
		if c.Rank != i+1 || c.Coefficients != cands[i].Coefficients {
			t.Fatalf("candidate %d: %+v", i, c)
		}
	}
}

func TestSaveResultIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	run := &Run{Kind: "seek", Generator: "g", Test: "spectral", Dims: []int{8}}
	dup := []Candidate{{Rank: 1, Generator: "a"}, {Rank: 1, Generator: "b"}}
	if err := s.SaveResult(ctx, run, dup); err == nil {
		t.Fatalf("duplicate rank accepted")
	}
	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Fatalf("run left behind after failed insert: %+v", runs)
	}
}
