package merger

import (
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/searcher/executor"
)

func TestTopByRank(t *testing.T) {
	in := []executor.Result{
		{DocumentName: "b.txt", Rank: 2},
		{DocumentName: "a.txt", Rank: 2},
		{DocumentName: "c.txt", Rank: 9},
		{DocumentName: "d.txt", Rank: 1},
	}

	got := TopByRank(in, 3)
	want := []executor.Result{
		{DocumentName: "c.txt", Rank: 9},
		{DocumentName: "a.txt", Rank: 2},
		{DocumentName: "b.txt", Rank: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopByRank(3) = %v, want %v", got, want)
	}

	if all := TopByRank(in, 0); len(all) != 4 || all[3].DocumentName != "d.txt" {
		t.Errorf("TopByRank(0) = %v", all)
	}
	if empty := TopByRank(nil, 5); len(empty) != 0 {
		t.Errorf("TopByRank(nil) = %v", empty)
	}
}
