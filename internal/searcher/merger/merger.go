// Package merger picks the best-ranked results for presentation.
package merger

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/searcher/executor"
)

// TopByRank returns at most limit results ordered by descending rank, ties
// broken by document name. A limit of zero or less keeps everything.
func TopByRank(results []executor.Result, limit int) []executor.Result {
	if limit <= 0 || limit > len(results) {
		limit = len(results)
	}
	h := &resultHeap{}
	heap.Init(h)
	for _, r := range results {
		heap.Push(h, r)
		if h.Len() > limit {
			heap.Pop(h)
		}
	}
	out := make([]executor.Result, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(executor.Result)
	}
	return out
}

// resultHeap is a min-heap on (rank, reversed name) so the weakest result
// is popped first.
type resultHeap []executor.Result

func (h resultHeap) Len() int { return len(h) }

func (h resultHeap) Less(i, j int) bool {
	if h[i].Rank != h[j].Rank {
		return h[i].Rank < h[j].Rank
	}
	return h[i].DocumentName > h[j].DocumentName
}

func (h resultHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *resultHeap) Push(x any) {
	*h = append(*h, x.(executor.Result))
}

func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
