package datastructure

import (
	"math/rand"
	"testing"
)

func TestHeapExtractsInRankOrder(t *testing.T) {
	h := NewFourAryHeap[AstarQueryKey]()
	rng := rand.New(rand.NewSource(7))

	n := 200
	for i := 0; i < n; i++ {
		h.Insert(NewPriorityQueueNode(rng.Float64()*1000,
			NewAstarQueryKey(Index(i), 100)))
	}

	prev := -1.0
	for !h.IsEmpty() {
		node, err := h.ExtractMin()
		if err != nil {
			t.Fatalf("extract failed: %v", err)
		}
		if node.GetRank() < prev {
			t.Fatalf("rank %f extracted after %f", node.GetRank(), prev)
		}
		prev = node.GetRank()
	}
}

func TestHeapDecreaseKey(t *testing.T) {
	h := NewFourAryHeap[AstarQueryKey]()

	a := NewPriorityQueueNode(10.0, NewAstarQueryKey(1, 100))
	b := NewPriorityQueueNode(20.0, NewAstarQueryKey(2, 100))
	h.Insert(a)
	h.Insert(b)

	if err := h.DecreaseKey(b, 5.0); err != nil {
		t.Fatalf("decrease key failed: %v", err)
	}

	min, _ := h.ExtractMin()
	item := min.GetItem()
	if item.GetNode() != 2 {
		t.Errorf("decreased node should pop first, got %d", item.GetNode())
	}

	// increasing the rank is not a decrease
	if err := h.DecreaseKey(a, 50.0); err == nil {
		t.Error("increasing rank must be rejected")
	}
}

func TestHeapEmpty(t *testing.T) {
	h := NewFourAryHeap[AstarQueryKey]()
	if _, err := h.ExtractMin(); err == nil {
		t.Error("extract on empty heap must fail")
	}
	if !h.IsEmpty() {
		t.Error("new heap should be empty")
	}
}
