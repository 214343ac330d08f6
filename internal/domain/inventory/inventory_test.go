package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregate_SumsDuplicates(t *testing.T) {
	lines := []Line{
		{ProductID: "p1", Quantity: 3},
		{ProductID: "p2", Quantity: 1},
		{ProductID: "p1", Quantity: 4},
	}

	got := Aggregate(lines)

	assert.Equal(t, []Line{
		{ProductID: "p1", Quantity: 7},
		{ProductID: "p2", Quantity: 1},
	}, got)
}

func TestAggregate_PreservesFirstSeenOrder(t *testing.T) {
	lines := []Line{
		{ProductID: "b", Quantity: 1},
		{ProductID: "a", Quantity: 1},
		{ProductID: "b", Quantity: 1},
		{ProductID: "c", Quantity: 2},
	}

	got := Aggregate(lines)

	ids := make([]string, len(got))
	for i, l := range got {
		ids[i] = l.ProductID
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, Aggregate(nil))
}

func TestInsufficientStockError_ListsEveryShortfall(t *testing.T) {
	err := &InsufficientStockError{Shortfalls: []Shortfall{
		{ProductID: "p1", Requested: 7, Available: 5},
		{ProductID: "p9", Requested: 2, Available: 0},
	}}

	msg := err.Error()
	assert.Contains(t, msg, "p1 (requested 7, available 5)")
	assert.Contains(t, msg, "p9 (requested 2, available 0)")
}
