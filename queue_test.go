package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriorityQueueOrder(t *testing.T) {
	var order []string

	q := NewPriorityQueue()
	q.Add(func(Args) (interface{}, error) {
		order = append(order, "low")
		return nil, nil
	}, 1)
	q.Add(func(Args) (interface{}, error) {
		order = append(order, "high-a")
		return nil, nil
	}, 10)
	q.Add(func(Args) (interface{}, error) {
		order = append(order, "high-b")
		return nil, nil
	}, 10)

	status, err := q.Run(Args{})
	assert.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, []string{"high-a", "high-b", "low"}, order)
}

func TestPriorityQueueAbort(t *testing.T) {
	var ran []string

	q := NewPriorityQueue()
	q.Add(func(Args) (interface{}, error) {
		ran = append(ran, "first")
		return false, nil
	}, 10)
	q.Add(func(Args) (interface{}, error) {
		ran = append(ran, "second")
		return nil, nil
	}, 1)

	status, err := q.Run(Args{})
	assert.NoError(t, err)
	assert.Equal(t, StatusAbort, status)
	assert.Equal(t, []string{"first"}, ran)
}

func TestPriorityQueueError(t *testing.T) {
	q := NewPriorityQueue()
	q.Add(func(Args) (interface{}, error) {
		return nil, errors.New("boom")
	}, 0)

	status, err := q.Run(Args{})
	assert.Error(t, err)
	assert.Equal(t, StatusError, status)
}

func TestPriorityQueueEmpty(t *testing.T) {
	q := NewPriorityQueue()
	status, err := q.Run(Args{})
	assert.NoError(t, err)
	assert.Equal(t, StatusNotFound, status)
}

func TestPriorityQueuePushShift(t *testing.T) {
	var order []string

	q := NewPriorityQueue()
	q.Add(func(Args) (interface{}, error) {
		order = append(order, "middle")
		return nil, nil
	}, 0)
	q.Push(func(Args) (interface{}, error) {
		order = append(order, "last")
		return nil, nil
	})
	q.Shift(func(Args) (interface{}, error) {
		order = append(order, "first")
		return nil, nil
	})

	_, err := q.Run(Args{})
	assert.NoError(t, err)
	assert.Equal(t, []string{"first", "middle", "last"}, order)
}
