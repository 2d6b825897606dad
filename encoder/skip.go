package encoder

import (
	"errors"

	ts "github.com/sugarme/gotch/tensor"
)

// ErrSkipUnderflow is returned when a skip tensor is requested from an
// empty stack.
var ErrSkipUnderflow = errors.New("skip stack is empty")

// SkipStack hands pre-pool encoder features to the expansion path in
// last-in-first-out order. Each tensor is handed out exactly once; the
// receiver owns it after Pop.
type SkipStack struct {
	items []*ts.Tensor
}

// NewSkipStack creates an empty stack with room for n tensors.
func NewSkipStack(n int) *SkipStack {
	return &SkipStack{items: make([]*ts.Tensor, 0, n)}
}

// Push stores x on top of the stack.
func (s *SkipStack) Push(x *ts.Tensor) {
	s.items = append(s.items, x)
}

// Pop removes and returns the most recently pushed tensor.
func (s *SkipStack) Pop() (*ts.Tensor, error) {
	if len(s.items) == 0 {
		return nil, ErrSkipUnderflow
	}
	last := len(s.items) - 1
	x := s.items[last]
	s.items[last] = nil
	s.items = s.items[:last]
	return x, nil
}

// Len is the number of tensors not yet consumed.
func (s *SkipStack) Len() int {
	return len(s.items)
}

// Drop releases every tensor still on the stack.
func (s *SkipStack) Drop() {
	for len(s.items) > 0 {
		x, _ := s.Pop()
		x.MustDrop()
	}
}
