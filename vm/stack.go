package vm

// Stack is an operand/locals stack. Frames address locals as base+index;
// open upvalues reach back into it the same way.
type Stack struct {
	data []Value
}

// NewStack creates a stack with the given initial capacity.
func NewStack(capacity int) *Stack {
	return &Stack{data: make([]Value, 0, capacity)}
}

// Len returns the number of values on the stack.
func (s *Stack) Len() int {
	return len(s.data)
}

// Push appends v.
func (s *Stack) Push(v Value) {
	s.data = append(s.data, v)
}

// Pop removes and returns the top value.
func (s *Stack) Pop() Value {
	n := len(s.data)
	if n == 0 {
		panic("Stack.Pop: empty stack")
	}
	v := s.data[n-1]
	s.data[n-1] = Value{}
	s.data = s.data[:n-1]
	return v
}

// Top returns the top value without removing it.
func (s *Stack) Top() Value {
	if len(s.data) == 0 {
		panic("Stack.Top: empty stack")
	}
	return s.data[len(s.data)-1]
}

// Get returns the value at absolute index i.
func (s *Stack) Get(i int) Value {
	if i < 0 || i >= len(s.data) {
		panic("Stack.Get: index out of range")
	}
	return s.data[i]
}

// Set stores v at absolute index i.
func (s *Stack) Set(i int, v Value) {
	if i < 0 || i >= len(s.data) {
		panic("Stack.Set: index out of range")
	}
	s.data[i] = v
}

// Truncate drops everything above absolute index n.
func (s *Stack) Truncate(n int) {
	if n < 0 || n > len(s.data) {
		panic("Stack.Truncate: index out of range")
	}
	for i := n; i < len(s.data); i++ {
		s.data[i] = Value{}
	}
	s.data = s.data[:n]
}
