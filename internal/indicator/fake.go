package indicator

// FakeLine records written values for test assertions.
type FakeLine struct {
	Values   []int
	SetError error
	Closed   bool
}

// SetValue records value.
func (f *FakeLine) SetValue(value int) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Values = append(f.Values, value)
	return nil
}

// Close marks the line as closed.
func (f *FakeLine) Close() error {
	f.Closed = true
	return nil
}

// Value returns the last written value, or -1 if none.
func (f *FakeLine) Value() int {
	if len(f.Values) == 0 {
		return -1
	}
	return f.Values[len(f.Values)-1]
}
