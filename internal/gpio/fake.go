package gpio

import "errors"

// FakeReader is a test double that returns scripted button levels.
type FakeReader struct {
	// Samples contains scripted (a, b) values to return.
	// Each call to Read() consumes the next sample.
	Samples []Sample

	// index tracks current position in Samples
	index int

	// Reads counts calls to Read.
	Reads int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// Sample represents a single reading of both buttons (true = pressed).
type Sample struct {
	A bool
	B bool
}

// Repeat returns n copies of s, for building long scripted holds.
func Repeat(s Sample, n int) []Sample {
	out := make([]Sample, n)
	for i := range out {
		out[i] = s
	}
	return out
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Sample) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) Read() (bool, bool, error) {
	f.Reads++
	if f.ReadError != nil {
		return false, false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample.A, sample.B, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Reads = 0
	f.Closed = false
}
