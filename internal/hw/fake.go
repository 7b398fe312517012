package hw

import "sync"

// FakeFan records duty cycle writes for tests.
type FakeFan struct {
	mu     sync.Mutex
	writes []float64
	closed bool
	Err    error
}

func (f *FakeFan) SetDutyCycle(offRatio float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return f.Err
	}
	f.writes = append(f.writes, offRatio)

	return nil
}

func (f *FakeFan) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true

	return nil
}

func (f *FakeFan) Writes() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]float64, len(f.writes))
	copy(out, f.writes)

	return out
}

// FakeButton replays a scripted sequence of levels, then holds the last
// one.
type FakeButton struct {
	mu     sync.Mutex
	Levels []bool
	pos    int
}

func (b *FakeButton) Read() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.Levels) == 0 {
		return true, nil
	}
	level := b.Levels[min(b.pos, len(b.Levels)-1)]
	b.pos++

	return level, nil
}

func (b *FakeButton) Close() error {
	return nil
}

// FakeSensor returns a fixed temperature, or an error when Err is set.
type FakeSensor struct {
	Temp float64
	Err  error
}

func (s *FakeSensor) Read() (float64, error) {
	if s.Err != nil {
		return 0, s.Err
	}

	return s.Temp, nil
}
