package sound

// Sound is a playable handle produced by the first driver and source that
// succeeded for a request
type Sound interface {
	// Play starts playback from the beginning
	Play()

	// Stop halts playback
	Stop()

	// Close releases the underlying playback primitive
	Close() error
}

// Funcs builds a Sound from plain functions. Nil functions are no-ops.
type Funcs struct {
	PlayFunc  func()
	StopFunc  func()
	CloseFunc func() error
}

var _ Sound = Funcs{}

func (f Funcs) Play() {
	if f.PlayFunc != nil {
		f.PlayFunc()
	}
}

func (f Funcs) Stop() {
	if f.StopFunc != nil {
		f.StopFunc()
	}
}

func (f Funcs) Close() error {
	if f.CloseFunc != nil {
		return f.CloseFunc()
	}
	return nil
}
