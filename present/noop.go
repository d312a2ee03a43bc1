package present

// Noop returns the backend that is always available. It accepts every
// frame and displays nothing.
func Noop() Backend {
	return noop{}
}

type noop struct{}

func (noop) Kind() Kind      { return KindNone }
func (noop) Supported() bool { return true }

func (noop) Init(Config) (Surface, error) {
	return noopSurface{}, nil
}

type noopSurface struct{}

func (noopSurface) Present(Frame) error { return nil }
func (noopSurface) Close() error        { return nil }
