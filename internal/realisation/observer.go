package realisation

import "log/slog"

// LoadObserver receives progress from LoadFolder. It is diagnostic only and
// never influences what is loaded.
type LoadObserver interface {
	// Loaded fires once per visited subdirectory with the number of
	// realisations taken from it.
	Loaded(subdir string, n int)
	// Done fires once after a successful load with the total count.
	Done(root string, total int)
}

type NopObserver struct{}

func (NopObserver) Loaded(string, int) {}
func (NopObserver) Done(string, int)   {}

// LogObserver reports load progress through a structured logger.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) Loaded(subdir string, n int) {
	o.logger().Debug("loaded subdirectory", "subdir", subdir, "realisations", n)
}

func (o LogObserver) Done(root string, total int) {
	o.logger().Info("loaded realisations", "root", root, "realisations", total)
}

func (o LogObserver) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// MultiObserver fans progress out to several observers in order.
type MultiObserver []LoadObserver

func (m MultiObserver) Loaded(subdir string, n int) {
	for _, o := range m {
		if o != nil {
			o.Loaded(subdir, n)
		}
	}
}

func (m MultiObserver) Done(root string, total int) {
	for _, o := range m {
		if o != nil {
			o.Done(root, total)
		}
	}
}
