package dedupe

// Option applies a configuration option to the digest deduper.
type Option func(*digestDeduper)

// WithHashFunc replaces the payload digest function.
func WithHashFunc(fn func([]byte) uint64) Option {
	return func(d *digestDeduper) {
		if fn != nil {
			d.hash = fn
		}
	}
}
