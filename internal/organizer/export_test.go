package organizer

// WithFreeSpace stubs the filesystem free space probe.
func WithFreeSpace(fn func(string) (uint64, error)) Option {
	return func(o *Organizer) { o.freeSpace = fn }
}
