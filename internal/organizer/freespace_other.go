//go:build !(linux || darwin || freebsd)

package organizer

func availableBytes(string) (uint64, error) {
	return 0, errFreeSpaceUnknown
}
