//go:build !unix

package errclass

// classifyPlatform on non-unix platforms (this core ships a concrete
// transport adapter for Linux only; see posixepoll) always falls back to
// Generic. A Windows build would mirror unix.go against
// golang.org/x/sys/windows's WSAE* constants.
func classifyPlatform(err error) Kind {
	return Generic
}
