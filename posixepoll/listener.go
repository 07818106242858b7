//go:build linux

package posixepoll

import (
	"golang.org/x/sys/unix"
)

const listenBacklog = 16

// Listen creates a non-blocking IPv4 TCP listening socket bound to
// addr:port, ported directly from the teacher's listenSocket.
func Listen(addr [4]byte, port int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}

	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port, Addr: addr}); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return -1, err
	}

	return fd, nil
}

// AcceptAll registers a readable subscription on listenSock that accepts
// every pending connection on each readable edge and hands the new,
// already-registered non-blocking Socket to onAccept. It is the
// generalized form of the teacher's inline accept branch in StartEpoll,
// moved off the listening fd's own identity check and onto the
// subscribe/callback shape every other Socket uses.
func AcceptAll(loop *Loop, listenFd int, onAccept func(*Socket)) (*Socket, error) {
	listenSock, err := NewSocket(loop, listenFd)
	if err != nil {
		return nil, err
	}

	listenSock.SubscribeReadable(func(err error) {
		if err != nil {
			return
		}
		for {
			nfd, _, aerr := unix.Accept(listenFd)
			if aerr != nil {
				if aerr == unix.EAGAIN {
					return
				}
				return
			}
			unix.SetNonblock(nfd, true)

			conn, serr := NewSocket(loop, nfd)
			if serr != nil {
				unix.Close(nfd)
				continue
			}
			onAccept(conn)
		}
	})

	return listenSock, nil
}
