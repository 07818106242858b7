// Command echotail wires posixepoll, sockettail, and uri together into a
// minimal TCP echo service: the same shape as the teacher's server.go
// Test() function, generalized from a fixed HTTP router demo into this
// module's own domain. Every connection's socket channel handler bounces
// whatever it reads straight back out, so the demo exercises the full
// read-window/write-queue/shutdown path without needing a real upstream
// protocol handler above sockettail.
package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/0xflotus/aws-c-io/pipeline"
	"github.com/0xflotus/aws-c-io/posixepoll"
	"github.com/0xflotus/aws-c-io/sockettail"
	"github.com/0xflotus/aws-c-io/uri"
)

func main() {
	listenURI := flag.String("listen", "tcp://127.0.0.1:8080", "address to listen on, as a tcp:// URI")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	sl := sockettail.NewSLogger(logger)

	addr, port, err := parseListenURI(*listenURI)
	if err != nil {
		logger.Error("echotail: bad -listen value", "error", err, "value", *listenURI)
		os.Exit(1)
	}

	loop, err := posixepoll.NewLoop()
	if err != nil {
		logger.Error("echotail: NewLoop", "error", err)
		os.Exit(1)
	}
	loop.SetLogger(sl)

	listenFd, err := posixepoll.Listen(addr, port)
	if err != nil {
		logger.Error("echotail: Listen", "error", err)
		os.Exit(1)
	}

	pool := pipeline.NewPool(sockettail.DefaultMaxReadSize)

	if _, err := posixepoll.AcceptAll(loop, listenFd, func(conn *posixepoll.Socket) {
		slot := newEchoSlot(loop, pool)
		handler := sockettail.New(conn, slot, sockettail.Config{
			MaxReadSize: sockettail.DefaultMaxReadSize,
			Logger:      sl,
		})
		slot.handler = handler
		if err := handler.IncrementReadWindow(sockettail.DefaultMaxReadSize); err != nil {
			logger.Error("echotail: IncrementReadWindow", "error", err)
		}
	}); err != nil {
		logger.Error("echotail: AcceptAll", "error", err)
		os.Exit(1)
	}

	logger.Info("echotail: listening", "addr", addr, "port", port)

	go func() {
		if err := loop.Run(); err != nil {
			logger.Error("echotail: loop stopped", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	loop.Shutdown(nil)
}

// parseListenURI pulls a dotted-quad host and port out of a tcp:// URI
// using the uri package, rather than hand-rolling another address
// parser for this one command.
func parseListenURI(raw string) (addr [4]byte, port int, err error) {
	u, err := uri.Parse([]byte(raw))
	if err != nil {
		return addr, 0, err
	}
	defer u.Release()

	host := u.HostName()
	octets := splitIPv4(host)
	if octets == nil {
		return addr, 0, uri.ErrMalformedInput
	}
	copy(addr[:], octets)
	return addr, int(u.Port()), nil
}

func splitIPv4(host []byte) []byte {
	var out [4]byte
	idx := 0
	start := 0
	for i := 0; i <= len(host); i++ {
		if i == len(host) || host[i] == '.' {
			if idx >= 4 {
				return nil
			}
			n, ok := parseByte(host[start:i])
			if !ok {
				return nil
			}
			out[idx] = n
			idx++
			start = i + 1
		}
	}
	if idx != 4 {
		return nil
	}
	return out[:]
}

func parseByte(s []byte) (byte, bool) {
	if len(s) == 0 || len(s) > 3 {
		return 0, false
	}
	var v int
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + int(c-'0')
	}
	if v > 255 {
		return 0, false
	}
	return byte(v), true
}
