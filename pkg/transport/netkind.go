package transport

import (
	stderrors "errors"
	"io"
	"net"
	"syscall"
)

// Network failure classes reported in RequestError.NetKind.
const (
	NetKindDNS     = "dns"
	NetKindRefused = "connection refused"
	NetKindReset   = "connection reset"
	NetKindClosed  = "connection closed"
	NetKindTLS     = "tls"
	NetKindOther   = "network"
)

func networkKind(err error) string {
	var dnsErr *net.DNSError
	switch {
	case stderrors.As(err, &dnsErr):
		return NetKindDNS
	case stderrors.Is(err, syscall.ECONNREFUSED):
		return NetKindRefused
	case stderrors.Is(err, syscall.ECONNRESET):
		return NetKindReset
	case stderrors.Is(err, io.EOF), stderrors.Is(err, io.ErrUnexpectedEOF):
		return NetKindClosed
	}
	var opErr *net.OpError
	if stderrors.As(err, &opErr) && opErr.Op == "remote error" {
		return NetKindTLS
	}
	return NetKindOther
}
