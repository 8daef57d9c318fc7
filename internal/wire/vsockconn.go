//go:build linux

package wire

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// VsockAddr identifies an AF_VSOCK endpoint: a 32-bit context id (CID) and
// port, the enclave-mode analogue of a host/port pair.
type VsockAddr struct {
	CID  uint32
	Port uint32
}

// vsockConn adapts a raw AF_VSOCK file descriptor to net.Conn so it can be
// driven through the same Conn/bufio.Reader machinery as the unix socket
// transport.
type vsockConn struct {
	f    *os.File
	laddr, raddr VsockAddr
}

func newVsockConn(fd int, laddr, raddr VsockAddr) *vsockConn {
	return &vsockConn{
		f:     os.NewFile(uintptr(fd), "vsock"),
		laddr: laddr,
		raddr: raddr,
	}
}

func (c *vsockConn) Read(b []byte) (int, error)  { return c.f.Read(b) }
func (c *vsockConn) Write(b []byte) (int, error) { return c.f.Write(b) }
func (c *vsockConn) Close() error                { return c.f.Close() }
func (c *vsockConn) LocalAddr() net.Addr         { return vsockNetAddr(c.laddr) }
func (c *vsockConn) RemoteAddr() net.Addr        { return vsockNetAddr(c.raddr) }
func (c *vsockConn) SetDeadline(t time.Time) error      { return c.f.SetDeadline(t) }
func (c *vsockConn) SetReadDeadline(t time.Time) error  { return c.f.SetReadDeadline(t) }
func (c *vsockConn) SetWriteDeadline(t time.Time) error { return c.f.SetWriteDeadline(t) }

type vsockNetAddr VsockAddr

func (a vsockNetAddr) Network() string { return "vsock" }
func (a vsockNetAddr) String() string  { return fmt.Sprintf("vsock:%d:%d", a.CID, a.Port) }

// VsockDialer returns a Dialer that connects to the given AF_VSOCK CID/port,
// the enclave-mode transport selected at startup in place of AF_UNIX.
func VsockDialer(addr VsockAddr) Dialer {
	return func(ctx context.Context) (net.Conn, error) {
		fd, err := unix.Socket(unix.AF_VSOCK, unix.SOCK_STREAM, 0)
		if err != nil {
			return nil, fmt.Errorf("create vsock socket: %w", err)
		}

		sa := &unix.SockaddrVM{CID: addr.CID, Port: addr.Port}
		if err := unix.Connect(fd, sa); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("connect vsock %d:%d: %w", addr.CID, addr.Port, err)
		}

		return newVsockConn(fd, VsockAddr{}, addr), nil
	}
}

// VsockListener listens on an AF_VSOCK CID/port pair.
type VsockListener struct {
	fd   int
	addr VsockAddr
}

// ListenVsock binds an AF_VSOCK listening socket on the given CID/port.
// CID is typically unix.VMADDR_CID_ANY for a host-side listener or
// unix.VMADDR_CID_HOST from inside an enclave.
func ListenVsock(addr VsockAddr) (*VsockListener, error) {
	fd, err := unix.Socket(unix.AF_VSOCK, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("create vsock socket: %w", err)
	}

	sa := &unix.SockaddrVM{CID: addr.CID, Port: addr.Port}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind vsock %d:%d: %w", addr.CID, addr.Port, err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen vsock %d:%d: %w", addr.CID, addr.Port, err)
	}

	return &VsockListener{fd: fd, addr: addr}, nil
}

func (l *VsockListener) Accept() (net.Conn, error) {
	nfd, sa, err := unix.Accept(l.fd)
	if err != nil {
		return nil, err
	}

	raddr := VsockAddr{}
	if svm, ok := sa.(*unix.SockaddrVM); ok {
		raddr = VsockAddr{CID: svm.CID, Port: svm.Port}
	}

	return newVsockConn(nfd, l.addr, raddr), nil
}

func (l *VsockListener) Close() error   { return unix.Close(l.fd) }
func (l *VsockListener) Addr() net.Addr { return vsockNetAddr(l.addr) }
