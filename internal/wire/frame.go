// Package wire implements the length-delimited duplex framing protocol used
// between the web service (WS) and the host (H). Both the AF_UNIX and
// AF_VSOCK transports share this framing; only the dial/listen mechanics
// differ between them.
package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gl-zkPass/zkpass-core/internal/zkerr"
)

const (
	soh byte = 0x01
	stx byte = 0x02

	// maxBytesToCheck bounds how far a reader will scan looking for a frame
	// marker before declaring the stream out of sync.
	maxBytesToCheck = 64
)

// ReadFrame reads one length-delimited frame from r:
//
//	0x01  -- SOH marker
//	len[4] -- u32 big-endian payload length
//	0x02  -- STX marker
//	payload[len]
//
// A zero-length read before any header byte is reported as io.EOF (orderly
// peer shutdown). Anything else that fails to locate a marker within
// maxBytesToCheck bytes is reported as zkerr.KindOutOfSync.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	if err := scanFor(r, soh); err != nil {
		return nil, err
	}

	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, zkerr.Wrap(zkerr.KindRead, "reading frame length", err)
	}
	length := binary.BigEndian.Uint32(lenBuf)

	if err := scanFor(r, stx); err != nil {
		return nil, err
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, zkerr.Wrap(zkerr.KindRead, "reading frame payload", err)
	}

	return payload, nil
}

// scanFor advances r until it reads marker, within maxBytesToCheck bytes.
// A read that returns io.EOF on the very first byte is propagated as io.EOF
// (orderly shutdown); any other read error is a read error, and
// maxBytesToCheck bytes without the marker is out-of-sync.
func scanFor(r *bufio.Reader, marker byte) error {
	for i := 0; i < maxBytesToCheck; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if i == 0 && err == io.EOF {
				return io.EOF
			}
			return zkerr.Wrap(zkerr.KindRead, "scanning for frame marker", err)
		}
		if b == marker {
			return nil
		}
	}
	return zkerr.New(zkerr.KindOutOfSync, fmt.Sprintf("no 0x%02x marker within %d bytes", marker, maxBytesToCheck))
}

// WriteFrame writes payload as one complete frame to w. A single Write call
// per frame avoids the short-write pathology at buffer-size boundaries;
// callers needing atomicity across concurrent writers must serialize calls
// themselves (see Conn, which does).
func WriteFrame(w io.Writer, payload []byte) error {
	buf := make([]byte, 0, 1+4+1+len(payload))
	buf = append(buf, soh)
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(payload)))
	buf = append(buf, lenBuf...)
	buf = append(buf, stx)
	buf = append(buf, payload...)

	if _, err := w.Write(buf); err != nil {
		return zkerr.Wrap(zkerr.KindWrite, "writing frame", err)
	}
	return nil
}
