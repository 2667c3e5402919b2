// Package wire implements the length-prefixed framing and envelope codec
// for the embedded protocol spoken between the host and the stylesheet
// compiler subprocess.
package wire

import (
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// maxVarintBytes is the most bytes a base-128 varint may occupy before it is
// considered malformed: ceil(64/7) == 10.
const maxVarintBytes = 10

// ErrOverflow is returned when a varint is not terminated within
// maxVarintBytes bytes.
var ErrOverflow = errors.New("wire: varint overflow")

// TransportClosed indicates the underlying stream ended (EOF) where more
// bytes were expected, at the start of or mid-varint (a payload cut short
// surfaces from FrameReader as a *FrameError instead). It is the core
// transport-level error: the channel owning the stream treats any
// TransportClosed from its read loop as fatal and closes itself.
type TransportClosed struct {
	// During names which read step hit EOF, for diagnostics.
	During string
	Err    error
}

func (e *TransportClosed) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wire: transport closed during %s: %v", e.During, e.Err)
	}
	return fmt.Sprintf("wire: transport closed during %s", e.During)
}

func (e *TransportClosed) Unwrap() error { return e.Err }

// ReadUvarint reads a base-128 little-endian unsigned varint from r:
// accumulate 7 low bits per byte, shifted by a running count, stopping at
// the first byte whose high bit is clear.
func ReadUvarint(r io.Reader) (uint64, error) {
	var buf [1]byte
	var result uint64
	var shift uint

	for i := 0; i < maxVarintBytes; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			if errors.Is(err, io.EOF) && i == 0 {
				return 0, &TransportClosed{During: "varint start", Err: err}
			}
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				return 0, &TransportClosed{During: "varint continuation", Err: err}
			}
			return 0, err
		}

		b := buf[0]
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}

	return 0, ErrOverflow
}

// WriteUvarint writes v to w as a base-128 little-endian unsigned varint,
// emitting 7-bit groups with the high bit set on all but the final byte.
// The actual byte-level encoding is delegated to protowire, which defines
// this exact varint form for the protocol-buffer wire format.
func WriteUvarint(w io.Writer, v uint64) error {
	encoded := protowire.AppendVarint(nil, v)
	_, err := w.Write(encoded)
	return err
}

// SizeUvarint returns the number of bytes WriteUvarint would emit for v.
func SizeUvarint(v uint64) int {
	return protowire.SizeVarint(v)
}
