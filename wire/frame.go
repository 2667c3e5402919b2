package wire

import (
	"fmt"
	"io"
)

// MaxPayloadSize bounds a single frame's payload to guard against a
// corrupted or malicious length prefix forcing an unbounded allocation.
// 64 MiB comfortably covers a compiled stylesheet plus its source map.
const MaxPayloadSize = 64 * 1024 * 1024

// FrameErrorKind classifies why a frame failed to read or write.
type FrameErrorKind int

const (
	// FrameErrorTransport indicates the underlying stream closed or errored.
	FrameErrorTransport FrameErrorKind = iota
	// FrameErrorTooLarge indicates a length prefix exceeded MaxPayloadSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates the payload failed to decode as an envelope.
	FrameErrorDecode
)

// FrameError is returned by FrameReader/FrameWriter and by envelope decode
// failures. ProtocolError-worthy failures (decode, too-large) and transport
// failures are distinguished via Kind so callers can choose whether a given
// failure is terminal for one session or for the whole channel.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wire: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("wire: %s", e.Msg)
}

func (e *FrameError) Unwrap() error { return e.Err }

// IsFatal reports whether the error should terminate the owning channel
// rather than just the frame in progress. Every FrameError is fatal: a
// malformed or oversized frame leaves the stream unsynchronized, so there is
// no way to recover frame boundaries and continue reading.
func (e *FrameError) IsFatal() bool { return true }

// FrameReader reads length-prefixed frames from an underlying stream.
type FrameReader struct {
	r io.Reader
}

// NewFrameReader wraps r for frame-at-a-time reads.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r}
}

// ReadFrame reads one varint(length) || payload(length bytes) frame,
// blocking until the full payload is available. EOF before any bytes are
// read is reported as a plain io.EOF so callers can distinguish a clean
// stream close from a mid-frame failure; everything else is a *FrameError.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	length, err := ReadUvarint(fr.r)
	if err != nil {
		if isCleanEOF(err) {
			return nil, io.EOF
		}
		return nil, &FrameError{Kind: FrameErrorTransport, Msg: "read frame length", Err: err}
	}

	if length > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("frame payload %d exceeds max %d", length, MaxPayloadSize),
		}
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		return nil, &FrameError{Kind: FrameErrorTransport, Msg: "read frame payload", Err: err}
	}

	return payload, nil
}

func isCleanEOF(err error) bool {
	tc, ok := err.(*TransportClosed)
	return ok && tc.During == "varint start"
}

// FrameWriter writes length-prefixed frames to an underlying stream.
// Writers are not safe for concurrent use; callers serialize access (in
// this repo, the subprocess channel's write mutex does that).
type FrameWriter struct {
	w io.Writer
}

// NewFrameWriter wraps w for frame-at-a-time writes.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteFrame writes the varint length prefix followed by payload.
func (fw *FrameWriter) WriteFrame(payload []byte) error {
	if err := WriteUvarint(fw.w, uint64(len(payload))); err != nil {
		return &FrameError{Kind: FrameErrorTransport, Msg: "write frame length", Err: err}
	}
	if _, err := fw.w.Write(payload); err != nil {
		return &FrameError{Kind: FrameErrorTransport, Msg: "write frame payload", Err: err}
	}
	return nil
}
