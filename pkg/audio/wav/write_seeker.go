package wav

import (
	"fmt"
	"io"
)

// writeSeeker is an in-memory io.WriteSeeker; the WAV encoder seeks back to
// patch chunk sizes once the payload is written.
type writeSeeker struct {
	data   []byte
	offset int64
}

var _ io.WriteSeeker = (*writeSeeker)(nil)

func (ws *writeSeeker) Write(p []byte) (int, error) {
	end := ws.offset + int64(len(p))
	if end > int64(len(ws.data)) {
		if end > int64(cap(ws.data)) {
			grown := make([]byte, end, max(end, 2*int64(cap(ws.data))))
			copy(grown, ws.data)
			ws.data = grown
		} else {
			ws.data = ws.data[:end]
		}
	}
	copy(ws.data[ws.offset:], p)
	ws.offset = end
	return len(p), nil
}

func (ws *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var newOffset int64
	switch whence {
	case io.SeekStart:
		newOffset = offset
	case io.SeekCurrent:
		newOffset = ws.offset + offset
	case io.SeekEnd:
		newOffset = int64(len(ws.data)) + offset
	default:
		return 0, fmt.Errorf("invalid whence: %d", whence)
	}

	if newOffset < 0 {
		return 0, fmt.Errorf("negative position")
	}

	ws.offset = newOffset
	return newOffset, nil
}

func (ws *writeSeeker) Bytes() []byte {
	return ws.data
}
