package render

import (
	"bytes"
	"fmt"
)

// sniffHeadSize is how many leading bytes of a download are inspected.
const sniffHeadSize = 64

// SniffVideo checks that head looks like an ISO BMFF (MP4/MOV) file:
// the "ftyp" box marker must appear within the first 32 bytes.
func SniffVideo(head []byte) error {
	limit := len(head)
	if limit > 32 {
		limit = 32
	}
	if bytes.Contains(head[:limit], []byte("ftyp")) {
		return nil
	}
	return fmt.Errorf("no ftyp marker in first %d bytes", limit)
}

// SniffAudio checks that head looks like playable audio: an ID3 tag, an
// MP3 frame sync, or an ftyp box (AAC in an MP4 container).
func SniffAudio(head []byte) error {
	if bytes.HasPrefix(head, []byte("ID3")) {
		return nil
	}
	if len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0 {
		return nil
	}
	if SniffVideo(head) == nil {
		return nil
	}
	return fmt.Errorf("no ID3 tag, MP3 frame sync or ftyp marker")
}
