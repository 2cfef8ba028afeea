package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// WriteWAV writes mono 16-bit little-endian PCM to w as a canonical RIFF/WAVE
// stream with a 44-byte header.
func WriteWAV(w io.Writer, pcm []byte, sampleRate int) error {
	if sampleRate <= 0 {
		return errors.New("wav: sample rate must be positive")
	}

	const (
		numChannels   = 1
		bitsPerSample = 16
	)
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8
	dataSize := uint32(len(pcm) &^ 1)

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], dataSize+36)
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // PCM header size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(header[22:24], numChannels)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("wav header: %w", err)
	}
	if _, err := w.Write(pcm[:dataSize]); err != nil {
		return fmt.Errorf("wav data: %w", err)
	}
	return nil
}
