package audio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

const sampleRate = 16000
const bitsPerSample = 16
const numChannels = 1

// wavWriter streams int16 mono PCM samples to a WAV file, patching the RIFF
// and data chunk sizes on Close.
type wavWriter struct {
	f       *os.File
	bw      *bufio.Writer
	written int64 // bytes of PCM data written
}

func newWAVWriter(path string) (*wavWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create wav: %w", err)
	}
	w := &wavWriter{f: f, bw: bufio.NewWriter(f)}
	if err := w.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

func (w *wavWriter) writeHeader() error {
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 0) // patched on Close
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], numChannels)
	binary.LittleEndian.PutUint32(header[24:28], sampleRate)
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], 0) // patched on Close

	_, err := w.bw.Write(header)
	return err
}

func (w *wavWriter) Write(pcm []byte) error {
	n, err := w.bw.Write(pcm)
	w.written += int64(n)
	return err
}

// Close flushes, fsyncs, patches the header sizes, and closes the file. It
// returns the final file size.
func (w *wavWriter) Close() (int64, error) {
	if err := w.bw.Flush(); err != nil {
		w.f.Close()
		return 0, fmt.Errorf("flush wav: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		return 0, fmt.Errorf("fsync wav: %w", err)
	}

	riffSize := uint32(36 + w.written)
	if _, err := w.f.WriteAt(le32(riffSize), 4); err != nil {
		w.f.Close()
		return 0, fmt.Errorf("patch riff size: %w", err)
	}
	if _, err := w.f.WriteAt(le32(uint32(w.written)), 40); err != nil {
		w.f.Close()
		return 0, fmt.Errorf("patch data size: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		return 0, fmt.Errorf("fsync wav header: %w", err)
	}

	size := int64(44) + w.written
	return size, w.f.Close()
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// peakAmplitude returns the largest absolute sample value in a buffer of
// little-endian int16 samples.
func peakAmplitude(pcm []byte) int16 {
	var peak int16
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(binary.LittleEndian.Uint16(pcm[i : i+2]))
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}
