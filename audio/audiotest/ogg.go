package audiotest

import (
	"bytes"
	"encoding/binary"
)

// OggBlockSize is the only block size the Ogg clips use
const OggBlockSize = 256

// OggSamples is the number of frames an Ogg clip of n audio packets decodes to
func OggSamples(packets int) int {
	if packets < 2 {
		return 0
	}
	return (packets - 1) * OggBlockSize / 2
}

// Ogg returns a stereo 44.1 kHz Ogg Vorbis stream of silent audio packets.
// The setup header declares a single short-block mode whose floor marks
// every channel unused, so each one-byte packet decodes to silence.
func Ogg(packets int) []byte {
	var buf bytes.Buffer
	serial := uint32(0x616d706c)

	writeOggPage(&buf, 0x02, 0, serial, 0, [][]byte{vorbisIdentification(2, 44100)})
	writeOggPage(&buf, 0, 0, serial, 1, [][]byte{vorbisComment(), vorbisSetup()})

	audio := make([][]byte, packets)
	for i := range audio {
		audio[i] = []byte{0x00}
	}
	writeOggPage(&buf, 0x04, int64(OggSamples(packets)), serial, 2, audio)

	return buf.Bytes()
}

func vorbisIdentification(channels uint8, sampleRate uint32) []byte {
	var b bytes.Buffer
	b.WriteByte(1)
	b.WriteString("vorbis")
	_ = binary.Write(&b, binary.LittleEndian, uint32(0))
	b.WriteByte(channels)
	_ = binary.Write(&b, binary.LittleEndian, sampleRate)
	_ = binary.Write(&b, binary.LittleEndian, [3]int32{})
	// Both block sizes 2^8
	b.WriteByte(0x88)
	b.WriteByte(1)
	return b.Bytes()
}

func vorbisComment() []byte {
	var b bytes.Buffer
	b.WriteByte(3)
	b.WriteString("vorbis")
	_ = binary.Write(&b, binary.LittleEndian, uint32(0))
	_ = binary.Write(&b, binary.LittleEndian, uint32(0))
	b.WriteByte(1)
	return b.Bytes()
}

func vorbisSetup() []byte {
	var w bitWriter

	// One codebook: dimension 1, two entries of length 1, no lookup
	w.write(0, 8)
	w.write(0x564342, 24)
	w.write(1, 16)
	w.write(2, 24)
	w.write(0, 1)
	w.write(0, 1)
	w.write(0, 5)
	w.write(0, 5)
	w.write(0, 4)

	// One time domain transform
	w.write(0, 6)
	w.write(0, 16)

	// One type 1 floor with a single partition of class 0
	w.write(0, 6)
	w.write(1, 16)
	w.write(1, 5)
	w.write(0, 4)
	w.write(0, 3)
	w.write(0, 2)
	w.write(0, 8)
	w.write(1, 2)
	w.write(7, 4)
	w.write(64, 7)

	// One type 0 residue covering nothing
	w.write(0, 6)
	w.write(0, 16)
	w.write(0, 24)
	w.write(0, 24)
	w.write(0, 24)
	w.write(0, 6)
	w.write(0, 8)
	w.write(0, 3)
	w.write(0, 1)

	// One mapping with a single submap and no coupling
	w.write(0, 6)
	w.write(0, 16)
	w.write(0, 1)
	w.write(0, 1)
	w.write(0, 2)
	w.write(0, 8)
	w.write(0, 8)
	w.write(0, 8)

	// One short-block mode
	w.write(0, 6)
	w.write(0, 1)
	w.write(0, 16)
	w.write(0, 16)
	w.write(0, 8)

	// Framing
	w.write(1, 1)

	var b bytes.Buffer
	b.WriteByte(5)
	b.WriteString("vorbis")
	b.Write(w.bytes())
	return b.Bytes()
}

// bitWriter packs values least significant bit first
type bitWriter struct {
	buf  []byte
	used uint
}

func (w *bitWriter) write(v uint32, bits uint) {
	for i := range bits {
		if w.used == 0 {
			w.buf = append(w.buf, 0)
		}
		if v>>i&1 == 1 {
			w.buf[len(w.buf)-1] |= 1 << w.used
		}
		w.used = (w.used + 1) % 8
	}
}

func (w *bitWriter) bytes() []byte {
	return w.buf
}

func writeOggPage(buf *bytes.Buffer, flags byte, granule int64, serial, sequence uint32, packets [][]byte) {
	var lacing []byte
	var body []byte
	for _, p := range packets {
		n := len(p)
		for n >= 255 {
			lacing = append(lacing, 255)
			n -= 255
		}
		lacing = append(lacing, byte(n))
		body = append(body, p...)
	}

	var page bytes.Buffer
	page.WriteString("OggS")
	page.WriteByte(0)
	page.WriteByte(flags)
	_ = binary.Write(&page, binary.LittleEndian, granule)
	_ = binary.Write(&page, binary.LittleEndian, serial)
	_ = binary.Write(&page, binary.LittleEndian, sequence)
	_ = binary.Write(&page, binary.LittleEndian, uint32(0))
	page.WriteByte(byte(len(lacing)))
	page.Write(lacing)
	page.Write(body)

	raw := page.Bytes()
	binary.LittleEndian.PutUint32(raw[22:26], oggCRC(raw))
	buf.Write(raw)
}

// oggCRC is the unreflected CRC-32 (polynomial 0x04c11db7) Ogg pages carry
func oggCRC(data []byte) uint32 {
	var crc uint32
	for _, b := range data {
		crc ^= uint32(b) << 24
		for range 8 {
			if crc&0x80000000 != 0 {
				crc = crc<<1 ^ 0x04c11db7
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
