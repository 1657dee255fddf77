package audiotest

// MP3FrameSamples is the number of stereo frames one MPEG-1 Layer III frame
// decodes to
const MP3FrameSamples = 1152

// MP3 returns n silent MPEG-1 Layer III frames at 128 kbps, 44.1 kHz stereo.
// Side info and main data are zero, so every granule decodes to silence.
func MP3(n int) []byte {
	// 144 * 128000 / 44100 without padding
	const frameSize = 417
	header := []byte{0xFF, 0xFB, 0x90, 0x00}

	out := make([]byte, 0, n*frameSize)
	for range n {
		frame := make([]byte, frameSize)
		copy(frame, header)
		out = append(out, frame...)
	}
	return out
}
