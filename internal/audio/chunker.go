package audio

// Chunker splits a continuous PCM byte stream into gapless,
// non-overlapping chunks of a fixed duration. Bytes that do not yet
// fill a chunk are retained for the next Feed.
type Chunker struct {
	chunkBytes int
	buf        []byte
}

// NewChunker sizes chunks for the given duration. byteRate is the
// stream's bytes per second (sample rate * channels * bytes per sample).
func NewChunker(chunkMs, byteRate int) *Chunker {
	n := chunkMs * byteRate / 1000
	if n <= 0 {
		n = 1
	}
	return &Chunker{chunkBytes: n}
}

// Feed appends stream bytes and returns every chunk completed so far.
func (c *Chunker) Feed(p []byte) [][]byte {
	c.buf = append(c.buf, p...)
	var chunks [][]byte
	for len(c.buf) >= c.chunkBytes {
		chunk := make([]byte, c.chunkBytes)
		copy(chunk, c.buf[:c.chunkBytes])
		chunks = append(chunks, chunk)
		c.buf = c.buf[c.chunkBytes:]
	}
	return chunks
}

// Flush returns the trailing partial chunk, if any, and resets the
// chunker.
func (c *Chunker) Flush() []byte {
	if len(c.buf) == 0 {
		return nil
	}
	rest := c.buf
	c.buf = nil
	return rest
}
