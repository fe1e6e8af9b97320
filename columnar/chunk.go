package columnar

import (
	"bytes"
	"crypto/sha256"

	"github.com/nullctx/crdtdoc/common"
)

// ChunkMagic is the 4-byte magic number at the start of every chunk.
var ChunkMagic = [4]byte{0x85, 0x6f, 0x4a, 0x83}

// ChunkType identifies the body format that follows a chunk header.
type ChunkType uint8

const (
	ChunkTypeDocument         ChunkType = 0
	ChunkTypeChange           ChunkType = 1
	ChunkTypeCompressedChange ChunkType = 2
)

// Chunk is a parsed chunk: magic and checksum validated, body opaque to
// this package (interpreted by package change according to Type).
type Chunk struct {
	Type ChunkType
	Body []byte
}

// checksum4 returns the first 4 bytes of SHA-256(body) (§4.3/§4.4).
func checksum4(body []byte) [4]byte {
	sum := sha256.Sum256(body)
	var out [4]byte
	copy(out[:], sum[:4])
	return out
}

// WriteChunk frames body with the magic number, its checksum, the chunk
// type tag, and a uleb128 length prefix, and appends the result to w.
func WriteChunk(w *Writer, typ ChunkType, body []byte) {
	w.WriteRaw(ChunkMagic[:])
	cs := checksum4(body)
	w.WriteRaw(cs[:])
	w.WriteByte(byte(typ))
	w.WriteUvarint(uint64(len(body)))
	w.WriteRaw(body)
}

// ReadChunk parses one framed chunk from r, validating the magic number
// and checksum. Both mismatches are hard parse errors (§4.4).
func ReadChunk(r *Reader) (Chunk, error) {
	magic, err := r.ReadBytes(4)
	if err != nil {
		return Chunk{}, common.ErrDecoding{Reason: "truncated chunk magic"}
	}
	if !bytes.Equal(magic, ChunkMagic[:]) {
		return Chunk{}, common.ErrDecoding{Reason: "bad chunk magic"}
	}
	wantChecksum, err := r.ReadBytes(4)
	if err != nil {
		return Chunk{}, common.ErrDecoding{Reason: "truncated chunk checksum"}
	}
	typByte, err := r.ReadByte()
	if err != nil {
		return Chunk{}, common.ErrDecoding{Reason: "truncated chunk type"}
	}
	n, err := r.ReadUvarint()
	if err != nil {
		return Chunk{}, common.ErrDecoding{Reason: "truncated chunk length"}
	}
	body, err := r.ReadBytes(int(n))
	if err != nil {
		return Chunk{}, common.ErrDecoding{Reason: "truncated chunk body"}
	}
	gotChecksum := checksum4(body)
	if !bytes.Equal(wantChecksum, gotChecksum[:]) {
		return Chunk{}, common.ErrDecoding{Reason: "chunk checksum mismatch"}
	}
	return Chunk{Type: ChunkType(typByte), Body: body}, nil
}

// Hash computes the change-hash of a chunk: SHA-256 over type + length +
// body (the framed bytes without magic and checksum), per §3.4.
func (c Chunk) Hash() common.ChangeHash {
	w := NewWriter()
	w.WriteByte(byte(c.Type))
	w.WriteUvarint(uint64(len(c.Body)))
	w.WriteRaw(c.Body)
	return common.HashBytes(w.Bytes())
}

// Encode returns the framed bytes of the chunk.
func (c Chunk) Encode() []byte {
	w := NewWriter()
	WriteChunk(w, c.Type, c.Body)
	return w.Bytes()
}
