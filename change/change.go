// Package change implements the Change and document chunk encoding of
// §3.3/§3.4/§4.3-§4.4 (C4): framing changes and whole documents as the
// columnar chunks of package columnar, with optional deflate compression
// for stored changes.
package change

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"

	"github.com/nullctx/crdtdoc/columnar"
	"github.com/nullctx/crdtdoc/common"
	"github.com/nullctx/crdtdoc/crdt"
)

// Change is one unit of causal history: a contiguous block of ops from
// a single actor, with its dependencies and header metadata (§3.3).
//
// Ops carry actor references as indices into Actors (Actors[0] is
// always the change's own author); a document translates these into
// its own global actor table on load (see NewChange/GlobalOps).
type Change struct {
	Actors  []common.ActorID
	Seq     uint64
	StartOp uint64
	Time    int64
	Message string
	Deps    []common.ChangeHash
	Extra   []byte // unrecognised trailing bytes preserved verbatim (§9 supplemented feature)
	Ops     []crdt.Op
}

// Author returns the actor that produced this change.
func (c *Change) Author() common.ActorID {
	return c.Actors[0]
}

// NumOps returns the number of ops the change carries.
func (c *Change) NumOps() uint64 { return uint64(len(c.Ops)) }

// MaxOp returns the counter of the last op allocated by this change.
func (c *Change) MaxOp() uint64 {
	if len(c.Ops) == 0 {
		if c.StartOp == 0 {
			return 0
		}
		return c.StartOp - 1
	}
	return c.StartOp + uint64(len(c.Ops)) - 1
}

// encodeHeader writes the non-op fields of a change.
func encodeHeader(c *Change) []byte {
	w := columnar.NewWriter()
	w.WriteUvarint(c.Seq)
	w.WriteUvarint(c.StartOp)
	w.WriteVarint(c.Time)
	w.WriteLenPrefixed([]byte(c.Message))

	w.WriteUvarint(uint64(len(c.Actors)))
	for _, a := range c.Actors {
		w.WriteRaw(a.Bytes())
	}

	w.WriteUvarint(uint64(len(c.Deps)))
	for _, d := range c.Deps {
		w.WriteRaw(d[:])
	}

	w.WriteLenPrefixed(c.Extra)
	return w.Bytes()
}

func decodeHeader(r *columnar.Reader) (*Change, error) {
	seq, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	startOp, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	t, err := r.ReadVarint()
	if err != nil {
		return nil, err
	}
	msg, err := r.ReadLenPrefixed()
	if err != nil {
		return nil, err
	}

	nActors, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	actors := make([]common.ActorID, nActors)
	for i := range actors {
		b, err := r.ReadBytes(16)
		if err != nil {
			return nil, err
		}
		a, err := common.ActorIDFromBytes(b)
		if err != nil {
			return nil, err
		}
		actors[i] = a
	}

	nDeps, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	deps := make([]common.ChangeHash, nDeps)
	for i := range deps {
		b, err := r.ReadBytes(32)
		if err != nil {
			return nil, err
		}
		copy(deps[i][:], b)
	}

	extra, err := r.ReadLenPrefixed()
	if err != nil {
		return nil, err
	}

	return &Change{
		Actors:  actors,
		Seq:     seq,
		StartOp: startOp,
		Time:    t,
		Message: string(msg),
		Deps:    deps,
		Extra:   extra,
	}, nil
}

// encodeBody serialises the full change body: header then op columns.
func encodeBody(c *Change) []byte {
	w := columnar.NewWriter()
	w.WriteLenPrefixed(encodeHeader(c))
	w.WriteRaw(encodeOps(c.Ops))
	return w.Bytes()
}

func decodeBody(body []byte) (*Change, error) {
	r := columnar.NewReader(body)
	headerBytes, err := r.ReadLenPrefixed()
	if err != nil {
		return nil, err
	}
	c, err := decodeHeader(columnar.NewReader(headerBytes))
	if err != nil {
		return nil, err
	}

	ops, err := decodeOps(r.Remainder())
	if err != nil {
		return nil, err
	}
	for i := range ops {
		ops[i].ID = common.OpID{Counter: c.StartOp + uint64(i), Actor: 0}
	}
	c.Ops = ops
	return c, nil
}

// Encode frames c as a change chunk (§4.3). compress selects the
// compressed (type-2, deflate) variant over the uncompressed (type-1)
// one; §3.4 leaves the choice to the writer, recorded per change.
func (c *Change) Encode(compress bool) ([]byte, error) {
	body := encodeBody(c)
	if !compress {
		return columnar.Chunk{Type: columnar.ChunkTypeChange, Body: body}.Encode(), nil
	}

	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, errors.Wrap(err, "change: create deflate writer")
	}
	if _, err := fw.Write(body); err != nil {
		return nil, errors.Wrap(err, "change: deflate change body")
	}
	if err := fw.Close(); err != nil {
		return nil, errors.Wrap(err, "change: close deflate writer")
	}
	return columnar.Chunk{Type: columnar.ChunkTypeCompressedChange, Body: buf.Bytes()}.Encode(), nil
}

// Decode parses a framed change chunk of either type, validating the
// chunk's magic and checksum (delegated to columnar.ReadChunk).
func Decode(data []byte) (*Change, common.ChangeHash, error) {
	r := columnar.NewReader(data)
	chunk, err := columnar.ReadChunk(r)
	if err != nil {
		return nil, common.ChangeHash{}, err
	}

	var body []byte
	switch chunk.Type {
	case columnar.ChunkTypeChange:
		body = chunk.Body
	case columnar.ChunkTypeCompressedChange:
		fr := flate.NewReader(bytes.NewReader(chunk.Body))
		defer fr.Close()
		decompressed, err := io.ReadAll(fr)
		if err != nil {
			return nil, common.ChangeHash{}, errors.Wrap(err, "change: inflate compressed change")
		}
		body = decompressed
	default:
		return nil, common.ChangeHash{}, common.ErrDecoding{Reason: "chunk is not a change"}
	}

	c, err := decodeBody(body)
	if err != nil {
		return nil, common.ChangeHash{}, err
	}

	// The hash is always computed over the canonical uncompressed
	// encoding, so two writers choosing different compression for the
	// same logical change agree on its hash (§3.4).
	hash := columnar.Chunk{Type: columnar.ChunkTypeChange, Body: encodeBody(c)}.Hash()
	return c, hash, nil
}

// Hash returns the canonical hash of c: SHA-256 over the framed
// uncompressed change chunk (§3.4).
func (c *Change) Hash() common.ChangeHash {
	return columnar.Chunk{Type: columnar.ChunkTypeChange, Body: encodeBody(c)}.Hash()
}
