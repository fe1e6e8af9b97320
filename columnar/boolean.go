package columnar

import "github.com/nullctx/crdtdoc/common"

// EncodeBoolean writes vals as a boolean column (§4.3): alternating run
// lengths of false/true, LEB128-encoded, starting with a (possibly
// zero-length) run of false.
func EncodeBoolean(w *Writer, vals []bool) {
	if len(vals) == 0 {
		return
	}
	current := false
	runLen := uint64(0)
	for _, v := range vals {
		if v == current {
			runLen++
			continue
		}
		w.WriteUvarint(runLen)
		current = v
		runLen = 1
	}
	w.WriteUvarint(runLen)
}

// DecodeBoolean reads n elements of a boolean column.
func DecodeBoolean(r *Reader, n int) ([]bool, error) {
	out := make([]bool, 0, n)
	current := false
	for len(out) < n {
		runLen, err := r.ReadUvarint()
		if err != nil {
			return nil, err
		}
		for k := uint64(0); k < runLen; k++ {
			out = append(out, current)
		}
		current = !current
	}
	if len(out) != n {
		return nil, common.ErrDecoding{Reason: "boolean column length mismatch"}
	}
	return out, nil
}
