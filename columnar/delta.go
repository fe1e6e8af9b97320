package columnar

// EncodeDelta writes vals as a delta column (§4.3): the RLE-of-i64
// encoding of the sequence of first differences, saturating rather than
// overflowing. A null slot is stored as null and skipped: the next
// present value is encoded as its difference from the last present one.
func EncodeDelta(w *Writer, vals []Elem[int64]) {
	diffs := make([]Elem[int64], len(vals))
	var prev int64
	havePrev := false
	for i, v := range vals {
		if v.Null {
			diffs[i] = NullElem[int64]()
			continue
		}
		if !havePrev {
			diffs[i] = Present(v.V)
		} else {
			diffs[i] = Present(saturatingSub(v.V, prev))
		}
		prev = v.V
		havePrev = true
	}
	EncodeIntRLE(w, diffs)
}

// DecodeDelta reads n elements of a delta column, reconstructing
// absolute values via a saturating prefix sum.
func DecodeDelta(r *Reader, n int) ([]Elem[int64], error) {
	diffs, err := DecodeIntRLE(r, n)
	if err != nil {
		return nil, err
	}
	out := make([]Elem[int64], len(diffs))
	var total int64
	havePrev := false
	for i, d := range diffs {
		if d.Null {
			out[i] = NullElem[int64]()
			continue
		}
		if !havePrev {
			total = d.V
		} else {
			total = saturatingAdd(total, d.V)
		}
		out[i] = Present(total)
		havePrev = true
	}
	return out, nil
}

func saturatingAdd(a, b int64) int64 {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		if b > 0 {
			return int64(^uint64(0) >> 1) // max int64
		}
		return -int64(^uint64(0)>>1) - 1 // min int64
	}
	return sum
}

func saturatingSub(a, b int64) int64 {
	return saturatingAdd(a, -b)
}
