package crdt

import "github.com/nullctx/crdtdoc/common"

// seqElem is one position in a list or text sequence: a stable element
// id introduced by an insert op, the key it was inserted after
// (its RGA "origin"), and the register of values ever written there.
type seqElem struct {
	id      common.ElemID
	origin  common.Key
	entries []*opEntry
}

func (e *seqElem) visible() bool {
	for _, en := range e.entries {
		if en.visible() {
			return true
		}
	}
	return len(e.entries) == 0 // a freshly-inserted element with no put yet is visible by its insert op
}

// markSpan is one mark-begin/mark-end pair, active once begun and
// closed once its matching end arrives (§3.2 mark/unmark).
type markSpan struct {
	name       string
	beginOp    common.OpID
	endOp      *common.OpID
	expand     common.ExpandPolicy
	beginElem  common.ElemID
	endElem    common.ElemID
	endElemSet bool
}

// seqObj indexes the elements of one list or text object, in final
// visible array order, using RGA's newer-id-first sibling ordering
// (§3.2, §4.5).
type seqObj struct {
	elems []*seqElem
	index map[common.ElemID]int // element id -> position in elems
	marks []*markSpan
}

func newSeqObj() *seqObj {
	return &seqObj{index: make(map[common.ElemID]int)}
}

func (s *seqObj) reindex() {
	for i, e := range s.elems {
		s.index[e.id] = i
	}
}

// insert places a new element with id op.ID immediately after the
// element named by predKey (the zero Key meaning the list head),
// skipping over any immediately-following siblings of the same
// predecessor whose element id is greater (RGA newer-first ordering).
func (s *seqObj) insert(op Op) error {
	pos := -1
	if op.Key.IsElem {
		p, ok := s.index[op.Key.Elem]
		if !ok {
			return common.ErrIndexOutOfBounds{Index: -1, Length: len(s.elems)}
		}
		pos = p
	}

	i := pos + 1
	for i < len(s.elems) {
		sib := s.elems[i]
		if sib.origin.Compare(op.Key) != 0 {
			break
		}
		if sib.id.Compare(op.ID) < 0 {
			break
		}
		i++
	}

	elem := &seqElem{id: op.ID, origin: op.Key}
	elem.entries = append(elem.entries, &opEntry{op: op})

	s.elems = append(s.elems, nil)
	copy(s.elems[i+1:], s.elems[i:])
	s.elems[i] = elem
	s.reindex()
	return nil
}

// update applies a put to an existing element, as a competing entry in
// its register, superseding every visible id in op.Pred there.
func (s *seqObj) update(op Op) error {
	pos, ok := s.index[op.Key.Elem]
	if !ok {
		return common.ErrIndexOutOfBounds{Index: -1, Length: len(s.elems)}
	}
	elem := s.elems[pos]
	for _, e := range elem.entries {
		for _, p := range op.Pred {
			if e.op.ID == p {
				e.supersede(op.ID)
			}
		}
	}
	entries := append(elem.entries, &opEntry{op: op})
	sortEntriesDesc(entries)
	elem.entries = entries
	return nil
}

// del supersedes pred within the named element's register.
func (s *seqObj) del(elemID common.ElemID, by common.OpID, pred []common.OpID) error {
	pos, ok := s.index[elemID]
	if !ok {
		return common.ErrIndexOutOfBounds{Index: -1, Length: len(s.elems)}
	}
	elem := s.elems[pos]
	matched := false
	for _, e := range elem.entries {
		for _, p := range pred {
			if e.op.ID == p {
				e.supersede(by)
				matched = true
			}
		}
	}
	if !matched {
		return common.ErrIndexOutOfBounds{Index: pos, Length: len(s.elems)}
	}
	return nil
}

// visibleIndices returns the positions of currently-visible elements,
// in array order: this is the mapping between the public (user-facing)
// index space and the internal element array.
func (s *seqObj) visibleIndices() []int {
	out := make([]int, 0, len(s.elems))
	for i, e := range s.elems {
		if e.visible() {
			out = append(out, i)
		}
	}
	return out
}

// length returns the number of visible elements (§4.5 length).
func (s *seqObj) length() int {
	n := 0
	for _, e := range s.elems {
		if e.visible() {
			n++
		}
	}
	return n
}

// nth returns the register at the i-th visible position (§4.5 nth).
func (s *seqObj) nth(i int) (Slot, common.ElemID, error) {
	vis := s.visibleIndices()
	if i < 0 || i >= len(vis) {
		return Slot{}, common.ElemID{}, common.ErrIndexOutOfBounds{Index: i, Length: len(vis)}
	}
	elem := s.elems[vis[i]]
	return Slot{entries: elem.entries}, elem.id, nil
}

// elemIDPos returns the visible-index position of elemID, if visible
// (§4.5 elem_id_pos, used by cursor resolution).
func (s *seqObj) elemIDPos(elemID common.ElemID) (int, bool) {
	pos, ok := s.index[elemID]
	if !ok || !s.elems[pos].visible() {
		return 0, false
	}
	n := 0
	for i := 0; i < pos; i++ {
		if s.elems[i].visible() {
			n++
		}
	}
	return n, true
}

// slotFor returns the register at elemID regardless of visibility, used
// to compute Pred sets for updates/deletes targeting that element.
func (s *seqObj) slotFor(elemID common.ElemID) (Slot, bool) {
	pos, ok := s.index[elemID]
	if !ok {
		return Slot{}, false
	}
	return Slot{entries: s.elems[pos].entries}, true
}

func (s *seqObj) beginMark(op Op) {
	s.marks = append(s.marks, &markSpan{
		name:      op.Mark,
		beginOp:   op.ID,
		expand:    op.Expand,
		beginElem: op.Key.Elem,
	})
}

func (s *seqObj) endMark(op Op) error {
	for _, m := range s.marks {
		for _, p := range op.Pred {
			if m.beginOp == p && m.endOp == nil {
				end := op.ID
				m.endOp = &end
				m.endElem = op.Key.Elem
				m.endElemSet = true
				return nil
			}
		}
	}
	return common.ErrUnknownMark{Name: op.Mark}
}

// marksAt returns the names of marks whose range covers elemID, in the
// order they were begun (§4.5 marks_at).
func (s *seqObj) marksAt(elemID common.ElemID) []string {
	pos, ok := s.index[elemID]
	if !ok {
		return nil
	}
	var out []string
	for _, m := range s.marks {
		beginPos, ok := s.index[m.beginElem]
		if !ok {
			continue
		}
		endPos := len(s.elems)
		if m.endElemSet {
			if p, ok := s.index[m.endElem]; ok {
				endPos = p
			}
		}
		if pos >= beginPos && pos < endPos {
			out = append(out, m.name)
		}
	}
	return out
}
