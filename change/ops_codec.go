package change

import (
	"github.com/nullctx/crdtdoc/columnar"
	"github.com/nullctx/crdtdoc/common"
	"github.com/nullctx/crdtdoc/crdt"
)

// Column ids for the op table (§4.3). Ids only need to be stable within
// this codec; they are not shared with any other chunk's column index.
const (
	colObjIsRoot  = 0
	colObjActor   = 1
	colObjCtr     = 2
	colKeyIsElem  = 3
	colKeyActor   = 4
	colKeyCtr     = 5
	colKeyStr     = 6
	colInsert     = 7
	colAction     = 8
	colValueMeta  = 9
	colValueRaw   = 10
	colPredCount  = 11
	colPredActor  = 12
	colPredCtr    = 13
	colExpand     = 14
	colMark       = 15
)

var actionCodes = map[common.ActionType]uint64{
	common.ActionMakeMap:   0,
	common.ActionMakeTable: 1,
	common.ActionMakeList:  2,
	common.ActionMakeText:  3,
	common.ActionPut:       4,
	common.ActionDelete:    5,
	common.ActionIncrement: 6,
	common.ActionMarkBegin: 7,
	common.ActionMarkEnd:   8,
}

var actionNames = func() map[uint64]common.ActionType {
	out := make(map[uint64]common.ActionType, len(actionCodes))
	for name, code := range actionCodes {
		out[code] = name
	}
	return out
}()

// encodeOps serialises ops (with op ids and obj/key actor references
// already translated to indices into the change's local actor table,
// see localize and NewChange) into the op-table columns.
func encodeOps(ops []crdt.Op) []byte {
	n := len(ops)
	objIsRoot := make([]bool, n)
	objActor := make([]columnar.Elem[uint64], n)
	objCtr := make([]columnar.Elem[int64], n)
	keyIsElem := make([]bool, n)
	keyActor := make([]columnar.Elem[uint64], n)
	keyCtr := make([]columnar.Elem[int64], n)
	keyStr := make([]columnar.Elem[string], n)
	insert := make([]bool, n)
	action := make([]columnar.Elem[uint64], n)
	valueMeta := make([]columnar.Elem[uint64], n)
	var valueRaw []byte
	predCount := make([]columnar.Elem[uint64], n)
	var predActor, predCtr []columnar.Elem[uint64]
	expand := make([]columnar.Elem[uint64], n)
	mark := make([]columnar.Elem[string], n)

	for i, op := range ops {
		objIsRoot[i] = op.Obj.IsRoot()
		objActor[i] = columnar.Present(uint64(op.Obj.Actor))
		objCtr[i] = columnar.Present(int64(op.Obj.Counter))

		keyIsElem[i] = op.Key.IsElem
		if op.Key.IsElem {
			keyActor[i] = columnar.Present(uint64(op.Key.Elem.Actor))
			keyCtr[i] = columnar.Present(int64(op.Key.Elem.Counter))
			keyStr[i] = columnar.Present("")
		} else {
			keyActor[i] = columnar.Present(uint64(0))
			keyCtr[i] = columnar.Present(int64(0))
			keyStr[i] = columnar.Present(op.Key.Prop)
		}

		insert[i] = op.Insert
		action[i] = columnar.Present(actionCodes[op.Action])

		blob := encodeValue(op.Value)
		valueMeta[i] = columnar.Present(uint64(len(blob)))
		valueRaw = append(valueRaw, blob...)

		predCount[i] = columnar.Present(uint64(len(op.Pred)))
		for _, p := range op.Pred {
			predActor = append(predActor, columnar.Present(uint64(p.Actor)))
			predCtr = append(predCtr, columnar.Present(p.Counter))
		}

		expand[i] = columnar.Present(uint64(op.Expand))
		mark[i] = columnar.Present(op.Mark)
	}

	cols := make([]columnar.RawColumn, 0, 16)
	add := func(id uint32, typ columnar.ColumnType, body []byte) {
		cols = append(cols, columnar.RawColumn{Spec: columnar.MakeColumnSpec(id, typ), Data: body})
	}

	w := columnar.NewWriter()
	columnar.EncodeBoolean(w, objIsRoot)
	add(colObjIsRoot, columnar.ColumnBoolean, w.Bytes())

	w = columnar.NewWriter()
	columnar.EncodeUintRLE(w, objActor)
	add(colObjActor, columnar.ColumnIntRLE, w.Bytes())

	w = columnar.NewWriter()
	columnar.EncodeDelta(w, objCtr)
	add(colObjCtr, columnar.ColumnIntDelta, w.Bytes())

	w = columnar.NewWriter()
	columnar.EncodeBoolean(w, keyIsElem)
	add(colKeyIsElem, columnar.ColumnBoolean, w.Bytes())

	w = columnar.NewWriter()
	columnar.EncodeUintRLE(w, keyActor)
	add(colKeyActor, columnar.ColumnIntRLE, w.Bytes())

	w = columnar.NewWriter()
	columnar.EncodeDelta(w, keyCtr)
	add(colKeyCtr, columnar.ColumnIntDelta, w.Bytes())

	w = columnar.NewWriter()
	columnar.EncodeStringRLE(w, keyStr)
	add(colKeyStr, columnar.ColumnStringRLE, w.Bytes())

	w = columnar.NewWriter()
	columnar.EncodeBoolean(w, insert)
	add(colInsert, columnar.ColumnBoolean, w.Bytes())

	w = columnar.NewWriter()
	columnar.EncodeUintRLE(w, action)
	add(colAction, columnar.ColumnIntRLE, w.Bytes())

	w = columnar.NewWriter()
	columnar.EncodeUintRLE(w, valueMeta)
	add(colValueMeta, columnar.ColumnValueMeta, w.Bytes())

	add(colValueRaw, columnar.ColumnValueRaw, valueRaw)

	w = columnar.NewWriter()
	columnar.EncodeUintRLE(w, predCount)
	add(colPredCount, columnar.ColumnIntRLE, w.Bytes())

	w = columnar.NewWriter()
	columnar.EncodeUintRLE(w, predActor)
	add(colPredActor, columnar.ColumnIntRLE, w.Bytes())

	w = columnar.NewWriter()
	columnar.EncodeUintRLE(w, predCtr)
	add(colPredCtr, columnar.ColumnIntRLE, w.Bytes())

	w = columnar.NewWriter()
	columnar.EncodeUintRLE(w, expand)
	add(colExpand, columnar.ColumnIntRLE, w.Bytes())

	w = columnar.NewWriter()
	columnar.EncodeStringRLE(w, mark)
	add(colMark, columnar.ColumnStringRLE, w.Bytes())

	out := columnar.NewWriter()
	out.WriteUvarint(uint64(n))
	columnar.WriteColumnIndex(out, cols)
	for _, c := range cols {
		out.WriteRaw(c.Data)
	}
	return out.Bytes()
}

// decodeOps is the inverse of encodeOps. The returned ops' obj/key/pred
// actor fields are still local change-table indices; Change.GlobalOps
// rewrites them against the document's actor table.
func decodeOps(data []byte) ([]crdt.Op, error) {
	r := columnar.NewReader(data)
	n64, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	n := int(n64)

	cols, err := columnar.ReadColumnIndex(r)
	if err != nil {
		return nil, err
	}
	body := func(id uint32) ([]byte, error) {
		c, ok := columnar.Find(cols, id)
		if !ok {
			return nil, common.ErrDecoding{Reason: "missing op column"}
		}
		return c.Data, nil
	}

	objIsRootData, err := body(colObjIsRoot)
	if err != nil {
		return nil, err
	}
	objIsRoot, err := columnar.DecodeBoolean(columnar.NewReader(objIsRootData), n)
	if err != nil {
		return nil, err
	}

	objActorData, err := body(colObjActor)
	if err != nil {
		return nil, err
	}
	objActor, err := columnar.DecodeUintRLE(columnar.NewReader(objActorData), n)
	if err != nil {
		return nil, err
	}

	objCtrData, err := body(colObjCtr)
	if err != nil {
		return nil, err
	}
	objCtr, err := columnar.DecodeDelta(columnar.NewReader(objCtrData), n)
	if err != nil {
		return nil, err
	}

	keyIsElemData, err := body(colKeyIsElem)
	if err != nil {
		return nil, err
	}
	keyIsElem, err := columnar.DecodeBoolean(columnar.NewReader(keyIsElemData), n)
	if err != nil {
		return nil, err
	}

	keyActorData, err := body(colKeyActor)
	if err != nil {
		return nil, err
	}
	keyActor, err := columnar.DecodeUintRLE(columnar.NewReader(keyActorData), n)
	if err != nil {
		return nil, err
	}

	keyCtrData, err := body(colKeyCtr)
	if err != nil {
		return nil, err
	}
	keyCtr, err := columnar.DecodeDelta(columnar.NewReader(keyCtrData), n)
	if err != nil {
		return nil, err
	}

	keyStrData, err := body(colKeyStr)
	if err != nil {
		return nil, err
	}
	keyStr, err := columnar.DecodeStringRLE(columnar.NewReader(keyStrData), n)
	if err != nil {
		return nil, err
	}

	insertData, err := body(colInsert)
	if err != nil {
		return nil, err
	}
	insert, err := columnar.DecodeBoolean(columnar.NewReader(insertData), n)
	if err != nil {
		return nil, err
	}

	actionData, err := body(colAction)
	if err != nil {
		return nil, err
	}
	action, err := columnar.DecodeUintRLE(columnar.NewReader(actionData), n)
	if err != nil {
		return nil, err
	}

	valueMetaData, err := body(colValueMeta)
	if err != nil {
		return nil, err
	}
	valueMeta, err := columnar.DecodeUintRLE(columnar.NewReader(valueMetaData), n)
	if err != nil {
		return nil, err
	}

	valueRaw, err := body(colValueRaw)
	if err != nil {
		return nil, err
	}

	predCountData, err := body(colPredCount)
	if err != nil {
		return nil, err
	}
	predCount, err := columnar.DecodeUintRLE(columnar.NewReader(predCountData), n)
	if err != nil {
		return nil, err
	}

	totalPreds := 0
	for _, c := range predCount {
		totalPreds += int(c.V)
	}

	predActorData, err := body(colPredActor)
	if err != nil {
		return nil, err
	}
	predActor, err := columnar.DecodeUintRLE(columnar.NewReader(predActorData), totalPreds)
	if err != nil {
		return nil, err
	}

	predCtrData, err := body(colPredCtr)
	if err != nil {
		return nil, err
	}
	predCtr, err := columnar.DecodeUintRLE(columnar.NewReader(predCtrData), totalPreds)
	if err != nil {
		return nil, err
	}

	expandData, err := body(colExpand)
	if err != nil {
		return nil, err
	}
	expand, err := columnar.DecodeUintRLE(columnar.NewReader(expandData), n)
	if err != nil {
		return nil, err
	}

	markData, err := body(colMark)
	if err != nil {
		return nil, err
	}
	mark, err := columnar.DecodeStringRLE(columnar.NewReader(markData), n)
	if err != nil {
		return nil, err
	}

	ops := make([]crdt.Op, n)
	predOffset := 0
	valueOffset := 0
	for i := 0; i < n; i++ {
		op := crdt.Op{}
		if objIsRoot[i] {
			op.Obj = common.RootID
		} else {
			op.Obj = common.OpID{Counter: uint64(objCtr[i].V), Actor: int(objActor[i].V)}
		}

		if keyIsElem[i] {
			op.Key = common.ElemKey(common.OpID{Counter: uint64(keyCtr[i].V), Actor: int(keyActor[i].V)})
		} else {
			op.Key = common.MapKey(keyStr[i].V)
		}

		op.Insert = insert[i]
		actionName, ok := actionNames[action[i].V]
		if !ok {
			return nil, common.ErrDecoding{Reason: "unknown op action code"}
		}
		op.Action = actionName

		vlen := int(valueMeta[i].V)
		if valueOffset+vlen > len(valueRaw) {
			return nil, common.ErrDecoding{Reason: "value-raw column truncated"}
		}
		val, err := decodeValue(valueRaw[valueOffset : valueOffset+vlen])
		if err != nil {
			return nil, err
		}
		op.Value = val
		valueOffset += vlen

		pc := int(predCount[i].V)
		if pc > 0 {
			op.Pred = make([]common.OpID, pc)
			for k := 0; k < pc; k++ {
				op.Pred[k] = common.OpID{
					Counter: predCtr[predOffset+k].V,
					Actor:   int(predActor[predOffset+k].V),
				}
			}
			predOffset += pc
		}

		op.Expand = common.ExpandPolicy(expand[i].V)
		op.Mark = mark[i].V

		ops[i] = op
	}

	return ops, nil
}
