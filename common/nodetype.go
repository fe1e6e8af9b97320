package common

// NodeType identifies the kind of object an id refers to, mirroring the
// object kinds a make-* op can create.
type NodeType string

const (
	NodeTypeRoot NodeType = "root"
	NodeTypeMap  NodeType = "map"
	NodeTypeList NodeType = "list"
	NodeTypeText NodeType = "text"
	NodeTypeCon  NodeType = "con" // scalar slot, not an object but used for Value() of a leaf
)

// ActionType enumerates the op actions of §3.2.
type ActionType string

const (
	ActionMakeMap   ActionType = "make-map"
	ActionMakeTable ActionType = "make-table"
	ActionMakeList  ActionType = "make-list"
	ActionMakeText  ActionType = "make-text"
	ActionPut       ActionType = "put"
	ActionDelete    ActionType = "delete"
	ActionIncrement ActionType = "increment"
	ActionMarkBegin ActionType = "mark-begin"
	ActionMarkEnd   ActionType = "mark-end"
)

// IsMake reports whether the action creates a new object whose id equals
// the op id.
func (a ActionType) IsMake() bool {
	switch a {
	case ActionMakeMap, ActionMakeTable, ActionMakeList, ActionMakeText:
		return true
	}
	return false
}

// ObjectNodeType returns the NodeType an action of kind IsMake() creates.
func (a ActionType) ObjectNodeType() NodeType {
	switch a {
	case ActionMakeMap, ActionMakeTable:
		return NodeTypeMap
	case ActionMakeList:
		return NodeTypeList
	case ActionMakeText:
		return NodeTypeText
	}
	return ""
}

// ExpandPolicy controls how a mark's range grows when text is inserted at
// its boundary.
type ExpandPolicy uint8

const (
	ExpandNone   ExpandPolicy = 0
	ExpandBefore ExpandPolicy = 1
	ExpandAfter  ExpandPolicy = 2
	ExpandBoth   ExpandPolicy = 3
)

func (e ExpandPolicy) String() string {
	switch e {
	case ExpandBefore:
		return "before"
	case ExpandAfter:
		return "after"
	case ExpandBoth:
		return "both"
	default:
		return "none"
	}
}

// EncodingFormat names a wire format a document or change can be rendered
// to. EncodingFormatBinary is the only format defined, and the only one
// the core produces.
type EncodingFormat string

const (
	EncodingFormatBinary EncodingFormat = "binary"
)
