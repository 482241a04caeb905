package sketchvm

import (
	"encoding/binary"
	"math"
)

// ValueType is the CompactAST dataType tag (spec §4.4 "Value types
// (exactly 15, closed)" plus the operator token type needed for
// operator-bearing nodes, for 16 concrete tags total).
type ValueType uint8

const (
	VTVoid ValueType = iota
	VTBool
	VTInt8
	VTUint8
	VTInt16
	VTUint16
	VTInt32
	VTUint32
	VTInt64
	VTUint64
	VTFloat32
	VTFloat64
	VTString
	VTArray
	VTNull
	VTOperator
)

const (
	astMagic   uint32 = 0x41535450
	astVersion uint16 = 0x0100
)

// nodeHeaderSize is kind+flags+dataType+childCount (4 bytes) + nameIndex
// (2 bytes) + 2 bytes padding to bring the fixed-width value field to an
// 8-byte boundary, then the 8-byte value itself (spec §4.4: "multi-byte
// fields are 4-byte aligned").
const nodeHeaderSize = 16

// EncodeCompactAST serializes tree to the binary form described in spec
// §4.4. Grounded on google-kati/serialize.go's GOB-based dependency
// graph serialization (header + flattened record table + string
// interning), rebuilt here as a bespoke fixed-layout binary codec
// since CompactAST's wire format is far more constrained than GOB's.
func EncodeCompactAST(tree *Node) ([]byte, error) {
	var flat []*Node
	var flatten func(n *Node)
	flatten = func(n *Node) {
		flat = append(flat, n)
		for _, c := range n.Children {
			flatten(c)
		}
	}
	flatten(tree)

	st := newStringTable()
	type payload struct {
		dataType  ValueType
		nameIndex uint32
		value     uint64
	}
	payloads := make([]payload, len(flat))
	for i, n := range flat {
		dt, nameIdx, val := nodePayload(n, st)
		payloads[i] = payload{dt, nameIdx, val}
		if len(n.Children) > math.MaxUint8 {
			return nil, newError(KindBadFormat, n.Line, "node has %d children, exceeds 255", len(n.Children))
		}
	}

	var strBuf []byte
	for _, s := range st.values {
		var lenBuf [2]byte
		binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(s)))
		strBuf = append(strBuf, lenBuf[:]...)
		strBuf = append(strBuf, s...)
	}

	index := make(map[*Node]int, len(flat))
	for i, n := range flat {
		index[n] = i
	}

	var nodeBuf []byte
	for i, n := range flat {
		p := payloads[i]
		rec := make([]byte, nodeHeaderSize)
		rec[0] = byte(n.Kind)
		rec[1] = n.Flags
		rec[2] = byte(p.dataType)
		rec[3] = byte(len(n.Children))
		binary.LittleEndian.PutUint16(rec[4:6], uint16(p.nameIndex))
		// rec[6:8] left as zero padding.
		binary.LittleEndian.PutUint64(rec[8:16], p.value)
		nodeBuf = append(nodeBuf, rec...)

		for _, c := range n.Children {
			childIdx := index[c]
			rel := uint16(childIdx - i)
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], rel)
			nodeBuf = append(nodeBuf, b[:]...)
		}
		if rem := (len(n.Children) * 2) % 4; rem != 0 {
			nodeBuf = append(nodeBuf, make([]byte, 4-rem)...)
		}
	}

	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[0:4], astMagic)
	binary.LittleEndian.PutUint16(header[4:6], astVersion)
	binary.LittleEndian.PutUint16(header[6:8], 0)
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(flat)))
	binary.LittleEndian.PutUint32(header[12:16], uint32(len(strBuf)))

	out := make([]byte, 0, len(header)+len(strBuf)+len(nodeBuf))
	out = append(out, header...)
	out = append(out, strBuf...)
	out = append(out, nodeBuf...)
	return out, nil
}

// nodePayload computes the (dataType, nameIndex, value) triple for a
// node's fixed-width payload slot, keyed on NodeKind exactly the way
// ast.go's Print() keys its textual rendering on NodeKind.
func nodePayload(n *Node, st *stringTable) (ValueType, uint32, uint64) {
	const noName = 0xFFFF
	switch n.Kind {
	case NodeIntLitExpr, NodeEnumerator:
		nameIdx := uint32(noName)
		if n.Ident != "" {
			nameIdx = st.intern(n.Ident)
		}
		return VTInt64, nameIdx, uint64(n.IntVal)
	case NodeCharLitExpr:
		return VTInt8, noName, uint64(n.IntVal)
	case NodeFloatLitExpr:
		return VTFloat64, noName, math.Float64bits(n.FloatVal)
	case NodeStringLitExpr:
		return VTString, noName, uint64(st.intern(n.StrVal))
	case NodeBoolLitExpr:
		v := uint64(0)
		if n.BoolVal {
			v = 1
		}
		return VTBool, noName, v
	case NodeNullptrLitExpr:
		return VTNull, noName, 0
	case NodeBinaryExpr, NodeUnaryExpr, NodeAssignExpr, NodeCompoundAssignExpr, NodePostfixExpr:
		return VTOperator, noName, uint64(st.intern(n.Ident))
	case NodeVarDecl, NodeParam, NodeFuncDef, NodeFuncDecl, NodeTypedefDecl,
		NodeStructMember, NodeTypeName, NodeCastExpr, NodeReturnType:
		nameIdx := uint32(noName)
		if n.Ident != "" {
			nameIdx = st.intern(n.Ident)
		}
		val := uint64(noName)
		if n.Type != "" {
			val = uint64(st.intern(n.Type))
		}
		return VTString, nameIdx, val
	default:
		if n.Ident != "" {
			return VTVoid, st.intern(n.Ident), 0
		}
		return VTVoid, noName, 0
	}
}

// DecodeCompactAST parses a buffer produced by EncodeCompactAST back
// into a Node tree, enforcing every invariant from spec §4.4
// ("Decoder invariants").
func DecodeCompactAST(buf []byte) (*Node, error) {
	if len(buf) < 16 {
		return nil, newError(KindBadFormat, 0, "buffer shorter than CompactAST header")
	}
	magic := binary.LittleEndian.Uint32(buf[0:4])
	version := binary.LittleEndian.Uint16(buf[4:6])
	if magic != astMagic {
		return nil, newError(KindBadFormat, 0, "bad magic %#x", magic)
	}
	if version>>8 != astVersion>>8 {
		return nil, newError(KindBadFormat, 0, "unsupported major version %#x", version)
	}
	nodeCount := binary.LittleEndian.Uint32(buf[8:12])
	strTableSize := binary.LittleEndian.Uint32(buf[12:16])

	off := 16
	if off+int(strTableSize) > len(buf) {
		return nil, newError(KindBadFormat, 0, "string table overruns buffer")
	}
	strEnd := off + int(strTableSize)
	var strs stringTableReader
	for off < strEnd {
		if off+2 > strEnd {
			return nil, newError(KindBadFormat, 0, "truncated string table entry")
		}
		n := int(binary.LittleEndian.Uint16(buf[off : off+2]))
		off += 2
		if off+n > strEnd {
			return nil, newError(KindBadFormat, 0, "truncated string table entry")
		}
		strs.values = append(strs.values, string(buf[off:off+n]))
		off += n
	}
	off = strEnd

	type rawNode struct {
		kind       NodeKind
		flags      uint8
		dataType   ValueType
		childCount uint8
		nameIndex  uint32
		value      uint64
		children   []int
	}
	raws := make([]rawNode, nodeCount)
	for i := 0; i < int(nodeCount); i++ {
		if off+nodeHeaderSize > len(buf) {
			return nil, newError(KindBadFormat, 0, "truncated node record %d", i)
		}
		rec := buf[off : off+nodeHeaderSize]
		r := rawNode{
			kind:       NodeKind(rec[0]),
			flags:      rec[1],
			dataType:   ValueType(rec[2]),
			childCount: rec[3],
			nameIndex:  uint32(binary.LittleEndian.Uint16(rec[4:6])),
			value:      binary.LittleEndian.Uint64(rec[8:16]),
		}
		off += nodeHeaderSize
		childBytes := int(r.childCount) * 2
		if off+childBytes > len(buf) {
			return nil, newError(KindBadFormat, 0, "truncated child index list for node %d", i)
		}
		for c := 0; c < int(r.childCount); c++ {
			rel := int16(binary.LittleEndian.Uint16(buf[off : off+2]))
			off += 2
			childIdx := i + int(rel)
			if childIdx <= i || childIdx >= int(nodeCount) {
				return nil, newError(KindBadFormat, 0, "node %d child index %d not strictly later in pre-order", i, childIdx)
			}
			r.children = append(r.children, childIdx)
		}
		if pad := childBytes % 4; pad != 0 {
			off += 4 - pad
		}
		raws[i] = r
	}
	if off != len(buf) {
		return nil, newError(KindBadFormat, 0, "trailing bytes after node table: %d unconsumed", len(buf)-off)
	}

	nodes := make([]*Node, nodeCount)
	for i, r := range raws {
		n := &Node{Kind: r.kind, Flags: r.flags}
		decodeNodePayload(n, r.dataType, r.nameIndex, r.value, &strs)
		nodes[i] = n
	}
	for i, r := range raws {
		for _, ci := range r.children {
			nodes[i].addChild(nodes[ci])
		}
	}
	if nodeCount == 0 {
		return nil, newError(KindBadFormat, 0, "empty node table")
	}
	return nodes[0], nil
}

func decodeNodePayload(n *Node, dt ValueType, nameIndex uint32, value uint64, strs *stringTableReader) {
	name := func() string {
		if s, ok := strs.get(nameIndex); ok {
			return s
		}
		return ""
	}
	switch dt {
	case VTInt64, VTInt32, VTInt16, VTInt8, VTUint64, VTUint32, VTUint16, VTUint8:
		n.IntVal = int64(value)
		n.Ident = name()
	case VTFloat64, VTFloat32:
		n.FloatVal = math.Float64frombits(value)
	case VTString:
		if n.Kind == NodeStringLitExpr {
			if s, ok := strs.get(uint32(value)); ok {
				n.StrVal = s
			}
		} else {
			n.Ident = name()
			if s, ok := strs.get(uint32(value)); ok {
				n.Type = s
			}
		}
	case VTBool:
		n.BoolVal = value != 0
	case VTOperator:
		if s, ok := strs.get(uint32(value)); ok {
			n.Ident = s
		}
	case VTNull:
		// no payload.
	default: // VTVoid
		n.Ident = name()
	}
}
