package sketchvm

import (
	"encoding/binary"
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
)

func TestCompactASTRoundTrip(t *testing.T) {
	prog, diag := parse(t, `
void setup() {
  pinMode(13, 1);
}
void loop() {
  digitalWrite(13, 1);
  delay(1000);
}
`)
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diag)
	}

	buf, err := EncodeCompactAST(prog)
	if err != nil {
		t.Fatalf("EncodeCompactAST: %v", err)
	}

	magic := binary.LittleEndian.Uint32(buf[0:4])
	if magic != astMagic {
		t.Fatalf("encoded magic = %#x, want %#x", magic, astMagic)
	}

	decoded, err := DecodeCompactAST(buf)
	if err != nil {
		t.Fatalf("DecodeCompactAST: %v", err)
	}

	want, got := prog.Print(), decoded.Print()
	if want != got {
		dmp := diffmatchpatch.New()
		diffs := dmp.DiffMain(want, got, true)
		diffs = dmp.DiffCleanupSemantic(diffs)
		t.Errorf("round-trip mismatch (original vs. decoded):\n%s", dmp.DiffPrettyText(diffs))
	}
}

func TestCompactASTDecodeRejectsBadMagic(t *testing.T) {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], 0xDEADBEEF)
	binary.LittleEndian.PutUint16(buf[4:6], astVersion)
	_, err := DecodeCompactAST(buf)
	assertBadFormat(t, err, "bad magic")
}

func TestCompactASTDecodeRejectsUnsupportedMajorVersion(t *testing.T) {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], astMagic)
	binary.LittleEndian.PutUint16(buf[4:6], 0x0200)
	_, err := DecodeCompactAST(buf)
	assertBadFormat(t, err, "unsupported major version")
}

func TestCompactASTDecodeRejectsTruncatedBuffer(t *testing.T) {
	_, err := DecodeCompactAST([]byte{1, 2, 3})
	assertBadFormat(t, err, "truncated buffer")
}

func TestCompactASTDecodeRejectsNonIncreasingChildIndex(t *testing.T) {
	// Two bare nodes, empty string table, node 0 claims a single child
	// whose relative index (0) points back at itself rather than
	// strictly later in pre-order.
	buf := make([]byte, 0, 16+20+16)
	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[0:4], astMagic)
	binary.LittleEndian.PutUint16(header[4:6], astVersion)
	binary.LittleEndian.PutUint32(header[8:12], 2)
	binary.LittleEndian.PutUint32(header[12:16], 0)
	buf = append(buf, header...)

	rec0 := make([]byte, nodeHeaderSize)
	rec0[3] = 1 // childCount = 1
	buf = append(buf, rec0...)
	childIdx := make([]byte, 2)
	binary.LittleEndian.PutUint16(childIdx, 0) // rel = 0 -> points at itself
	buf = append(buf, childIdx...)
	buf = append(buf, 0, 0) // pad to 4-byte boundary

	rec1 := make([]byte, nodeHeaderSize)
	buf = append(buf, rec1...)

	_, err := DecodeCompactAST(buf)
	assertBadFormat(t, err, "non-increasing child index")
}

func TestCompactASTDecodeRejectsTrailingBytes(t *testing.T) {
	n := newNode(NodeProgram, 1)
	buf, err := EncodeCompactAST(n)
	if err != nil {
		t.Fatalf("EncodeCompactAST: %v", err)
	}
	buf = append(buf, 0xFF, 0xFF, 0xFF, 0xFF)
	_, err = DecodeCompactAST(buf)
	assertBadFormat(t, err, "trailing bytes")
}

func assertBadFormat(t *testing.T, err error, desc string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: want an error, got nil", desc)
	}
	serr, ok := err.(*Error)
	if !ok {
		t.Fatalf("%s: error type = %T, want *Error", desc, err)
	}
	if serr.Kind != KindBadFormat {
		t.Errorf("%s: Kind = %v, want KindBadFormat", desc, serr.Kind)
	}
}
