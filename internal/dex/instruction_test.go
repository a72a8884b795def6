package dex

import (
	"errors"
	"testing"

	"DexTracer/internal/apk"
)

func TestDecodeConst4SignExtension(t *testing.T) {
	// const/4 v0, #0xF followed by return-void. The 4-bit literal 0xF is
	// negative one, not fifteen.
	insns, err := Decode([]uint16{0xF012, 0x0e})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(insns) != 2 {
		t.Fatalf("got %d instructions, want 2", len(insns))
	}
	c := insns[0]
	if c.Name != "const/4" || c.Dest != 0 {
		t.Errorf("got %s v%d, want const/4 v0", c.Name, c.Dest)
	}
	if !c.HasLit || c.Literal != -1 {
		t.Errorf("literal = %d (has=%v), want -1", c.Literal, c.HasLit)
	}

	insns, err = Decode([]uint16{0x1012, 0x0e})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if insns[0].Literal != 1 {
		t.Errorf("const/4 v0, #1: literal = %d, want 1", insns[0].Literal)
	}
}

func TestDecodeConst16(t *testing.T) {
	insns, err := Decode([]uint16{0x0113, 0x1234})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	c := insns[0]
	if c.Name != "const/16" || c.Dest != 1 || c.Literal != 0x1234 {
		t.Errorf("got %s v%d #%d, want const/16 v1 #4660", c.Name, c.Dest, c.Literal)
	}

	// Negative 16-bit literal sign-extends too.
	insns, err = Decode([]uint16{0x0113, 0xFFFF})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if insns[0].Literal != -1 {
		t.Errorf("const/16 v1, #0xFFFF: literal = %d, want -1", insns[0].Literal)
	}
}

func TestDecodeInvokeVirtualRegisterOrder(t *testing.T) {
	// invoke-virtual {v1, v2}, method@7. The receiver register comes first
	// in the argument list.
	insns, err := Decode([]uint16{0x206e, 7, 0x0021})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(insns) != 1 {
		t.Fatalf("got %d instructions, want 1", len(insns))
	}
	inv := insns[0]
	if !inv.IsInvoke() {
		t.Fatalf("%s not classified as invoke", inv.Name)
	}
	if inv.MethodIdx != 7 {
		t.Errorf("method index = %d, want 7", inv.MethodIdx)
	}
	if len(inv.Args) != 2 || inv.Args[0] != 1 || inv.Args[1] != 2 {
		t.Errorf("args = %v, want [1 2]", inv.Args)
	}
}

func TestDecodeInvokeFiveArgs(t *testing.T) {
	// invoke-virtual {v0, v1, v2, v3, v4}, method@3: count 5 puts the fifth
	// register in the G nibble of the first word.
	insns, err := Decode([]uint16{0x546e, 3, 0x3210})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	inv := insns[0]
	want := []int{0, 1, 2, 3, 4}
	if len(inv.Args) != len(want) {
		t.Fatalf("args = %v, want %v", inv.Args, want)
	}
	for i, r := range want {
		if inv.Args[i] != r {
			t.Errorf("args[%d] = %d, want %d", i, inv.Args[i], r)
		}
	}
}

func TestDecodeInvokeRange(t *testing.T) {
	// invoke-virtual/range {v3 .. v5}, method@2
	insns, err := Decode([]uint16{0x0374, 2, 3})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	inv := insns[0]
	if !inv.IsInvoke() || inv.MethodIdx != 2 {
		t.Fatalf("got %s method@%d, want invoke-virtual/range method@2", inv.Name, inv.MethodIdx)
	}
	if len(inv.Args) != 3 || inv.Args[0] != 3 || inv.Args[2] != 5 {
		t.Errorf("args = %v, want [3 4 5]", inv.Args)
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	// 0x3e is an unused opcode. Decoding continues past it.
	insns, err := Decode([]uint16{0x003e, 0x0e})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(insns) != 2 {
		t.Fatalf("got %d instructions, want 2", len(insns))
	}
	if !insns[0].Unknown {
		t.Errorf("opcode 0x3e not flagged as unknown")
	}
	if insns[1].Name != "return-void" {
		t.Errorf("decoding did not resume after unknown opcode: got %s", insns[1].Name)
	}
}

func TestDecodeTruncated(t *testing.T) {
	// const/16 needs two code units; only one is present.
	_, err := Decode([]uint16{0x0113})
	if err == nil {
		t.Fatal("Decode accepted truncated code")
	}
	var ae *apk.Error
	if !errors.As(err, &ae) || ae.Kind != apk.ErrMethodDecode {
		t.Errorf("error = %v, want ErrMethodDecode", err)
	}
}

func TestDecodeEmpty(t *testing.T) {
	insns, err := Decode(nil)
	if err != nil {
		t.Fatalf("Decode(nil): %v", err)
	}
	if len(insns) != 0 {
		t.Errorf("got %d instructions from empty code", len(insns))
	}
}
