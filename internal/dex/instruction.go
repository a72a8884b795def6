package dex

import (
	"fmt"
	"strings"

	"DexTracer/internal/apk"
)

// Instruction is one decoded Dalvik instruction. Dest is -1 when the
// instruction writes no register; MethodIdx/StringIdx/FieldIdx/TypeIdx are -1
// unless the opcode carries that index kind. Instructions are produced lazily
// per method and never cached globally.
type Instruction struct {
	Opcode  byte
	Name    string
	Family  Family
	Dest    int
	Args    []int
	Literal int64
	HasLit  bool
	// Constant-pool references, -1 when absent.
	MethodIdx int
	StringIdx int
	FieldIdx  int
	TypeIdx   int
	// Unknown marks an opcode outside the table; the decoder skips one code
	// unit and continues, flagging the gap here.
	Unknown bool
	Raw     string
}

// IsInvoke reports whether this is any invoke form.
func (in *Instruction) IsInvoke() bool { return in.Family == FamilyInvoke }

// IsConst reports whether this is any const form.
func (in *Instruction) IsConst() bool { return in.Family == FamilyConst }

func (in *Instruction) String() string { return in.Raw }

// signExtend4 sign-extends a 4-bit two's-complement field.
func signExtend4(v uint16) int64 {
	if v&0x8 != 0 {
		return int64(v) - 16
	}
	return int64(v)
}

// Decode decodes a raw 16-bit code-unit stream into typed instructions.
// An unknown opcode yields a flagged one-unit Instruction and decoding
// continues; a stream that ends in the middle of an instruction is a
// per-method decode error.
func Decode(code []uint16) ([]Instruction, error) {
	var out []Instruction

	for i := 0; i < len(code); {
		word := code[i]
		op := byte(word & 0xff)
		info := opTable[op]

		if info.name == "" {
			out = append(out, Instruction{
				Opcode:    op,
				Name:      fmt.Sprintf("unknown-%#02x", op),
				Family:    FamilyOther,
				Dest:      -1,
				MethodIdx: -1, StringIdx: -1, FieldIdx: -1, TypeIdx: -1,
				Unknown: true,
				Raw:     fmt.Sprintf("unknown (opcode: %#02x)", op),
			})
			i++
			continue
		}

		width := info.format.width()
		if i+width > len(code) {
			return out, &apk.Error{
				Kind:   apk.ErrMethodDecode,
				Detail: fmt.Sprintf("truncated %s at unit %d: need %d units, have %d", info.name, i, width, len(code)-i),
			}
		}

		in := Instruction{
			Opcode: op,
			Name:   info.name,
			Family: info.family,
			Dest:   -1,
			MethodIdx: -1, StringIdx: -1, FieldIdx: -1, TypeIdx: -1,
		}

		hi := int(word >> 8)    // AA
		a4 := int(word>>8) & nib // A nibble
		b4 := int(word>>12) & nib

		switch info.format {
		case fmt10x:
			// no operands

		case fmt12x:
			in.Dest = a4
			in.Args = []int{b4}

		case fmt11n:
			in.Dest = a4
			in.Literal = signExtend4(uint16(b4))
			in.HasLit = true

		case fmt11x:
			if info.family == FamilyMove {
				in.Dest = hi
			} else {
				in.Args = []int{hi}
			}

		case fmt10t:
			in.Literal = int64(int8(hi))
			in.HasLit = true

		case fmt20t:
			in.Literal = int64(int16(code[i+1]))
			in.HasLit = true

		case fmt22x:
			in.Dest = hi
			in.Args = []int{int(code[i+1])}

		case fmt21t:
			in.Args = []int{hi}
			in.Literal = int64(int16(code[i+1]))
			in.HasLit = true

		case fmt21s:
			in.Dest = hi
			in.Literal = int64(int16(code[i+1]))
			in.HasLit = true

		case fmt21h:
			in.Dest = hi
			if op == 0x19 { // const-wide/high16
				in.Literal = int64(int16(code[i+1])) << 48
			} else {
				in.Literal = int64(int16(code[i+1])) << 16
			}
			in.HasLit = true

		case fmt21c:
			in.Dest = hi
			setIndex(&in, info.index, int(code[i+1]))

		case fmt23x:
			in.Dest = hi
			in.Args = []int{int(code[i+1] & 0xff), int(code[i+1] >> 8)}

		case fmt22b:
			in.Dest = hi
			in.Args = []int{int(code[i+1] & 0xff)}
			in.Literal = int64(int8(code[i+1] >> 8))
			in.HasLit = true

		case fmt22t:
			in.Args = []int{a4, b4}
			in.Literal = int64(int16(code[i+1]))
			in.HasLit = true

		case fmt22s:
			in.Dest = a4
			in.Args = []int{b4}
			in.Literal = int64(int16(code[i+1]))
			in.HasLit = true

		case fmt22c:
			in.Dest = a4
			in.Args = []int{b4}
			setIndex(&in, info.index, int(code[i+1]))

		case fmt32x:
			in.Dest = int(code[i+1])
			in.Args = []int{int(code[i+2])}

		case fmt30t:
			in.Literal = int64(int32(uint32(code[i+1]) | uint32(code[i+2])<<16))
			in.HasLit = true

		case fmt31i:
			in.Dest = hi
			in.Literal = int64(int32(uint32(code[i+1]) | uint32(code[i+2])<<16))
			in.HasLit = true

		case fmt31t:
			in.Args = []int{hi}
			in.Literal = int64(int32(uint32(code[i+1]) | uint32(code[i+2])<<16))
			in.HasLit = true

		case fmt31c:
			in.Dest = hi
			setIndex(&in, info.index, int(uint32(code[i+1])|uint32(code[i+2])<<16))

		case fmt35c:
			count := b4
			g := a4
			setIndex(&in, info.index, int(code[i+1]))
			regs := code[i+2]
			all := []int{
				int(regs) & nib,
				int(regs>>4) & nib,
				int(regs>>8) & nib,
				int(regs>>12) & nib,
				g,
			}
			if count > 5 {
				count = 5
			}
			// Argument order is preserved; for instance calls the implicit
			// receiver is the first argument.
			in.Args = append(in.Args, all[:count]...)

		case fmt3rc:
			count := hi
			setIndex(&in, info.index, int(code[i+1]))
			first := int(code[i+2])
			for r := 0; r < count; r++ {
				in.Args = append(in.Args, first+r)
			}

		case fmt51l:
			in.Dest = hi
			in.Literal = int64(uint64(code[i+1]) |
				uint64(code[i+2])<<16 |
				uint64(code[i+3])<<32 |
				uint64(code[i+4])<<48)
			in.HasLit = true
		}

		in.Raw = renderRaw(&in)
		out = append(out, in)
		i += width
	}

	return out, nil
}

const nib = 0xf

func setIndex(in *Instruction, kind indexKind, idx int) {
	switch kind {
	case idxString:
		in.StringIdx = idx
	case idxType:
		in.TypeIdx = idx
	case idxField:
		in.FieldIdx = idx
	case idxMethod:
		in.MethodIdx = idx
	}
}

// renderRaw builds the textual form used for diagnostics,
// e.g. "invoke-virtual {v1, v2}, method@7" or "const/4 v0, #-1".
func renderRaw(in *Instruction) string {
	var sb strings.Builder
	sb.WriteString(in.Name)

	switch {
	case in.IsInvoke():
		sb.WriteString(" {")
		for i, a := range in.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "v%d", a)
		}
		sb.WriteString("}")
		fmt.Fprintf(&sb, ", method@%d", in.MethodIdx)
		return sb.String()

	case in.StringIdx >= 0:
		fmt.Fprintf(&sb, " v%d, string@%d", in.Dest, in.StringIdx)
		return sb.String()

	case in.FieldIdx >= 0 || in.TypeIdx >= 0:
		if in.Dest >= 0 {
			fmt.Fprintf(&sb, " v%d", in.Dest)
		}
		for _, a := range in.Args {
			fmt.Fprintf(&sb, ", v%d", a)
		}
		if in.FieldIdx >= 0 {
			fmt.Fprintf(&sb, ", field@%d", in.FieldIdx)
		} else {
			fmt.Fprintf(&sb, ", type@%d", in.TypeIdx)
		}
		return sb.String()
	}

	sep := " "
	if in.Dest >= 0 {
		fmt.Fprintf(&sb, " v%d", in.Dest)
		sep = ", "
	}
	for _, a := range in.Args {
		fmt.Fprintf(&sb, "%sv%d", sep, a)
		sep = ", "
	}
	if in.HasLit {
		fmt.Fprintf(&sb, "%s#%d", sep, in.Literal)
	}
	return sb.String()
}
