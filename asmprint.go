package wsvm

import (
	"fmt"
	"io"
)

// Print renders instrs as GNU/Apple-AS syntax, one instruction per line.
// It is total: every ARM64Instr value renders to exactly one non-empty
// line, and Print never builds assembly text anywhere but here -- the
// compiler packages only ever construct ARM64Instr values.
func Print(w io.Writer, instrs []ARM64Instr) error {
	for _, instr := range instrs {
		line, err := renderLine(instr)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func renderLine(instr ARM64Instr) (string, error) {
	switch i := instr.(type) {
	case DataSection:
		return ".data", nil
	case TextSection:
		return ".text", nil
	case Balign:
		return fmt.Sprintf(".balign %d", i.N), nil
	case GlobalSym:
		return fmt.Sprintf(".global %s", i.Symbol), nil
	case Skip:
		return fmt.Sprintf("%s: .skip %d", i.Label, i.N), nil
	case LabelDef:
		return fmt.Sprintf("%s:", i.Name), nil
	case Comment:
		return fmt.Sprintf("// %s", i.Text), nil

	case MovReg:
		return fmt.Sprintf("\tmov %v, %v", i.Dst, i.Src), nil
	case MovImm:
		return fmt.Sprintf("\tmov %v, #%d", i.Dst, i.Imm), nil

	case AddReg:
		return fmt.Sprintf("\tadd %v, %v, %v", i.Dst, i.A, i.B), nil
	case AddImm:
		return fmt.Sprintf("\tadd %v, %v, #%d", i.Dst, i.Src, i.Imm), nil
	case SubReg:
		return fmt.Sprintf("\tsub %v, %v, %v", i.Dst, i.A, i.B), nil
	case SubImm:
		return fmt.Sprintf("\tsub %v, %v, #%d", i.Dst, i.Src, i.Imm), nil

	case Ldr:
		return fmt.Sprintf("\tldr %v, [%v, #%d]", i.Dst, i.Base, i.Offset), nil
	case Str:
		return fmt.Sprintf("\tstr %v, [%v, #%d]", i.Src, i.Base, i.Offset), nil
	case Ldrb:
		return fmt.Sprintf("\tldrb %v, [%v, #%d]", i.Dst, i.Base, i.Offset), nil
	case Strb:
		return fmt.Sprintf("\tstrb %v, [%v, #%d]", i.Src, i.Base, i.Offset), nil
	case LdrOff:
		return fmt.Sprintf("\tldr %v, [%v, %v]", i.Dst, i.Base, i.Index), nil
	case StrOff:
		return fmt.Sprintf("\tstr %v, [%v, %v]", i.Src, i.Base, i.Index), nil
	case LdrbOff:
		return fmt.Sprintf("\tldrb %v, [%v, %v]", i.Dst, i.Base, i.Index), nil
	case StrbOff:
		return fmt.Sprintf("\tstrb %v, [%v, %v]", i.Src, i.Base, i.Index), nil

	case CmpReg:
		return fmt.Sprintf("\tcmp %v, %v", i.A, i.B), nil
	case CmpImm:
		return fmt.Sprintf("\tcmp %v, #%d", i.A, i.Imm), nil
	case BCond:
		return fmt.Sprintf("\tb.%s %s", i.Cond, i.Label), nil
	case Branch_:
		return fmt.Sprintf("\tb %s", i.Label), nil
	case Bl:
		return fmt.Sprintf("\tbl %s", i.Label), nil
	case Br:
		return fmt.Sprintf("\tbr %v", i.Reg), nil
	case Ret:
		return "\tret", nil
	case Svc:
		return fmt.Sprintf("\tsvc #%d", i.Imm), nil

	case Psh:
		return fmt.Sprintf("\tstr %v, [sp, #-16]!", i.Reg), nil
	case Pop:
		return fmt.Sprintf("\tldr %v, [sp], #16", i.Reg), nil

	case Adrp:
		return fmt.Sprintf("\tadrp %v, %s@PAGE", i.Dst, i.Symbol), nil
	case AddPageOff:
		return fmt.Sprintf("\tadd %v, %v, %s@PAGEOFF", i.Dst, i.Src, i.Symbol), nil
	case Adr:
		return fmt.Sprintf("\tadr %v, %s", i.Dst, i.Label), nil

	default:
		return "", fmt.Errorf("asmprint: unrenderable instruction %T", instr)
	}
}
