// Package printer implements the deterministic textual pretty-printers
// described in spec.md §6 — the "Collaborator: pretty-printers" seam.
// Output ordering is entirely determined by the module model's own
// slice order (already made deterministic upstream in internal/wasmmod
// and internal/unused), never by map iteration.
package printer

import (
	"fmt"
	"strings"

	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/wasmmod"
)

// PrintWASMModule renders m in the textual tree form from spec.md §6,
// used for golden tests and debug dumps.
func PrintWASMModule(h *heap.Heap, m *wasmmod.Module) string {
	var b strings.Builder
	for i, t := range m.Types {
		fmt.Fprintf(&b, "(type $t%d (func", i)
		for p := 0; p < t.Arity; p++ {
			b.WriteString(" (param i32)")
		}
		b.WriteString(" (result i32)))\n")
	}
	for _, d := range m.DataSegments {
		fmt.Fprintf(&b, "(data (i32.const %d) %q)\n", d.Offset, string(d.Bytes))
	}
	if len(m.Table) > 0 {
		fmt.Fprintf(&b, "(table $0 %d funcref)\n", len(m.Table))
		b.WriteString("(elem $0 (i32.const 0)")
		for _, fn := range m.Table {
			fmt.Fprintf(&b, " $%s", fn.PrettyPrint(h))
		}
		b.WriteString(")\n")
	}
	for _, fn := range m.Functions {
		printFunction(h, &b, fn)
	}
	for _, e := range m.Exports {
		fmt.Fprintf(&b, "(export %q (func $%s))\n", h.Str(e.Name), e.FunctionName.PrettyPrint(h))
	}
	return b.String()
}

func printFunction(h *heap.Heap, b *strings.Builder, fn wasmmod.Function) {
	fmt.Fprintf(b, "(func $%s", fn.Name.PrettyPrint(h))
	for _, p := range fn.ParamNames {
		fmt.Fprintf(b, " (param $%s i32)", h.Str(p))
	}
	b.WriteString(" (result i32)\n")
	for _, l := range fn.Locals {
		fmt.Fprintf(b, "  (local $%s i32)\n", h.Str(l))
	}
	for _, instr := range fn.Body {
		printInstruction(h, b, instr, 1)
	}
	b.WriteString(")\n")
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

func printInstruction(h *heap.Heap, b *strings.Builder, instr wasmmod.Instruction, depth int) {
	indent(b, depth)
	switch instr.Tag {
	case wasmmod.InstrInline:
		printInline(h, b, instr.Inline)
		b.WriteString("\n")
	case wasmmod.InstrIfElse:
		b.WriteString("(if ")
		printInline(h, b, instr.Condition)
		b.WriteString(" (then\n")
		for _, s := range instr.Then {
			printInstruction(h, b, s, depth+1)
		}
		indent(b, depth)
		b.WriteString(")")
		if len(instr.Else) > 0 {
			b.WriteString(" (else\n")
			for _, s := range instr.Else {
				printInstruction(h, b, s, depth+1)
			}
			indent(b, depth)
			b.WriteString(")")
		}
		b.WriteString(")\n")
	case wasmmod.InstrUnconditionalJump:
		fmt.Fprintf(b, "(br $l%d)\n", instr.Label)
	case wasmmod.InstrLoop:
		fmt.Fprintf(b, "(loop $l%d (exit $l%d)\n", instr.ContinueLabel, instr.ExitLabel)
		for _, s := range instr.Body {
			printInstruction(h, b, s, depth+1)
		}
		indent(b, depth)
		b.WriteString(")\n")
	}
}

func printInline(h *heap.Heap, b *strings.Builder, i wasmmod.InlineInstruction) {
	switch i.Tag {
	case wasmmod.InlineConst:
		fmt.Fprintf(b, "(i32.const %d)", i.ConstValue)
	case wasmmod.InlineLocalGet:
		fmt.Fprintf(b, "(local.get $%s)", h.Str(i.LocalName))
	case wasmmod.InlineLocalSet:
		fmt.Fprintf(b, "(local.set $%s ", h.Str(i.LocalName))
		printInline(h, b, *i.Value)
		b.WriteString(")")
	case wasmmod.InlineDrop:
		b.WriteString("(drop ")
		printInline(h, b, *i.Value)
		b.WriteString(")")
	case wasmmod.InlineBinary:
		fmt.Fprintf(b, "(i32.%s ", binOpName(i.Op))
		printInline(h, b, *i.Lhs)
		b.WriteString(" ")
		printInline(h, b, *i.Rhs)
		b.WriteString(")")
	case wasmmod.InlineLoad:
		b.WriteString("(i32.load")
		writeOffset(b, i.Offset)
		b.WriteString(" ")
		printInline(h, b, *i.Pointer)
		b.WriteString(")")
	case wasmmod.InlineStore:
		b.WriteString("(i32.store")
		writeOffset(b, i.Offset)
		b.WriteString(" ")
		printInline(h, b, *i.Pointer)
		b.WriteString(" ")
		printInline(h, b, *i.Stored)
		b.WriteString(")")
	case wasmmod.InlineDirectCall:
		fmt.Fprintf(b, "(call $%s", i.CalleeFunctionName.PrettyPrint(h))
		for _, a := range i.Arguments {
			b.WriteString(" ")
			printInline(h, b, a)
		}
		b.WriteString(")")
	case wasmmod.InlineIndirectCall:
		b.WriteString("(call_indirect (type $" + (wasmmod.FunctionType{Arity: i.FunctionTypeArity}).TypeString() + ") ")
		printInline(h, b, *i.CalleeIndex)
		for _, a := range i.Arguments {
			b.WriteString(" ")
			printInline(h, b, a)
		}
		b.WriteString(")")
	}
}

// writeOffset implements spec.md §8 property 8: offset=0 is omitted
// entirely; offset=4*k is printed for k>0.
func writeOffset(b *strings.Builder, offset int32) {
	if offset == 0 {
		return
	}
	fmt.Fprintf(b, " offset=%d", offset)
}

func binOpName(op wasmmod.BinOp) string {
	switch op {
	case wasmmod.BinAdd:
		return "add"
	case wasmmod.BinSub:
		return "sub"
	case wasmmod.BinMul:
		return "mul"
	case wasmmod.BinDivS:
		return "div_s"
	case wasmmod.BinRemS:
		return "rem_s"
	case wasmmod.BinLtS:
		return "lt_s"
	case wasmmod.BinLeS:
		return "le_s"
	case wasmmod.BinGtS:
		return "gt_s"
	case wasmmod.BinGeS:
		return "ge_s"
	case wasmmod.BinEq:
		return "eq"
	case wasmmod.BinNe:
		return "ne"
	case wasmmod.BinAnd:
		return "and"
	case wasmmod.BinOr:
		return "or"
	default:
		return "xor"
	}
}
