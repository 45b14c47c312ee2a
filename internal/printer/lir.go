package printer

import (
	"fmt"
	"strings"

	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/lir"
)

// PrintLIRSources renders a deterministic textual dump of src, used
// for debug output ahead of WASM lowering (spec.md §6's
// pretty-printer collaborator, LIR side).
func PrintLIRSources(h *heap.Heap, src lir.Sources) string {
	var b strings.Builder
	for _, fn := range src.Functions {
		fmt.Fprintf(&b, "function %s(%s) {\n", fn.Name.PrettyPrint(h), joinNames(h, fn.Parameters))
		printLIRStatements(h, &b, fn.Body, 1)
		indentLIR(&b, 1)
		fmt.Fprintf(&b, "return %s;\n}\n", lirExprString(h, fn.ReturnValue))
	}
	return b.String()
}

func joinNames(h *heap.Heap, names []heap.PStr) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = h.Str(n)
	}
	return strings.Join(parts, ", ")
}

func indentLIR(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

func lirExprString(h *heap.Heap, e lir.Expr) string {
	switch e.Tag {
	case lir.ExprIntLiteral:
		return fmt.Sprintf("%d", e.IntValue)
	case lir.ExprInt31Literal:
		return fmt.Sprintf("%d", e.Int31Value)
	case lir.ExprStringName:
		return h.Str(e.Name)
	case lir.ExprVariable:
		return h.Str(e.Name)
	case lir.ExprFunctionName:
		return e.FunctionName.PrettyPrint(h)
	}
	return "<?>"
}

func printLIRStatements(h *heap.Heap, b *strings.Builder, stmts []lir.Statement, depth int) {
	for _, s := range stmts {
		printLIRStatement(h, b, s, depth)
	}
}

func printLIRStatement(h *heap.Heap, b *strings.Builder, s lir.Statement, depth int) {
	indentLIR(b, depth)
	switch s.Tag {
	case lir.StmtBinary:
		fmt.Fprintf(b, "let %s = %s <op> %s;\n", h.Str(s.Name), lirExprString(h, s.E1), lirExprString(h, s.E2))
	case lir.StmtUnary:
		fmt.Fprintf(b, "let %s = !%s;\n", h.Str(s.Name), lirExprString(h, s.E1))
	case lir.StmtIsPointer:
		fmt.Fprintf(b, "let %s = isPointer(%s);\n", h.Str(s.Name), lirExprString(h, s.E1))
	case lir.StmtIndexedAccess:
		fmt.Fprintf(b, "let %s = %s[%d];\n", h.Str(s.Name), lirExprString(h, s.Pointer), s.Index)
	case lir.StmtIndexedAssign:
		fmt.Fprintf(b, "%s[%d] = %s;\n", lirExprString(h, s.Pointer), s.Index, lirExprString(h, s.AssignedExpr))
	case lir.StmtCall:
		callee := "<indirect>"
		if s.CalleeFunctionName != nil {
			callee = s.CalleeFunctionName.PrettyPrint(h)
		}
		args := make([]string, len(s.Arguments))
		for i, a := range s.Arguments {
			args[i] = lirExprString(h, a)
		}
		if s.ReturnCollector != nil {
			fmt.Fprintf(b, "let %s = %s(%s);\n", h.Str(*s.ReturnCollector), callee, strings.Join(args, ", "))
		} else {
			fmt.Fprintf(b, "%s(%s);\n", callee, strings.Join(args, ", "))
		}
	case lir.StmtIfElse:
		fmt.Fprintf(b, "if %s {\n", lirExprString(h, s.Condition))
		printLIRStatements(h, b, s.S1, depth+1)
		indentLIR(b, depth)
		b.WriteString("} else {\n")
		printLIRStatements(h, b, s.S2, depth+1)
		indentLIR(b, depth)
		b.WriteString("}\n")
	case lir.StmtSingleIf:
		fmt.Fprintf(b, "if%s %s {\n", invertMark(s.InvertCondition), lirExprString(h, s.Condition))
		printLIRStatements(h, b, s.Statements, depth+1)
		indentLIR(b, depth)
		b.WriteString("}\n")
	case lir.StmtBreak:
		fmt.Fprintf(b, "break %s;\n", lirExprString(h, s.BreakValue))
	case lir.StmtWhile:
		b.WriteString("while (true) {\n")
		printLIRStatements(h, b, s.Statements, depth+1)
		indentLIR(b, depth)
		b.WriteString("}\n")
	case lir.StmtCast:
		fmt.Fprintf(b, "let %s = cast(%s);\n", h.Str(s.Name), lirExprString(h, s.CastExpr))
	case lir.StmtLateInitDeclaration:
		fmt.Fprintf(b, "let %s;\n", h.Str(s.Name))
	case lir.StmtLateInitAssignment:
		fmt.Fprintf(b, "%s = %s;\n", h.Str(s.Name), lirExprString(h, s.AssignedExpr))
	case lir.StmtStructInit:
		exprs := make([]string, len(s.ExpressionList))
		for i, e := range s.ExpressionList {
			exprs[i] = lirExprString(h, e)
		}
		fmt.Fprintf(b, "let %s = struct(%s);\n", h.Str(s.Name), strings.Join(exprs, ", "))
	}
}

func invertMark(invert bool) string {
	if invert {
		return "!"
	}
	return ""
}
