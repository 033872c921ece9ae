package eval

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Print renders v using the REPL's value-printing grammar: `~` for
// negative numbers, `#"x"` characters, double-quoted escaped strings,
// `[v, v]` lists, `(v, v)` tuples, `{l = v,...}` canonical-order records,
// and `C`/`C v` constructors (never `C(v)`).
func Print(v Value) string {
	switch v := v.(type) {
	case IntValue:
		return printInt(v.V)
	case RealValue:
		return printReal(v.V)
	case BoolValue:
		if v.V {
			return "true"
		}
		return "false"
	case CharValue:
		return escapeChar(v.V)
	case StringValue:
		return escapeString(v.V)
	case UnitValue:
		return "()"
	case *TupleValue:
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = Print(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *RecordValue:
		names := sortedRecordFields(v.Fields)
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = fmt.Sprintf("%s = %s", n, Print(v.Fields[n]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *ListValue:
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = Print(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *BagValue:
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = Print(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *ConstructorValue:
		if v.Arg == nil {
			return v.Name
		}
		return v.Name + " " + printCtorArg(v.Arg)
	case *ClosureValue, *BuiltinValue, *NativeValue:
		return "fn"
	}
	return fmt.Sprintf("%v", v)
}

// printCtorArg parens a constructor's argument when printing it bare would
// be ambiguous (another constructor application), printing
// `Node (Leaf 1, Leaf 2)`.
func printCtorArg(v Value) string {
	if cv, ok := v.(*ConstructorValue); ok && cv.Arg != nil {
		return "(" + Print(v) + ")"
	}
	return Print(v)
}

// DefaultWrapWidth is the column threshold past which printed collections
// wrap onto multiple lines.
const DefaultWrapWidth = 79

// PrintWrapped renders v like Print, but breaks any list, bag, tuple, or
// record whose one-line rendering is wider than width onto one element per
// line, indented two spaces per nesting level.
func PrintWrapped(v Value, width int) string {
	return printWrapped(v, width, "")
}

func printWrapped(v Value, width int, indent string) string {
	flat := Print(v)
	if utf8.RuneCountInString(flat)+utf8.RuneCountInString(indent) <= width {
		return flat
	}
	inner := indent + "  "
	switch v := v.(type) {
	case *ListValue:
		return wrapSeq("[", "]", wrapAll(v.Elems, width, inner), indent)
	case *BagValue:
		return wrapSeq("[", "]", wrapAll(v.Elems, width, inner), indent)
	case *TupleValue:
		return wrapSeq("(", ")", wrapAll(v.Elems, width, inner), indent)
	case *RecordValue:
		names := sortedRecordFields(v.Fields)
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = n + " = " + printWrapped(v.Fields[n], width, inner)
		}
		return wrapSeq("{", "}", parts, indent)
	}
	return flat
}

func wrapAll(elems []Value, width int, indent string) []string {
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = printWrapped(e, width, indent)
	}
	return parts
}

func wrapSeq(open, close string, parts []string, indent string) string {
	var b strings.Builder
	b.WriteString(open)
	for i, p := range parts {
		b.WriteString("\n" + indent + "  " + p)
		if i < len(parts)-1 {
			b.WriteString(",")
		}
	}
	b.WriteString("\n" + indent + close)
	return b.String()
}

func printInt(n *big.Int) string {
	s := n.String()
	if strings.HasPrefix(s, "-") {
		return "~" + s[1:]
	}
	return s
}

// printReal formats f with ML-style `~` negative sign and a shortest
// round-trip decimal. Real.signBit edge cases: -0.0,
// negative finite values, and -inf all print with a leading `~`.
func printReal(f float64) string {
	if math.IsNaN(f) {
		if math.Signbit(f) {
			return "~nan"
		}
		return "nan"
	}
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "~inf"
	}
	neg := math.Signbit(f)
	mag := f
	if neg {
		mag = -f
	}
	s := strconv.FormatFloat(mag, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	if neg {
		return "~" + s
	}
	return s
}
