package sanitizer

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/drewmudry/manimgen-api/internal/failure"
)

// The Python grammar accepts Python 2 statements and recovers silently from
// some errors CPython rejects. checkTree and checkIndentation close that gap.

func syntaxError(n *sitter.Node, msg string) *failure.Error {
	return &failure.Error{
		Code:    failure.CodeInvalidSyntax,
		Message: msg,
		Line:    int(n.StartPoint().Row) + 1,
	}
}

// checkTree reports the first construct in an error-free tree that Python 3
// would not compile.
func checkTree(root *sitter.Node) *failure.Error {
	var found *failure.Error
	walk(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		found = checkNode(n)
		return found == nil
	})
	return found
}

func walk(n *sitter.Node, visit func(*sitter.Node) bool) {
	if !visit(n) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child != nil {
			walk(child, visit)
		}
	}
}

func checkNode(n *sitter.Node) *failure.Error {
	switch n.Type() {
	case "print_statement":
		return syntaxError(n, "Missing parentheses in call to 'print'")
	case "exec_statement":
		return syntaxError(n, "Missing parentheses in call to 'exec'")
	case "argument_list":
		return checkArguments(n)
	case "parameters", "lambda_parameters":
		return checkParameters(n)
	case "return_statement":
		if !insideFunction(n) {
			return syntaxError(n, "'return' outside function")
		}
	case "yield":
		if !insideFunction(n) {
			return syntaxError(n, "'yield' outside function")
		}
	case "break_statement":
		if !insideLoop(n) {
			return syntaxError(n, "'break' outside loop")
		}
	case "continue_statement":
		if !insideLoop(n) {
			return syntaxError(n, "'continue' not properly in loop")
		}
	}
	return nil
}

func checkArguments(n *sitter.Node) *failure.Error {
	var keyword, unpacked bool
	for i := 0; i < int(n.NamedChildCount()); i++ {
		arg := n.NamedChild(i)
		switch arg.Type() {
		case "comment":
		case "keyword_argument":
			keyword = true
		case "dictionary_splat":
			unpacked = true
		case "list_splat":
			if unpacked {
				return syntaxError(arg, "iterable argument unpacking follows keyword argument unpacking")
			}
		default:
			if unpacked {
				return syntaxError(arg, "positional argument follows keyword argument unpacking")
			}
			if keyword {
				return syntaxError(arg, "positional argument follows keyword argument")
			}
		}
	}
	return nil
}

func checkParameters(n *sitter.Node) *failure.Error {
	var defaulted, starred bool
	for i := 0; i < int(n.NamedChildCount()); i++ {
		p := n.NamedChild(i)
		switch p.Type() {
		case "default_parameter", "typed_default_parameter":
			defaulted = true
		case "list_splat_pattern", "keyword_separator":
			starred = true
		case "identifier", "typed_parameter":
			if p.Type() == "typed_parameter" && p.NamedChildCount() > 0 {
				// `*args: T` and `**kw: T` parse as typed parameters.
				switch p.NamedChild(0).Type() {
				case "list_splat_pattern":
					starred = true
					continue
				case "dictionary_splat_pattern":
					continue
				}
			}
			if defaulted && !starred {
				return syntaxError(p, "parameter without a default follows parameter with a default")
			}
		}
	}
	return nil
}

func insideFunction(n *sitter.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "function_definition", "lambda":
			return true
		case "class_definition":
			return false
		}
	}
	return false
}

// insideLoop reports whether n sits in a loop body. A loop's else clause
// does not count as its body.
func insideLoop(n *sitter.Node) bool {
	child := n
	for p := n.Parent(); p != nil; child, p = p, p.Parent() {
		switch p.Type() {
		case "for_statement", "while_statement":
			if child.Type() != "else_clause" {
				return true
			}
		case "function_definition", "class_definition", "lambda":
			return false
		}
	}
	return false
}

// indent is a line's leading whitespace measured twice, once with tabs to the
// next multiple of eight and once with tabs as a single column. Python
// rejects any indentation whose ordering differs between the two.
type indent struct {
	wide, narrow int
}

func measureIndent(code string, i int) (indent, int) {
	var in indent
	for ; i < len(code); i++ {
		switch code[i] {
		case ' ':
			in.wide++
			in.narrow++
		case '\t':
			in.wide = (in.wide/8 + 1) * 8
			in.narrow++
		case '\f':
			in = indent{}
		default:
			return in, i
		}
	}
	return in, i
}

func indentError(line int, msg string) *failure.Error {
	return &failure.Error{Code: failure.CodeInvalidSyntax, Message: msg, Line: line}
}

// checkIndentation tracks the indentation stack across logical lines the way
// the Python tokenizer does.
func checkIndentation(code string) *failure.Error {
	const tabMsg = "inconsistent use of tabs and spaces in indentation"

	stack := []indent{{}}
	expectBlock := false
	line := 1
	for i := 0; i < len(code); {
		col, j := measureIndent(code, i)
		if j >= len(code) || code[j] == '\n' || code[j] == '\r' || code[j] == '#' {
			nl := strings.IndexByte(code[j:], '\n')
			if nl < 0 {
				break
			}
			i = j + nl + 1
			line++
			continue
		}

		top := stack[len(stack)-1]
		switch {
		case col.wide > top.wide:
			if !expectBlock {
				return indentError(line, "unexpected indent")
			}
			if col.narrow <= top.narrow {
				return indentError(line, tabMsg)
			}
			stack = append(stack, col)
		case expectBlock:
			return indentError(line, "expected an indented block")
		default:
			for col.wide < stack[len(stack)-1].wide {
				stack = stack[:len(stack)-1]
			}
			top = stack[len(stack)-1]
			if col.wide != top.wide {
				return indentError(line, "unindent does not match any outer indentation level")
			}
			if col.narrow != top.narrow {
				return indentError(line, tabMsg)
			}
		}

		var last byte
		startLine := line
		i, line, last = scanLogicalLine(code, j, line)
		expectBlock = last == ':'
		if expectBlock && i >= len(code) {
			return indentError(startLine, "expected an indented block")
		}
	}
	return nil
}

// scanLogicalLine consumes one logical line starting at i. It returns the
// index after its final newline, the updated line number and the last
// significant byte outside comments.
func scanLogicalLine(code string, i, line int) (int, int, byte) {
	depth := 0
	var last byte
	for i < len(code) {
		switch c := code[i]; c {
		case '#':
			nl := strings.IndexByte(code[i:], '\n')
			if nl < 0 {
				return len(code), line, last
			}
			i += nl
		case '"', '\'':
			end := skipString(code, i)
			if code[end-1] == '\n' {
				end--
			}
			line += strings.Count(code[i:end], "\n")
			i = end
			last = c
		case '\\':
			if strings.HasPrefix(code[i+1:], "\n") || strings.HasPrefix(code[i+1:], "\r\n") {
				i = strings.IndexByte(code[i:], '\n') + i + 1
				line++
				continue
			}
			last = c
			i++
		case '\n':
			line++
			i++
			if depth == 0 {
				return i, line, last
			}
		case '(', '[', '{':
			depth++
			last = c
			i++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
			last = c
			i++
		case ' ', '\t', '\r', '\f':
			i++
		default:
			last = c
			i++
		}
	}
	return i, line, last
}
