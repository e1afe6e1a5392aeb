package sanitizer

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/drewmudry/manimgen-api/internal/failure"
)

// ValidateSyntax parses code with the full Python grammar and reports the
// first error or missing token as an INVALID_SYNTAX failure. Code the grammar
// accepts must also pass the Python 3 statement, argument and indentation
// rules in strict.go.
func ValidateSyntax(ctx context.Context, code string) error {
	src := []byte(code)

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return failure.Wrap(failure.CodeInvalidSyntax, err, "could not parse generated code")
	}

	root := tree.RootNode()
	if !root.HasError() {
		if fe := checkTree(root); fe != nil {
			return fe
		}
		if fe := checkIndentation(code); fe != nil {
			return fe
		}
		return nil
	}

	bad := firstErrorNode(root)
	if bad == nil {
		return &failure.Error{Code: failure.CodeInvalidSyntax, Message: "invalid syntax", Line: 1}
	}
	return &failure.Error{
		Code:    failure.CodeInvalidSyntax,
		Message: describeErrorNode(bad, src),
		Line:    int(bad.StartPoint().Row) + 1,
	}
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if child.IsMissing() || child.HasError() {
			if found := firstErrorNode(child); found != nil {
				return found
			}
		}
	}
	return nil
}

func describeErrorNode(n *sitter.Node, src []byte) string {
	if n.IsMissing() {
		return fmt.Sprintf("missing %q", n.Type())
	}
	snippet := strings.TrimSpace(n.Content(src))
	if nl := strings.IndexByte(snippet, '\n'); nl >= 0 {
		snippet = snippet[:nl]
	}
	if len(snippet) > 40 {
		snippet = snippet[:40] + "..."
	}
	if snippet == "" {
		return "invalid syntax"
	}
	return fmt.Sprintf("invalid syntax near %q", snippet)
}
