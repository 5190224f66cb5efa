package expr

import (
	"regexp"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// interpolation matches one `${{ ... }}` block, shortest first.
var interpolation = regexp.MustCompile(`(?s)\$\{\{(.*?)\}\}`)

// ParseTemplate compiles a `${{ }}` template into an HCL expression. The
// filename and start position are used for diagnostics only.
func ParseTemplate(src, filename string, start hcl.Pos) (hcl.Expression, error) {
	expr, diags := hclsyntax.ParseTemplate([]byte(toHCLTemplate(src)), filename, start)
	if diags.HasErrors() {
		return nil, diags
	}
	return expr, nil
}

// MustParseTemplate is like ParseTemplate but panics on error. Intended for
// tests and static tables.
func MustParseTemplate(src string) hcl.Expression {
	expr, err := ParseTemplate(src, "<inline>", hcl.InitialPos)
	if err != nil {
		panic(err)
	}
	return expr
}

// Literal wraps a constant value as an expression.
func Literal(v cty.Value) hcl.Expression {
	return hcl.StaticExpr(v, hcl.Range{Filename: "<literal>"})
}

// HasInterpolation reports whether src contains a `${{ }}` block.
func HasInterpolation(src string) bool {
	return interpolation.MatchString(src)
}

func toHCLTemplate(src string) string {
	var sb strings.Builder
	last := 0
	for _, m := range interpolation.FindAllStringSubmatchIndex(src, -1) {
		sb.WriteString(escapeLiteral(src[last:m[0]]))
		sb.WriteString("${")
		sb.WriteString(strings.TrimSpace(src[m[2]:m[3]]))
		sb.WriteString("}")
		last = m[1]
	}
	sb.WriteString(escapeLiteral(src[last:]))
	return sb.String()
}

func escapeLiteral(s string) string {
	s = strings.ReplaceAll(s, "${", "$${")
	return strings.ReplaceAll(s, "%{", "%%{")
}
