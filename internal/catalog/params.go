package catalog

import (
	"strconv"
	"strings"

	"github.com/faucetdb/pgmcp/internal/model"
)

// ParseParameters turns the output of pg_get_function_arguments into
// parameter descriptors. modes is the positional proargmodes list and may
// be nil, in which case a leading mode keyword in the signature decides and
// IN is the default. Unnamed parameters are called param_<position>.
func ParseParameters(signature string, modes []string) []model.Parameter {
	params := []model.Parameter{}
	if strings.TrimSpace(signature) == "" {
		return params
	}

	for i, raw := range splitSignature(signature) {
		keyword, part := cutModeKeyword(strings.TrimSpace(raw))

		mode := keyword
		if i < len(modes) && modes[i] != "" {
			mode = normalizeMode(modes[i])
		}

		before, _, hasDefault := strings.Cut(part, " DEFAULT ")
		part = strings.TrimSpace(before)

		name, typ, named := strings.Cut(part, " ")
		if !named {
			name = "param_" + strconv.Itoa(i+1)
			typ = part
		}

		params = append(params, model.Parameter{
			Name:       strings.TrimSpace(name),
			Type:       strings.TrimSpace(typ),
			Mode:       mode,
			Position:   i + 1,
			HasDefault: hasDefault,
		})
	}
	return params
}

// splitSignature splits at top-level ", " separators. Separators inside
// parentheses, brackets, single-quoted literals and double-quoted
// identifiers do not split.
func splitSignature(sig string) []string {
	var (
		parts  []string
		depth  int
		single bool
		double bool
		start  int
	)
	for i := 0; i < len(sig); i++ {
		switch ch := sig[i]; {
		case single:
			if ch == '\'' {
				single = false
			}
		case double:
			if ch == '"' {
				double = false
			}
		case ch == '\'':
			single = true
		case ch == '"':
			double = true
		case ch == '(' || ch == '[':
			depth++
		case ch == ')' || ch == ']':
			if depth > 0 {
				depth--
			}
		case ch == ',' && depth == 0 && i+1 < len(sig) && sig[i+1] == ' ':
			parts = append(parts, sig[start:i])
			start = i + 2
			i++
		}
	}
	return append(parts, sig[start:])
}

// cutModeKeyword strips a leading argument mode keyword.
func cutModeKeyword(part string) (model.ParamMode, string) {
	for _, kw := range []string{"INOUT ", "IN ", "OUT ", "VARIADIC "} {
		if rest, ok := strings.CutPrefix(part, kw); ok {
			return normalizeMode(strings.TrimSpace(kw)), strings.TrimSpace(rest)
		}
	}
	return model.ModeIn, part
}

// normalizeMode maps proargmodes codes and mode keywords to a ParamMode.
// Variadic arguments are inputs; TABLE columns are outputs.
func normalizeMode(code string) model.ParamMode {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "o", "out", "t", "table":
		return model.ModeOut
	case "b", "inout":
		return model.ModeInOut
	default:
		return model.ModeIn
	}
}
