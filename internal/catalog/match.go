package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrPattern is returned when a wildcard pattern does not compile.
var ErrPattern = errors.New("invalid pattern")

// Named is implemented by catalog descriptors.
type Named interface {
	QualifiedName() string
}

// Match reports whether fullName matches pattern. A pattern containing '*'
// is a glob: '.' is literal, '*' matches any sequence and the whole name must
// match. Any other pattern requires exact equality.
func Match(fullName, pattern string) (bool, error) {
	if !strings.Contains(pattern, "*") {
		return fullName == pattern, nil
	}

	expr := strings.ReplaceAll(pattern, ".", `\.`)
	expr = strings.ReplaceAll(expr, "*", ".*")
	re, err := regexp.Compile("^" + expr + "$")
	if err != nil {
		return false, fmt.Errorf("%w %q: %w", ErrPattern, pattern, err)
	}
	return re.MatchString(fullName), nil
}

// Filter returns the objects whose qualified name matches any of patterns,
// in input order and each at most once.
func Filter[T Named](objects []T, patterns []string) ([]T, error) {
	var out []T
	for _, obj := range objects {
		name := obj.QualifiedName()
		for _, p := range patterns {
			ok, err := Match(name, p)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, obj)
				break
			}
		}
	}
	return out, nil
}
