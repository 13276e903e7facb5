package catalog

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/faucetdb/pgmcp/internal/model"
)

func TestParseParameters(t *testing.T) {
	tests := []struct {
		name      string
		signature string
		modes     []string
		want      []model.Parameter
	}{
		{
			name:      "empty signature",
			signature: "",
			want:      []model.Parameter{},
		},
		{
			name:      "named parameters",
			signature: "user_email text, active boolean",
			want: []model.Parameter{
				{Name: "user_email", Type: "text", Mode: model.ModeIn, Position: 1},
				{Name: "active", Type: "boolean", Mode: model.ModeIn, Position: 2},
			},
		},
		{
			name:      "default clause is stripped",
			signature: "lim integer DEFAULT 10, tag text DEFAULT 'x'::text",
			want: []model.Parameter{
				{Name: "lim", Type: "integer", Mode: model.ModeIn, Position: 1, HasDefault: true},
				{Name: "tag", Type: "text", Mode: model.ModeIn, Position: 2, HasDefault: true},
			},
		},
		{
			name:      "unnamed parameters are synthesized",
			signature: "integer, text",
			want: []model.Parameter{
				{Name: "param_1", Type: "integer", Mode: model.ModeIn, Position: 1},
				{Name: "param_2", Type: "text", Mode: model.ModeIn, Position: 2},
			},
		},
		{
			name:      "multi word type keeps everything after the name",
			signature: "created timestamp with time zone",
			want: []model.Parameter{
				{Name: "created", Type: "timestamp with time zone", Mode: model.ModeIn, Position: 1},
			},
		},
		{
			name:      "comma inside type modifier does not split",
			signature: "amount numeric(10, 2), note text",
			want: []model.Parameter{
				{Name: "amount", Type: "numeric(10, 2)", Mode: model.ModeIn, Position: 1},
				{Name: "note", Type: "text", Mode: model.ModeIn, Position: 2},
			},
		},
		{
			name:      "comma inside default literal does not split",
			signature: "sep text DEFAULT ', ', n integer",
			want: []model.Parameter{
				{Name: "sep", Type: "text", Mode: model.ModeIn, Position: 1, HasDefault: true},
				{Name: "n", Type: "integer", Mode: model.ModeIn, Position: 2},
			},
		},
		{
			name:      "comma inside array default does not split",
			signature: "ids integer[] DEFAULT ARRAY[1, 2], flag boolean",
			want: []model.Parameter{
				{Name: "ids", Type: "integer[]", Mode: model.ModeIn, Position: 1, HasDefault: true},
				{Name: "flag", Type: "boolean", Mode: model.ModeIn, Position: 2},
			},
		},
		{
			name:      "mode list overrides default mode",
			signature: "OUT total bigint, INOUT cursor uuid, x integer",
			modes:     []string{"o", "b", "i"},
			want: []model.Parameter{
				{Name: "total", Type: "bigint", Mode: model.ModeOut, Position: 1},
				{Name: "cursor", Type: "uuid", Mode: model.ModeInOut, Position: 2},
				{Name: "x", Type: "integer", Mode: model.ModeIn, Position: 3},
			},
		},
		{
			name:      "mode keyword used without mode list",
			signature: "IN a integer, OUT b text, VARIADIC rest text[]",
			want: []model.Parameter{
				{Name: "a", Type: "integer", Mode: model.ModeIn, Position: 1},
				{Name: "b", Type: "text", Mode: model.ModeOut, Position: 2},
				{Name: "rest", Type: "text[]", Mode: model.ModeIn, Position: 3},
			},
		},
		{
			name:      "variadic mode code is an input",
			signature: "VARIADIC vals integer[]",
			modes:     []string{"v"},
			want: []model.Parameter{
				{Name: "vals", Type: "integer[]", Mode: model.ModeIn, Position: 1},
			},
		},
		{
			name:      "table columns in mode list are ignored",
			signature: "user_email text",
			modes:     []string{"i", "t", "t"},
			want: []model.Parameter{
				{Name: "user_email", Type: "text", Mode: model.ModeIn, Position: 1},
			},
		},
		{
			name:      "unnamed out parameter",
			signature: "OUT integer",
			modes:     []string{"o"},
			want: []model.Parameter{
				{Name: "param_1", Type: "integer", Mode: model.ModeOut, Position: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseParameters(tt.signature, tt.modes)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseParameters(%q) mismatch (-want +got):\n%s", tt.signature, diff)
			}
		})
	}
}

func TestParseParametersIsStable(t *testing.T) {
	sig := "a integer, b text DEFAULT 'x', OUT c bigint"
	modes := []string{"i", "i", "o"}
	first := ParseParameters(sig, modes)
	for range 3 {
		if diff := cmp.Diff(first, ParseParameters(sig, modes)); diff != "" {
			t.Fatalf("positions changed between calls:\n%s", diff)
		}
	}
}

func TestSplitSignature(t *testing.T) {
	tests := []struct {
		sig  string
		want []string
	}{
		{"a int", []string{"a int"}},
		{"a int, b int", []string{"a int", "b int"}},
		{"a int,b int", []string{"a int,b int"}},
		{`"odd, name" int, b int`, []string{`"odd, name" int`, "b int"}},
		{"a numeric(1, 2)[], b text DEFAULT 'it''s, ok'", []string{"a numeric(1, 2)[]", "b text DEFAULT 'it''s, ok'"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, splitSignature(tt.sig)); diff != "" {
			t.Errorf("splitSignature(%q) (-want +got):\n%s", tt.sig, diff)
		}
	}
}
