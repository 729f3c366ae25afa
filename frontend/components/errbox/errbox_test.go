package errbox

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
)

func TestMinifyError(t *testing.T) {
	var tests = []struct {
		name string
		err  error
		out  string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("missing title"), "Missing title."},
		{
			"wrapped",
			pkgerrors.Wrap(errors.New("token is not valid"), "Failed to create post"),
			"Token is not valid.",
		},
		{"period", errors.New("already done."), "Already done."},
		{"unicode", errors.New("ábc"), "Ábc."},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if out := MinifyError(test.err); out != test.out {
				t.Fatalf("Expected %q, got %q", test.out, out)
			}
		})
	}
}
