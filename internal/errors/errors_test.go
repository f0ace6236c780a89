package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSiteError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *SiteError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(CategoryConfig, SeverityFatal, "configuration invalid"),
			expected: "config (fatal): configuration invalid",
		},
		{
			name:     "error with cause",
			err:      Wrap(fmt.Errorf("file not found"), CategoryConfig, SeverityFatal, "failed to load config"),
			expected: "config (fatal): failed to load config: file not found",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.err.Error(); got != test.expected {
				t.Errorf("Error() = %q, want %q", got, test.expected)
			}
		})
	}
}

func TestWithContext(t *testing.T) {
	err := New(CategoryContent, SeverityFatal, "bad").
		WithContext("path", "docs/a.md").
		WithContext("line", 3)

	require.Equal(t, "docs/a.md", err.Context["path"])
	require.Equal(t, 3, err.Context["line"])
}

func TestCategoryThroughWrapping(t *testing.T) {
	base := FrontMatterInvalid("docs/a.md", stdErrors.New("yaml: line 2"))
	wrapped := fmt.Errorf("reading documents: %w", base)

	require.True(t, IsCategory(wrapped, CategoryContent))
	require.False(t, IsCategory(wrapped, CategoryConfig))
	require.Equal(t, CategoryContent, GetCategory(wrapped))
	require.Equal(t, CategoryInternal, GetCategory(stdErrors.New("plain")))

	se, ok := As(wrapped)
	require.True(t, ok)
	require.Equal(t, "docs/a.md", se.Context["path"])
}

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)

	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{stdErrors.New("plain"), 1},
		{VersionUsage(), 2},
		{VersionInvalid("1.0"), 2},
		{ConfigNotFound("config.json"), 7},
		{ReadFailed("a.md", stdErrors.New("denied")), 11},
		{FrontMatterInvalid("a.md", stdErrors.New("yaml")), 11},
		{BuildFailed("render_all", stdErrors.New("x")), 11},
		{InternalError("boom", nil), 10},
		{fmt.Errorf("wrapped: %w", ConfigInvalid("c.yaml", stdErrors.New("x"))), 7},
	}
	for _, c := range cases {
		require.Equal(t, c.want, a.ExitCodeFor(c.err), "%v", c.err)
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)

	require.Equal(t, "", a.FormatError(nil))
	require.Equal(t, "Error: plain", a.FormatError(stdErrors.New("plain")))
	require.Equal(t, "version already exists: 1.0.0", a.FormatError(VersionExists("1.0.0")))
	require.Equal(t, "configuration file not found: config.json", a.FormatError(ConfigNotFound("config.json")))
	require.Equal(t, "filesystem: failed to read file: a.md: denied",
		a.FormatError(ReadFailed("a.md", stdErrors.New("denied"))))

	verbose := NewCLIErrorAdapter(true, nil)
	require.Equal(t, "validation (fatal): version already exists", verbose.FormatError(VersionExists("1.0.0")))
}
