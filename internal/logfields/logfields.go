package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyFile       = "file"
	KeySlug       = "slug"
	KeyPath       = "path"
	KeyVersion    = "version"
	KeyLink       = "link"
	KeyImage      = "image"
	KeyCount      = "count"
	KeyAddr       = "addr"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr.
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Slug(s string) slog.Attr         { return slog.String(KeySlug, s) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Version(v string) slog.Attr      { return slog.String(KeyVersion, v) }
func Link(l string) slog.Attr         { return slog.String(KeyLink, l) }
func Image(i string) slog.Attr        { return slog.String(KeyImage, i) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Addr(a string) slog.Attr         { return slog.String(KeyAddr, a) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
