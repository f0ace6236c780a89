package errors

// Config errors

func ConfigNotFound(path string) *SiteError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigInvalid(path string, cause error) *SiteError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "configuration file is invalid").
		WithContext("path", path)
}

func ValidationFailed(field, reason string) *SiteError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Content errors

func ReadFailed(path string, cause error) *SiteError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "failed to read file").
		WithContext("path", path)
}

func FrontMatterInvalid(path string, cause error) *SiteError {
	return Wrap(cause, CategoryContent, SeverityFatal, "invalid front matter").
		WithContext("path", path)
}

func RenderFailed(path string, cause error) *SiteError {
	return Wrap(cause, CategoryContent, SeverityFatal, "failed to render markdown").
		WithContext("path", path)
}

// Build pipeline errors

func BuildFailed(stage string, cause error) *SiteError {
	return Wrap(cause, CategoryBuild, SeverityFatal, "build failed").
		WithContext("stage", stage)
}

func WriteFailed(path string, cause error) *SiteError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "failed to write output").
		WithContext("path", path)
}

// Version snapshot errors

func VersionUsage() *SiteError {
	return New(CategoryValidation, SeverityFatal, "usage: docsite version <version> (e.g. 1.0.0)")
}

func VersionInvalid(v string) *SiteError {
	return New(CategoryValidation, SeverityFatal, "version must follow semantic versioning (e.g. 1.0.0)").
		WithContext("version", v)
}

func VersionExists(v string) *SiteError {
	return New(CategoryValidation, SeverityFatal, "version already exists").
		WithContext("version", v)
}

// Internal errors

func InternalError(message string, cause error) *SiteError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
