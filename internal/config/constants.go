package config

// Version is the current TinyWhale compiler version.
var Version = "0.1.0"

// SourceFileExt is the canonical TinyWhale source extension.
const SourceFileExt = ".tw"

// SourceFileExtensions are all recognized source file extensions.
var SourceFileExtensions = []string{".tw"}

// TrimSourceExt removes the source extension from a filename, if present.
func TrimSourceExt(name string) string {
	if len(name) >= len(SourceFileExt) && name[len(name)-len(SourceFileExt):] == SourceFileExt {
		return name[:len(name)-len(SourceFileExt)]
	}
	return name
}

// HasSourceExt reports whether path ends with the recognized source extension.
func HasSourceExt(path string) bool {
	return len(path) >= len(SourceFileExt) && path[len(path)-len(SourceFileExt):] == SourceFileExt
}
