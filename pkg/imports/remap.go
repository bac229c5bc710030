package imports

import "strings"

// nodeBuiltins are the core modules typed by @types/node.
var nodeBuiltins = map[string]bool{
	"assert": true, "async_hooks": true, "buffer": true, "child_process": true,
	"cluster": true, "console": true, "constants": true, "crypto": true,
	"dgram": true, "diagnostics_channel": true, "dns": true, "domain": true,
	"events": true, "fs": true, "http": true, "http2": true, "https": true,
	"inspector": true, "module": true, "net": true, "os": true, "path": true,
	"perf_hooks": true, "process": true, "punycode": true, "querystring": true,
	"readline": true, "repl": true, "stream": true, "string_decoder": true,
	"sys": true, "timers": true, "tls": true, "trace_events": true,
	"tty": true, "url": true, "util": true, "v8": true, "vm": true, "wasi": true,
	"worker_threads": true, "zlib": true,
}

// IsNodeBuiltin reports whether spec names a Node core module, with or
// without the "node:" scheme and including subpaths such as "fs/promises".
func IsNodeBuiltin(spec string) bool {
	spec, hasScheme := strings.CutPrefix(spec, "node:")
	base, _, _ := strings.Cut(spec, "/")
	if hasScheme {
		return base != ""
	}
	return nodeBuiltins[base]
}

// RemapModuleName maps an import specifier onto the package that provides
// its declarations. A version suffix is kept.
//
//	RemapModuleName("node:fs")        // "node"
//	RemapModuleName("lodash/fp")      // "lodash"
//	RemapModuleName("@a/b/c@1.0.0")   // "@a/b@1.0.0"
func RemapModuleName(spec string) string {
	if IsNodeBuiltin(spec) {
		return "node"
	}

	name, version := spec, ""
	if i := strings.LastIndexByte(spec, '@'); i > 0 {
		name, version = spec[:i], spec[i:]
	}

	parts := strings.Split(name, "/")
	switch {
	case strings.HasPrefix(name, "@") && len(parts) > 2:
		name = parts[0] + "/" + parts[1]
	case !strings.HasPrefix(name, "@") && len(parts) > 1:
		name = parts[0]
	}
	return name + version
}
