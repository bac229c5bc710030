package acquire

import "strings"

const defaultTag = "latest"

// ParseReference normalizes one import specifier. The specifier is passed
// through remap first (nil leaves it unchanged); the module name comes from
// the remapped form and the tag from the specifier as written.
//
//	ParseReference("react", nil)          // {react react latest}
//	ParseReference("lodash@^4.17.0", nil) // {lodash@^4.17.0 lodash 4.17.0}
//	ParseReference("@foo/bar@next", nil)  // {@foo/bar@next @foo/bar next}
func ParseReference(spec string, remap func(string) string) Reference {
	raw := spec
	if remap != nil {
		raw = remap(spec)
	}
	return Reference{
		Raw:     raw,
		Module:  moduleName(raw),
		Version: versionTag(spec),
	}
}

func moduleName(s string) string {
	if i := strings.LastIndexByte(s, '@'); i > 0 {
		return s[:i]
	}
	return s
}

func versionTag(s string) string {
	i := strings.LastIndexByte(s, '@')
	if i <= 0 {
		return defaultTag
	}
	v := s[i+1:]
	if strings.HasPrefix(v, "^") || strings.HasPrefix(v, "~") {
		v = v[1:]
	}
	if v == "" {
		return defaultTag
	}
	return v
}

// TypesName returns the DefinitelyTyped form of a module name: the leading
// "@" of a scope is dropped and the scope separator becomes "__".
//
//	TypesName("lodash")   // "lodash"
//	TypesName("@foo/bar") // "foo__bar"
func TypesName(module string) string {
	if !strings.HasPrefix(module, "@") {
		return module
	}
	return strings.Replace(module[1:], "/", "__", 1)
}

// TypesModule returns the "@types/" companion package of a module.
func TypesModule(module string) string {
	return "@types/" + TypesName(module)
}

// ModulePrefix returns the virtual directory of a self-describing module.
func ModulePrefix(module string) string {
	return "/node_modules/" + module
}

// TypesPrefix returns the virtual directory of an "@types/" package, using
// its visible name with the "types__" artifact stripped.
func TypesPrefix(typesModule string) string {
	name := strings.Replace(TypesName(typesModule), "types__", "", 1)
	return "/node_modules/@types/" + name
}
