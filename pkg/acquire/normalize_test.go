package acquire

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestParseReference(t *testing.T) {
	tests := []struct {
		spec string
		want Reference
	}{
		{"react", Reference{"react", "react", "latest"}},
		{"react@18.2.0", Reference{"react@18.2.0", "react", "18.2.0"}},
		{"lodash@^4.17.0", Reference{"lodash@^4.17.0", "lodash", "4.17.0"}},
		{"lodash@~4.17.0", Reference{"lodash@~4.17.0", "lodash", "4.17.0"}},
		{"@foo/bar", Reference{"@foo/bar", "@foo/bar", "latest"}},
		{"@foo/bar@next", Reference{"@foo/bar@next", "@foo/bar", "next"}},
		{"@foo/bar@^1.2.3", Reference{"@foo/bar@^1.2.3", "@foo/bar", "1.2.3"}},
		{"react@", Reference{"react@", "react", "latest"}},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			if got := ParseReference(tt.spec, nil); got != tt.want {
				t.Errorf("ParseReference(%q) = %+v, want %+v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestParseReferenceRemap(t *testing.T) {
	remap := func(s string) string {
		if i := strings.Index(s, "/fp"); i > 0 {
			return s[:i] + s[i+3:]
		}
		return s
	}

	got := ParseReference("lodash/fp@4.17.21", remap)
	want := Reference{Raw: "lodash@4.17.21", Module: "lodash", Version: "4.17.21"}
	if got != want {
		t.Errorf("ParseReference = %+v, want %+v", got, want)
	}
}

func TestTypesName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"lodash", "lodash"},
		{"@foo/bar", "foo__bar"},
		{"@types/node", "types__node"},
		{"node", "node"},
	}
	for _, tt := range tests {
		if got := TypesName(tt.in); got != tt.want {
			t.Errorf("TypesName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrefixes(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{ModulePrefix("react"), "/node_modules/react"},
		{ModulePrefix("@foo/bar"), "/node_modules/@foo/bar"},
		{TypesPrefix(TypesModule("lodash")), "/node_modules/@types/lodash"},
		{TypesPrefix(TypesModule("@foo/bar")), "/node_modules/@types/foo__bar"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

var (
	nameGen    = rapid.StringMatching(`(@[a-z][a-z0-9-]{0,8}/)?[a-z][a-z0-9._-]{0,12}`)
	versionGen = rapid.StringMatching(`[a-z0-9][a-z0-9.+-]{0,10}`)
)

func TestParseReferenceProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := nameGen.Draw(t, "name")
		version := versionGen.Draw(t, "version")
		prefix := rapid.SampledFrom([]string{"", "^", "~"}).Draw(t, "prefix")

		bare := ParseReference(name, nil)
		if bare.Module != name || bare.Version != "latest" || bare.Raw != name {
			t.Fatalf("ParseReference(%q) = %+v", name, bare)
		}

		spec := name + "@" + prefix + version
		ref := ParseReference(spec, nil)
		if ref.Module != name {
			t.Fatalf("module of %q = %q, want %q", spec, ref.Module, name)
		}
		if ref.Version != version {
			t.Fatalf("version of %q = %q, want %q", spec, ref.Version, version)
		}
		if ref.Raw != spec {
			t.Fatalf("raw of %q = %q", spec, ref.Raw)
		}
	})
}

func TestTypesPrefixProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := nameGen.Draw(t, "name")
		if strings.Contains(name, "types__") {
			t.Skip("name collides with the stripped artifact")
		}

		typesName := TypesName(name)
		if strings.HasPrefix(typesName, "@") || strings.Contains(typesName, "/") {
			t.Fatalf("TypesName(%q) = %q is not a plain package name", name, typesName)
		}
		prefix := TypesPrefix(TypesModule(name))
		if prefix != "/node_modules/@types/"+typesName {
			t.Fatalf("TypesPrefix = %q for %q", prefix, name)
		}
	})
}
