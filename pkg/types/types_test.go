package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleModule() *ModuleInfo {
	return &ModuleInfo{
		Globals:   []Global{{Name: "VALUE"}},
		Functions: []Function{{Name: "helper"}},
		Classes: []Class{{
			Name:      "Widget",
			Functions: []Function{{Name: "build", Decorators: []string{"staticmethod"}}, {Name: "draw"}},
		}},
		Imports: []Import{
			{Module: "os"},
			{Module: "numpy", Alias: "np"},
			{Module: "sys", Alias: "np", IsFrom: true},
		},
	}
}

func TestModuleInfoStatus(t *testing.T) {
	m := sampleModule()
	assert.Equal(t, StatusOK, m.Status())

	m.Errors = []Diagnostic{{Line: 1, Message: "syntax error"}}
	assert.Equal(t, StatusBroken, m.Status())
}

func TestTopLevelNames(t *testing.T) {
	names := sampleModule().TopLevelNames()
	assert.Len(t, names, 3)
	for _, name := range []string{"VALUE", "helper", "Widget"} {
		assert.Contains(t, names, name)
	}
	assert.NotContains(t, names, "build")
}

func TestFinders(t *testing.T) {
	m := sampleModule()

	cls := m.FindClass("Widget")
	require.NotNil(t, cls)
	assert.Nil(t, m.FindClass("Missing"))

	require.NotNil(t, m.FindFunction("helper"))
	assert.Nil(t, m.FindFunction("build"))

	build := cls.FindMethod("build")
	require.NotNil(t, build)
	assert.True(t, build.IsStaticMethod())
	assert.False(t, cls.FindMethod("draw").IsStaticMethod())
	assert.Nil(t, cls.FindMethod("missing"))
}

func TestImportAliasedAs(t *testing.T) {
	m := sampleModule()

	imp := m.ImportAliasedAs("np")
	require.NotNil(t, imp)
	assert.Equal(t, "numpy", imp.Module)
	assert.Nil(t, m.ImportAliasedAs("os"))
}

func TestSpanContains(t *testing.T) {
	span := Span{Start: 10, End: 20}
	tests := []struct {
		offset int
		want   bool
	}{
		{9, false},
		{10, true},
		{20, true},
		{21, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, span.Contains(tt.offset), "offset %d", tt.offset)
	}
}
