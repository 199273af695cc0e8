package namespace

import (
	"qxsense/internal/core/errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const widgetMeta = `{
  "className": "my.Widget",
  "type": "class",
  "superClass": "qx.ui.core.Widget",
  "mixins": ["my.MTrait"],
  "include": ["my.MTrait", "my.MOther"],
  "location": {"start": {"line": 1, "column": 0, "index": 0}, "end": {"line": 40, "column": 3, "index": 812}},
  "construct": {"location": {"start": {"line": 5, "column": 2, "index": 90}, "end": {"line": 8, "column": 3, "index": 140}}},
  "members": {
    "getChild": {
      "type": "function",
      "location": {"start": {"line": 10, "column": 4, "index": 160}, "end": {"line": 14, "column": 5, "index": 260}},
      "jsdoc": {
        "@description": [{"name": "@description", "body": "Returns a child."}],
        "@param": [{"name": "@param", "paramName": "index", "type": "Integer", "description": "position"}],
        "@return": [{"name": "@return", "type": ["my.Child", "null"]}]
      }
    },
    "__items": {
      "type": "variable",
      "jsdoc": {"@type": [{"name": "@type", "body": "{qx.data.Array<my.Child>}"}]}
    },
    "_broken": {
      "type": "function",
      "jsdoc": "not a tag map"
    }
  },
  "statics": {
    "create": {"type": "function", "access": "public"}
  },
  "properties": {
    "label": {"check": "String", "nullable": true},
    "model": {"json": {"check": "my.Model", "event": "modelChanged"}}
  }
}`

func TestDecodeRecord(t *testing.T) {
	rec, err := DecodeRecord([]byte(widgetMeta))
	require.NoError(t, err)

	assert.Equal(t, "my.Widget", rec.Name)
	assert.Equal(t, "qx.ui.core.Widget", rec.SuperClass)
	assert.Equal(t, []string{"my.MTrait", "my.MOther"}, rec.Mixins)
	require.NotNil(t, rec.Span)
	assert.Equal(t, 812, rec.Span.End.Index)
	require.NotNil(t, rec.Constructor)
	assert.True(t, rec.Constructor.Span.Contains(100))

	child := rec.Members["getChild"]
	require.NotNil(t, child)
	assert.Equal(t, MemberMethod, child.Kind)
	assert.Equal(t, AccessPublic, child.Access)
	assert.Equal(t, "Returns a child.", child.Description)
	assert.Equal(t, "my.Child|null", child.ReturnType)
	assert.True(t, child.HasParamDocs)
	p, ok := child.Param("index")
	require.True(t, ok)
	assert.Equal(t, "Integer", p.Type)
	assert.True(t, child.Span.Contains(160))
	assert.True(t, child.Span.Contains(260))
	assert.False(t, child.Span.Contains(261))

	items := rec.Members["__items"]
	assert.Equal(t, MemberVariable, items.Kind)
	assert.Equal(t, AccessPrivate, items.Access)
	assert.Equal(t, "qx.data.Array<my.Child>", items.DocumentedType)

	broken := rec.Members["_broken"]
	require.NotNil(t, broken, "malformed docs keep the member")
	assert.Equal(t, AccessProtected, broken.Access)
	assert.Empty(t, broken.Description)

	assert.Contains(t, rec.Statics, "create")

	label := rec.Properties["label"]
	assert.Equal(t, "String", label.Type())
	assert.True(t, label.Nullable)
	assert.Equal(t, "changeLabel", label.ChangeEvent())

	model := rec.Properties["model"]
	assert.Equal(t, "my.Model", model.Type())
	assert.Equal(t, "modelChanged", model.ChangeEvent())

	assert.Equal(t, []string{"changeLabel", "modelChanged"}, rec.ChangeEvents())
}

func TestDecodeRecordErrors(t *testing.T) {
	_, err := DecodeRecord([]byte(`{"className": `))
	assert.True(t, errors.IsCode(err, errors.CodeMetadataIO))

	_, err = DecodeRecord([]byte(`{"type": "class"}`))
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestPropertyTypeFallsBackToDoc(t *testing.T) {
	p := &PropertyRecord{Name: "icon", Check: "value === null || typeof value == 'string'", DocumentedType: "String"}
	assert.Equal(t, "String", p.Type())
}

func TestNameHelpers(t *testing.T) {
	assert.Equal(t, []string{"qx", "ui", "Widget"}, SplitName("qx.ui.Widget"))
	assert.Nil(t, SplitName("qx..Widget"))
	assert.Nil(t, SplitName(""))
	assert.Equal(t, "Label", FirstUp("label"))
	assert.Equal(t, "label", FirstDown("Label"))

	cases := map[string]string{
		"qx.data.Array<String>": "qx.data.Array",
		"Map<String, Array<X>>": "Map",
		"my.Widget":             "my.Widget",
		" Foo<Bar> ":            "Foo",
	}
	for in, want := range cases {
		assert.Equal(t, want, StripTemplateArgs(in), in)
	}
}
