package tyco

import (
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// TestParse_BasicTypedGlobals validates the base-type parse rules of spec
// §4.4 across the four scalar kinds in one source document.
func TestParse_BasicTypedGlobals(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	src := `
str environment: production
int port: 8080
bool debug: false
float timeout: 30.5
`
	// --- Act ---
	got, err := Parse(src, "globals.tyco")

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, "production", got["environment"])
	require.Equal(t, int64(8080), got["port"])
	require.Equal(t, false, got["debug"])
	require.Equal(t, 30.5, got["timeout"])
}

func TestParse_NumericBases(t *testing.T) {
	t.Parallel()
	src := `
int hex: 0xFF
int oct: 0o777
int bin: 0b1010
`
	got, err := Parse(src, "bases.tyco")
	require.NoError(t, err)
	require.Equal(t, int64(255), got["hex"])
	require.Equal(t, int64(511), got["oct"])
	require.Equal(t, int64(10), got["bin"])
}

func TestParse_NullableAndArrayGlobals(t *testing.T) {
	t.Parallel()
	src := `
?str maybe: null
str[] envs: [dev, staging, prod]
`
	got, err := Parse(src, "nullable.tyco")
	require.NoError(t, err)
	require.Nil(t, got["maybe"])
	require.Equal(t, []any{"dev", "staging", "prod"}, got["envs"])
}

func TestParse_StructWithPrimaryKeyAndReferences(t *testing.T) {
	t.Parallel()
	src := `
Database:
  *str name:
  str host:
  int port: 5432
  - primary, localhost
  - replica, replica.example.com, 5433

Service:
  *str name:
  Database db:
  - api, Database(primary)
`
	got, err := Parse(src, "structs.tyco")
	require.NoError(t, err)

	databases, ok := got["Database"].([]any)
	require.True(t, ok)
	require.Len(t, databases, 2)
	require.Equal(t, map[string]any{"name": "primary", "host": "localhost", "port": int64(5432)}, databases[0])
	require.Equal(t, map[string]any{"name": "replica", "host": "replica.example.com", "port": int64(5433)}, databases[1])

	services, ok := got["Service"].([]any)
	require.True(t, ok)
	require.Len(t, services, 1)
	require.Equal(t, map[string]any{
		"name": "api",
		"db":   map[string]any{"name": "primary", "host": "localhost", "port": int64(5432)},
	}, services[0])
}

func TestParse_TemplateExpansion(t *testing.T) {
	t.Parallel()
	src := `
str host: "api.example.com"
str url: "https://{host}/v1"
`
	got, err := Parse(src, "templates.tyco")
	require.NoError(t, err)
	require.Equal(t, "api.example.com", got["host"])
	require.Equal(t, "https://api.example.com/v1", got["url"])
}

func TestParse_TripleQuotedAndLiteralStrings(t *testing.T) {
	t.Parallel()
	src := "str block: \"\"\"\nline1\nline2\n\"\"\"\nstr literal: '''no {subst}'''\n"
	got, err := Parse(src, "strings.tyco")
	require.NoError(t, err)
	require.Equal(t, "line1\nline2\n", got["block"])
	require.Equal(t, "no {subst}", got["literal"])
}

func TestParse_DecimalGlobal(t *testing.T) {
	t.Parallel()
	src := "decimal price: 19.99\n"
	got, err := Parse(src, "decimal.tyco")
	require.NoError(t, err)
	want, err := decimal.NewFromString("19.99")
	require.NoError(t, err)
	require.True(t, want.Equal(got["price"].(decimal.Decimal)))
}

func TestParse_DateTimeNormalization(t *testing.T) {
	t.Parallel()
	src := `
time start: 09:30:00
datetime deployed: 2024-01-02 03:04:05Z
`
	got, err := Parse(src, "datetimes.tyco")
	require.NoError(t, err)
	require.Equal(t, "09:30:00", got["start"])
	require.Equal(t, "2024-01-02T03:04:05.000000+00:00", got["deployed"])
}

func TestParse_DuplicateGlobalFails(t *testing.T) {
	t.Parallel()
	src := "str a: one\nstr a: two\n"
	_, err := Parse(src, "dup.tyco")
	require.Error(t, err)
	requireKind(t, err, DuplicateGlobal)
}

func TestParse_UnknownReferenceFails(t *testing.T) {
	t.Parallel()
	src := `
Database:
  *str name:
  - primary

Service:
  *str name:
  Database db:
  - api, Database(ghost)
`
	_, err := Parse(src, "unknown-ref.tyco")
	require.Error(t, err)
	requireKind(t, err, UnknownReference)
}

func TestParse_DuplicatePrimaryKeyFails(t *testing.T) {
	t.Parallel()
	src := `
Database:
  *str name:
  - primary
  - primary
`
	_, err := Parse(src, "dup-pk.tyco")
	require.Error(t, err)
	requireKind(t, err, DuplicatePrimaryKey)
}

func TestParse_PrimaryKeyOnArrayFails(t *testing.T) {
	t.Parallel()
	src := `
Database:
  *str[] names:
  - foo
`
	_, err := Parse(src, "pk-array.tyco")
	require.Error(t, err)
	requireKind(t, err, PrimaryKeyOnArray)
}

func TestParse_SchemaAfterInitFails(t *testing.T) {
	t.Parallel()
	src := `
Database:
  *str name:
  - primary
  int port:
`
	_, err := Parse(src, "schema-after-init.tyco")
	require.Error(t, err)
	requireKind(t, err, SchemaAfterInit)
}

func TestParse_MissingAttrFails(t *testing.T) {
	t.Parallel()
	src := `
Database:
  *str name:
  str host:
  - primary
`
	_, err := Parse(src, "missing-attr.tyco")
	require.Error(t, err)
	requireKind(t, err, MissingAttr)
}

func TestParse_UnclosedStringFails(t *testing.T) {
	t.Parallel()
	src := `str broken: "unterminated`
	_, err := Parse(src, "unclosed.tyco")
	require.Error(t, err)
	requireKind(t, err, UnclosedString)
}

func TestParse_InvalidBoolFails(t *testing.T) {
	t.Parallel()
	src := "bool debug: maybe\n"
	_, err := Parse(src, "bad-bool.tyco")
	require.Error(t, err)
	requireKind(t, err, InvalidBool)
}

func TestParse_UntemplatableTypeFails(t *testing.T) {
	t.Parallel()
	src := `
str[] envs: [dev, staging]
str summary: "envs are {envs}"
`
	_, err := Parse(src, "untemplatable.tyco")
	require.Error(t, err)
	requireKind(t, err, UntemplatableType)
}

func TestParse_CommentAfterValueIsStripped(t *testing.T) {
	t.Parallel()
	src := "str environment: production # this is a comment\n"
	got, err := Parse(src, "comment.tyco")
	require.NoError(t, err)
	require.Equal(t, "production", got["environment"])
}

// TestParse_HashInsideQuotedStringIsNotAComment documents the resolution of
// the open question in spec §9: quoting is respected before comment
// stripping runs, for both quote characters, on the line containing the
// opening delimiter.
func TestParse_HashInsideQuotedStringIsNotAComment(t *testing.T) {
	t.Parallel()
	src := `str tag: "release #42"` + "\n"
	got, err := Parse(src, "hash.tyco")
	require.NoError(t, err)
	require.Equal(t, "release #42", got["tag"])
}

func TestParse_InstanceRowContinuation(t *testing.T) {
	t.Parallel()
	src := "Database:\n  *str name:\n  str host:\n  - primary, \\\n    localhost\n"
	got, err := Parse(src, "continuation.tyco")
	require.NoError(t, err)
	databases, ok := got["Database"].([]any)
	require.True(t, ok)
	require.Equal(t, map[string]any{"name": "primary", "host": "localhost"}, databases[0])
}

// TestParse_TemplateCrossesFromGlobalsToInstanceAttr exercises a path whose
// first segment resolves against the globals map to a struct reference and
// whose second segment must then resolve as an attribute lookup on the
// resolved instance, not as another globals lookup.
func TestParse_TemplateCrossesFromGlobalsToInstanceAttr(t *testing.T) {
	t.Parallel()
	src := `
Database:
  *str name:
  str host:
  - primary, db.internal

Database db: Database(primary)
str summary: "primary db is at {db.host}"
`
	got, err := Parse(src, "cross-scope.tyco")
	require.NoError(t, err)
	require.Equal(t, "primary db is at db.internal", got["summary"])
}

// TestParse_TemplateGlobalEscapeFromNestedInstance exercises the "global."
// prefix that lets a template inside a struct instance reach a top-level
// global instead of its own attributes.
func TestParse_TemplateGlobalEscapeFromNestedInstance(t *testing.T) {
	t.Parallel()
	src := `
str region: "eu-west-1"

Service:
  *str name:
  str note:
  - api, "deployed in {global.region}"
`
	got, err := Parse(src, "global-escape.tyco")
	require.NoError(t, err)
	services, ok := got["Service"].([]any)
	require.True(t, ok)
	require.Len(t, services, 1)
	require.Equal(t, map[string]any{
		"name": "api",
		"note": "deployed in eu-west-1",
	}, services[0])
}

func TestParse_IncludeDirectiveIgnoresTrailingComment(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir+"/base.tyco", "str shared: value\n")
	writeFile(t, dir+"/main.tyco", "#include base.tyco # pulls in shared config\nstr local: here\n")

	got, err := ParseFile(dir + "/main.tyco")
	require.NoError(t, err)
	require.Equal(t, "value", got["shared"])
	require.Equal(t, "here", got["local"])
}

func TestParseFile_IncludeIsIdempotent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir+"/base.tyco", "str shared: value\n")
	writeFile(t, dir+"/main.tyco", "#include base.tyco\n#include base.tyco\nstr local: here\n")

	got, err := ParseFile(dir + "/main.tyco")
	require.NoError(t, err)
	require.Equal(t, "value", got["shared"])
	require.Equal(t, "here", got["local"])
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	tycoErr, ok := err.(*Error)
	require.True(t, ok, "expected *tyco.Error, got %T", err)
	require.Equal(t, kind, tycoErr.Kind)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
