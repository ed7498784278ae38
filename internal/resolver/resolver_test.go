package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveRelativeOrdering(t *testing.T) {
	r := New()
	got := r.Resolve("/proj/src/main.ts", "./util", nil)
	want := []string{
		"/proj/src/util.ts",
		"/proj/src/util.d.ts",
		"/proj/src/util/index.ts",
		"/proj/src/util/index.d.ts",
		"/proj/src/util.mts",
		"/proj/src/util/index.mts",
		"/proj/src/util.cts",
		"/proj/src/util/index.cts",
	}
	assert.Equal(t, want, got)
}

func TestResolveRelativeWithExtensionKeepsAsIs(t *testing.T) {
	r := New()
	got := r.Resolve("/proj/src/main.ts", "./util.ts", nil)
	assert.Equal(t, "/proj/src/util.ts", got[0])
}

func TestResolveExactAlias(t *testing.T) {
	r := New()
	aliases := &AliasTable{
		BaseDir: "/proj",
		Aliases: map[string][]string{"@app": {"src/app"}},
	}
	got := r.Resolve("/proj/src/main.ts", "@app", aliases)
	assert.Equal(t, "/proj/src/app.ts", got[0])
}

func TestResolveWildcardAliasPrefersLongestPrefix(t *testing.T) {
	r := New()
	aliases := &AliasTable{
		BaseDir: "/proj",
		Aliases: map[string][]string{
			"@app/*":       {"src/app"},
			"@app/utils/*": {"src/app/utils"},
		},
	}
	got := r.Resolve("/proj/src/main.ts", "@app/utils/format", aliases)
	assert.Equal(t, "/proj/src/app/utils/format.ts", got[0])
}

func TestResolveBareSpecifierReturnsEmpty(t *testing.T) {
	r := New()
	got := r.Resolve("/proj/src/main.ts", "lodash", nil)
	assert.Empty(t, got)
}

func TestBareCandidatesEnumeratesNodeModules(t *testing.T) {
	r := New()
	got := r.BareCandidates("/proj", "lodash")
	assert.Contains(t, got, "/proj/node_modules/lodash.ts")
	assert.Contains(t, got, "/proj/node_modules/lodash/index.ts")
}
