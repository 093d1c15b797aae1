package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseKeyInput() KeyInput {
	return KeyInput{
		Source:          "#define X 1\nX\n",
		Definitions:     []string{"DEBUG", "V=1"},
		MaxIncludeDepth: 64,
		Polarity:        "standard",
		Version:         "0.1.0",
	}
}

func TestKey_Deterministic(t *testing.T) {
	k1, err := Key(baseKeyInput())
	require.NoError(t, err)
	k2, err := Key(baseKeyInput())
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64)
}

func TestKey_NilAndEmptyEquivalent(t *testing.T) {
	k1, err := Key(KeyInput{Source: "x"})
	require.NoError(t, err)
	k2, err := Key(KeyInput{Source: "x", Definitions: []string{}, IncludeDirs: []string{}})
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
}

func TestKey_SensitiveToEveryField(t *testing.T) {
	base, err := Key(baseKeyInput())
	require.NoError(t, err)

	mutations := map[string]func(*KeyInput){
		"source":       func(in *KeyInput) { in.Source += " " },
		"definitions":  func(in *KeyInput) { in.Definitions = []string{"DEBUG"} },
		"def order":    func(in *KeyInput) { in.Definitions = []string{"V=1", "DEBUG"} },
		"include dirs": func(in *KeyInput) { in.IncludeDirs = []string{"lib"} },
		"depth":        func(in *KeyInput) { in.MaxIncludeDepth = 8 },
		"polarity":     func(in *KeyInput) { in.Polarity = "inverted" },
		"normalize":    func(in *KeyInput) { in.NormalizeUnicode = true },
		"version":      func(in *KeyInput) { in.Version = "0.2.0" },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			in := baseKeyInput()
			mutate(&in)
			k, err := Key(in)
			require.NoError(t, err)
			assert.NotEqual(t, base, k)
		})
	}
}

func TestHashWithDomain_Separation(t *testing.T) {
	data := []byte("payload")
	assert.NotEqual(t, hashWithDomain("a", data), hashWithDomain("b", data))
	assert.NotEqual(t, hashWithDomain("ab", []byte("c")), hashWithDomain("a", []byte("bc")))
}
