package docconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoute(t *testing.T) {
	r := NewRouter(DefaultTable)

	tests := []struct {
		src, dst Format
		kind     PathKind
		via      Format
	}{
		{FormatPDF, FormatPDF, PathPassthrough, FormatUnknown},
		{FormatText, FormatPDF, PathDirect, FormatUnknown},
		{FormatImage, FormatPDF, PathDirect, FormatUnknown},
		{FormatDocx, FormatImage, PathTwoHop, FormatPDF},
		{FormatDoc, FormatImage, PathTwoHop, FormatPDF},
		{FormatText, FormatDoc, PathTwoHop, FormatPDF},
		{FormatPDF, FormatHTML, PathTwoHop, FormatText},
		{FormatImage, FormatImage, PathPassthrough, FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(string(tt.src)+"-"+string(tt.dst), func(t *testing.T) {
			p, err := r.Route(tt.src, tt.dst)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, p.Kind)
			assert.Equal(t, tt.via, p.Intermediate())
			if tt.kind == PathTwoHop {
				require.Len(t, p.Hops, 2)
				assert.Equal(t, tt.src, p.Hops[0].From)
				assert.Equal(t, tt.dst, p.Hops[1].To)
			}
		})
	}
}

func TestRouteUnsupported(t *testing.T) {
	r := NewRouter(DefaultTable)

	for _, pair := range []Pair{
		{FormatImage, FormatText},
		{FormatImage, FormatDocx},
		{FormatImage, FormatHTML},
		{FormatUnknown, FormatPDF},
		{FormatPDF, Format("xyz")},
	} {
		_, err := r.Route(pair.From, pair.To)
		require.Error(t, err, pair.String())
		assert.True(t, IsUnsupportedFormatPair(err), pair.String())
		assert.Equal(t, UnsupportedFormatPair, KindOf(err))
	}
}

func TestRouteNeverExceedsTwoHops(t *testing.T) {
	// a→b→c→d exists, but a→d needs three hops.
	table := Table{
		{FormatText, FormatHTML}: {"x"},
		{FormatHTML, FormatPDF}:  {"x"},
		{FormatPDF, FormatImage}: {"x"},
	}
	r := NewRouter(table)

	p, err := r.Route(FormatText, FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, PathTwoHop, p.Kind)

	_, err = r.Route(FormatText, FormatImage)
	assert.True(t, IsUnsupportedFormatPair(err))
}

func TestRouteIntermediatePreference(t *testing.T) {
	// Both pdf and html could bridge doc→image; pdf comes first.
	table := Table{
		{FormatDoc, FormatHTML}:   {"x"},
		{FormatHTML, FormatImage}: {"x"},
		{FormatDoc, FormatPDF}:    {"x"},
		{FormatPDF, FormatImage}:  {"x"},
	}
	p, err := NewRouter(table).Route(FormatDoc, FormatImage)
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, p.Intermediate())
}

func TestPaths(t *testing.T) {
	paths := NewRouter(DefaultTable).Paths()
	require.NotEmpty(t, paths)

	seen := map[string]bool{}
	for _, p := range paths {
		assert.NotEqual(t, PathPassthrough, p.Kind)
		seen[p.String()] = true
	}
	assert.True(t, seen["text→pdf"])
	assert.True(t, seen["docx→pdf→image"])
	assert.False(t, seen["image→pdf→text"])
}
