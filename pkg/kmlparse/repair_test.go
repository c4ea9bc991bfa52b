package kmlparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeAmpersands(t *testing.T) {
	tests := []struct {
		in, want string
		n        int
	}{
		{`a & b`, `a &amp; b`, 1},
		{`&amp; &lt; &#38; &#x26; &quot;`, `&amp; &lt; &#38; &#x26; &quot;`, 0},
		{`&nbsp;&`, `&amp;nbsp;&amp;`, 2},
		{`&#; &#xZ;`, `&amp;#; &amp;#xZ;`, 2},
		{`<!-- a & b --><![CDATA[x & y]]>&`, `<!-- a & b --><![CDATA[x & y]]>&amp;`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			out, n := EscapeAmpersands([]byte(tt.in))
			assert.Equal(t, tt.want, string(out))
			assert.Equal(t, tt.n, n)

			again, n2 := EscapeAmpersands(out)
			assert.Equal(t, string(out), string(again))
			assert.Zero(t, n2)
		})
	}
}

func TestCloseTags(t *testing.T) {
	tests := []struct {
		name, in, want string
		n              int
	}{
		{"balanced", `<?xml version="1.0"?><a x="1>2"><b/><c>t</c><!-- <d> --></a>`, `<?xml version="1.0"?><a x="1>2"><b/><c>t</c><!-- <d> --></a>`, 0},
		{"unclosed at eof", `<a><b>t`, `<a><b>t</b></a>`, 2},
		{"mismatched", `<a><b><c>t</a>`, `<a><b><c>t</c></b></a>`, 2},
		{"stray end tag", `<a>t</z></a>`, `<a>t</a>`, 1},
		{"bare less-than", `<a>1 < 2</a>`, `<a>1 &lt; 2</a>`, 1},
		{"unterminated cdata", `<a><![CDATA[x`, `<a><![CDATA[x]]></a>`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, n := CloseTags([]byte(tt.in))
			assert.Equal(t, tt.want, string(out))
			assert.Equal(t, tt.n, n)

			again, n2 := CloseTags(out)
			assert.Equal(t, string(out), string(again))
			assert.Zero(t, n2)
		})
	}
}

func TestRecodeUTF8(t *testing.T) {
	t.Run("bom", func(t *testing.T) {
		out, n := RecodeUTF8([]byte("\xef\xbb\xbf<a/>"))
		assert.Equal(t, "<a/>", string(out))
		assert.Equal(t, 1, n)
	})
	t.Run("undeclared latin1", func(t *testing.T) {
		out, n := RecodeUTF8([]byte("<a>caf\xe9</a>"))
		assert.Equal(t, "<a>café</a>", string(out))
		assert.Equal(t, 1, n)
	})
	t.Run("declared", func(t *testing.T) {
		out, n := RecodeUTF8([]byte("<?xml version='1.0' encoding='windows-1252'?><a>\x80</a>"))
		assert.Equal(t, `<?xml version='1.0' encoding="UTF-8"?><a>€</a>`, string(out))
		assert.Equal(t, 2, n)

		again, n2 := RecodeUTF8(out)
		assert.Equal(t, string(out), string(again))
		assert.Zero(t, n2)
	})
	t.Run("utf16", func(t *testing.T) {
		out, n := RecodeUTF8([]byte{0xff, 0xfe, '<', 0, 'a', 0, '/', 0, '>', 0})
		assert.Equal(t, "<a/>", string(out))
		assert.Equal(t, 1, n)
	})
	t.Run("clean", func(t *testing.T) {
		out, n := RecodeUTF8([]byte(`<?xml version="1.0" encoding="utf-8"?><a>é</a>`))
		assert.Equal(t, `<?xml version="1.0" encoding="utf-8"?><a>é</a>`, string(out))
		assert.Zero(t, n)
	})
}

func TestParseTuple(t *testing.T) {
	c, err := ParseTuple("10,20,5")
	assert.NoError(t, err)
	assert.Equal(t, 20.0, c.Lat)
	assert.Equal(t, 10.0, c.Lon)
	assert.Equal(t, 5.0, c.Alt)

	for _, bad := range []string{"10", "1,2,3,4", "a,1", "181,0", "0,-91", ","} {
		_, err := ParseTuple(bad)
		assert.Error(t, err, bad)
	}
}
