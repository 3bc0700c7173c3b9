package bot

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, "plain text", Sanitize("plain text"))
	assert.Equal(t, "a\\.b\\_c", Sanitize("a.b_c"))
	assert.Equal(t, "\\*bold\\* \\[link\\]\\(url\\)", Sanitize("*bold* [link](url)"))
	assert.Equal(t, "\\\\", Sanitize("\\"))
	assert.Equal(t, "", Sanitize(""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "", truncate("", 60))
	assert.Equal(t, "short", truncate("short", 60))
	assert.Equal(t, "abc…", truncate("abcdef", 3))

	// cyrillic runes are two bytes each; the cut must stay valid UTF-8
	long := strings.Repeat("ж", 100)
	got := truncate(long, 60)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("ж", 60)+"…", got)
}
