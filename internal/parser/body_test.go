package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBody_LineEndings(t *testing.T) {
	assert.Equal(t, "a\n\nb", NormalizeBody("a\r\n\r\nb"))
	assert.Equal(t, "a\nb", NormalizeBody("a\rb"))
}

func TestNormalizeBody_CollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "a b", NormalizeBody("a   b"))
	assert.Equal(t, "a b", NormalizeBody("a \t\t b"))
}

func TestNormalizeBody_CollapsesBlankLines(t *testing.T) {
	assert.Equal(t, "a\n\nb", NormalizeBody("a\n\n\n\nb"))
	assert.Equal(t, "a\n\nb", NormalizeBody("a\n  \n\t\nb"))
}

func TestNormalizeBody_Trims(t *testing.T) {
	assert.Equal(t, "hello", NormalizeBody("  \n hello \n\n"))
	assert.Equal(t, "", NormalizeBody("   \r\n\t  "))
}

func TestNormalizeBody_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"a\r\n\r\nb",
		"  leading\tand   trailing  ",
		"line one\r\nline two\r\rline three",
		"a\n \n \nb\t\tc",
		"Hi,\r\n\r\n-----Original Message-----\r\nOlder   text\r\n",
	}
	for _, input := range inputs {
		once := NormalizeBody(input)
		assert.Equal(t, once, NormalizeBody(once), "input %q", input)
	}
}

func TestSplitThread_WithDelimiter(t *testing.T) {
	const delim = "-----Original Message-----"

	segments, found := SplitThread("Hi\n-----Original Message-----\nOlder text", delim)
	assert.True(t, found)
	assert.Equal(t, []string{"Hi", "Older text"}, segments)
}

func TestSplitThread_NoDelimiter(t *testing.T) {
	segments, found := SplitThread("just a single message", "-----Original Message-----")
	assert.False(t, found)
	assert.Equal(t, []string{"just a single message"}, segments)
}

func TestSplitThread_DropsEmptySegments(t *testing.T) {
	const delim = "-----Original Message-----"

	segments, found := SplitThread(delim+"\nonly quoted text", delim)
	assert.True(t, found)
	assert.Equal(t, []string{"only quoted text"}, segments)

	segments, found = SplitThread(delim, delim)
	assert.True(t, found)
	assert.Empty(t, segments)
}

func TestSplitThread_MultipleDelimiters(t *testing.T) {
	const delim = "-----Original Message-----"

	body := "newest\n" + delim + "\nmiddle\n" + delim + "\noldest"
	segments, found := SplitThread(body, delim)
	assert.True(t, found)
	assert.Equal(t, []string{"newest", "middle", "oldest"}, segments)
}

func TestHTMLToText(t *testing.T) {
	text := htmlToText("<html><body><p>Hello &amp; welcome</p></body></html>")
	assert.Contains(t, text, "Hello & welcome")
	assert.NotContains(t, text, "<p>")
}
