package regex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/tmcat/pkg/regex"
	"github.com/walteh/tmcat/pkg/strpiece"
)

func TestCompileInvalid(t *testing.T) {
	_, err := regex.Compile("(unclosed")
	require.Error(t, err)
	require.ErrorIs(t, err, regex.ErrInvalidPattern)
}

func TestFindWholeMatch(t *testing.T) {
	re := regex.MustCompile(`(hello|world)`)
	m := re.Find(strpiece.New("hello, world"))
	require.NotNil(t, m)
	assert.Equal(t, 0, m.Start())
	assert.Equal(t, 5, m.End())

	// advancing the window finds the later alternative
	s := strpiece.New("hello, world")
	s.RemovePrefix(5)
	m = re.Find(s)
	require.NotNil(t, m)
	assert.Equal(t, 7, m.Start())
	assert.Equal(t, 12, m.End())
}

func TestFindNoMatch(t *testing.T) {
	re := regex.MustCompile(`\d+`)
	assert.Nil(t, re.Find(strpiece.New("no digits here")))
}

func TestCaretAnchorsLineStartOnly(t *testing.T) {
	re := regex.MustCompile(`^abc`)
	require.NotNil(t, re.Find(strpiece.New("abcdef")))

	// mid-line window: ^ must not match even though the window starts there
	s := strpiece.New("xxabc")
	s.RemovePrefix(2)
	assert.Nil(t, re.Find(s))
}

func TestContiguousAnchorMatchesWindowStart(t *testing.T) {
	re := regex.MustCompile(`\Gabc`)
	s := strpiece.New("xxabc")
	s.RemovePrefix(2)
	m := re.Find(s)
	require.NotNil(t, m)
	assert.Equal(t, 2, m.Start())
	assert.Equal(t, 5, m.End())
}

func TestAbsentGroupIsAbsent(t *testing.T) {
	re := regex.MustCompile(`(a)|(b)`)
	m := re.Find(strpiece.New("b"))
	require.NotNil(t, m)
	require.Len(t, m.Captures, 3)
	assert.False(t, m.Captures[1].Present)
	assert.True(t, m.Captures[2].Present)
	assert.Equal(t, 0, m.Captures[2].Start)
	assert.Equal(t, 1, m.Captures[2].End)
}

func TestGroupOffsetsAreBytes(t *testing.T) {
	// two-byte runes before the match shift byte offsets past rune offsets
	re := regex.MustCompile(`(\w+)`)
	m := re.Find(strpiece.New("ÀÈ abc"))
	require.NotNil(t, m)
	assert.Equal(t, 0, m.Start()) // \w matches À
	re2 := regex.MustCompile(`abc`)
	m = re2.Find(strpiece.New("ÀÈ abc"))
	require.NotNil(t, m)
	assert.Equal(t, 5, m.Start())
	assert.Equal(t, 8, m.End())
}

func TestMatchCannotLeaveWindow(t *testing.T) {
	re := regex.MustCompile(`abcd`)
	s := strpiece.New("abcdef").Substr(0, 3)
	assert.Nil(t, re.Find(s))
}

func TestOverlongMatchDoesNotHideLaterFit(t *testing.T) {
	// "b12c" at 1 runs past the window; "2" at 3 fits
	re := regex.MustCompile(`b\w\w\w|2`)
	s := strpiece.New("ab12cd").Substr(0, 4)
	m := re.Find(s)
	require.NotNil(t, m)
	assert.Equal(t, 3, m.Start())
	assert.Equal(t, 4, m.End())
}

func TestDollarAnchorsRealLineEndOnly(t *testing.T) {
	re := regex.MustCompile(`x$`)

	// window ends at the true line end
	m := re.Find(strpiece.New("abx"))
	require.NotNil(t, m)
	assert.Equal(t, 2, m.Start())

	// window ends mid-line: $ must not match at the artificial boundary
	s := strpiece.New("abx yz").Substr(0, 3)
	assert.Nil(t, re.Find(s))

	// mid-line window that does reach the line end still matches
	tail := strpiece.New("ab x")
	tail.RemovePrefix(2)
	m = re.Find(tail)
	require.NotNil(t, m)
	assert.Equal(t, 3, m.Start())
	assert.Equal(t, 4, m.End())
}
