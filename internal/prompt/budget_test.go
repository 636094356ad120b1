package prompt

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPutsCorpusBeforeQuery(t *testing.T) {
	p := Build("\n--- a.py ---\nprint(1)", "what does this do?")

	assert.Equal(t, "Here is the content of my codebase files:\n\n\n--- a.py ---\nprint(1)\n\nQuery: what does this do?", p)
	assert.Less(t, strings.Index(p, "print(1)"), strings.Index(p, "what does this do?"))
}

func TestEstimateTokens(t *testing.T) {
	for _, n := range []int{0, 1, 3, 4, 5, 7, 8, 1001} {
		s := strings.Repeat("a", n)
		assert.Equal(t, n/4, EstimateTokens(s), "len=%d", n)
	}
	assert.Equal(t, 1, EstimateTokens("ééééé"))
}

type scriptedConfirmer struct {
	answer bool
	err    error
	asked  []string
}

func (s *scriptedConfirmer) Confirm(q string) (bool, error) {
	s.asked = append(s.asked, q)
	return s.answer, s.err
}

func TestCheckUnderLimitDoesNotAsk(t *testing.T) {
	c := &scriptedConfirmer{}
	d, err := Checker{Limit: 10, Confirm: c}.Check(strings.Repeat("a", 40))
	require.NoError(t, err)

	assert.Equal(t, StateUnderLimit, d.State)
	assert.Equal(t, 10, d.Tokens)
	assert.True(t, d.Proceed())
	assert.Empty(t, c.asked)
}

func TestCheckDefaultsLimit(t *testing.T) {
	d, err := Checker{}.Check("tiny")
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, d.Limit)
}

func TestCheckOverLimitDeclined(t *testing.T) {
	// 300,000 estimated tokens against the default limit
	prompt := strings.Repeat("x", 300000*4)
	c := &scriptedConfirmer{answer: false}

	d, err := Checker{Limit: DefaultLimit, Confirm: c}.Check(prompt)
	require.ErrorIs(t, err, ErrBudgetDeclined)

	assert.Equal(t, StateDeclined, d.State)
	assert.Equal(t, 300000, d.Tokens)
	assert.False(t, d.Proceed())
	require.Len(t, c.asked, 1)
	assert.Contains(t, c.asked[0], "300000")
	assert.Contains(t, c.asked[0], "256000")
}

func TestCheckOverLimitConfirmed(t *testing.T) {
	c := &scriptedConfirmer{answer: true}
	d, err := Checker{Limit: 1, Confirm: c}.Check("123456789")
	require.NoError(t, err)

	assert.Equal(t, StateConfirmed, d.State)
	assert.True(t, d.Proceed())
	assert.True(t, d.OverLimit())
}

func TestCheckAtLimitProceeds(t *testing.T) {
	d, err := Checker{Limit: 2, Confirm: &scriptedConfirmer{}}.Check("12345678")
	require.NoError(t, err)
	assert.Equal(t, StateUnderLimit, d.State)
}

func TestCheckAutoConfirm(t *testing.T) {
	c := &scriptedConfirmer{}
	d, err := Checker{Limit: 1, AutoConfirm: true, Confirm: c}.Check("123456789")
	require.NoError(t, err)

	assert.Equal(t, StateConfirmed, d.State)
	assert.NotEmpty(t, d.Question)
	assert.Empty(t, c.asked)
}

func TestCheckConfirmerErrorDeclines(t *testing.T) {
	c := &scriptedConfirmer{err: ErrNotInteractive}
	d, err := Checker{Limit: 1, Confirm: c}.Check("123456789")

	require.ErrorIs(t, err, ErrBudgetDeclined)
	assert.Equal(t, StateDeclined, d.State)
}

func TestCheckNilConfirmerDeclines(t *testing.T) {
	_, err := Checker{Limit: 1}.Check("123456789")
	require.ErrorIs(t, err, ErrBudgetDeclined)
}

func TestConfirmFunc(t *testing.T) {
	var got string
	f := ConfirmFunc(func(q string) (bool, error) {
		got = q
		return true, nil
	})

	d, err := Checker{Limit: 1, Confirm: f}.Check("123456789")
	require.NoError(t, err)
	assert.Equal(t, d.Question, got)
}

func TestTerminalConfirmer(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"yes\n", true},
		{"  y  \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"sure\n", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			c := &TerminalConfirmer{In: strings.NewReader(tt.input), Out: &out, Interactive: true}

			ok, err := c.Confirm("Proceed anyway?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, "Proceed anyway? (y/n): ", out.String())
		})
	}
}

func TestTerminalConfirmerNotInteractive(t *testing.T) {
	c := &TerminalConfirmer{In: strings.NewReader("y\n"), Out: &bytes.Buffer{}}

	ok, err := c.Confirm("Proceed anyway?")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrNotInteractive))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting-confirmation", StateAwaitingConfirmation.String())
	assert.Equal(t, "declined", StateDeclined.String())
	assert.Equal(t, "built", StateBuilt.String())
}
