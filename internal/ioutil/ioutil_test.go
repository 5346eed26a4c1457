package ioutil

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptIOReadCharExhaustion(t *testing.T) {
	s := NewScriptIO("AB")
	r, err := s.ReadChar()
	require.NoError(t, err)
	assert.Equal(t, 'A', r)

	r, err = s.ReadChar()
	require.NoError(t, err)
	assert.Equal(t, 'B', r)

	_, err = s.ReadChar()
	assert.ErrorIs(t, err, ErrInputExhausted)
}

func TestScriptIOReadLine(t *testing.T) {
	s := NewScriptIO("123\n456")
	line, err := s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "123", line)

	line, err = s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "456", line)

	_, err = s.ReadLine()
	assert.ErrorIs(t, err, ErrInputExhausted)
}

func TestScriptIOWriteStringAccumulates(t *testing.T) {
	s := NewScriptIO("")
	s.WriteString("hello, ")
	s.WriteString("world")
	assert.Equal(t, "hello, world", s.Output())
}

func TestStdIOReadCharFlushesFirst(t *testing.T) {
	var out bytes.Buffer
	io := NewStdIO(strings.NewReader("x"), &out)
	io.WriteString("pending")
	r, err := io.ReadChar()
	require.NoError(t, err)
	assert.Equal(t, 'x', r)
	assert.Equal(t, "pending", out.String())
}

func TestStdIOReadCharExhaustion(t *testing.T) {
	io := NewStdIO(strings.NewReader(""), &bytes.Buffer{})
	_, err := io.ReadChar()
	assert.ErrorIs(t, err, ErrInputExhausted)
}

func TestStdIOReadLineTrimsEOL(t *testing.T) {
	io := NewStdIO(strings.NewReader("42\r\n"), &bytes.Buffer{})
	line, err := io.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "42", line)
}

func TestStdIOReadLineEOFWithoutNewline(t *testing.T) {
	io := NewStdIO(strings.NewReader("42"), &bytes.Buffer{})
	line, err := io.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "42", line)
}

func TestStdIOReadLineEmptyAtEOF(t *testing.T) {
	io := NewStdIO(strings.NewReader(""), &bytes.Buffer{})
	_, err := io.ReadLine()
	assert.True(t, errors.Is(err, ErrInputExhausted))
}
