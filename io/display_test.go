package io

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamDisplay_Write(t *testing.T) {
	assert := assert.New(t)

	out := &bytes.Buffer{}
	sd := &StreamDisplay{Output: out}

	n, err := sd.Write([]byte{'H', 'i'})
	assert.NoError(err)
	assert.Equal(2, n)
	assert.Equal("Hi", out.String())
}

func TestStreamDisplay_PrintDecimal(t *testing.T) {
	assert := assert.New(t)

	out := &bytes.Buffer{}
	sd := &StreamDisplay{Output: out}

	assert.NoError(sd.PrintDecimal(0))
	assert.NoError(sd.PrintDecimal(72))
	assert.NoError(sd.PrintDecimal(255))

	// No width or padding.
	assert.Equal("072255", out.String())
}

func TestStreamDisplay_NilOutput(t *testing.T) {
	assert := assert.New(t)

	sd := &StreamDisplay{}

	n, err := sd.Write([]byte("dropped"))
	assert.NoError(err)
	assert.Equal(7, n)
	assert.NoError(sd.PrintDecimal(1))
}

func TestFileKeys_NilFile(t *testing.T) {
	assert := assert.New(t)

	fk := &FileKeys{}

	_, ok, err := fk.ReadKey()
	assert.NoError(err)
	assert.False(ok)
}
