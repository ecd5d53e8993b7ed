package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadInput(t *testing.T) {
	v, err := readInput(context.Background(), func() (string, error) {
		return "runner@example.com", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "runner@example.com", v)

	_, err = readInput(context.Background(), func() (string, error) {
		return "", errors.New("eof")
	})
	assert.EqualError(t, err, "eof")
}

func TestReadInputStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	go cancel()
	_, err := readInput(ctx, func() (string, error) {
		<-block
		return "too late", nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
