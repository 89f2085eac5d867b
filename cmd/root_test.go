//go:build !integration

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommandRegistration(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"pipeline", "fetch", "import", "render", "export", "serve", "runs"} {
		assert.True(t, names[want], "command %s not registered", want)
	}
}

func TestRootCommandUse(t *testing.T) {
	assert.Equal(t, "censusmap", rootCmd.Use)
}
