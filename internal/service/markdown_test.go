package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarkdownToText(t *testing.T) {
	src := "# Release Notes\n\nFixed the *login* flow.\n\n- faster startup\n- fewer crashes\n"
	out := markdownToText(src)

	require.Contains(t, out, "Release Notes")
	require.Contains(t, out, "Fixed the login flow.")
	require.Contains(t, out, "faster startup")
	require.NotContains(t, out, "#")
	require.NotContains(t, out, "*")
}

func TestMarkdownToTextPlain(t *testing.T) {
	require.Equal(t, "just text", markdownToText("just text"))
	require.Equal(t, "", markdownToText(""))
}
