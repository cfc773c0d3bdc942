package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildContentsMapsRoles(t *testing.T) {
	contents, err := buildContents(Request{
		History: []Message{
			{Role: RoleUser, Content: "add milk"},
			{Role: RoleAssistant, Content: "done"},
		},
		Text: "and eggs",
	})
	require.NoError(t, err)
	require.Len(t, contents, 3)

	assert.Equal(t, "user", string(contents[0].Role))
	assert.Equal(t, "model", string(contents[1].Role))
	assert.Equal(t, "user", string(contents[2].Role))
	require.Len(t, contents[2].Parts, 1)
	assert.Equal(t, "and eggs", contents[2].Parts[0].Text)
}

func TestBuildContentsRejectsBadAudio(t *testing.T) {
	_, err := buildContents(Request{Audio: &Audio{Data: "%%%", MIMEType: "audio/wav"}})
	assert.ErrorIs(t, err, ErrInvalidAudio)
}
