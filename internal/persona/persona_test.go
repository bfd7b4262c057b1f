package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	t.Parallel()

	c := Default("sarah-professional-hr")
	ids := []string{}
	for _, p := range c.List() {
		ids = append(ids, p.ID)
		assert.NotEmpty(t, p.SystemPrompt)
		assert.NotEmpty(t, p.DemoAudioURL)
		assert.NotEmpty(t, p.DemoVideoURL)
	}
	assert.Equal(t, []string{"sarah-professional-hr", "john-technical-lead", "priya-senior-hr", "david-executive"}, ids)

	p, err := c.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "Sarah", p.Name)

	p, err = c.Resolve("david-executive")
	require.NoError(t, err)
	assert.Equal(t, "VP of Engineering", p.Role)
	assert.NotEmpty(t, p.Voice("elevenlabs"))
	assert.Empty(t, p.Avatar("unknown"))

	_, err = c.Resolve("nobody")
	assert.ErrorIs(t, err, ErrUnknownPersona)
}

func TestDefaultUnknownFallsBackToFirst(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "sarah-professional-hr", Default("missing").DefaultID())
}

func TestLoadOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "personas.yaml")
	data := `default: maya-recruiter
personas:
  - id: john-technical-lead
    tone: relaxed
    voices:
      elevenlabs: custom-voice
  - id: maya-recruiter
    name: Maya
    role: Recruiter
    tone: upbeat
    system_prompt: You are Maya.
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	c, err := Load(path, "sarah-professional-hr")
	require.NoError(t, err)
	assert.Equal(t, "maya-recruiter", c.DefaultID())
	assert.Len(t, c.List(), 5)

	john, err := c.Resolve("john-technical-lead")
	require.NoError(t, err)
	assert.Equal(t, "relaxed", john.Tone)
	assert.Equal(t, "John", john.Name)
	assert.Equal(t, "custom-voice", john.Voice("elevenlabs"))
	assert.NotEmpty(t, john.Voice("playht"))

	maya, err := c.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "You are Maya.", maya.SystemPrompt)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.yaml"), "")
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("personas:\n  - name: NoID\n"), 0o644))
	_, err = Load(bad, "")
	assert.ErrorContains(t, err, "id is required")

	c, err := Load("", "john-technical-lead")
	require.NoError(t, err)
	assert.Equal(t, "john-technical-lead", c.DefaultID())
}
