package messages_test

import (
	"os"
	"path/filepath"
	"testing"

	"vetline/backend/internal/messages"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Defaults(t *testing.T) {
	c, err := messages.NewCatalog("")
	require.NoError(t, err)

	assert.NotEmpty(t, c.Get(messages.KeyNoStaffAvailable))
	assert.NotEmpty(t, c.Get(messages.KeyRequestExpired))

	// Unknown keys surface themselves instead of an empty string.
	assert.Equal(t, "no_such_key", c.Get("no_such_key"))
}

func TestCatalog_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	override := `{"no_staff_available": "Niemand is nu beschikbaar."}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nl.json"), []byte(override), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	c, err := messages.NewCatalog(dir)
	require.NoError(t, err)

	assert.Equal(t, "Niemand is nu beschikbaar.", c.Get(messages.KeyNoStaffAvailable))
	// Keys without an override keep the shipped wording.
	assert.NotEmpty(t, c.Get(messages.KeyRoomFull))
}

func TestCatalog_MalformedOverrideRejected(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o644))

	_, err := messages.NewCatalog(dir)
	assert.Error(t, err)
}
