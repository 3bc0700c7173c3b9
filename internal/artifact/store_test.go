package artifact

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgmon/entity"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), slog.New(slog.DiscardHandler))
}

func TestSaveRoundTrip(t *testing.T) {
	store := testStore(t)

	saved, err := store.Save("t1", "acc.session", []byte("binary-session"),
		"acc.json", []byte(`{"phone_number":"+100200","username":"alice"}`))
	require.NoError(t, err)

	assert.Equal(t, "+100200", saved.Metadata.PhoneNumber)
	assert.Equal(t, "alice", saved.Metadata.Username)
	assert.Contains(t, saved.SessionPath, filepath.Join("sessions", "t1"))
	assert.Contains(t, saved.MetadataPath, filepath.Join("json", "t1"))

	session, err := os.ReadFile(saved.SessionPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("binary-session"), session)

	_, err = os.Stat(saved.MetadataPath)
	assert.NoError(t, err)
}

func TestSaveRejectsWrongExtensions(t *testing.T) {
	store := testStore(t)

	_, err := store.Save("t1", "acc.txt", []byte("x"), "acc.json", []byte("{}"))
	assert.ErrorIs(t, err, entity.ErrArtifactInvalid)

	_, err = store.Save("t1", "acc.session", []byte("x"), "acc.yaml", []byte("{}"))
	assert.ErrorIs(t, err, entity.ErrArtifactInvalid)
}

func TestSaveRejectsEmptySession(t *testing.T) {
	store := testStore(t)

	_, err := store.Save("t1", "acc.session", nil, "acc.json", []byte("{}"))
	assert.ErrorIs(t, err, entity.ErrArtifactInvalid)
}

func TestSaveRejectsBrokenMetadata(t *testing.T) {
	store := testStore(t)

	_, err := store.Save("t1", "acc.session", []byte("x"), "acc.json", []byte("{not json"))
	assert.ErrorIs(t, err, entity.ErrArtifactInvalid)
}

func TestSaveIgnoresUnknownMetadataFields(t *testing.T) {
	store := testStore(t)

	saved, err := store.Save("t1", "acc.session", []byte("x"),
		"acc.json", []byte(`{"username":"bob","extra_field":42}`))
	require.NoError(t, err)
	assert.Equal(t, "bob", saved.Metadata.Username)
}

func TestRemoveIdempotent(t *testing.T) {
	store := testStore(t)

	saved, err := store.Save("t1", "acc.session", []byte("x"), "acc.json", []byte("{}"))
	require.NoError(t, err)

	require.NoError(t, store.Remove(saved.SessionPath, saved.MetadataPath))
	_, err = os.Stat(saved.SessionPath)
	assert.True(t, os.IsNotExist(err))

	// second delete of the same paths is not an error
	assert.NoError(t, store.Remove(saved.SessionPath, saved.MetadataPath))
	assert.NoError(t, store.Remove("", ""))
}
