package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/perfgo/unirelease/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrependNewestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site", "history.json")

	h, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, h.Builds)

	first := model.BuildLogEntry{Ver: "1.4.2", Date: "2024-03-14 10:00", Label: "Space Goats 1.4.2", HRef: "play/1.4.2/"}
	second := model.BuildLogEntry{Ver: "1.4.3", Date: "2024-03-15 09:30", Label: "Space Goats 1.4.3", HRef: "play/1.4.3/", Notes: "hotfix"}

	require.NoError(t, Prepend(zerolog.Nop(), path, first))
	require.NoError(t, Prepend(zerolog.Nop(), path, second))

	h, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, []model.BuildLogEntry{second, first}, h.Builds)
}

func TestLoadKeepsFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	doc := `{"Builds":[{"Ver":"2","Date":"d","Label":"l","HRef":"h","Notes":"n"}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	h, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []model.BuildLogEntry{{Ver: "2", Date: "d", Label: "l", HRef: "h", Notes: "n"}}, h.Builds)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Load(path)
	require.Error(t, err)

	require.Error(t, Prepend(zerolog.Nop(), path, model.BuildLogEntry{Ver: "1"}))
}
