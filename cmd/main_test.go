package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/realty-atlas/internal/config"
	"github.com/UnknownOlympus/realty-atlas/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(t.Context())

	return out.String(), err
}

func TestManifestCommand(t *testing.T) {
	defer filet.CleanUp(t)
	base := filet.TmpDir(t, "")
	data := filepath.Join(base, "data")
	require.NoError(t, os.MkdirAll(filepath.Join(data, "2025", "geojson"), 0o755))
	filet.File(t, filepath.Join(data, "2025", "geojson", "실거래_202504_v2505011230.geojson"), "{}")

	out, err := execute(t, "--data", data, "manifest")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(data, manifest.FileName)+"\t1\n", out)
	assert.FileExists(t, filepath.Join(data, manifest.FileName))
}

func TestFetchCommand_MissingServiceKey(t *testing.T) {
	t.Setenv("ATLAS_RTMS_SERVICE_KEY", "")
	t.Setenv("RTMS_SERVICE_KEY", "")

	_, err := execute(t, "--data", t.TempDir(), "fetch", "-m", "202504")

	require.ErrorIs(t, err, config.ErrMissingCredential)
}

func TestGeocodeCommand_Validation(t *testing.T) {
	t.Setenv("ATLAS_PROVIDER_TYPE", "kakao")
	t.Setenv("ATLAS_PROVIDER_API_KEY", "")
	t.Setenv("KAKAO_REST_KEY", "")

	t.Run("no input", func(t *testing.T) {
		_, err := execute(t, "geocode")
		require.ErrorIs(t, err, errNoInput)
	})

	t.Run("missing provider key", func(t *testing.T) {
		_, err := execute(t, "geocode", "-d", t.TempDir())
		require.ErrorIs(t, err, config.ErrMissingCredential)
	})
}
