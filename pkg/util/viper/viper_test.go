package viper

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type section struct {
	AppID          uint32        `mapstructure:"app_id"`
	AppSign        string        `mapstructure:"app_sign"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

const sample = `
imkit:
  app_id: 100
  app_sign: s
  request_timeout: 3s
`

func TestLoadReader(t *testing.T) {
	c := New()
	c.SetDefault("imkit.app_sign", "default")
	require.NoError(t, c.LoadReader("yaml", strings.NewReader(sample)))
	require.True(t, c.IsSet("imkit.app_id"))

	var s section
	require.NoError(t, c.UnmarshalKey("imkit", &s))
	require.Equal(t, uint32(100), s.AppID)
	require.Equal(t, "s", s.AppSign)
	require.Equal(t, 3*time.Second, s.RequestTimeout)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	c := New()
	require.NoError(t, c.LoadFile(path))
	var all map[string]any
	require.NoError(t, c.Unmarshal(&all))
	require.Contains(t, all, "imkit")

	require.Error(t, New().LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("IMKITTEST_IMKIT_APP_SIGN", "from-env")

	c := New().WithEnvPrefix("IMKITTEST")
	require.NoError(t, c.LoadReader("yaml", strings.NewReader(sample)))

	require.Equal(t, "from-env", c.GetString("imkit.app_sign"))
	require.Equal(t, uint32(100), c.GetUint32("imkit.app_id"))
}
