package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)

	require.Equal(t, "replaces.db", config.Database.File)
	require.Equal(t, CacheSqlite, config.Cache.Backend)
	require.Equal(t, []int{304}, config.Groups)
	require.Equal(t, "http://www.spbkit.edu.ru/index.php", config.Site.IndexUrl)
	require.Equal(t, "Замены в расписании", config.Site.AnchorLabel)
	require.Equal(t, "/replacements/api/fetch-rep", config.Site.EndpointPath)
	require.Equal(t, 10, config.Site.TimeoutSeconds)
	require.True(t, config.Site.CloudflareBypass)
	require.Equal(t, "Europe/Moscow", config.Poll.Timezone)
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		// comments are allowed
		groups: [121, 304],
		cache: { backend: "redis" },
		site: { cloudflare_bypass: false },
	}`), 0644)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		database: { file: "local.db" },
		telegram: { token: "secret", notify_chats: [42] },
	}`), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, []int{121, 304}, config.Groups)
	require.Equal(t, CacheRedis, config.Cache.Backend)
	require.Equal(t, "localhost:6379", config.Cache.RedisAddr)
	require.False(t, config.Site.CloudflareBypass)
	require.Equal(t, "local.db", config.Database.File)
	require.Equal(t, []int64{42}, config.Telegram.NotifyChats)
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{cache: {backend: "memcached"}}`), 0644)
	require.NoError(t, err)

	_, err = LoadConfig(filepath.Join(dir, "config.json5"))
	require.ErrorContains(t, err, "memcached")
}
