package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.xml"))
	require.NoError(t, err)
	assert.Equal(t, ":8426", cfg.MainRouter)
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTLDuration())
	assert.False(t, cfg.RowStore.Enabled())
}

func TestLoadXMLWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.xml")
	xml := `<config>
	<MainRouter>:9000</MainRouter>
	<driver>postgres</driver>
	<host>db</host>
	<port>5433</port>
	<user>gm</user>
	<password>secret</password>
	<dbname>realm</dbname>
	<defaultMap>builtin:harbor-town</defaultMap>
	<cacheTTL>30</cacheTTL>
	<rowstore>
		<url>https://rows.example.com</url>
		<table>maps</table>
		<apikey>from-file</apikey>
	</rowstore>
	<redis><addr>127.0.0.1:6379</addr><db>2</db></redis>
</config>`
	require.NoError(t, os.WriteFile(path, []byte(xml), 0o644))
	t.Setenv("REALMMAP_ROWSTORE_APIKEY", "from-env")
	t.Setenv("REALMMAP_LISTEN", ":9100")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.MainRouter)
	assert.Equal(t, "postgres", cfg.Driver)
	assert.Equal(t, "builtin:harbor-town", cfg.DefaultMap)
	assert.Equal(t, 30*time.Second, cfg.CacheTTLDuration())
	assert.Equal(t, "from-env", cfg.RowStore.APIKey)
	assert.True(t, cfg.RowStore.Enabled())
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "host=db user=gm password=secret dbname=realm port=5433 sslmode=disable TimeZone=UTC", cfg.DSN())
	assert.Equal(t, 256, cfg.CacheSize)
}

func TestLoadRejectsBrokenXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.xml")
	require.NoError(t, os.WriteFile(path, []byte("<config><driver>"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
