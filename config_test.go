package sqlpager

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Config
		wantErr bool
	}{
		{
			name: "empty keeps defaults",
			data: "",
			want: DefaultPagingConfig(),
		},
		{
			name: "full",
			data: "cursor_ttl: 5m\ndefault_size: 20\nmax_size: 200\ndefault_each_side: 2\n",
			want: Config{CursorTTL: 5 * time.Minute, DefaultSize: 20, MaxSize: 200, DefaultEachSide: 2},
		},
		{
			name: "partial",
			data: "default_each_side: 3\n",
			want: Config{CursorTTL: DefaultCursorTTL, DefaultSize: DefaultSize, MaxSize: MaxSize, DefaultEachSide: 3},
		},
		{
			name: "disabled expiry",
			data: "cursor_ttl: 0s\n",
			want: Config{CursorTTL: 0, DefaultSize: DefaultSize, MaxSize: MaxSize},
		},
		{name: "negative ttl", data: "cursor_ttl: -1m\n", wantErr: true},
		{name: "bad ttl", data: "cursor_ttl: soon\n", wantErr: true},
		{name: "zero max size", data: "max_size: 0\n", wantErr: true},
		{name: "default size above max", data: "default_size: 30\nmax_size: 20\n", wantErr: true},
		{name: "negative each side", data: "default_each_side: -1\n", wantErr: true},
		{name: "not yaml", data: "[", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfig([]byte(tt.data))
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_Config_Pager(t *testing.T) {
	cfg := Config{CursorTTL: time.Minute, DefaultSize: 15, MaxSize: 50, DefaultEachSide: 2}

	tests := []struct {
		name     string
		page     int
		size     int
		wantPage int
		wantSize int
	}{
		{"defaults", 0, 0, 1, 15},
		{"explicit", 3, 25, 3, 25},
		{"clamped", 2, 500, 2, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cfg.Pager(tt.page, tt.size)

			assert.Equal(t, tt.wantPage, got.Page())
			assert.Equal(t, tt.wantSize, got.Size())
			assert.Equal(t, 2, got.EachSide())
			assert.False(t, got.UseCursor())
		})
	}
}

func Test_Config_Options(t *testing.T) {
	cfg := Config{CursorTTL: time.Minute, DefaultSize: 10, MaxSize: 100}

	compiler := newTestCompiler(cfg.Options()...)
	plan, err := compiler.Compile(Request{
		SQL:       "SELECT * FROM items",
		Orderings: Orderings{Asc("id")},
		Pager:     ptr(cfg.Pager(1, 0).WithCursor()),
	})
	require.NoError(t, err)

	_, cursor, err := Paging(plan, tItemRange(1, 3), tItemGetters, nil)
	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.Equal(t, testNow.Add(time.Minute), cursor.ExpiresAt())
}

func Test_ParseTOMLConfig(t *testing.T) {
	got, err := ParseTOMLConfig([]byte("cursor_ttl = \"90s\"\ndefault_size = 25\n"))
	require.NoError(t, err)
	assert.Equal(t, Config{CursorTTL: 90 * time.Second, DefaultSize: 25, MaxSize: MaxSize}, got)

	_, err = ParseTOMLConfig([]byte("max_size = -3\n"))
	require.Error(t, err)

	_, err = ParseTOMLConfig([]byte("max_size = "))
	require.Error(t, err)
}

func Test_LoadConfig(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "paging.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("default_each_side: 4\n"), 0o600))

	tomlPath := filepath.Join(dir, "paging.TOML")
	require.NoError(t, os.WriteFile(tomlPath, []byte("default_each_side = 5\n"), 0o600))

	got, err := LoadConfig(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 4, got.DefaultEachSide)

	got, err = LoadConfig(tomlPath)
	require.NoError(t, err)
	assert.Equal(t, 5, got.DefaultEachSide)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
