package preview

import (
	"io"
	"os"
	"path/filepath"

	"github.com/c2h5oh/datasize"
	"github.com/peterbourgon/diskv"
)

type Config struct {
	CacheDir     string            `toml:"cacheDir"`
	CacheMemSize datasize.ByteSize `toml:"cacheMemSize"`
}

func NewConfig() Config {
	return Config{
		CacheDir:     filepath.Join(os.TempDir(), "travelboard-previews"),
		CacheMemSize: 4 * datasize.MB,
	}
}

func (c *Config) Validate() error {
	return nil
}

// Cache is a flat on-disk cache with an in-memory layer in front of it.
type Cache struct {
	d *diskv.Diskv
}

func NewCache(cfg Config) *Cache {
	return &Cache{
		d: diskv.New(diskv.Options{
			BasePath: cfg.CacheDir,
			Transform: func(s string) []string {
				return nil
			},
			CacheSizeMax: cfg.CacheMemSize.Bytes(),
		}),
	}
}

func (c *Cache) Get(name string) ([]byte, error) {
	b, err := c.d.Read(name)
	if err != nil {
		return nil, err
	}

	if len(b) == 0 {
		return nil, io.ErrUnexpectedEOF
	}

	return b, nil
}

func (c *Cache) Put(name string, b []byte) error {
	return c.d.Write(name, b)
}

func (c *Cache) Delete(name string) error {
	return c.d.Erase(name)
}
