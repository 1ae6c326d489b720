package config

// ServerConfig controls the HTTP/JSON surface (internal/httpapi): the
// address it binds and listens on.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StoreConfig selects and configures the persistent store backend: the
// pure-Go sqlite file backend for production, or an in-memory backend for
// tests and local experimentation.
type StoreConfig struct {
	// Driver is "sqlite" or "memory". Defaults to "sqlite".
	Driver string `yaml:"driver"`

	// Path is the sqlite database file. Ignored for the memory driver.
	// ":memory:" is accepted for an ephemeral sqlite database.
	Path string `yaml:"path"`
}
