package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config     *Config
	collection string
	version    string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithCollection limits a one-shot run to a single post type.
func WithCollection(postType string) Option {
	return func(a *application) {
		a.collection = postType
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(version string) Option {
	return func(a *application) {
		a.version = version
	}
}

func newApplication(opts []Option) *application {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	return app
}
