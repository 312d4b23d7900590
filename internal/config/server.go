package config

type ServerConfig struct {
	// HTTPAddr is the listen address for the API and websocket feed.
	HTTPAddr string
}

func loadServer() ServerConfig {
	return ServerConfig{
		HTTPAddr: getenv("HTTP_ADDR", ":8080"),
	}
}
