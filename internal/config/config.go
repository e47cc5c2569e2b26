package config

import "time"

// Client holds terminal client configuration values.
type Client struct {
	ServerURL       string        `mapstructure:"server_url" yaml:"server_url"`
	Nickname        string        `mapstructure:"nickname" yaml:"nickname"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DefaultClient returns client configuration with starter defaults.
func DefaultClient() Client {
	return Client{
		ServerURL:       "ws://localhost:5000/ws",
		Nickname:        "anonymous",
		LogLevel:        "warn",
		DialTimeout:     5 * time.Second,
		ShutdownTimeout: 2 * time.Second,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Client) UpdateFrom(other Client) {
	if other.ServerURL != "" {
		c.ServerURL = other.ServerURL
	}
	if other.Nickname != "" {
		c.Nickname = other.Nickname
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DialTimeout != 0 {
		c.DialTimeout = other.DialTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
}

// Server holds companion room server configuration values.
// RateLimit caps inbound events per connection per minute; zero disables it.
type Server struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	RoomIDLength      int           `mapstructure:"room_id_length" yaml:"room_id_length"`
	BcryptCost        int           `mapstructure:"bcrypt_cost" yaml:"bcrypt_cost"`
	RateLimit         int           `mapstructure:"rate_limit" yaml:"rate_limit"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DefaultServer returns server configuration with starter defaults.
func DefaultServer() Server {
	return Server{
		Addr:              ":5000",
		LogLevel:          "info",
		RoomIDLength:      5,
		BcryptCost:        10,
		RateLimit:         120,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Server) UpdateFrom(other Server) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.RoomIDLength > 0 {
		c.RoomIDLength = other.RoomIDLength
	}
	if other.BcryptCost > 0 {
		c.BcryptCost = other.BcryptCost
	}
	if other.RateLimit > 0 {
		c.RateLimit = other.RateLimit
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
}
