// Package config defines the configuration types shared across the
// application.
package config

import "fmt"

// DatabaseConfig holds relational database settings. Driver selects the
// GORM driver: "mysql" or "sqlite".
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	Path            string `mapstructure:"path"` // sqlite file path
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// GetDSN builds the MySQL DSN. parseTime is required so token expiry
// timestamps scan into time.Time.
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// SlackConfig holds the Slack app identity and installation store settings.
// ClientID doubles as the tenant discriminator when multiple apps share one
// installations table; leave it empty to store rows with a null client ID.
type SlackConfig struct {
	ClientID               string `mapstructure:"client_id"`
	ClientSecret           string `mapstructure:"client_secret"`
	RedirectURI            string `mapstructure:"redirect_uri"`
	Scopes                 string `mapstructure:"scopes"`      // comma-separated bot scopes
	UserScopes             string `mapstructure:"user_scopes"` // comma-separated user scopes
	StateSecret            string `mapstructure:"state_secret"`
	StateExpirationSeconds int    `mapstructure:"state_expiration_seconds"`
	StatesDir              string `mapstructure:"states_dir"`
	HistoricalData         bool   `mapstructure:"historical_data"`
	InstallationTable      string `mapstructure:"installation_table"`
	BoltPath               string `mapstructure:"bolt_path"`
}
