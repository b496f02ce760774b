package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/USA-RedDragon/wander-server/internal/geo"
	"github.com/go-errors/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP        HTTP        `json:"http"`
	Persistence Persistence `json:"persistence"`
	JWT         JWT         `json:"jwt"`
	Navigation  Navigation  `json:"navigation"`
	Routing     Routing     `json:"routing"`
	Geocoding   Geocoding   `json:"geocoding"`
	NATS        NATS        `json:"nats"`
	Notes       Notes       `json:"notes"`
}

type JWT struct {
	Secret     string        `json:"secret"`
	SessionTTL time.Duration `json:"session_ttl" yaml:"session_ttl"`
}

type Navigation struct {
	DefaultRadius geo.Radius    `json:"default_radius" yaml:"default_radius"`
	LookupTimeout time.Duration `json:"lookup_timeout" yaml:"lookup_timeout"`
}

type Routing struct {
	OSRMURL string `json:"osrm_url" yaml:"osrm_url"`
	Profile string `json:"profile"`
}

type Geocoding struct {
	NominatimURL   string `json:"nominatim_url" yaml:"nominatim_url"`
	UserAgent      string `json:"user_agent" yaml:"user_agent"`
	AcceptLanguage string `json:"accept_language" yaml:"accept_language"`
}

type NATS struct {
	Enabled       bool   `json:"enabled"`
	URL           string `json:"url"`
	SubjectPrefix string `json:"subject_prefix" yaml:"subject_prefix"`
}

type Notes struct {
	Timezone string `json:"timezone"`
}

// Location returns the time zone note dates are computed in.
func (n Notes) Location() (*time.Location, error) {
	if n.Timezone == "" || n.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(n.Timezone)
}

type Persistence struct {
	Database Database `json:"database"`
	Exports  Exports  `json:"exports"`
}

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverMySQL    DatabaseDriver = "mysql"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)

type Database struct {
	Driver          DatabaseDriver `json:"driver"`
	Database        string         `json:"database"`
	Username        string         `json:"username"`
	Password        string         `json:"password"`
	Host            string         `json:"host"`
	Port            uint16         `json:"port"`
	ExtraParameters string         `json:"extra_parameters" yaml:"extra_parameters"`
}

type ExportsDriver string

const (
	ExportsDriverFilesystem ExportsDriver = "filesystem"
	ExportsDriverS3         ExportsDriver = "s3"
)

type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

type Exports struct {
	Driver            ExportsDriver     `json:"driver"`
	Compression       Compression       `json:"compression"`
	FilesystemOptions FilesystemOptions `json:"filesystem" yaml:"filesystem"`
	S3Options         S3Options         `json:"s3" yaml:"s3"`
}

type FilesystemOptions struct {
	Directory string `json:"directory"`
}

type S3Options struct {
	Region   string `json:"region"`
	Bucket   string `json:"bucket"`
	Endpoint string `json:"endpoint"`
}

type HTTPListener struct {
	IPV4Host string `json:"ipv4_host" yaml:"ipv4_host"`
	IPV6Host string `json:"ipv6_host" yaml:"ipv6_host"`
	Port     uint16 `json:"port"`
}

type Tracing struct {
	Enabled      bool   `json:"enabled"`
	OTLPEndpoint string `json:"otlp_endpoint" yaml:"otlp_endpoint"`
}

type PProf struct {
	Enabled bool `json:"enabled"`
}

type Metrics struct {
	HTTPListener `yaml:",inline"`
	Enabled      bool `json:"enabled"`
}

type HTTP struct {
	HTTPListener   `yaml:",inline"`
	Tracing        Tracing  `json:"tracing"`
	PProf          PProf    `json:"pprof"`
	TrustedProxies []string `json:"trusted_proxies" yaml:"trusted_proxies"`
	Metrics        Metrics  `json:"metrics"`
	CORSHosts      []string `json:"cors_hosts" yaml:"cors_hosts"`
}

//nolint:golint,gochecknoglobals
var (
	ConfigFileKey                         = "config"
	HTTPIPV4HostKey                       = "http.ipv4_host"
	HTTPIPV6HostKey                       = "http.ipv6_host"
	HTTPPortKey                           = "http.port"
	HTTPTracingEnabledKey                 = "http.tracing.enabled"
	HTTPTracingOTLPEndKey                 = "http.tracing.otlp_endpoint"
	HTTPPProfEnabledKey                   = "http.pprof.enabled"
	HTTPTrustedProxiesKey                 = "http.trusted_proxies"
	HTTPMetricsEnabledKey                 = "http.metrics.enabled"
	HTTPMetricsIPV4HostKey                = "http.metrics.ipv4_host"
	HTTPMetricsIPV6HostKey                = "http.metrics.ipv6_host"
	HTTPMetricsPortKey                    = "http.metrics.port"
	HTTPCORSHostsKey                      = "http.cors_hosts"
	PersistenceDatabaseDriverKey          = "persistence.database.driver"
	PersistenceDatabaseDatabaseKey        = "persistence.database.database"
	PersistenceDatabaseUsernameKey        = "persistence.database.username"
	PersistenceDatabasePasswordKey        = "persistence.database.password"
	PersistenceDatabaseHostKey            = "persistence.database.host"
	PersistenceDatabasePortKey            = "persistence.database.port"
	PersistenceDatabaseExtraParametersKey = "persistence.database.extra_parameters"
	PersistenceExportsDriverKey           = "persistence.exports.driver"
	PersistenceExportsCompressionKey      = "persistence.exports.compression"
	PersistenceExportsDirectoryKey        = "persistence.exports.filesystem.directory"
	PersistenceExportsS3RegionKey         = "persistence.exports.s3.region"
	PersistenceExportsS3BucketKey         = "persistence.exports.s3.bucket"
	PersistenceExportsS3EndpointKey       = "persistence.exports.s3.endpoint"
	JWTSecretKey                          = "jwt.secret"
	JWTSessionTTLKey                      = "jwt.session_ttl"
	NavigationDefaultRadiusKey            = "navigation.default_radius"
	NavigationLookupTimeoutKey            = "navigation.lookup_timeout"
	RoutingOSRMURLKey                     = "routing.osrm_url"
	RoutingProfileKey                     = "routing.profile"
	GeocodingNominatimURLKey              = "geocoding.nominatim_url"
	GeocodingUserAgentKey                 = "geocoding.user_agent"
	GeocodingAcceptLanguageKey            = "geocoding.accept_language"
	NATSEnabledKey                        = "nats.enabled"
	NATSURLKey                            = "nats.url"
	NATSSubjectPrefixKey                  = "nats.subject_prefix"
	NotesTimezoneKey                      = "notes.timezone"
)

const (
	DefaultConfigPath                  = "config.yaml"
	DefaultHTTPIPV4Host                = "0.0.0.0"
	DefaultHTTPIPV6Host                = "::"
	DefaultHTTPPort                    = 8080
	DefaultHTTPMetricsIPV4Host         = "127.0.0.1"
	DefaultHTTPMetricsIPV6Host         = "::1"
	DefaultHTTPMetricsPort             = 8081
	DefaultPersistenceDatabaseDriver   = DatabaseDriverSQLite
	DefaultPersistenceDatabaseDatabase = "wander.db"
	DefaultPersistenceExportsDriver    = ExportsDriverFilesystem
	DefaultPersistenceExportsDirectory = "exports/"
	DefaultPersistenceExportsCompress  = CompressionNone
	DefaultJWTSessionTTL               = 24 * time.Hour
	DefaultNavigationDefaultRadius     = geo.DefaultRadius
	DefaultNavigationLookupTimeout     = 10 * time.Second
	DefaultRoutingOSRMURL              = "https://router.project-osrm.org"
	DefaultRoutingProfile              = "driving"
	DefaultGeocodingNominatimURL       = "https://nominatim.openstreetmap.org"
	DefaultGeocodingUserAgent          = "wander-server"
	DefaultNATSURL                     = "nats://127.0.0.1:4222"
	DefaultNATSSubjectPrefix           = "wander"
	DefaultNotesTimezone               = "Local"
)

func RegisterFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(ConfigFileKey, "c", DefaultConfigPath, "Config file path")
	cmd.Flags().String(HTTPIPV4HostKey, DefaultHTTPIPV4Host, "HTTP server IPv4 host")
	cmd.Flags().String(HTTPIPV6HostKey, DefaultHTTPIPV6Host, "HTTP server IPv6 host")
	cmd.Flags().Uint16(HTTPPortKey, DefaultHTTPPort, "HTTP server port")
	cmd.Flags().Bool(HTTPTracingEnabledKey, false, "Enable Open Telemetry tracing")
	cmd.Flags().String(HTTPTracingOTLPEndKey, "", "Open Telemetry endpoint")
	cmd.Flags().Bool(HTTPPProfEnabledKey, false, "Enable pprof")
	cmd.Flags().StringSlice(HTTPTrustedProxiesKey, []string{}, "Comma-separated list of trusted proxies")
	cmd.Flags().Bool(HTTPMetricsEnabledKey, false, "Enable metrics server")
	cmd.Flags().String(HTTPMetricsIPV4HostKey, DefaultHTTPMetricsIPV4Host, "Metrics server IPv4 host")
	cmd.Flags().String(HTTPMetricsIPV6HostKey, DefaultHTTPMetricsIPV6Host, "Metrics server IPv6 host")
	cmd.Flags().Uint16(HTTPMetricsPortKey, DefaultHTTPMetricsPort, "Metrics server port")
	cmd.Flags().StringSlice(HTTPCORSHostsKey, []string{}, "Comma-separated list of CORS hosts")
	cmd.Flags().String(PersistenceDatabaseDriverKey, string(DefaultPersistenceDatabaseDriver), "Database driver")
	cmd.Flags().String(PersistenceDatabaseDatabaseKey, DefaultPersistenceDatabaseDatabase, "Database path")
	cmd.Flags().String(PersistenceDatabaseUsernameKey, "", "Database username")
	cmd.Flags().String(PersistenceDatabasePasswordKey, "", "Database password")
	cmd.Flags().String(PersistenceDatabaseHostKey, "", "Database host")
	cmd.Flags().Uint16(PersistenceDatabasePortKey, 0, "Database port")
	cmd.Flags().String(PersistenceDatabaseExtraParametersKey, "", "Database extra parameters")
	cmd.Flags().String(PersistenceExportsDriverKey, string(DefaultPersistenceExportsDriver), "Note export storage driver (filesystem, s3)")
	cmd.Flags().String(PersistenceExportsCompressionKey, string(DefaultPersistenceExportsCompress), "Note export compression (none, gzip, zstd)")
	cmd.Flags().String(PersistenceExportsDirectoryKey, DefaultPersistenceExportsDirectory, "Note export directory")
	cmd.Flags().String(PersistenceExportsS3RegionKey, "", "Note export S3 region")
	cmd.Flags().String(PersistenceExportsS3BucketKey, "", "Note export S3 bucket")
	cmd.Flags().String(PersistenceExportsS3EndpointKey, "", "Note export S3 endpoint")
	cmd.Flags().String(JWTSecretKey, "", "JWT signing secret")
	cmd.Flags().Duration(JWTSessionTTLKey, DefaultJWTSessionTTL, "Session token lifetime")
	cmd.Flags().String(NavigationDefaultRadiusKey, string(DefaultNavigationDefaultRadius), "Default selection radius (500m, 1km, 5km)")
	cmd.Flags().Duration(NavigationLookupTimeoutKey, DefaultNavigationLookupTimeout, "Route and place name lookup timeout")
	cmd.Flags().String(RoutingOSRMURLKey, DefaultRoutingOSRMURL, "OSRM base URL")
	cmd.Flags().String(RoutingProfileKey, DefaultRoutingProfile, "OSRM routing profile")
	cmd.Flags().String(GeocodingNominatimURLKey, DefaultGeocodingNominatimURL, "Nominatim base URL")
	cmd.Flags().String(GeocodingUserAgentKey, DefaultGeocodingUserAgent, "User agent sent to Nominatim")
	cmd.Flags().String(GeocodingAcceptLanguageKey, "", "Preferred language for place names")
	cmd.Flags().Bool(NATSEnabledKey, false, "Publish session events to NATS")
	cmd.Flags().String(NATSURLKey, DefaultNATSURL, "NATS server URL")
	cmd.Flags().String(NATSSubjectPrefixKey, DefaultNATSSubjectPrefix, "NATS subject prefix")
	cmd.Flags().String(NotesTimezoneKey, DefaultNotesTimezone, "Time zone used for note dates")
}

var (
	ErrJWTSecretRequired          = errors.New("JWT secret is required")
	ErrOTLPEndpointRequired       = errors.New("OTLP endpoint is required when tracing is enabled")
	ErrDBHostRequired             = errors.New("Database host is required")
	ErrDBDatabaseRequired         = errors.New("Database name is required")
	ErrDatabaseDriverRequired     = errors.New("Database driver is required")
	ErrInvalidDatabaseDriver      = errors.New("Invalid database driver")
	ErrInvalidExportsDriver       = errors.New("Invalid exports driver")
	ErrInvalidCompression         = errors.New("Invalid exports compression")
	ErrExportsDirectoryRequired   = errors.New("Exports directory is required")
	ErrS3BucketRequired           = errors.New("S3 bucket is required")
	ErrS3RegionRequired           = errors.New("S3 region is required")
	ErrInvalidDefaultRadius       = errors.New("Invalid default radius")
	ErrInvalidLookupTimeout       = errors.New("Lookup timeout must be positive")
	ErrOSRMURLRequired            = errors.New("OSRM URL is required")
	ErrNominatimURLRequired       = errors.New("Nominatim URL is required")
	ErrNominatimUserAgentRequired = errors.New("Nominatim user agent is required")
	ErrNATSURLRequired            = errors.New("NATS URL is required when NATS is enabled")
	ErrInvalidTimezone            = errors.New("Invalid notes timezone")
)

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return ErrJWTSecretRequired
	}
	if c.HTTP.Tracing.Enabled && c.HTTP.Tracing.OTLPEndpoint == "" {
		return ErrOTLPEndpointRequired
	}
	if c.Persistence.Database.Driver == "" {
		return ErrDatabaseDriverRequired
	}
	switch c.Persistence.Database.Driver {
	case DatabaseDriverSQLite, DatabaseDriverMySQL, DatabaseDriverPostgres:
	default:
		return ErrInvalidDatabaseDriver
	}
	if c.Persistence.Database.Driver != DatabaseDriverSQLite && c.Persistence.Database.Host == "" {
		return ErrDBHostRequired
	}
	if c.Persistence.Database.Database == "" {
		return ErrDBDatabaseRequired
	}
	switch c.Persistence.Exports.Driver {
	case ExportsDriverFilesystem:
		if c.Persistence.Exports.FilesystemOptions.Directory == "" {
			return ErrExportsDirectoryRequired
		}
	case ExportsDriverS3:
		if c.Persistence.Exports.S3Options.Bucket == "" {
			return ErrS3BucketRequired
		}
		if c.Persistence.Exports.S3Options.Region == "" {
			return ErrS3RegionRequired
		}
	default:
		return ErrInvalidExportsDriver
	}
	switch c.Persistence.Exports.Compression {
	case CompressionNone, CompressionGzip, CompressionZstd:
	default:
		return ErrInvalidCompression
	}
	if _, err := geo.ParseRadius(string(c.Navigation.DefaultRadius)); err != nil {
		return ErrInvalidDefaultRadius
	}
	if c.Navigation.LookupTimeout <= 0 {
		return ErrInvalidLookupTimeout
	}
	if c.Routing.OSRMURL == "" {
		return ErrOSRMURLRequired
	}
	if c.Geocoding.NominatimURL == "" {
		return ErrNominatimURLRequired
	}
	if c.Geocoding.UserAgent == "" {
		return ErrNominatimUserAgentRequired
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return ErrNATSURLRequired
	}
	if _, err := c.Notes.Location(); err != nil {
		return ErrInvalidTimezone
	}

	return nil
}

func LoadConfig(cmd *cobra.Command) (*Config, error) {
	var config Config

	// Load flags from envs
	ctx, cancel := context.WithCancelCause(cmd.Context())
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if ctx.Err() != nil {
			return
		}
		optName := strings.ReplaceAll(strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_"), ".", "__")
		if val, ok := os.LookupEnv(optName); !f.Changed && ok {
			if err := f.Value.Set(val); err != nil {
				cancel(err)
			}
			f.Changed = true
		}
	})
	if ctx.Err() != nil {
		return &config, fmt.Errorf("failed to load env: %w", context.Cause(ctx))
	}

	configPath, err := cmd.Flags().GetString(ConfigFileKey)
	if err != nil {
		return &config, fmt.Errorf("failed to get config path: %w", err)
	}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return &config, fmt.Errorf("failed to read config: %w", err)
		} else if err == nil {
			if err := yaml.Unmarshal(data, &config); err != nil {
				return &config, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
	}

	err = overrideFlags(&config, cmd)
	if err != nil {
		return &config, fmt.Errorf("failed to override flags: %w", err)
	}

	// Defaults
	if config.HTTP.IPV4Host == "" {
		config.HTTP.IPV4Host = DefaultHTTPIPV4Host
	}
	if config.HTTP.IPV6Host == "" {
		config.HTTP.IPV6Host = DefaultHTTPIPV6Host
	}
	if config.HTTP.Port == 0 {
		config.HTTP.Port = DefaultHTTPPort
	}
	if config.HTTP.Metrics.IPV4Host == "" {
		config.HTTP.Metrics.IPV4Host = DefaultHTTPMetricsIPV4Host
	}
	if config.HTTP.Metrics.IPV6Host == "" {
		config.HTTP.Metrics.IPV6Host = DefaultHTTPMetricsIPV6Host
	}
	if config.HTTP.Metrics.Port == 0 {
		config.HTTP.Metrics.Port = DefaultHTTPMetricsPort
	}
	if config.Persistence.Database.Driver == "" {
		config.Persistence.Database.Driver = DefaultPersistenceDatabaseDriver
	}
	if config.Persistence.Database.Database == "" {
		config.Persistence.Database.Database = DefaultPersistenceDatabaseDatabase
	}
	if config.Persistence.Exports.Driver == "" {
		config.Persistence.Exports.Driver = DefaultPersistenceExportsDriver
	}
	if config.Persistence.Exports.Compression == "" {
		config.Persistence.Exports.Compression = DefaultPersistenceExportsCompress
	}
	if config.Persistence.Exports.FilesystemOptions.Directory == "" {
		config.Persistence.Exports.FilesystemOptions.Directory = DefaultPersistenceExportsDirectory
	}
	if config.JWT.SessionTTL == 0 {
		config.JWT.SessionTTL = DefaultJWTSessionTTL
	}
	if config.Navigation.DefaultRadius == "" {
		config.Navigation.DefaultRadius = DefaultNavigationDefaultRadius
	}
	if config.Navigation.LookupTimeout == 0 {
		config.Navigation.LookupTimeout = DefaultNavigationLookupTimeout
	}
	if config.Routing.OSRMURL == "" {
		config.Routing.OSRMURL = DefaultRoutingOSRMURL
	}
	if config.Routing.Profile == "" {
		config.Routing.Profile = DefaultRoutingProfile
	}
	if config.Geocoding.NominatimURL == "" {
		config.Geocoding.NominatimURL = DefaultGeocodingNominatimURL
	}
	if config.Geocoding.UserAgent == "" {
		config.Geocoding.UserAgent = DefaultGeocodingUserAgent
	}
	if config.NATS.URL == "" {
		config.NATS.URL = DefaultNATSURL
	}
	if config.NATS.SubjectPrefix == "" {
		config.NATS.SubjectPrefix = DefaultNATSSubjectPrefix
	}
	if config.Notes.Timezone == "" {
		config.Notes.Timezone = DefaultNotesTimezone
	}

	return &config, nil
}

func overrideFlags(config *Config, cmd *cobra.Command) error {
	var err error
	if cmd.Flags().Changed(HTTPIPV4HostKey) {
		config.HTTP.IPV4Host, err = cmd.Flags().GetString(HTTPIPV4HostKey)
		if err != nil {
			return fmt.Errorf("failed to get HTTP IPv4 host: %w", err)
		}
	}

	if cmd.Flags().Changed(HTTPIPV6HostKey) {
		config.HTTP.IPV6Host, err = cmd.Flags().GetString(HTTPIPV6HostKey)
		if err != nil {
			return fmt.Errorf("failed to get HTTP IPv6 host: %w", err)
		}
	}

	if cmd.Flags().Changed(HTTPPortKey) {
		config.HTTP.Port, err = cmd.Flags().GetUint16(HTTPPortKey)
		if err != nil {
			return fmt.Errorf("failed to get HTTP port: %w", err)
		}
	}

	if cmd.Flags().Changed(HTTPPProfEnabledKey) {
		config.HTTP.PProf.Enabled, err = cmd.Flags().GetBool(HTTPPProfEnabledKey)
		if err != nil {
			return fmt.Errorf("failed to get pprof enabled: %w", err)
		}
	}

	if cmd.Flags().Changed(HTTPTrustedProxiesKey) {
		config.HTTP.TrustedProxies, err = cmd.Flags().GetStringSlice(HTTPTrustedProxiesKey)
		if err != nil {
			return fmt.Errorf("failed to get trusted proxies: %w", err)
		}
	}

	if cmd.Flags().Changed(HTTPMetricsEnabledKey) {
		config.HTTP.Metrics.Enabled, err = cmd.Flags().GetBool(HTTPMetricsEnabledKey)
		if err != nil {
			return fmt.Errorf("failed to get metrics enabled: %w", err)
		}
	}

	if cmd.Flags().Changed(HTTPMetricsIPV4HostKey) {
		config.HTTP.Metrics.IPV4Host, err = cmd.Flags().GetString(HTTPMetricsIPV4HostKey)
		if err != nil {
			return fmt.Errorf("failed to get metrics IPv4 host: %w", err)
		}
	}

	if cmd.Flags().Changed(HTTPMetricsIPV6HostKey) {
		config.HTTP.Metrics.IPV6Host, err = cmd.Flags().GetString(HTTPMetricsIPV6HostKey)
		if err != nil {
			return fmt.Errorf("failed to get metrics IPv6 host: %w", err)
		}
	}

	if cmd.Flags().Changed(HTTPMetricsPortKey) {
		config.HTTP.Metrics.Port, err = cmd.Flags().GetUint16(HTTPMetricsPortKey)
		if err != nil {
			return fmt.Errorf("failed to get metrics port: %w", err)
		}
	}

	if cmd.Flags().Changed(HTTPTracingEnabledKey) {
		config.HTTP.Tracing.Enabled, err = cmd.Flags().GetBool(HTTPTracingEnabledKey)
		if err != nil {
			return fmt.Errorf("failed to get tracing enabled: %w", err)
		}
	}

	if cmd.Flags().Changed(HTTPTracingOTLPEndKey) {
		config.HTTP.Tracing.OTLPEndpoint, err = cmd.Flags().GetString(HTTPTracingOTLPEndKey)
		if err != nil {
			return fmt.Errorf("failed to get tracing OTLP endpoint: %w", err)
		}
	}

	if cmd.Flags().Changed(HTTPCORSHostsKey) {
		config.HTTP.CORSHosts, err = cmd.Flags().GetStringSlice(HTTPCORSHostsKey)
		if err != nil {
			return fmt.Errorf("failed to get CORS hosts: %w", err)
		}
	}

	if cmd.Flags().Changed(PersistenceDatabaseDriverKey) {
		drvr, err := cmd.Flags().GetString(PersistenceDatabaseDriverKey)
		if err != nil {
			return fmt.Errorf("failed to get database driver: %w", err)
		}
		config.Persistence.Database.Driver = DatabaseDriver(strings.ToLower(drvr))
	}

	if cmd.Flags().Changed(PersistenceDatabaseDatabaseKey) {
		config.Persistence.Database.Database, err = cmd.Flags().GetString(PersistenceDatabaseDatabaseKey)
		if err != nil {
			return fmt.Errorf("failed to get database name: %w", err)
		}
	}

	if cmd.Flags().Changed(PersistenceDatabaseUsernameKey) {
		config.Persistence.Database.Username, err = cmd.Flags().GetString(PersistenceDatabaseUsernameKey)
		if err != nil {
			return fmt.Errorf("failed to get database username: %w", err)
		}
	}

	if cmd.Flags().Changed(PersistenceDatabasePasswordKey) {
		config.Persistence.Database.Password, err = cmd.Flags().GetString(PersistenceDatabasePasswordKey)
		if err != nil {
			return fmt.Errorf("failed to get database password: %w", err)
		}
	}

	if cmd.Flags().Changed(PersistenceDatabaseHostKey) {
		config.Persistence.Database.Host, err = cmd.Flags().GetString(PersistenceDatabaseHostKey)
		if err != nil {
			return fmt.Errorf("failed to get database host: %w", err)
		}
	}

	if cmd.Flags().Changed(PersistenceDatabasePortKey) {
		config.Persistence.Database.Port, err = cmd.Flags().GetUint16(PersistenceDatabasePortKey)
		if err != nil {
			return fmt.Errorf("failed to get database port: %w", err)
		}
	}

	if cmd.Flags().Changed(PersistenceDatabaseExtraParametersKey) {
		config.Persistence.Database.ExtraParameters, err = cmd.Flags().GetString(PersistenceDatabaseExtraParametersKey)
		if err != nil {
			return fmt.Errorf("failed to get database extra parameters: %w", err)
		}
	}

	if cmd.Flags().Changed(PersistenceExportsDriverKey) {
		drvr, err := cmd.Flags().GetString(PersistenceExportsDriverKey)
		if err != nil {
			return fmt.Errorf("failed to get exports driver: %w", err)
		}
		config.Persistence.Exports.Driver = ExportsDriver(strings.ToLower(drvr))
	}

	if cmd.Flags().Changed(PersistenceExportsCompressionKey) {
		compression, err := cmd.Flags().GetString(PersistenceExportsCompressionKey)
		if err != nil {
			return fmt.Errorf("failed to get exports compression: %w", err)
		}
		config.Persistence.Exports.Compression = Compression(strings.ToLower(compression))
	}

	if cmd.Flags().Changed(PersistenceExportsDirectoryKey) {
		config.Persistence.Exports.FilesystemOptions.Directory, err = cmd.Flags().GetString(PersistenceExportsDirectoryKey)
		if err != nil {
			return fmt.Errorf("failed to get exports directory: %w", err)
		}
	}

	if cmd.Flags().Changed(PersistenceExportsS3RegionKey) {
		config.Persistence.Exports.S3Options.Region, err = cmd.Flags().GetString(PersistenceExportsS3RegionKey)
		if err != nil {
			return fmt.Errorf("failed to get exports S3 region: %w", err)
		}
	}

	if cmd.Flags().Changed(PersistenceExportsS3BucketKey) {
		config.Persistence.Exports.S3Options.Bucket, err = cmd.Flags().GetString(PersistenceExportsS3BucketKey)
		if err != nil {
			return fmt.Errorf("failed to get exports S3 bucket: %w", err)
		}
	}

	if cmd.Flags().Changed(PersistenceExportsS3EndpointKey) {
		config.Persistence.Exports.S3Options.Endpoint, err = cmd.Flags().GetString(PersistenceExportsS3EndpointKey)
		if err != nil {
			return fmt.Errorf("failed to get exports S3 endpoint: %w", err)
		}
	}

	if cmd.Flags().Changed(JWTSecretKey) {
		config.JWT.Secret, err = cmd.Flags().GetString(JWTSecretKey)
		if err != nil {
			return fmt.Errorf("failed to get JWT secret: %w", err)
		}
	}

	if cmd.Flags().Changed(JWTSessionTTLKey) {
		config.JWT.SessionTTL, err = cmd.Flags().GetDuration(JWTSessionTTLKey)
		if err != nil {
			return fmt.Errorf("failed to get session TTL: %w", err)
		}
	}

	if cmd.Flags().Changed(NavigationDefaultRadiusKey) {
		radius, err := cmd.Flags().GetString(NavigationDefaultRadiusKey)
		if err != nil {
			return fmt.Errorf("failed to get default radius: %w", err)
		}
		config.Navigation.DefaultRadius = geo.Radius(strings.ToLower(radius))
	}

	if cmd.Flags().Changed(NavigationLookupTimeoutKey) {
		config.Navigation.LookupTimeout, err = cmd.Flags().GetDuration(NavigationLookupTimeoutKey)
		if err != nil {
			return fmt.Errorf("failed to get lookup timeout: %w", err)
		}
	}

	if cmd.Flags().Changed(RoutingOSRMURLKey) {
		config.Routing.OSRMURL, err = cmd.Flags().GetString(RoutingOSRMURLKey)
		if err != nil {
			return fmt.Errorf("failed to get OSRM URL: %w", err)
		}
	}

	if cmd.Flags().Changed(RoutingProfileKey) {
		config.Routing.Profile, err = cmd.Flags().GetString(RoutingProfileKey)
		if err != nil {
			return fmt.Errorf("failed to get routing profile: %w", err)
		}
	}

	if cmd.Flags().Changed(GeocodingNominatimURLKey) {
		config.Geocoding.NominatimURL, err = cmd.Flags().GetString(GeocodingNominatimURLKey)
		if err != nil {
			return fmt.Errorf("failed to get Nominatim URL: %w", err)
		}
	}

	if cmd.Flags().Changed(GeocodingUserAgentKey) {
		config.Geocoding.UserAgent, err = cmd.Flags().GetString(GeocodingUserAgentKey)
		if err != nil {
			return fmt.Errorf("failed to get Nominatim user agent: %w", err)
		}
	}

	if cmd.Flags().Changed(GeocodingAcceptLanguageKey) {
		config.Geocoding.AcceptLanguage, err = cmd.Flags().GetString(GeocodingAcceptLanguageKey)
		if err != nil {
			return fmt.Errorf("failed to get accept language: %w", err)
		}
	}

	if cmd.Flags().Changed(NATSEnabledKey) {
		config.NATS.Enabled, err = cmd.Flags().GetBool(NATSEnabledKey)
		if err != nil {
			return fmt.Errorf("failed to get NATS enabled: %w", err)
		}
	}

	if cmd.Flags().Changed(NATSURLKey) {
		config.NATS.URL, err = cmd.Flags().GetString(NATSURLKey)
		if err != nil {
			return fmt.Errorf("failed to get NATS URL: %w", err)
		}
	}

	if cmd.Flags().Changed(NATSSubjectPrefixKey) {
		config.NATS.SubjectPrefix, err = cmd.Flags().GetString(NATSSubjectPrefixKey)
		if err != nil {
			return fmt.Errorf("failed to get NATS subject prefix: %w", err)
		}
	}

	if cmd.Flags().Changed(NotesTimezoneKey) {
		config.Notes.Timezone, err = cmd.Flags().GetString(NotesTimezoneKey)
		if err != nil {
			return fmt.Errorf("failed to get notes timezone: %w", err)
		}
	}

	return nil
}
