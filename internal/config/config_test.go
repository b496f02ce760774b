package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/USA-RedDragon/wander-server/cmd"
	"github.com/USA-RedDragon/wander-server/internal/config"
	"github.com/USA-RedDragon/wander-server/internal/geo"
)

//nolint:golint,gochecknoglobals
var requiredFlags = []string{
	"--jwt.secret", "changeme",
}

func loadConfig(t *testing.T, args ...string) *config.Config {
	t.Helper()
	cmd := cmd.NewCommand("testing", "deadbeef")
	cmd.SetContext(context.Background())
	err := cmd.ParseFlags(append([]string{"--config", ""}, args...))
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	testConfig, err := config.LoadConfig(cmd)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	return testConfig
}

func TestExampleConfig(t *testing.T) {
	t.Parallel()
	cmd := cmd.NewCommand("testing", "deadbeef")
	cmd.SetContext(context.Background())
	err := cmd.ParseFlags([]string{"--config", "../../config.example.yaml"})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	testConfig, err := config.LoadConfig(cmd)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := testConfig.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if testConfig.Navigation.LookupTimeout != 10*time.Second {
		t.Errorf("unexpected lookup timeout: %s", testConfig.Navigation.LookupTimeout)
	}
	if testConfig.Persistence.Exports.FilesystemOptions.Directory != "exports/" {
		t.Errorf("unexpected exports directory: %s", testConfig.Persistence.Exports.FilesystemOptions.Directory)
	}
	if testConfig.HTTP.Tracing.Enabled {
		t.Error("unexpected tracing enabled")
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	testConfig := loadConfig(t, requiredFlags...)
	if err := testConfig.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if testConfig.Navigation.DefaultRadius != geo.Radius1km {
		t.Errorf("unexpected default radius: %s", testConfig.Navigation.DefaultRadius)
	}
	if testConfig.Navigation.LookupTimeout != config.DefaultNavigationLookupTimeout {
		t.Errorf("unexpected lookup timeout: %s", testConfig.Navigation.LookupTimeout)
	}
	if testConfig.Persistence.Database.Driver != config.DatabaseDriverSQLite {
		t.Errorf("unexpected database driver: %s", testConfig.Persistence.Database.Driver)
	}
	if testConfig.Persistence.Exports.Driver != config.ExportsDriverFilesystem {
		t.Errorf("unexpected exports driver: %s", testConfig.Persistence.Exports.Driver)
	}
	if testConfig.JWT.SessionTTL != config.DefaultJWTSessionTTL {
		t.Errorf("unexpected session TTL: %s", testConfig.JWT.SessionTTL)
	}
	if testConfig.NATS.Enabled {
		t.Error("unexpected NATS enabled")
	}
}

func TestMissingOTLPEndpoint(t *testing.T) {
	t.Parallel()

	testConfig := loadConfig(t, append([]string{"--http.tracing.enabled", "true"}, requiredFlags...)...)
	if err := testConfig.Validate(); !errors.Is(err, config.ErrOTLPEndpointRequired) {
		t.Errorf("unexpected error: %v", err)
	}

	testConfig = loadConfig(t, append([]string{"--http.tracing.enabled", "true", "--http.tracing.otlp_endpoint", "dummy"}, requiredFlags...)...)
	if err := testConfig.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMissingJWTSecret(t *testing.T) {
	t.Parallel()
	testConfig := loadConfig(t)
	if err := testConfig.Validate(); !errors.Is(err, config.ErrJWTSecretRequired) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		args []string
		err  error
	}{
		{name: "db host", args: []string{"--persistence.database.driver", "postgres"}, err: config.ErrDBHostRequired},
		{name: "db driver", args: []string{"--persistence.database.driver", "oracle"}, err: config.ErrInvalidDatabaseDriver},
		{name: "exports driver", args: []string{"--persistence.exports.driver", "ftp"}, err: config.ErrInvalidExportsDriver},
		{name: "s3 bucket", args: []string{"--persistence.exports.driver", "s3", "--persistence.exports.s3.region", "us-east-1"}, err: config.ErrS3BucketRequired},
		{name: "s3 region", args: []string{"--persistence.exports.driver", "s3", "--persistence.exports.s3.bucket", "notes"}, err: config.ErrS3RegionRequired},
		{name: "compression", args: []string{"--persistence.exports.compression", "lz4"}, err: config.ErrInvalidCompression},
		{name: "radius", args: []string{"--navigation.default_radius", "2km"}, err: config.ErrInvalidDefaultRadius},
		{name: "lookup timeout", args: []string{"--navigation.lookup_timeout", "-1s"}, err: config.ErrInvalidLookupTimeout},
		{name: "timezone", args: []string{"--notes.timezone", "Mars/Olympus_Mons"}, err: config.ErrInvalidTimezone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			testConfig := loadConfig(t, append(tt.args, requiredFlags...)...)
			if err := testConfig.Validate(); !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestNotesLocation(t *testing.T) {
	t.Parallel()
	loc, err := config.Notes{Timezone: "Asia/Tokyo"}.Location()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.String() != "Asia/Tokyo" {
		t.Errorf("unexpected location: %s", loc)
	}
	loc, err = config.Notes{}.Location()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc != time.Local {
		t.Errorf("expected the local time zone, got %s", loc)
	}
}

// Parallel tests are not allowed with t.Setenv
//
//nolint:golint,paralleltest
func TestEnvConfig(t *testing.T) {
	cmd := cmd.NewCommand("testing", "deadbeef")
	cmd.SetContext(context.Background())
	t.Setenv("CONFIG", "")
	t.Setenv("HTTP__PORT", "8087")
	t.Setenv("HTTP__METRICS__PORT", "8088")
	t.Setenv("HTTP__METRICS__IPV4_HOST", "0.0.0.0")
	t.Setenv("HTTP__METRICS__IPV6_HOST", "::0")
	t.Setenv("HTTP__IPV4_HOST", "127.0.0.1")
	t.Setenv("HTTP__IPV6_HOST", "::1")
	t.Setenv("HTTP__PPROF__ENABLED", "true")
	t.Setenv("HTTP__TRUSTED_PROXIES", "127.0.0.1,127.0.0.2")
	t.Setenv("HTTP__METRICS__ENABLED", "true")
	t.Setenv("HTTP__TRACING__ENABLED", "true")
	t.Setenv("HTTP__TRACING__OTLP_ENDPOINT", "http://localhost:4317")
	t.Setenv("HTTP__CORS_HOSTS", "http://localhost:8080,http://localhost:8081")
	t.Setenv("PERSISTENCE__DATABASE__DRIVER", "postgres")
	t.Setenv("PERSISTENCE__DATABASE__DATABASE", "wander")
	t.Setenv("PERSISTENCE__DATABASE__HOST", "host")
	t.Setenv("PERSISTENCE__DATABASE__PORT", "5432")
	t.Setenv("PERSISTENCE__DATABASE__USERNAME", "user")
	t.Setenv("PERSISTENCE__DATABASE__PASSWORD", "password")
	t.Setenv("PERSISTENCE__DATABASE__EXTRA_PARAMETERS", "sslmode=require")
	t.Setenv("PERSISTENCE__EXPORTS__DRIVER", "s3")
	t.Setenv("PERSISTENCE__EXPORTS__COMPRESSION", "zstd")
	t.Setenv("PERSISTENCE__EXPORTS__S3__REGION", "us-east-1")
	t.Setenv("PERSISTENCE__EXPORTS__S3__BUCKET", "notes")
	t.Setenv("PERSISTENCE__EXPORTS__S3__ENDPOINT", "http://localhost:9000")
	t.Setenv("JWT__SECRET", "secret")
	t.Setenv("JWT__SESSION_TTL", "1h")
	t.Setenv("NAVIGATION__DEFAULT_RADIUS", "5km")
	t.Setenv("NAVIGATION__LOOKUP_TIMEOUT", "3s")
	t.Setenv("ROUTING__OSRM_URL", "http://osrm:5000")
	t.Setenv("ROUTING__PROFILE", "foot")
	t.Setenv("GEOCODING__NOMINATIM_URL", "http://nominatim:8080")
	t.Setenv("GEOCODING__USER_AGENT", "wander-test")
	t.Setenv("GEOCODING__ACCEPT_LANGUAGE", "ja")
	t.Setenv("NATS__ENABLED", "true")
	t.Setenv("NATS__URL", "nats://nats:4222")
	t.Setenv("NATS__SUBJECT_PREFIX", "wander-test")
	t.Setenv("NOTES__TIMEZONE", "Asia/Tokyo")

	config, err := config.LoadConfig(cmd)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if config.HTTP.Port != 8087 {
		t.Errorf("unexpected HTTP port: %d", config.HTTP.Port)
	}
	if config.HTTP.Metrics.Port != 8088 {
		t.Errorf("unexpected HTTP metrics port: %d", config.HTTP.Metrics.Port)
	}
	if config.HTTP.Metrics.IPV4Host != "0.0.0.0" {
		t.Errorf("unexpected HTTP metrics IPv4 host: %s", config.HTTP.Metrics.IPV4Host)
	}
	if config.HTTP.Metrics.IPV6Host != "::0" {
		t.Errorf("unexpected HTTP metrics IPv6 host: %s", config.HTTP.Metrics.IPV6Host)
	}
	if config.HTTP.IPV4Host != "127.0.0.1" {
		t.Errorf("unexpected HTTP IPv4 host: %s", config.HTTP.IPV4Host)
	}
	if config.HTTP.IPV6Host != "::1" {
		t.Errorf("unexpected HTTP IPv6 host: %s", config.HTTP.IPV6Host)
	}
	if !config.HTTP.PProf.Enabled {
		t.Error("unexpected HTTP pprof enabled")
	}
	if len(config.HTTP.TrustedProxies) != 2 || config.HTTP.TrustedProxies[1] != "127.0.0.2" {
		t.Errorf("unexpected HTTP trusted proxies: %v", config.HTTP.TrustedProxies)
	}
	if !config.HTTP.Metrics.Enabled {
		t.Error("unexpected HTTP metrics enabled")
	}
	if !config.HTTP.Tracing.Enabled {
		t.Error("unexpected HTTP tracing enabled")
	}
	if config.HTTP.Tracing.OTLPEndpoint != "http://localhost:4317" {
		t.Errorf("unexpected HTTP tracing OTLP endpoint: %s", config.HTTP.Tracing.OTLPEndpoint)
	}
	if len(config.HTTP.CORSHosts) != 2 || config.HTTP.CORSHosts[0] != "http://localhost:8080" {
		t.Errorf("unexpected HTTP CORS hosts: %v", config.HTTP.CORSHosts)
	}
	if config.Persistence.Database.Driver != "postgres" {
		t.Errorf("unexpected persistence driver: %s", config.Persistence.Database.Driver)
	}
	if config.Persistence.Database.Database != "wander" {
		t.Errorf("unexpected persistence database: %s", config.Persistence.Database.Database)
	}
	if config.Persistence.Database.Host != "host" {
		t.Errorf("unexpected persistence host: %s", config.Persistence.Database.Host)
	}
	if config.Persistence.Database.Port != 5432 {
		t.Errorf("unexpected persistence port: %d", config.Persistence.Database.Port)
	}
	if config.Persistence.Database.Username != "user" {
		t.Errorf("unexpected persistence username: %s", config.Persistence.Database.Username)
	}
	if config.Persistence.Database.Password != "password" {
		t.Errorf("unexpected persistence password: %s", config.Persistence.Database.Password)
	}
	if config.Persistence.Database.ExtraParameters != "sslmode=require" {
		t.Errorf("unexpected persistence extra parameters: %s", config.Persistence.Database.ExtraParameters)
	}
	if config.Persistence.Exports.Driver != "s3" {
		t.Errorf("unexpected exports driver: %s", config.Persistence.Exports.Driver)
	}
	if config.Persistence.Exports.Compression != "zstd" {
		t.Errorf("unexpected exports compression: %s", config.Persistence.Exports.Compression)
	}
	if config.Persistence.Exports.S3Options.Region != "us-east-1" {
		t.Errorf("unexpected S3 region: %s", config.Persistence.Exports.S3Options.Region)
	}
	if config.Persistence.Exports.S3Options.Bucket != "notes" {
		t.Errorf("unexpected S3 bucket: %s", config.Persistence.Exports.S3Options.Bucket)
	}
	if config.Persistence.Exports.S3Options.Endpoint != "http://localhost:9000" {
		t.Errorf("unexpected S3 endpoint: %s", config.Persistence.Exports.S3Options.Endpoint)
	}
	if config.JWT.Secret != "secret" {
		t.Errorf("unexpected JWT secret: %s", config.JWT.Secret)
	}
	if config.JWT.SessionTTL != time.Hour {
		t.Errorf("unexpected session TTL: %s", config.JWT.SessionTTL)
	}
	if config.Navigation.DefaultRadius != "5km" {
		t.Errorf("unexpected default radius: %s", config.Navigation.DefaultRadius)
	}
	if config.Navigation.LookupTimeout != 3*time.Second {
		t.Errorf("unexpected lookup timeout: %s", config.Navigation.LookupTimeout)
	}
	if config.Routing.OSRMURL != "http://osrm:5000" {
		t.Errorf("unexpected OSRM URL: %s", config.Routing.OSRMURL)
	}
	if config.Routing.Profile != "foot" {
		t.Errorf("unexpected routing profile: %s", config.Routing.Profile)
	}
	if config.Geocoding.NominatimURL != "http://nominatim:8080" {
		t.Errorf("unexpected Nominatim URL: %s", config.Geocoding.NominatimURL)
	}
	if config.Geocoding.UserAgent != "wander-test" {
		t.Errorf("unexpected user agent: %s", config.Geocoding.UserAgent)
	}
	if config.Geocoding.AcceptLanguage != "ja" {
		t.Errorf("unexpected accept language: %s", config.Geocoding.AcceptLanguage)
	}
	if !config.NATS.Enabled {
		t.Error("unexpected NATS enabled")
	}
	if config.NATS.URL != "nats://nats:4222" {
		t.Errorf("unexpected NATS URL: %s", config.NATS.URL)
	}
	if config.NATS.SubjectPrefix != "wander-test" {
		t.Errorf("unexpected NATS subject prefix: %s", config.NATS.SubjectPrefix)
	}
	if config.Notes.Timezone != "Asia/Tokyo" {
		t.Errorf("unexpected notes timezone: %s", config.Notes.Timezone)
	}
}
