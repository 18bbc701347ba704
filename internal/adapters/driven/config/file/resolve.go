package file

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driven"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/logger"
)

// Keys read from the config store.
const (
	KeyDataDir           = "data_dir"
	KeyDBPath            = "db_path"
	KeyBuildMode         = "build.mode"
	KeyBuildFixturesDir  = "build.fixtures_dir"
	KeyIngestMode        = "ingest.mode"
	KeyIngestFixturesDir = "ingest.fixtures_dir"
	KeyIngestOutputDir   = "ingest.output_dir"
	KeyIngestUserAgent   = "ingest.user_agent"
	KeyIngestRateLimitMs = "ingest.rate_limit_ms"
	KeyIngestTimeoutMs   = "ingest.timeout_ms"
	KeyBlockedMinBytes   = "ingest.blocked.min_bytes"
	KeyBlockedTokens     = "ingest.blocked.block_tokens"
	KeyBlockedMarkers    = "ingest.blocked.expected_markers"
	KeyLoadFailStep      = "load.fail_step"
)

// Environment variables that override the config store.
const (
	EnvPipelineMode      = "PIPELINE_MODE"
	EnvDataDir           = "PIPELINE_DATA_DIR"
	EnvFixturesDir       = "PIPELINE_FIXTURES_DIR"
	EnvDBPath            = "PIPELINE_DB_PATH"
	EnvLoadFailStep      = "PIPELINE_LOAD_FAIL_STEP"
	EnvIngestMode        = "INGEST_MODE"
	EnvIngestFixturesDir = "INGEST_FIXTURES_DIR"
	EnvIngestOutputDir   = "INGEST_OUTPUT_DIR"
	EnvIngestUserAgent   = "INGEST_USER_AGENT"
	EnvIngestRateLimitMs = "INGEST_RATE_LIMIT_MS"
	EnvIngestTimeoutMs   = "INGEST_TIMEOUT_MS"
)

// knownKeys are the keys Resolve reads. Anything else is reported.
var knownKeys = []string{
	KeyDataDir, KeyDBPath, KeyBuildMode, KeyBuildFixturesDir,
	KeyIngestMode, KeyIngestFixturesDir, KeyIngestOutputDir, KeyIngestUserAgent,
	KeyIngestRateLimitMs, KeyIngestTimeoutMs,
	KeyBlockedMinBytes, KeyBlockedTokens, KeyBlockedMarkers,
	KeyLoadFailStep,
}

// Resolve builds the pipeline configuration from the defaults, then the
// values in store, then the environment, then each override layer in turn.
// getenv is usually os.Getenv; a nil store or getenv skips that layer.
// Values of the wrong type and unknown keys are logged and ignored.
func Resolve(store driven.ConfigStore, getenv func(string) string, overrides ...driven.ConfigStore) domain.Config {
	cfg := domain.DefaultConfig()
	if store != nil {
		applyStore(&cfg, store)
	}
	if getenv != nil {
		applyEnv(&cfg, getenv)
	}
	for _, o := range overrides {
		applyStore(&cfg, o)
	}
	return cfg
}

func applyStore(cfg *domain.Config, s driven.ConfigStore) {
	for _, k := range s.Keys() {
		if !slices.Contains(knownKeys, k) {
			logger.Warn("config %s: unknown key %q ignored", s.Origin(), k)
		}
	}

	setString(&cfg.DataDir, stringAt(s, KeyDataDir))
	setString(&cfg.DBPath, stringAt(s, KeyDBPath))
	if v := stringAt(s, KeyBuildMode); v != "" {
		cfg.Build.Mode = parseBuildMode(v)
	}
	setString(&cfg.Build.FixturesDir, stringAt(s, KeyBuildFixturesDir))

	if v := stringAt(s, KeyIngestMode); v != "" {
		cfg.Ingest.Mode = parseIngestMode(v)
	}
	setString(&cfg.Ingest.FixturesDir, stringAt(s, KeyIngestFixturesDir))
	setString(&cfg.Ingest.OutputDir, stringAt(s, KeyIngestOutputDir))
	setString(&cfg.Ingest.UserAgent, stringAt(s, KeyIngestUserAgent))
	if ms, ok := positiveIntAt(s, KeyIngestRateLimitMs); ok {
		cfg.Ingest.RateLimit = time.Duration(ms) * time.Millisecond
	}
	if ms, ok := positiveIntAt(s, KeyIngestTimeoutMs); ok {
		cfg.Ingest.Timeout = time.Duration(ms) * time.Millisecond
	}
	if n, ok := positiveIntAt(s, KeyBlockedMinBytes); ok {
		cfg.Ingest.Blocked.MinBytes = n
	}
	if v := lowerAll(stringsAt(s, KeyBlockedTokens)); len(v) > 0 {
		cfg.Ingest.Blocked.BlockTokens = v
	}
	if v := lowerAll(stringsAt(s, KeyBlockedMarkers)); len(v) > 0 {
		cfg.Ingest.Blocked.ExpectedMarkers = v
	}

	setString(&cfg.Load.FailStep, strings.ToLower(stringAt(s, KeyLoadFailStep)))
}

func applyEnv(cfg *domain.Config, getenv func(string) string) {
	if v := getenv(EnvPipelineMode); v != "" {
		cfg.Build.Mode = parseBuildMode(v)
	}
	setString(&cfg.DataDir, getenv(EnvDataDir))
	setString(&cfg.Build.FixturesDir, getenv(EnvFixturesDir))
	setString(&cfg.DBPath, getenv(EnvDBPath))
	setString(&cfg.Load.FailStep, strings.ToLower(strings.TrimSpace(getenv(EnvLoadFailStep))))

	if v := getenv(EnvIngestMode); v != "" {
		cfg.Ingest.Mode = parseIngestMode(v)
	}
	setString(&cfg.Ingest.FixturesDir, getenv(EnvIngestFixturesDir))
	setString(&cfg.Ingest.OutputDir, getenv(EnvIngestOutputDir))
	setString(&cfg.Ingest.UserAgent, strings.TrimSpace(getenv(EnvIngestUserAgent)))
	if ms, ok := positiveInt(getenv(EnvIngestRateLimitMs)); ok {
		cfg.Ingest.RateLimit = time.Duration(ms) * time.Millisecond
	}
	if ms, ok := positiveInt(getenv(EnvIngestTimeoutMs)); ok {
		cfg.Ingest.Timeout = time.Duration(ms) * time.Millisecond
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func warnType(s driven.ConfigStore, key, want string, got any) {
	logger.Warn("config %s: %s must be %s, got %T; using the default", s.Origin(), key, want, got)
}

// stringAt returns the trimmed string under key, or "" when it is absent
// or not a string.
func stringAt(s driven.ConfigStore, key string) string {
	v, ok := s.Lookup(key)
	if !ok {
		return ""
	}
	str, ok := v.(string)
	if !ok {
		warnType(s, key, "a string", v)
		return ""
	}
	return strings.TrimSpace(str)
}

// positiveIntAt accepts TOML integers, whole floats and numeric strings.
// Zero and negative values leave the default in place.
func positiveIntAt(s driven.ConfigStore, key string) (int, bool) {
	v, ok := s.Lookup(key)
	if !ok {
		return 0, false
	}
	var n int
	switch x := v.(type) {
	case int64:
		n = int(x)
	case int:
		n = x
	case float64:
		if x != math.Trunc(x) {
			warnType(s, key, "a whole number", v)
			return 0, false
		}
		n = int(x)
	case string:
		p, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			warnType(s, key, "a whole number", v)
			return 0, false
		}
		n = p
	default:
		warnType(s, key, "a whole number", v)
		return 0, false
	}
	return n, n > 0
}

// stringsAt returns the string elements of the array under key.
func stringsAt(s driven.ConfigStore, key string) []string {
	v, ok := s.Lookup(key)
	if !ok {
		return nil
	}
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			str, ok := item.(string)
			if !ok {
				warnType(s, key+" element", "a string", item)
				continue
			}
			out = append(out, str)
		}
		return out
	default:
		warnType(s, key, "an array of strings", v)
		return nil
	}
}

// positiveInt parses v, rejecting anything that is not a positive integer.
func positiveInt(v string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// parseBuildMode maps anything other than "fixtures" to full mode.
func parseBuildMode(v string) domain.BuildMode {
	if strings.EqualFold(strings.TrimSpace(v), string(domain.BuildModeFixtures)) {
		return domain.BuildModeFixtures
	}
	return domain.BuildModeFull
}

// parseIngestMode maps anything other than "live" to offline mode.
func parseIngestMode(v string) domain.IngestMode {
	if strings.EqualFold(strings.TrimSpace(v), string(domain.IngestLive)) {
		return domain.IngestLive
	}
	return domain.IngestOffline
}

func lowerAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
