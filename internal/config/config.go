package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Sheets    SheetsConfig
	RateLimit RateLimitConfig
	Bootstrap BootstrapConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string

	// AutoMigrate applies embedded migrations on API startup.
	AutoMigrate bool
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// SheetsConfig describes the spreadsheet acting as system of record for deployments.
type SheetsConfig struct {
	SpreadsheetID string
	SheetName     string

	// FormulaRows are 1-based sheet rows holding formulas (row 1 is the header).
	FormulaRows []int

	// One of these must be set outside local/dev.
	CredentialsFile string
	CredentialsJSON string
}

type RateLimitConfig struct {
	LoginLimit  int
	LoginWindow time.Duration
}

// BootstrapConfig seeds the first admin account when the accounts table is empty.
type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

const (
	defaultSheetName   = "Deployments"
	defaultLoginLimit  = 10
	defaultLoginWindow = time.Minute
)

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	c.DB.AutoMigrate = optionalBool("DB_AUTO_MIGRATE")

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate() based on env.
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	c.Sheets.SpreadsheetID = strings.TrimSpace(os.Getenv("SHEETS_SPREADSHEET_ID"))
	c.Sheets.SheetName = strings.TrimSpace(os.Getenv("SHEETS_SHEET_NAME"))
	c.Sheets.CredentialsFile = strings.TrimSpace(os.Getenv("SHEETS_CREDENTIALS_FILE"))
	c.Sheets.CredentialsJSON = os.Getenv("SHEETS_CREDENTIALS_JSON")
	if raw, ok := os.LookupEnv("SHEETS_FORMULA_ROWS"); ok {
		rows, err := parseRowList(raw)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("SHEETS_FORMULA_ROWS: %w", err))
		}
		c.Sheets.FormulaRows = rows
	} else {
		c.Sheets.FormulaRows = []int{2}
	}

	{
		n, err := optionalInt("LOGIN_RATE_LIMIT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.RateLimit.LoginLimit = n
	}
	c.RateLimit.LoginWindow = mustDuration("LOGIN_RATE_WINDOW")

	c.Bootstrap.AdminEmail = strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL"))
	c.Bootstrap.AdminPassword = os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")
	c.Bootstrap.AdminName = strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_NAME"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadDB reads only APP_ENV and the DB_* variables. It serves processes that
// touch the database and nothing else, such as the migration runner.
func LoadDB() (Config, error) {
	c := Config{}
	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	port, err := mustInt("DB_PORT")
	if err != nil {
		return Config{}, err
	}
	c.DB.Port = port
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	var errs []error
	if c.App.Env != "" && !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	errs = append(errs, c.validateDB()...)
	if err := joinErrors(errs); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the config and fills in defaults. It must be called on a pointer
// so defaults stick.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	errs = append(errs, c.validateDB()...)

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.Sheets.SpreadsheetID == "" {
		errs = append(errs, errors.New("SHEETS_SPREADSHEET_ID is required"))
	}
	if c.Sheets.SheetName == "" {
		c.Sheets.SheetName = defaultSheetName
	}
	if c.Sheets.CredentialsFile == "" && c.Sheets.CredentialsJSON == "" && !c.isLocal() {
		errs = append(errs, errors.New("SHEETS_CREDENTIALS_FILE or SHEETS_CREDENTIALS_JSON is required"))
	}
	for _, r := range c.Sheets.FormulaRows {
		if r < 2 {
			errs = append(errs, fmt.Errorf("SHEETS_FORMULA_ROWS must reference rows below the header, got %d", r))
		}
	}

	if c.RateLimit.LoginLimit <= 0 {
		c.RateLimit.LoginLimit = defaultLoginLimit
	}
	if c.RateLimit.LoginWindow <= 0 {
		c.RateLimit.LoginWindow = defaultLoginWindow
	}

	if (c.Bootstrap.AdminEmail == "") != (c.Bootstrap.AdminPassword == "") {
		errs = append(errs, errors.New("BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD must be set together"))
	}

	return joinErrors(errs)
}

// validateDB checks the database section and fills in its defaults.
func (c *Config) validateDB() []error {
	var errs []error
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) isLocal() bool {
	return c.App.Env == "local" || c.App.Env == "dev"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// FormulaDataRows converts the configured 1-based sheet rows into 0-based
// data-row indices (offset from the first row below the header).
func (s SheetsConfig) FormulaDataRows() []int {
	out := make([]int, 0, len(s.FormulaRows))
	for _, r := range s.FormulaRows {
		if r >= 2 {
			out = append(out, r-2)
		}
	}
	sort.Ints(out)
	return out
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalBool(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return false
	}
	return v
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

// parseRowList parses "2, 5,9" into []int{2, 5, 9}. An empty string yields no rows.
func parseRowList(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	seen := make(map[int]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("row %q is not an integer", p)
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
