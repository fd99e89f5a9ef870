package config

import (
	"flag"
	"time"
)

// Server holds runtime settings for the room service.
type Server struct {
	Addr              string   `json:"addr"`
	DBPath            string   `json:"db_path"`
	ParserURL         string   `json:"parser_url"`
	ParserAPIKey      string   `json:"parser_api_key"`
	ParserTimeout     Duration `json:"parser_timeout"`
	Currency          string   `json:"currency"`
	MaxImageDimension int      `json:"max_image_dimension"`
	MetricsPath       string   `json:"metrics_path"`
	LogLevel          string   `json:"log_level"`
}

// LoadDefaults populates the config with development defaults.
func (c *Server) LoadDefaults() {
	c.Addr = ":8080"
	c.DBPath = "./data/rooms.db"
	c.ParserURL = ""
	c.ParserTimeout = Duration(30 * time.Second)
	c.Currency = "INR"
	c.MaxImageDimension = 2048
	c.MetricsPath = "/metrics"
	c.LogLevel = "info"
}

// LoadServer builds the server config from all sources. args excludes the program name.
func LoadServer(args []string) (*Server, error) {
	cfg := &Server{}
	cfg.LoadDefaults()

	if path := configFile(args); path != "" {
		if err := readJSON(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := loadDotenv(".env"); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.parseFlags(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Server) applyEnv() error {
	envString("ADDR", &c.Addr)
	envString("DB_PATH", &c.DBPath)
	envString("PARSER_URL", &c.ParserURL)
	envString("PARSER_API_KEY", &c.ParserAPIKey)
	envString("CURRENCY", &c.Currency)
	envString("METRICS_PATH", &c.MetricsPath)
	envString("LOG_LEVEL", &c.LogLevel)
	if err := envDuration("PARSER_TIMEOUT", &c.ParserTimeout); err != nil {
		return err
	}
	return envInt("MAX_IMAGE_DIMENSION", &c.MaxImageDimension)
}

// parseFlags overlays command-line flags.
//
//	-c string   JSON config file
//	-a string   listen address
//	-d string   SQLite database path
//	-p string   receipt OCR endpoint
//	-k string   receipt OCR API key
//	-t duration OCR request timeout
//	-currency   default room currency
//	-max-dim    longest image side sent to the OCR endpoint
//	-metrics    metrics path ("" disables)
//	-log-level  debug, info, warn or error
func (c *Server) parseFlags(args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.String("c", "", "JSON config file")
	fs.String("config", "", "JSON config file")
	fs.StringVar(&c.Addr, "a", c.Addr, "address and port to listen on")
	fs.StringVar(&c.DBPath, "d", c.DBPath, "SQLite database path")
	fs.StringVar(&c.ParserURL, "p", c.ParserURL, "receipt OCR endpoint")
	fs.StringVar(&c.ParserAPIKey, "k", c.ParserAPIKey, "receipt OCR API key")
	fs.Var(&c.ParserTimeout, "t", "OCR request timeout")
	fs.StringVar(&c.Currency, "currency", c.Currency, "default room currency")
	fs.IntVar(&c.MaxImageDimension, "max-dim", c.MaxImageDimension, "longest image side sent to the OCR endpoint")
	fs.StringVar(&c.MetricsPath, "metrics", c.MetricsPath, "metrics path (empty disables)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level")

	return fs.Parse(args)
}
