package config

import (
	"flag"
	"time"
)

// Client holds settings for the splitroom command-line client.
type Client struct {
	ServerURL        string   `json:"server_url"`
	RoomID           string   `json:"room_id"`
	ViewerID         string   `json:"viewer_id"`
	Currency         string   `json:"currency"`
	PaymentScheme    string   `json:"payment_scheme"`
	RequestTimeout   Duration `json:"request_timeout"`
	BreakerFailures  int      `json:"breaker_failures"`
	BreakerOpenAfter Duration `json:"breaker_open_timeout"`
	LogLevel         string   `json:"log_level"`
}

// LoadDefaults populates the config with development defaults.
func (c *Client) LoadDefaults() {
	c.ServerURL = "http://localhost:8080"
	c.Currency = "INR"
	c.PaymentScheme = "upi"
	c.RequestTimeout = Duration(10 * time.Second)
	c.BreakerFailures = 5
	c.BreakerOpenAfter = Duration(30 * time.Second)
	c.LogLevel = "warn"
}

// LoadClient builds the client config from all sources. Flags stop at the
// first non-flag argument, which is returned with everything after it.
func LoadClient(args []string) (*Client, []string, error) {
	cfg := &Client{}
	cfg.LoadDefaults()

	if path := configFile(args); path != "" {
		if err := readJSON(path, cfg); err != nil {
			return nil, nil, err
		}
	}

	if err := loadDotenv(".env"); err != nil {
		return nil, nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, nil, err
	}

	rest, err := cfg.parseFlags(args)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}

func (c *Client) applyEnv() error {
	envString("SPLITROOM_SERVER", &c.ServerURL)
	envString("SPLITROOM_ROOM", &c.RoomID)
	envString("SPLITROOM_VIEWER", &c.ViewerID)
	envString("CURRENCY", &c.Currency)
	envString("PAYMENT_SCHEME", &c.PaymentScheme)
	envString("LOG_LEVEL", &c.LogLevel)
	if err := envDuration("REQUEST_TIMEOUT", &c.RequestTimeout); err != nil {
		return err
	}
	if err := envDuration("BREAKER_OPEN_TIMEOUT", &c.BreakerOpenAfter); err != nil {
		return err
	}
	return envInt("BREAKER_FAILURES", &c.BreakerFailures)
}

func (c *Client) parseFlags(args []string) ([]string, error) {
	fs := flag.NewFlagSet("splitroom", flag.ContinueOnError)

	fs.String("c", "", "JSON config file")
	fs.String("config", "", "JSON config file")
	fs.StringVar(&c.ServerURL, "s", c.ServerURL, "room service URL")
	fs.StringVar(&c.RoomID, "r", c.RoomID, "room ID")
	fs.StringVar(&c.ViewerID, "v", c.ViewerID, "your participant ID")
	fs.StringVar(&c.Currency, "currency", c.Currency, "currency used when the room has none")
	fs.StringVar(&c.PaymentScheme, "scheme", c.PaymentScheme, "payment link scheme")
	fs.Var(&c.RequestTimeout, "t", "request timeout")
	fs.IntVar(&c.BreakerFailures, "breaker-failures", c.BreakerFailures, "consecutive failures before failing fast")
	fs.Var(&c.BreakerOpenAfter, "breaker-open", "how long to fail fast before retrying the service")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}
