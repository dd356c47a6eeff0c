package cmd

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// config is the configuration of a run. Values come from the defaults, then
// from the environment, then from the command line.
type config struct {
	NumPages         int
	NumPhysicalPages int
	Log2PageSize     uint64
	Handler          string
	Record           string
	EmitTrace        string
	Dump             bool
	Monitor          bool
	Port             int
	OpenBrowser      bool
	LogLevel         string
	LogFormat        string
}

func defaultConfig() config {
	return config{
		NumPages:     16,
		Log2PageSize: 12,
		Handler:      "identity",
		LogLevel:     "info",
		LogFormat:    "console",
	}
}

func loadConfig(cmd *cobra.Command) (config, error) {
	c := defaultConfig()

	if err := c.loadEnv(os.LookupEnv); err != nil {
		return c, err
	}

	if err := c.loadFlags(cmd); err != nil {
		return c, err
	}

	return c, c.validate()
}

func (c *config) loadEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PTSIM_NUM_PAGES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PTSIM_NUM_PAGES: %w", err)
		}

		c.NumPages = n
	}

	if v, ok := lookup("PTSIM_LOG2_PAGE_SIZE"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("PTSIM_LOG2_PAGE_SIZE: %w", err)
		}

		c.Log2PageSize = n
	}

	if v, ok := lookup("PTSIM_LOG_LEVEL"); ok {
		c.LogLevel = v
	}

	if v, ok := lookup("PTSIM_LOG_FORMAT"); ok {
		c.LogFormat = v
	}

	if v, ok := lookup("PTSIM_RECORD"); ok {
		c.Record = v
	}

	return nil
}

func (c *config) loadFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()

	var err error

	getInt := func(name string, dst *int) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetInt(name)
		}
	}
	getUint64 := func(name string, dst *uint64) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetUint64(name)
		}
	}
	getString := func(name string, dst *string) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetString(name)
		}
	}
	getBool := func(name string, dst *bool) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetBool(name)
		}
	}

	getInt("pages", &c.NumPages)
	getInt("physical-pages", &c.NumPhysicalPages)
	getUint64("log2-page-size", &c.Log2PageSize)
	getString("handler", &c.Handler)
	getString("record", &c.Record)
	getString("emit-trace", &c.EmitTrace)
	getBool("dump", &c.Dump)
	getBool("monitor", &c.Monitor)
	getInt("port", &c.Port)
	getBool("open-browser", &c.OpenBrowser)
	getString("log-level", &c.LogLevel)
	getString("log-format", &c.LogFormat)

	return err
}

func (c *config) validate() error {
	if c.NumPages <= 0 {
		return fmt.Errorf("number of pages must be positive, got %d",
			c.NumPages)
	}

	if c.NumPhysicalPages < 0 {
		return fmt.Errorf("number of physical pages must not be negative, "+
			"got %d", c.NumPhysicalPages)
	}

	if c.Log2PageSize < 1 || c.Log2PageSize > 32 {
		return fmt.Errorf("log2 page size must be between 1 and 32, got %d",
			c.Log2PageSize)
	}

	limit := uint64(math.MaxUint64) >> c.Log2PageSize
	if uint64(c.NumPages) > limit || uint64(c.NumPhysicalPages) > limit {
		return fmt.Errorf("%d pages of 2^%d bytes do not fit in 64 bits",
			max(c.NumPages, c.NumPhysicalPages), c.Log2PageSize)
	}

	switch c.Handler {
	case "identity", "none":
	default:
		return fmt.Errorf("unknown handler %q", c.Handler)
	}

	return nil
}
