package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/xrmkit/xrmsoap/pkg/cli/internal/flags"
	"github.com/xrmkit/xrmsoap/pkg/cli/internal/parse"
	"github.com/xrmkit/xrmsoap/pkg/config"
	"github.com/xrmkit/xrmsoap/pkg/logging"
	"github.com/xrmkit/xrmsoap/pkg/orgservice"
	"github.com/xrmkit/xrmsoap/pkg/transport"
)

var (
	// Persistent flags available to all subcommands
	configPath string
	orgURL     string
	jsonOutput bool
	logLevel   string
	headers    flags.Repeated

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "xrmsoap",
	Short: "xrmsoap talks to a Dynamics CRM Organization service over SOAP",
	Long: `xrmsoap sends Execute requests to a Dynamics CRM 2011/2013 Organization
service: record CRUD, FetchXML queries with paging, access rights, the calling
user's identity and roles, and metadata.

Settings come from flags, XRMSOAP_* environment variables, or a YAML config
file (--config, XRMSOAP_CONFIG, or ./xrmsoap.yaml).`,
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Execute()
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XRMSOAP_CONFIG or ./xrmsoap.yaml)")
	rootCmd.PersistentFlags().StringVar(&orgURL, "org-url", "", "Organization URL, e.g. https://crm.contoso.com/contoso")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Var(&headers, "header", "Request header as 'Name: value' (repeatable)")
}

// resolveConfig layers the flags over the resolved file and environment
// configuration.
func resolveConfig() (*config.Config, error) {
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return nil, err
	}
	if orgURL != "" {
		cfg.Set("orgUrl", config.SourceFlag, func(c *config.Config) { c.OrgURL = orgURL })
	}
	if logLevel != "" {
		cfg.Set("log.level", config.SourceFlag, func(c *config.Config) { c.Log.Level = logLevel })
	}
	if len(headers) > 0 {
		cfg.Set("headers", config.SourceFlag, func(c *config.Config) {
			if c.Headers == nil {
				c.Headers = make(map[string]string)
			}
			for k, v := range parse.Headers(headers) {
				c.Headers[k] = v
			}
		})
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	lc := cfg.LoggingConfig()
	lc.Output = cmd.ErrOrStderr()
	return logging.New(lc)
}

// newClient builds an Organization service client from the resolved
// configuration.
func newClient(cmd *cobra.Command) (*orgservice.Client, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w (use --org-url or %s)", err, config.EnvOrgURL)
	}

	logger := newLogger(cmd, cfg)
	opts := append(cfg.TransportOptions(), transport.WithLogger(logger))
	t := transport.NewHTTP(cfg.OrgURL, opts...)
	return orgservice.New(t,
		orgservice.WithLogger(logger),
		orgservice.WithPageSize(cfg.PageSize)), nil
}
