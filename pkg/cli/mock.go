package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xrmkit/xrmsoap/pkg/cli/internal/output"
	"github.com/xrmkit/xrmsoap/pkg/cli/internal/ports"
	"github.com/xrmkit/xrmsoap/pkg/logging"
	"github.com/xrmkit/xrmsoap/pkg/orgmock"
	"github.com/xrmkit/xrmsoap/pkg/transport"
)

const shutdownTimeout = 5 * time.Second

var (
	mockFile     string
	mockHost     string
	mockPort     int
	mockStateful bool
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Run a mock Organization service",
}

var mockServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve canned and stateful Execute responses over HTTP",
	Long: `Serve a mock Organization service. Requests are answered by the canned
operations in the mock file, in order; with --stateful, anything they do not
match is handled by an in-memory record store.`,
	Example: `  xrmsoap mock serve --stateful
  xrmsoap mock serve -f mock.yaml --port 8089`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &orgmock.Config{}
		if mockFile != "" {
			loaded, err := orgmock.LoadConfig(mockFile)
			if err != nil {
				return err
			}
			cfg = loaded
		}
		if mockStateful {
			cfg.Stateful = true
		}
		if !cfg.Stateful && len(cfg.Operations) == 0 {
			output.Warn("no operations configured and stateful mode is off; every request will fault")
		}

		lc := logging.DefaultConfig()
		lc.Level = logging.ParseLevel(logLevel)
		lc.Output = cmd.ErrOrStderr()
		logger := logging.New(lc)

		handler, err := orgmock.New(cfg, orgmock.WithLogger(logger))
		if err != nil {
			return err
		}
		if err := ports.Check(mockHost, mockPort); err != nil {
			return err
		}

		addr := net.JoinHostPort(mockHost, strconv.Itoa(mockPort))
		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.ListenAndServe()
		}()

		id := handler.Identity()
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Mock Organization service listening on http://%s\n", addr)
		fmt.Fprintf(w, "  SOAP endpoint: http://%s/<org>%s\n", addr, transport.ServicePath)
		fmt.Fprintf(w, "  User:          %s\n", id.UserID)
		fmt.Fprintf(w, "  Business unit: %s\n", id.BusinessUnitID)
		fmt.Fprintf(w, "  Stateful:      %t\n", cfg.Stateful)

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("mock server failed: %w", err)
		case <-ctx.Done():
		}

		fmt.Fprintln(w, "\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			output.Warn("server shutdown error: %v", err)
		}
		return nil
	},
}

func init() {
	mockServeCmd.Flags().StringVarP(&mockFile, "file", "f", "", "Mock configuration file (YAML)")
	mockServeCmd.Flags().StringVar(&mockHost, "host", "localhost", "Address to listen on")
	mockServeCmd.Flags().IntVarP(&mockPort, "port", "p", 8089, "Port to listen on")
	mockServeCmd.Flags().BoolVar(&mockStateful, "stateful", false, "Answer unmatched requests from an in-memory record store")

	mockCmd.AddCommand(mockServeCmd)
	rootCmd.AddCommand(mockCmd)
}
