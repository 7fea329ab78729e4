package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/animaisueg/pledge-service/internal/client"
)

var (
	baseURL        string
	requestTimeout time.Duration
	rootCmd        *cobra.Command
)

func init() {
	// .env must be loaded before flag defaults read the environment.
	_ = godotenv.Load()

	rootCmd = &cobra.Command{
		Use:           "pledgectl",
		Short:         "Create pledges, follow their payment and fetch certificates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", envOr("PLEDGE_API_URL", "http://localhost:3000"), "Pledge service base URL")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "request-timeout", 30*time.Second, "Timeout for a single API call")
}

// Execute runs the root command.
func Execute() error {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(waitCmd)
	rootCmd.AddCommand(certificateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func newClient() (*client.Client, error) {
	return client.New(client.Options{BaseURL: baseURL, RequestTimeout: requestTimeout})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
