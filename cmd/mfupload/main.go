// Command mfupload drives the holdings upload workflow from a terminal.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/epeers/mftracker/internal/backend"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	backendURL string
	token      string
	timeout    time.Duration
	rps        float64
	verbose    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mfupload",
	Short: "Upload mutual fund holdings to the tracker backend",
	Long: `mfupload uploads lumpsum holdings spreadsheets to the fund tracker backend.

It searches schemes, submits the upload and walks you through the follow-up
questions the backend may ask: confirming an upload whose fund name does not
match the selected scheme, or picking a scheme when several match.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetLevel(log.DebugLevel)
		} else {
			log.SetLevel(log.WarnLevel)
		}
		if backendURL == "" {
			backendURL = os.Getenv("BACKEND_URL")
		}
		backendURL = strings.TrimRight(backendURL, "/")
		if backendURL == "" {
			return fmt.Errorf("backend URL is required (--backend or BACKEND_URL)")
		}
		if token == "" {
			token = os.Getenv("MFTRACKER_TOKEN")
		}
		return nil
	},
}

func newClient() *backend.Client {
	return backend.NewClient(backendURL, timeout, rps).WithToken(token)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "Backend base URL (or set BACKEND_URL env)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer token (or set MFTRACKER_TOKEN env)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Backend request timeout")
	rootCmd.PersistentFlags().Float64Var(&rps, "rps", 0, "Backend requests per second (0 disables throttling)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(fundsCmd)
	rootCmd.AddCommand(holdingsCmd)
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
