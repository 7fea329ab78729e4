package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/animaisueg/pledge-service/internal/client"
)

var (
	createAmount string
	createName   string

	waitInterval time.Duration
	waitTimeout  time.Duration

	certificateOut string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Open a pledge and print its PIX copy-and-paste code",
	Args:  cobra.NoArgs,
	RunE:  runCreate,
}

var statusCmd = &cobra.Command{
	Use:   "status <payment-id>",
	Short: "Check a pledge once",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var waitCmd = &cobra.Command{
	Use:   "wait <payment-id>",
	Short: "Poll a pledge until it settles or the timeout elapses",
	Args:  cobra.ExactArgs(1),
	RunE:  runWait,
}

var certificateCmd = &cobra.Command{
	Use:   "certificate <payment-id>",
	Short: "Download the certificate of an approved pledge",
	Args:  cobra.ExactArgs(1),
	RunE:  runCertificate,
}

func init() {
	createCmd.Flags().StringVar(&createAmount, "amount", "", "Amount in BRL, e.g. 10,50")
	createCmd.Flags().StringVar(&createName, "name", "", "Contributor name printed on the certificate")
	_ = createCmd.MarkFlagRequired("amount")
	_ = createCmd.MarkFlagRequired("name")

	waitCmd.Flags().DurationVar(&waitInterval, "interval", 5*time.Second, "Time between status checks")
	waitCmd.Flags().DurationVar(&waitTimeout, "timeout", 15*time.Minute, "Give up after this long")

	certificateCmd.Flags().StringVarP(&certificateOut, "output", "o", "", "Output file (defaults to the server-suggested name)")
}

func runCreate(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	p, err := c.Create(commandContext(cmd), createAmount, createName)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Payment ID: %s\n", p.PaymentID)
	fmt.Fprintf(out, "Status:     %s\n", p.Status)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "PIX copia e cola:")
	fmt.Fprintln(out, p.CopyPaste)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	st, err := c.Status(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatStatus(st))
	return nil
}

func runWait(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	st, err := c.Wait(ctx, args[0], waitInterval, waitTimeout, func(st client.Status) {
		fmt.Fprintf(out, "%s  %s\n", time.Now().Format("15:04:05"), formatStatus(st))
	})
	switch {
	case err == nil:
	case errors.Is(err, client.ErrWaitTimeout):
		return fmt.Errorf("pledge %s still %s after %s", args[0], orUnknown(st.PledgeStatus), waitTimeout)
	case ctx.Err() != nil:
		return fmt.Errorf("wait interrupted")
	default:
		return err
	}
	if st.PledgeStatus == "approved" {
		fmt.Fprintf(out, "Payment confirmed. Run: pledgectl certificate %s\n", st.PaymentID)
	}
	return nil
}

func runCertificate(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	cert, err := c.Certificate(commandContext(cmd), args[0])
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden {
			return fmt.Errorf("payment %s is not confirmed", args[0])
		}
		return err
	}
	path := certificateOut
	if path == "" {
		path = cert.Filename
	}
	if err := os.WriteFile(path, cert.PDF, 0o644); err != nil {
		return fmt.Errorf("write certificate: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes)\n", path, len(cert.PDF))
	return nil
}

func formatStatus(st client.Status) string {
	return fmt.Sprintf("payment=%s gateway=%s pledge=%s", st.PaymentID, orUnknown(st.Status), orUnknown(st.PledgeStatus))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
