package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/coreybb/consumo/client"
	"github.com/coreybb/consumo/logging"
	"github.com/coreybb/consumo/reshape"
)

const apiURLEnvVar = "CONSUMO_API_URL"

// defaultDevices are the devices offered by the dashboard.
var defaultDevices = []string{"Geladeira", "Ar-condicionado", "TV", "Microondas", "Chuveiro", "Computador", "Outro"}

type rootOptions struct {
	apiURL   string
	timeout  time.Duration
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Power consumption dashboard",
		Long: `Dashboard queries the consumption API for one day, reshapes the readings and
renders KPIs, peaks, per-device totals and per-period means.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(logging.Config{
				Level:  opts.logLevel,
				Format: "console",
				Output: cmd.ErrOrStderr(),
			})
		},
	}

	apiDefault := os.Getenv(apiURLEnvVar)
	if apiDefault == "" {
		apiDefault = client.DefaultBaseURL
	}
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api", apiDefault, "API base URL (env "+apiURLEnvVar+")")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", client.DefaultQueryTimeout, "per-query timeout")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	cmd.AddCommand(newShowCmd(opts), newIngestCmd(opts))
	return cmd
}

func (o *rootOptions) client() *client.Client {
	return client.New(o.apiURL)
}

func today() string {
	return time.Now().Format("2006-01-02")
}

// warn prints a visible, user-facing explanation of err and returns it so the
// command exits non-zero.
func warn(w io.Writer, apiURL string, err error) error {
	switch {
	case errors.Is(err, client.ErrUpstreamTimeout):
		fmt.Fprintf(w, "Aviso: a API demorou muito para responder: %v\n", err)
	case errors.Is(err, client.ErrUpstreamUnreachable):
		fmt.Fprintf(w, "Aviso: erro ao conectar com a API: %v\n", err)
		fmt.Fprintf(w, "Verifique se a API está rodando em %s e acessível.\n", apiURL)
	case errors.Is(err, reshape.ErrMalformedTable):
		fmt.Fprintf(w, "Aviso: erro ao converter os dados recebidos: %v\n", err)
	default:
		fmt.Fprintf(w, "Aviso: %v\n", err)
	}
	return err
}
