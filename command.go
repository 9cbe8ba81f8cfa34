package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ryansname/sbox-sim/message"
)

// newRootCommand builds the CLI. Flag defaults come from the environment, so
// a flag on the command line overrides the .env file.
func newRootCommand() *cobra.Command {
	cfg, envErr := configFromEnv()

	root := &cobra.Command{
		Use:   "sbox-sim",
		Short: "Simulate a BMW SBox battery junction box on a CAN bus",
		Long: "sbox-sim answers contactor commands from a controller on the bus and " +
			"transmits the SBox current and voltage measurements.",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envErr != nil {
				return envErr
			}
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	flags := root.Flags()
	flags.StringVarP(&cfg.Interface, "interface", "i", cfg.Interface, "SocketCAN interface [SBOX_INTERFACE]")
	flags.BoolVar(&cfg.Virtual, "virtual", cfg.Virtual, "use an in-memory bus instead of SocketCAN [SBOX_VIRTUAL]")
	flags.BoolVar(&cfg.NoUI, "no-ui", cfg.NoUI, "run headless, logging state changes [SBOX_NO_UI]")
	flags.BoolVar(&cfg.BringUp, "bring-up", cfg.BringUp, "set the interface up if it is down (needs CAP_NET_ADMIN)")
	flags.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "directory for the candump traffic log [SBOX_LOG_DIR]")

	persistent := root.PersistentFlags()
	persistent.StringVar(&cfg.MessagesFile, "messages", cfg.MessagesFile, "YAML file of extra messages to transmit [SBOX_MESSAGES_FILE]")
	persistent.StringSliceVar(&cfg.Groups, "groups", cfg.Groups, "optional message groups: ieb, srs [SBOX_GROUPS]")
	persistent.Float64Var(&cfg.Voltage, "voltage", cfg.Voltage, "initial pack voltage [SBOX_VOLTAGE]")

	root.AddCommand(newListCommand(&cfg))
	return root
}

func newListCommand(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the messages that would be transmitted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := newSimulator(*cfg)
			if err != nil {
				return err
			}
			return printMessageTable(cmd.OutOrStdout(), sim.Messages)
		},
	}
}

// printMessageTable writes one row per message, ordered by ID
func printMessageTable(w io.Writer, set *message.Set) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tHZ\tTEMPLATE")
	for _, m := range set.Sorted() {
		_, _ = fmt.Fprintf(tw, "%#03x\t%s\t%d\t%s\n", m.ID, m.Name, m.Frequency, m.Peek().Candump())
	}
	return tw.Flush()
}
