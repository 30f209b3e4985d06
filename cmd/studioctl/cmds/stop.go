package cmds

import (
	"github.com/spf13/cobra"
)

func newStopCmd() *cobra.Command {
	var kind string
	var rawJSON bool

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Ask the server to stop the running job of a kind",
		Long:  "Ask the server to stop the running job of a kind. The reply is advisory; any open stream reports the job's own end.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireKind(kind); err != nil {
				return err
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			ack, err := c.Stop(cmd.Context(), kind)
			if err != nil {
				return err
			}
			return printAck(cmd, ack, rawJSON)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Job kind to stop (required)")
	cmd.Flags().BoolVar(&rawJSON, "json", false, "Print the server reply as JSON")
	return cmd
}
