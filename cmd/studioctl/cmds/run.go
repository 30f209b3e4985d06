package cmds

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var jf jobFlags
	var wf watchFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit a job and follow its progress until it ends",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireKind(jf.Kind); err != nil {
				return err
			}
			mode, err := wf.mode(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			form, err := jf.form()
			if err != nil {
				return err
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}

			ack, err := c.Submit(cmd.Context(), jf.Kind, form)
			if err != nil {
				return err
			}
			if mode == watchText {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "» %s\n", ack.Message)
			}
			return watchJob(cmd, c, jf.Kind, mode, wf.AltScreen)
		},
	}
	addJobFlags(cmd.Flags(), &jf)
	addWatchFlags(cmd, &wf)
	return cmd
}
