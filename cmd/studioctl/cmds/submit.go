package cmds

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-go-golems/studioctl/pkg/client"
	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type jobFlags struct {
	Kind   string
	Fields []string
	Files  []string
}

func addJobFlags(fs *pflag.FlagSet, f *jobFlags) {
	fs.StringVar(&f.Kind, "kind", "", "Job kind, e.g. script_builder or podcast_builder (required)")
	fs.StringArrayVar(&f.Fields, "field", nil, "Form field name=value (repeatable)")
	fs.StringArrayVar(&f.Files, "file", nil, "Form file name=path (repeatable)")
}

func (f jobFlags) form() (client.Form, error) {
	form := client.Form{Fields: url.Values{}}
	for _, kv := range f.Fields {
		name, value, err := splitPair("--field", kv)
		if err != nil {
			return client.Form{}, err
		}
		form.Fields.Add(name, value)
	}
	for _, kv := range f.Files {
		name, path, err := splitPair("--file", kv)
		if err != nil {
			return client.Form{}, err
		}
		if path == "" {
			return client.Form{}, errors.Errorf("--file %q: empty path", kv)
		}
		form.Files = append(form.Files, client.LocalFile(name, path))
	}
	return form, nil
}

func splitPair(flag, kv string) (string, string, error) {
	name, value, ok := strings.Cut(kv, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", errors.Errorf("%s %q: expected name=value", flag, kv)
	}
	return name, value, nil
}

func requireKind(kind string) error {
	if kind == "" {
		return errors.New("--kind is required")
	}
	return protocol.ValidateKind(kind)
}

func newSubmitCmd() *cobra.Command {
	var jf jobFlags
	var rawJSON bool

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a job without following its progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireKind(jf.Kind); err != nil {
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
			return printAck(cmd, ack, rawJSON)
		},
	}
	addJobFlags(cmd.Flags(), &jf)
	cmd.Flags().BoolVar(&rawJSON, "json", false, "Print the server reply as JSON")
	return cmd
}

func printAck(cmd *cobra.Command, ack protocol.Ack, rawJSON bool) error {
	if rawJSON {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(ack)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", ack.Status, ack.Message)
	return nil
}
