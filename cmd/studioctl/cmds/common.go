package cmds

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-go-golems/studioctl/pkg/client"
	"github.com/go-go-golems/studioctl/pkg/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	Config  string
	Server  string
	Timeout time.Duration
}

func AddRootFlags(root *cobra.Command) {
	root.PersistentFlags().String("config", "", "Path to config file (defaults to .studioctl.yaml in the current directory)")
	root.PersistentFlags().String("server", "", "Control panel base URL (overrides the config file)")
	root.PersistentFlags().Duration("timeout", 30*time.Second, "Timeout for submit and stop requests")
}

func getRootOptions(cmd *cobra.Command) (rootOptions, error) {
	cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return rootOptions{}, err
	}
	if cfgPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return rootOptions{}, err
		}
		cfgPath = config.DefaultPath(cwd)
	} else if cfgPath, err = filepath.Abs(cfgPath); err != nil {
		return rootOptions{}, err
	}

	server, err := cmd.Root().PersistentFlags().GetString("server")
	if err != nil {
		return rootOptions{}, err
	}
	timeout, err := cmd.Root().PersistentFlags().GetDuration("timeout")
	if err != nil {
		return rootOptions{}, err
	}
	if timeout <= 0 {
		return rootOptions{}, errors.New("timeout must be > 0")
	}

	return rootOptions{Config: cfgPath, Server: server, Timeout: timeout}, nil
}

func loadConfig(opts rootOptions) (*config.File, error) {
	cfg, err := config.LoadOptional(opts.Config)
	if err != nil {
		return nil, err
	}
	if opts.Server != "" {
		cfg.Server = opts.Server
		cfg.Normalize()
		if err := cfg.Validate(); err != nil {
			return nil, errors.Wrap(err, "--server")
		}
	}
	return cfg, nil
}

func newClient(cmd *cobra.Command) (*client.Client, error) {
	opts, err := getRootOptions(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	return client.New(client.Options{Config: cfg, Timeout: opts.Timeout})
}
