package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const DefaultConfigFilename = ".studioctl.yaml"

const (
	DefaultServer      = "http://127.0.0.1:5000"
	DefaultStreamPath  = "/stream_output"
	DefaultStopPath    = "/stop_process"
	DefaultOutputsPath = "/outputs"
)

var ErrUnknownKind = errors.New("unknown job kind")

type File struct {
	Server      string `yaml:"server,omitempty" json:"server,omitempty"`
	StreamPath  string `yaml:"stream_path,omitempty" json:"stream_path,omitempty"`
	StopPath    string `yaml:"stop_path,omitempty" json:"stop_path,omitempty"`
	OutputsPath string `yaml:"outputs_path,omitempty" json:"outputs_path,omitempty"`
	Jobs        []Job  `yaml:"jobs,omitempty" json:"jobs,omitempty"`
}

type Job struct {
	Kind        string `yaml:"kind" json:"kind"`
	SubmitPath  string `yaml:"submit_path" json:"submit_path"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

func DefaultJobs() []Job {
	return []Job{
		{Kind: "script_builder", SubmitPath: "/generate_script", Description: "Research sources and write a podcast script"},
		{Kind: "podcast_builder", SubmitPath: "/generate_podcast_video", Description: "Synthesize audio and render the podcast video"},
	}
}

func Defaults() *File {
	f := &File{}
	f.Normalize()
	return f
}

func DefaultPath(dir string) string {
	return filepath.Join(dir, DefaultConfigFilename)
}

func LoadFromFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var cfg File
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config yaml")
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return &cfg, nil
}

func LoadOptional(path string) (*File, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(), nil
		}
		return nil, errors.Wrap(err, "stat config")
	}
	return LoadFromFile(path)
}

// Normalize fills unset fields with the control panel defaults.
func (f *File) Normalize() {
	f.Server = strings.TrimRight(strings.TrimSpace(f.Server), "/")
	if f.Server == "" {
		f.Server = DefaultServer
	}
	if !strings.Contains(f.Server, "://") {
		f.Server = "http://" + f.Server
	}
	if f.StreamPath == "" {
		f.StreamPath = DefaultStreamPath
	}
	if f.StopPath == "" {
		f.StopPath = DefaultStopPath
	}
	if f.OutputsPath == "" {
		f.OutputsPath = DefaultOutputsPath
	}
	if len(f.Jobs) == 0 {
		f.Jobs = DefaultJobs()
	}
}

func (f *File) Validate() error {
	if _, err := url.Parse(f.Server); err != nil {
		return errors.Wrap(err, "parse server url")
	}
	for _, p := range []string{f.StreamPath, f.StopPath, f.OutputsPath} {
		if !strings.HasPrefix(p, "/") {
			return errors.Errorf("path %q must start with /", p)
		}
	}
	seen := map[string]struct{}{}
	for i, j := range f.Jobs {
		if err := protocol.ValidateKind(j.Kind); err != nil {
			return errors.Wrapf(err, "jobs[%d]", i)
		}
		if _, ok := seen[j.Kind]; ok {
			return errors.Errorf("jobs[%d]: duplicate kind %q", i, j.Kind)
		}
		seen[j.Kind] = struct{}{}
		if !strings.HasPrefix(j.SubmitPath, "/") {
			return errors.Errorf("jobs[%d]: submit_path %q must start with /", i, j.SubmitPath)
		}
	}
	return nil
}

func (f *File) Job(kind string) (Job, error) {
	for _, j := range f.Jobs {
		if j.Kind == kind {
			return j, nil
		}
	}
	return Job{}, errors.Wrapf(ErrUnknownKind, "%q", kind)
}
