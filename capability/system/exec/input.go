package exec

import (
	"github.com/viant/stepflow/capability/system"
)

// Input represents system executor configuration
type Input struct {
	Host         *system.Host      `json:"host,omitempty"`         //host to execute command on
	Workdir      string            `json:"workdir,omitempty"`      //directory where commands start
	Env          map[string]string `json:"env,omitempty"`          //environment variables set before commands run
	Commands     []string          `json:"commands,omitempty"`     //commands to run
	TimeoutMs    int               `json:"timeoutMs,omitempty" yaml:"timeoutMs,omitempty"`
	AbortOnError *bool             `json:"abortOnError,omitempty"` //whether to stop after the first failing command
}

func (i *Input) Init() {
	if i.Host == nil {
		i.Host = &system.Host{}
	}
	if i.Host.URL == "" {
		i.Host.URL = "bash://localhost/"
	}
}
