package sandbox

import (
	"sort"
)

const (
	// DefaultImageTag is the tag given to the image built from the build context.
	DefaultImageTag = "agent-sandbox"
	// DefaultMountTarget is where the host volume is bound inside the container.
	DefaultMountTarget = "/mnt/vol1"
	// DefaultInterpreter is the program exec'd with "-c <code>".
	DefaultInterpreter = "agentrun"
)

// Mount is a single bind mount from the host into the container.
type Mount struct {
	Source string
	Target string
}

// Options holds the fixed build and run parameters of the sandbox container.
type Options struct {
	ImageTag     string
	BuildContext string // Directory sent to the daemon as build context
	Dockerfile   string // Relative to BuildContext; empty means "Dockerfile"

	Memory      string // Memory cap, e.g. "512m"
	CPUQuota    int64  // CFS quota in microseconds per 100ms period
	PidsLimit   int64
	SecurityOpt []string
	CapDrop     []string
	ExtraHosts  []string

	KeepAlive []string // Container command that keeps it running between execs
	Mount     Mount
	Env       map[string]string

	User        string // Exec user for untrusted code
	Interpreter string
}

// DefaultOptions returns the constrained configuration used for agent code.
func DefaultOptions() Options {
	return Options{
		ImageTag:     DefaultImageTag,
		BuildContext: ".",
		Memory:       "512m",
		CPUQuota:     50000,
		PidsLimit:    100,
		SecurityOpt:  []string{"no-new-privileges"},
		CapDrop:      []string{"ALL"},
		ExtraHosts:   []string{"host.docker.internal:host-gateway"},
		KeepAlive:    []string{"tail", "-f", "/dev/null"},
		Mount:        Mount{Target: DefaultMountTarget},
		Env:          map[string]string{},
		User:         "nobody",
		Interpreter:  DefaultInterpreter,
	}
}

// envList renders Env as KEY=VALUE pairs in key order.
func (o Options) envList() []string {
	keys := make([]string, 0, len(o.Env))
	for k := range o.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+o.Env[k])
	}
	return env
}
