// Package config loads and validates the YAML configuration document that
// declares a session's tasks. Parsing and validation are the only external
// collaborator spec'd in detail (spec.md §6); everything downstream of
// config.Load only ever sees the immutable types.Task values it produces.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ridgeback/tasq/internal/types"
)

// rawConfig mirrors the on-disk YAML shape from spec.md §6.
type rawConfig struct {
	Tasks map[string]rawTask `yaml:"tasks"`
	GUI   *rawGUI             `yaml:"gui"`
}

type rawTask struct {
	Type              string            `yaml:"type"`
	RunMode           string            `yaml:"run_mode"`
	CompletionPattern string            `yaml:"completion_pattern"`
	PatternInStderr   bool              `yaml:"pattern_in_stderr"`
	Depends           []string          `yaml:"depends"`
	Shell             *rawShell         `yaml:"shell"`
	Docker            *rawDocker        `yaml:"docker"`
}

type rawShell struct {
	Command          yaml.Node         `yaml:"command"`
	WorkingDirectory string            `yaml:"working_directory"`
	Environment      map[string]string `yaml:"environment"`
}

type rawDocker struct {
	ContainerName    string            `yaml:"container_name"`
	Image            string            `yaml:"image"`
	DockerArguments  []string          `yaml:"docker_arguments,omitempty"`
	DockerCommand    []string          `yaml:"docker_command,omitempty"`
	Environment      map[string]string `yaml:"environment,omitempty"`
	WorkingDirectory string            `yaml:"working_directory"`
	StopAtExit       bool              `yaml:"stop_at_exit"`
}

type rawGUI struct {
	Palette string                `yaml:"palette"`
	Panes   map[string]rawPane    `yaml:"panes"`
}

type rawPane struct {
	Columns int      `yaml:"columns"`
	Tasks   []string `yaml:"tasks"`
}

// Load reads and parses the configuration file at path, injects each
// top-level map key into the task as its name (spec.md §6), and validates
// the result: known kind, dependency targets exist, and the dependency
// graph is acyclic. Any failure is returned wrapped in *types.ConfigError.
func Load(path string) (*types.Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.ConfigError{Reason: fmt.Sprintf("reading %s: %s", path, err)}
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &types.ConfigError{Reason: fmt.Sprintf("parsing %s: %s", path, err)}
	}

	if len(raw.Tasks) == 0 {
		return nil, &types.ConfigError{Reason: "no tasks defined"}
	}

	cfg := &types.Configuration{Tasks: make(map[string]*types.Task, len(raw.Tasks))}

	for name, rt := range raw.Tasks {
		task, err := buildTask(name, rt)
		if err != nil {
			return nil, err
		}
		cfg.Tasks[name] = task
	}

	if err := validateDependencies(cfg.Tasks); err != nil {
		return nil, err
	}
	if err := detectCycle(cfg.Tasks); err != nil {
		return nil, err
	}

	if raw.GUI != nil {
		cfg.GUI = &types.GUIConfig{
			Palette: raw.GUI.Palette,
			Panes:   make(map[string]types.PaneConfig, len(raw.GUI.Panes)),
		}
		for name, pane := range raw.GUI.Panes {
			cfg.GUI.Panes[name] = types.PaneConfig{Columns: pane.Columns, Tasks: pane.Tasks}
		}
	}

	return cfg, nil
}

func buildTask(name string, rt rawTask) (*types.Task, error) {
	kind := types.Kind(rt.Type)
	switch kind {
	case types.KindShell, types.KindDocker, types.KindGroup:
	default:
		return nil, &types.ConfigError{Reason: fmt.Sprintf("task '%s': unknown type '%s'", name, rt.Type)}
	}

	t := &types.Task{
		Name:            name,
		Kind:            kind,
		Depends:         append([]string(nil), rt.Depends...),
		RunMode:         types.RunAwaitCompletion,
		CompletionPattern: rt.CompletionPattern,
		PatternInStderr: rt.PatternInStderr,
	}
	if rt.RunMode != "" {
		t.RunMode = types.RunMode(rt.RunMode)
		if t.RunMode != types.RunAwaitCompletion && t.RunMode != types.RunIndefinite {
			return nil, &types.ConfigError{Reason: fmt.Sprintf("task '%s': unknown run_mode '%s'", name, rt.RunMode)}
		}
	}

	switch kind {
	case types.KindShell:
		if rt.Shell == nil {
			return nil, &types.ConfigError{Reason: fmt.Sprintf("task '%s': type shell requires a 'shell' block", name)}
		}
		command, isStr, err := decodeCommand(rt.Shell.Command)
		if err != nil {
			return nil, &types.ConfigError{Reason: fmt.Sprintf("task '%s': %s", name, err)}
		}
		t.Shell = &types.ShellOptions{
			Command:           command,
			CommandIsShellStr: isStr,
			WorkingDirectory:  rt.Shell.WorkingDirectory,
			Environment:       rt.Shell.Environment,
		}
	case types.KindDocker:
		if rt.Docker == nil {
			return nil, &types.ConfigError{Reason: fmt.Sprintf("task '%s': type docker requires a 'docker' block", name)}
		}
		if rt.Docker.ContainerName == "" || rt.Docker.Image == "" {
			return nil, &types.ConfigError{Reason: fmt.Sprintf("task '%s': docker requires container_name and image", name)}
		}
		t.Docker = &types.DockerOptions{
			ContainerName:    rt.Docker.ContainerName,
			Image:            rt.Docker.Image,
			DockerArguments:  rt.Docker.DockerArguments,
			DockerCommand:    rt.Docker.DockerCommand,
			Environment:      rt.Docker.Environment,
			WorkingDirectory: rt.Docker.WorkingDirectory,
			StopAtExit:       rt.Docker.StopAtExit,
		}
	case types.KindGroup:
		// no options
	}

	return t, nil
}

// decodeCommand accepts either a YAML scalar string (interpreted by the
// platform shell) or a YAML sequence of argv tokens (exec'd directly).
func decodeCommand(node yaml.Node) ([]string, bool, error) {
	switch node.Kind {
	case 0:
		return nil, false, fmt.Errorf("shell.command is required")
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return nil, false, fmt.Errorf("decoding shell.command: %w", err)
		}
		return []string{s}, true, nil
	case yaml.SequenceNode:
		var tokens []string
		if err := node.Decode(&tokens); err != nil {
			return nil, false, fmt.Errorf("decoding shell.command: %w", err)
		}
		return tokens, false, nil
	default:
		return nil, false, fmt.Errorf("shell.command must be a string or a list of strings")
	}
}

func validateDependencies(tasks map[string]*types.Task) error {
	for name, t := range tasks {
		for _, dep := range t.Depends {
			if _, ok := tasks[dep]; !ok {
				return &types.ConfigError{Reason: fmt.Sprintf("task '%s': depends on undefined task '%s'", name, dep)}
			}
		}
	}
	return nil
}

// detectCycle runs a DFS with a three-color mark (white/gray/black) over
// the name-keyed dependency map. A dozen-node DAG check like this has no
// natural home in a third-party graph library in this corpus; stdlib maps
// and recursion are the right tool (see DESIGN.md).
func detectCycle(tasks map[string]*types.Task) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(tasks))

	var visit func(name string, stack []string) error
	visit = func(name string, stack []string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return &types.ConfigError{Reason: fmt.Sprintf("dependency cycle detected: %v -> %s", stack, name)}
		}
		color[name] = gray
		for _, dep := range tasks[name].Depends {
			if err := visit(dep, append(stack, name)); err != nil {
				return err
			}
		}
		color[name] = black
		return nil
	}

	for name := range tasks {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}
