// Package recipe holds agent definitions: the built-in ones and those
// declared in the settings file or the agents directory.
package recipe

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/template"

	"github.com/sortedstartup/ztr/internal/config"
	"github.com/sortedstartup/ztr/internal/errs"
	"github.com/sortedstartup/ztr/internal/tools"
)

// WorkspaceStarter makes a run start from a fresh copy of the starter
// template.
const WorkspaceStarter = "starter"

// Variables every run gets.
const (
	VarContainer = "Container"
	VarRepo      = "Repo"
	VarTarget    = "Target"
	VarWorkspace = "Workspace"
	VarTask      = "Task"
)

// Definition describes one agent.
type Definition struct {
	Name         string
	Description  string
	API          string
	Model        string
	Instructions []string
	Tools        []string
	MCPServers   []string

	// Task is used when the run is started without one.
	Task string
	// TaskTemplate, when set, wraps the task. The task is available as
	// [[.Task]].
	TaskTemplate string
	Workspace    string
	// Container runs git, go and template tools inside the dev container.
	Container bool
	// Vars are default template variables, overridden by the run.
	Vars map[string]string

	Builtin bool
}

// Builtins returns the built-in definitions.
func Builtins() []Definition {
	out := make([]Definition, 0, len(builtins))
	for _, d := range builtins {
		d.Builtin = true
		out = append(out, d)
	}
	return out
}

// All returns the built-in definitions merged with the user's, sorted by
// name.
func All(cfg *config.Config) []Definition {
	byName := map[string]Definition{}
	for _, d := range Builtins() {
		byName[d.Name] = d
	}
	for name, a := range cfg.Agents {
		byName[name] = merge(byName[name], name, a)
	}
	out := slices.Collect(maps.Values(byName))
	slices.SortFunc(out, func(a, b Definition) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Get finds a definition by name.
func Get(cfg *config.Config, name string) (Definition, error) {
	all := All(cfg)
	i := slices.IndexFunc(all, func(d Definition) bool { return d.Name == name })
	if i < 0 {
		return Definition{}, errs.Wrapf(
			fmt.Errorf("unknown agent %q", name),
			"Agent %q does not exist. Run `ztr agents` to list them.", name,
		)
	}
	return all[i], nil
}

func merge(base Definition, name string, a config.Agent) Definition {
	d := base
	d.Name = name
	if base.Name == "" {
		d.Builtin = false
	}
	if a.Description != "" {
		d.Description = a.Description
	}
	if a.API != "" {
		d.API = a.API
	}
	if a.Model != "" {
		d.Model = a.Model
	}
	if len(a.Instructions) > 0 {
		d.Instructions = a.Instructions
	}
	if len(a.Tools) > 0 {
		d.Tools = a.Tools
	}
	if len(a.MCPServers) > 0 {
		d.MCPServers = a.MCPServers
	}
	if a.Task != "" {
		d.Task = a.Task
	}
	if a.TaskTemplate != "" {
		d.TaskTemplate = a.TaskTemplate
	}
	if a.Workspace != "" {
		d.Workspace = a.Workspace
	}
	if a.Container != nil {
		d.Container = *a.Container
	}
	if len(a.Vars) > 0 {
		vars := maps.Clone(base.Vars)
		if vars == nil {
			vars = map[string]string{}
		}
		maps.Copy(vars, a.Vars)
		d.Vars = vars
	}
	return d
}

// Validate checks the definition can be run.
func (d Definition) Validate() error {
	if len(d.Instructions) == 0 {
		return errs.Wrapf(fmt.Errorf("agent %q has no instructions", d.Name), "Agent %q needs at least one instruction.", d.Name)
	}
	switch d.Workspace {
	case "", WorkspaceStarter:
	default:
		return errs.Wrapf(
			fmt.Errorf("agent %q: unknown workspace %q", d.Name, d.Workspace),
			"Workspace must be empty or %q.", WorkspaceStarter,
		)
	}
	if _, err := tools.Expand(d.Tools); err != nil {
		return fmt.Errorf("agent %q: %w", d.Name, err)
	}
	return nil
}

// Variables returns the definition's default variables overlaid with run.
func (d Definition) Variables(run map[string]string) map[string]string {
	vars := maps.Clone(d.Vars)
	if vars == nil {
		vars = map[string]string{}
	}
	for k, v := range run {
		if v != "" || vars[k] == "" {
			vars[k] = v
		}
	}
	return vars
}

// RenderInstructions loads every instruction entry and renders it with vars.
func (d Definition) RenderInstructions(vars map[string]string) (string, error) {
	parts := make([]string, 0, len(d.Instructions))
	for i, entry := range d.Instructions {
		text, err := config.LoadMsg(entry)
		if err != nil {
			return "", errs.Wrapf(err, "Could not load instruction %d of agent %q.", i+1, d.Name)
		}
		rendered, err := render(fmt.Sprintf("%s-instructions-%d", d.Name, i), text, vars)
		if err != nil {
			return "", d.renderErr(err)
		}
		parts = append(parts, strings.TrimSpace(rendered))
	}
	return strings.Join(parts, "\n\n"), nil
}

// RenderTask returns the final task text. An empty task falls back to the
// definition's default task.
func (d Definition) RenderTask(task string, vars map[string]string) (string, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		rendered, err := render(d.Name+"-task", d.Task, vars)
		if err != nil {
			return "", d.renderErr(err)
		}
		task = strings.TrimSpace(rendered)
	}
	if task == "" {
		return "", errs.Wrapf(
			fmt.Errorf("agent %q: no task", d.Name),
			"Agent %q has no default task, pass one: ztr run %s <task>", d.Name, d.Name,
		)
	}
	if d.TaskTemplate == "" {
		return task, nil
	}
	withTask := maps.Clone(vars)
	if withTask == nil {
		withTask = map[string]string{}
	}
	withTask[VarTask] = task
	rendered, err := render(d.Name+"-task-template", d.TaskTemplate, withTask)
	if err != nil {
		return "", d.renderErr(err)
	}
	return strings.TrimSpace(rendered), nil
}

func (d Definition) renderErr(err error) error {
	return errs.Wrapf(err, "Agent %q uses a variable that is not set. Pass it with --var Name=value.", d.Name)
}

// render executes text as a template with [[ ]] delimiters, so {{ }}
// placeholders meant for other tools are left alone.
func render(name, text string, vars map[string]string) (string, error) {
	tmpl, err := template.New(name).Delims("[[", "]]").Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
