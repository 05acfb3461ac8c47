package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sortedstartup/ztr/internal/shell"
)

type RunTemplateParams struct {
	Directory string            `json:"directory" description:"Root of the cloned template repository"`
	Values    map[string]string `json:"values" description:"Placeholder name to replacement, e.g. {\"ModuleName\": \"chat\"}"`
}

// RunTemplate hands the placeholder mapping to the template runner, which
// rewrites the placeholders found under Directory.
//
// The runner is invoked as `<template-runner> '<json>' --dir <directory>`.
func (t *Toolbox) RunTemplate(ctx context.Context, p RunTemplateParams) CommandResult {
	if p.Directory == "" {
		return CommandResult{Status: failed("directory is required.")}
	}
	if len(p.Values) == 0 {
		return CommandResult{Status: failed("values must contain at least one placeholder.")}
	}
	name, args, err := shell.Split(t.TemplateRunner)
	if err != nil {
		return CommandResult{Status: failed("Invalid template runner: %v", err)}
	}
	payload, err := json.Marshal(p.Values)
	if err != nil {
		return CommandResult{Status: failed("Invalid values: %v", err)}
	}

	argv := append([]string{name}, args...)
	argv = append(argv, string(payload), "--dir", p.Directory)
	res, err := t.script(ctx, "", t.Timeouts.Template, argv)
	return commandResult(res, err,
		fmt.Sprintf("Template applied to %s (%d placeholders).", p.Directory, len(p.Values)),
		"Template runner failed",
		"Template runner timed out.",
	)
}
