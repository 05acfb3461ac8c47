// Package agent contains ztr's core (non-UI) logic.
//
// It resolves the model/provider configuration, assembles the tool set
// (catalog tools plus MCP tools) and runs one agent to completion, retrying
// provider errors according to the settings.
package agent
