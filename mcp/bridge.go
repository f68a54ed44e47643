package mcp

import (
	"fmt"
	"strings"

	research "github.com/armatrix/deep-research-go"
)

const bridgePrefix = "mcp__"

// BridgeToolName returns the namespaced name mcp__{server}__{tool}. The
// Manager uses it when namespacing is enabled so that two servers exposing
// the same tool name do not collide.
func BridgeToolName(serverName, toolName string) string {
	return bridgePrefix + serverName + "__" + toolName
}

// ParseBridgedName splits a namespaced name into server and tool. The tool
// part may itself contain double underscores. Errors match both
// ErrToolNotFound and research.ErrToolNotFound.
func ParseBridgedName(name string) (server, tool string, err error) {
	rest, ok := strings.CutPrefix(name, bridgePrefix)
	if ok {
		server, tool, ok = strings.Cut(rest, "__")
	}
	if !ok || server == "" || tool == "" {
		return "", "", fmt.Errorf("%w: %w: %q", ErrToolNotFound, research.ErrToolNotFound, name)
	}
	return server, tool, nil
}
