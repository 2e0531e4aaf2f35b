package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Tool describes an external binary the daemon shells out to.
type Tool struct {
	Name     string
	Command  string
	Purpose  string
	Optional bool
}

// Status reports whether a tool can be launched.
type Status struct {
	Name      string
	Command   string
	Purpose   string
	Optional  bool
	Available bool
	Detail    string
}

// Check resolves each tool and reports availability in input order.
func Check(tools []Tool) []Status {
	results := make([]Status, 0, len(tools))
	for _, tool := range tools {
		results = append(results, checkTool(tool))
	}
	return results
}

func checkTool(tool Tool) Status {
	status := Status{
		Name:     tool.Name,
		Command:  strings.TrimSpace(tool.Command),
		Purpose:  strings.TrimSpace(tool.Purpose),
		Optional: tool.Optional,
	}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	if _, err := exec.LookPath(status.Command); err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return status
	}
	status.Available = true
	return status
}
