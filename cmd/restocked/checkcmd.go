package main

import "fmt"

// Run executes the check command: a single pass over all due items.
func (c *CheckCmd) Run(deps *Dependencies) error {
	result, err := deps.Worker.RunOnce(deps.Ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(deps.Stdout, "Checked %d URLs covering %d tracked items\n", result.URLs, result.Items)
	if result.Failed > 0 {
		fmt.Fprintf(deps.Stdout, "  %d failed\n", result.Failed)
	}
	fmt.Fprintf(deps.Stdout, "  %d notifications created\n", result.Notified)
	return nil
}
