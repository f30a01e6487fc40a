package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/procflow/procflow/internal/parser"
	"github.com/procflow/procflow/pkg/engine"
)

var (
	runVars    []string
	runTimeout time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run <workflow.yaml>",
	Short: "Deploy and run one workflow in-process",
	Long: `Deploy a workflow file into an in-memory engine, start one instance
with the given variables, and drive due jobs until the instance ends or
the timeout expires. The final instance state is printed as JSON.`,
	Example: `  procflow run order.yaml
  procflow run --var amount=120 --var customer=acme order.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkflow,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringArrayVar(&runVars, "var", nil, "initial variable, key=value (repeatable)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 30*time.Second, "give up waiting for the instance to end")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	wf, err := parser.ParseFile(args[0])
	if err != nil {
		return err
	}

	variables := make(map[string]any, len(runVars))
	for _, kv := range runVars {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --var %q, expected key=value", kv)
		}
		variables[key] = value
	}

	e := engine.New(engine.Config{})
	result, err := e.Deploy(wf)
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		fmt.Fprintln(os.Stderr, w.String())
	}
	if !result.OK() {
		for _, issue := range result.Errors {
			fmt.Fprintln(os.Stderr, issue.String())
		}
		return fmt.Errorf("workflow has %d validation errors", len(result.Errors))
	}

	wi, err := e.StartWorkflowInstance(result.WorkflowID, variables)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(runTimeout)
	for !wi.Ended() && time.Now().Before(deadline) {
		if err := e.RunDueJobs(); err != nil {
			return err
		}
		wi, err = e.WorkflowInstance(wi.ID)
		if err != nil {
			return err
		}
		if !wi.Ended() {
			time.Sleep(100 * time.Millisecond)
		}
	}

	out, err := json.MarshalIndent(wi, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if !wi.Ended() {
		fmt.Fprintln(os.Stderr, "instance still open (waiting on messages or timers)")
	}
	return nil
}
