package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/artpar/bgplan/internal/core/auth"
	"github.com/artpar/bgplan/internal/core/bluegreen"
	"github.com/artpar/bgplan/internal/core/domain"
	"github.com/artpar/bgplan/internal/core/render"
	"github.com/artpar/bgplan/internal/shell/planning"
)

// Output formats of the plan command.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatVars = "vars"
)

// planOutput is what the plan command prints in json and yaml formats.
type planOutput struct {
	Plan      *domain.PlanRecord `json:"plan" yaml:"plan"`
	Variables []render.Variable  `json:"variables,omitempty" yaml:"variables,omitempty"`
}

func runPlan(ctx context.Context, cfg *Config, logger *slog.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	service := fs.String("service", "", "Service whose deployment is planned")
	action := fs.String("action", "", "do_nothing, deploy_to_staging, destroy_staging, deploy_to_active or roll_back_to_previous")
	digest := fs.String("digest", "", "Docker image digest (64 hex characters) for deploy_to_staging")
	arn := fs.String("arn", "", "ECS task definition ARN for deploy_to_staging")
	format := fs.String("format", FormatJSON, "Output format: json, yaml or vars")
	requestedBy := fs.String("requested-by", os.Getenv("USER"), "Caller recorded with the plan")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitConfigError
	}

	switch *format {
	case FormatJSON, FormatYAML, FormatVars:
	default:
		fmt.Fprintf(stderr, "unknown format %q (json, yaml or vars)\n", *format)
		return ExitConfigError
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitCode(err)
	}
	defer a.Close()

	ctx = auth.WithCaller(ctx, *requestedBy)
	record, err := a.planner.Plan(ctx, *service, domain.DeploymentRequest{
		Action:            domain.Action(*action),
		DockerImageDigest: *digest,
		TaskDefinitionArn: *arn,
	})
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return planExitCode(err)
	}

	if err := writePlan(stdout, *format, record); err != nil {
		fmt.Fprintf(stderr, "failed to write plan: %v\n", err)
		return ExitConfigError
	}
	return ExitSuccess
}

// planExitCode maps a planning failure to the process exit code.
func planExitCode(err error) int {
	switch {
	case errors.Is(err, planning.ErrRecordFailed):
		return ExitDatabaseError
	case errors.Is(err, bluegreen.ErrIllegalStateTransition):
		return ExitIllegalTransition
	case errors.Is(err, bluegreen.ErrInvalidRequest):
		return ExitInvalidRequest
	default:
		return ExitConfigError
	}
}

// writePlan prints an accepted plan in the requested format.
func writePlan(w io.Writer, format string, record *domain.PlanRecord) error {
	var vars []render.Variable
	if record.Future != nil {
		vars = render.Variables(record.Service, *record.Future)
	}

	switch format {
	case FormatVars:
		for _, v := range vars {
			if _, err := fmt.Fprintf(w, "%s=%s\n", v.Name, v.Value); err != nil {
				return err
			}
		}
		return nil

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(planOutput{Plan: record, Variables: vars}); err != nil {
			return err
		}
		return enc.Close()

	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(planOutput{Plan: record, Variables: vars})
	}
}
