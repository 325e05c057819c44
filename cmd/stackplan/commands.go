package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ecommerce-stack/internal/service"
	"ecommerce-stack/internal/stack"
)

type plan struct {
	stack.Declaration `yaml:",inline"`
	ComputeUnits      []stack.ComputeUnit `json:"computeUnits" yaml:"computeUnits"`
	Fingerprint       string              `json:"fingerprint" yaml:"fingerprint"`
}

func newRenderCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the stack declaration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := stack.Default()
			p := plan{Declaration: d, ComputeUnits: d.ComputeUnits(), Fingerprint: d.Fingerprint()}
			out := cmd.OutOrStdout()
			switch format {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(p); err != nil {
					return fmt.Errorf("encode yaml: %w", err)
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			default:
				return fmt.Errorf("unknown format %q (expected yaml or json)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format: yaml or json")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the declaration's invariants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := stack.Default()
			if err := d.Validate(); err != nil {
				return fmt.Errorf("invalid declaration: %w", err)
			}
			if err := checkServices(d); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d services, %d routes ok\n", d.StackName, len(d.Services), len(d.Routes))
			return nil
		},
	}
}

// checkServices matches each declared service to a built service binary
// whose default base path is the prefix the route binds.
func checkServices(d stack.Declaration) error {
	for _, def := range d.Services {
		cfg, ok := service.Lookup(def.Name)
		if !ok {
			return fmt.Errorf("service %q has no binary", def.Name)
		}
		route, ok := d.RouteFor(def.Name)
		if !ok {
			return fmt.Errorf("service %q has no route", def.Name)
		}
		if route.PathPrefix != cfg.BasePath {
			return fmt.Errorf("service %q is routed at %s but %s defaults to base path %s",
				def.Name, route.PathPrefix, cfg.Name, cfg.BasePath)
		}
	}
	return nil
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve PATH...",
		Short: "Show which compute unit each request path reaches",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := stack.Default()
			var misses int
			for _, p := range args {
				m, ok := d.Resolve(p)
				if !ok {
					misses++
					fmt.Fprintf(cmd.OutOrStdout(), "%s -> no route (404)\n", p)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s) as %s\n", p, m.Unit.Name, m.Unit.Service.Resource, m.ForwardedPath)
			}
			if misses > 0 {
				return fmt.Errorf("%d of %d paths matched no route", misses, len(args))
			}
			return nil
		},
	}
}
