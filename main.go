package main

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/apigateway"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"ecommerce-stack/internal/stack"
)

func main() {
	pulumi.Run(func(ctx *pulumi.Context) error {
		settings, err := loadSettings(ctx)
		if err != nil {
			return err
		}

		_, err = NewECommerceStack(ctx, stack.Default(), settings)
		return err
	})
}

type ECommerceStack struct {
	api       *Api
	functions []*ServiceFunction
	stage     *apigateway.Stage
}

// NewECommerceStack materializes decl: for each service in order it builds
// the artifact, declares the function, and binds its route on the shared API.
func NewECommerceStack(ctx *pulumi.Context, decl stack.Declaration, settings StackSettings) (*ECommerceStack, error) {
	decl.Architecture = settings.Architecture
	decl.API.Stage = settings.Stage
	if err := decl.Validate(); err != nil {
		return nil, fmt.Errorf("Error validating stack declaration: %w", err)
	}

	s := &ECommerceStack{}
	var network *Network
	var err error
	if settings.Vpc {
		network, err = NewNetwork(ctx)
		if err != nil {
			return nil, err
		}
	}

	build, err := NewBuild(ctx, BuildArgs{packaging: settings.Packaging})
	if err != nil {
		return nil, err
	}

	s.api, err = NewApi(ctx, ApiArgs{entry: decl.API})
	if err != nil {
		return nil, err
	}

	for _, unit := range decl.ComputeUnits() {
		route, err := routeFor(decl, unit)
		if err != nil {
			return nil, err
		}

		artifact, err := build.Artifact(ctx, unit)
		if err != nil {
			return nil, err
		}

		fn, err := NewServiceFunction(ctx, ServiceFunctionArgs{
			unit:     unit,
			route:    route,
			artifact: artifact,
			network:  network,
			logLevel: settings.LogLevel,
		})
		if err != nil {
			return nil, err
		}
		s.functions = append(s.functions, fn)

		if err := s.api.registerService(ctx, route, fn); err != nil {
			return nil, err
		}
	}

	s.stage, err = s.api.deploy(ctx, decl.API.Stage, decl.Fingerprint())
	if err != nil {
		return nil, err
	}
	ctx.Export(stack.OutputAPIURL, s.stage.InvokeUrl)

	return s, nil
}

func routeFor(decl stack.Declaration, unit stack.ComputeUnit) (stack.RouteBinding, error) {
	route, ok := decl.RouteFor(unit.Name)
	if !ok {
		return stack.RouteBinding{}, fmt.Errorf("Error routing %s: %w", unit.Name, stack.ErrUnroutedService)
	}
	return route, nil
}
