// Package stack describes the deployable e-commerce stack as plain data.
//
// A Declaration lists the services, the compute units built from them, the
// routes binding API path prefixes to those units, and the stack outputs. It
// has no dependency on any deployment engine: the Pulumi program at the
// repository root materializes it, and cmd/stackplan renders it.
package stack

import (
	"fmt"
)

const (
	// Runtime and Handler are shared by every compute unit. Functions ship as
	// a custom-runtime "bootstrap" executable.
	Runtime = "provided.al2023"
	Handler = "bootstrap"

	DefaultArchitecture = "arm64"
	DefaultStage        = "prod"

	// OutputAPIURL names the exported base URL of the entry point.
	OutputAPIURL = "ApiUrl"
)

// ServiceDefinition identifies one deployable unit.
type ServiceDefinition struct {
	// Name is the short service name, also used as the resource name prefix.
	Name string `json:"name" yaml:"name"`
	// Resource is the logical name of the function in the stack.
	Resource string `json:"resource" yaml:"resource"`
	// SourcePath is the Go package directory built into the function.
	SourcePath string `json:"sourcePath" yaml:"sourcePath"`
}

// ComputeUnit is a function instantiated from a ServiceDefinition.
type ComputeUnit struct {
	Name         string            `json:"name" yaml:"name"`
	Service      ServiceDefinition `json:"service" yaml:"service"`
	Handler      string            `json:"handler" yaml:"handler"`
	Runtime      string            `json:"runtime" yaml:"runtime"`
	Architecture string            `json:"architecture" yaml:"architecture"`
}

// RouteBinding forwards requests under PathPrefix to the compute unit named
// by Target. With MatchesSubPaths set, any deeper path also matches.
type RouteBinding struct {
	PathPrefix      string `json:"pathPrefix" yaml:"pathPrefix"`
	Target          string `json:"target" yaml:"target"`
	MatchesSubPaths bool   `json:"matchesSubPaths" yaml:"matchesSubPaths"`
}

// EntryPoint is the single HTTP API all routed traffic enters through.
type EntryPoint struct {
	Name  string `json:"name" yaml:"name"`
	Title string `json:"title" yaml:"title"`
	Stage string `json:"stage" yaml:"stage"`
}

type Declaration struct {
	StackName    string              `json:"stackName" yaml:"stackName"`
	Architecture string              `json:"architecture" yaml:"architecture"`
	API          EntryPoint          `json:"api" yaml:"api"`
	Services     []ServiceDefinition `json:"services" yaml:"services"`
	Routes       []RouteBinding      `json:"routes" yaml:"routes"`
	Outputs      []string            `json:"outputs" yaml:"outputs"`
}

// Default returns the fixed e-commerce declaration: user, store and order,
// in that order.
func Default() Declaration {
	d := Declaration{
		StackName:    "ECommerceStack",
		Architecture: DefaultArchitecture,
		API: EntryPoint{
			Name:  "ECommerceApi",
			Title: "E-Commerce API",
			Stage: DefaultStage,
		},
		Outputs: []string{OutputAPIURL},
	}
	for _, s := range []struct{ name, resource, prefix string }{
		{"user", "UserService", "/users"},
		{"store", "StoreService", "/stores"},
		{"order", "OrderService", "/orders"},
	} {
		d.Services = append(d.Services, ServiceDefinition{
			Name:       s.name,
			Resource:   s.resource,
			SourcePath: fmt.Sprintf("./cmd/%s-service", s.name),
		})
		d.Routes = append(d.Routes, RouteBinding{
			PathPrefix:      s.prefix,
			Target:          s.name,
			MatchesSubPaths: true,
		})
	}
	return d
}

// ComputeUnits returns one unit per service, in declaration order.
func (d Declaration) ComputeUnits() []ComputeUnit {
	arch := d.Architecture
	if arch == "" {
		arch = DefaultArchitecture
	}
	units := make([]ComputeUnit, 0, len(d.Services))
	for _, svc := range d.Services {
		units = append(units, ComputeUnit{
			Name:         svc.Name,
			Service:      svc,
			Handler:      Handler,
			Runtime:      Runtime,
			Architecture: arch,
		})
	}
	return units
}

// Unit looks up a compute unit by name.
func (d Declaration) Unit(name string) (ComputeUnit, bool) {
	for _, u := range d.ComputeUnits() {
		if u.Name == name {
			return u, true
		}
	}
	return ComputeUnit{}, false
}

// RouteFor returns the binding targeting the named unit.
func (d Declaration) RouteFor(unit string) (RouteBinding, bool) {
	for _, r := range d.Routes {
		if r.Target == unit {
			return r, true
		}
	}
	return RouteBinding{}, false
}
