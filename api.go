package main

import (
	"fmt"
	"strings"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/apigateway"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/lambda"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"ecommerce-stack/internal/stack"
)

type ApiArgs struct {
	entry stack.EntryPoint
}

// Api is the REST API every service route hangs off.
type Api struct {
	api *apigateway.RestApi
	// paths caches path resources by full path so routes sharing a parent
	// segment reuse it.
	paths  map[string]*apigateway.Resource
	routes []*Route
	// deps must exist before the API can be deployed.
	deps []pulumi.Resource
}

// Route is the materialized form of one RouteBinding. methods and
// integrations hold the prefix entry first, then the {proxy+} entry.
type Route struct {
	binding      stack.RouteBinding
	resource     *apigateway.Resource
	proxy        *apigateway.Resource
	methods      []*apigateway.Method
	integrations []*apigateway.Integration
	permission   *lambda.Permission
}

func NewApi(ctx *pulumi.Context, args ApiArgs) (*Api, error) {
	api := &Api{paths: map[string]*apigateway.Resource{}}
	var err error
	api.api, err = apigateway.NewRestApi(ctx, args.entry.Name, &apigateway.RestApiArgs{
		Name:        pulumi.String(args.entry.Title),
		Description: pulumi.String(fmt.Sprintf("%s routing to the service functions", args.entry.Title)),
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating api: %w", err)
	}
	return api, nil
}

// resourceFor returns the resource at prefix, creating each missing segment.
func (a *Api) resourceFor(ctx *pulumi.Context, prefix string) (*apigateway.Resource, error) {
	var parent *apigateway.Resource
	full := ""
	for _, part := range strings.Split(strings.Trim(prefix, "/"), "/") {
		full += "/" + part
		if r, ok := a.paths[full]; ok {
			parent = r
			continue
		}
		var parentID pulumi.StringInput = a.api.RootResourceId
		if parent != nil {
			parentID = parent.ID()
		}
		r, err := apigateway.NewResource(ctx, resourceName(full), &apigateway.ResourceArgs{
			RestApi:  a.api.ID(),
			ParentId: parentID,
			PathPart: pulumi.String(part),
		})
		if err != nil {
			return nil, fmt.Errorf("Error creating resource %s: %w", full, err)
		}
		a.paths[full] = r
		parent = r
	}
	return parent, nil
}

func resourceName(path string) string {
	return "path" + strings.NewReplacer("/", "-", "{", "", "}", "", "+", "").Replace(path)
}

// anyMethod accepts every HTTP method on res and proxies it to fn.
func (a *Api) anyMethod(ctx *pulumi.Context, name string, route *Route, res *apigateway.Resource, fn *ServiceFunction) error {
	method, err := apigateway.NewMethod(ctx, fmt.Sprintf("%s-method", name), &apigateway.MethodArgs{
		RestApi:       a.api.ID(),
		ResourceId:    res.ID(),
		HttpMethod:    pulumi.String("ANY"),
		Authorization: pulumi.String("NONE"),
	})
	if err != nil {
		return fmt.Errorf("Error creating method: %w", err)
	}

	integration, err := apigateway.NewIntegration(ctx, fmt.Sprintf("%s-integration", name), &apigateway.IntegrationArgs{
		RestApi:               a.api.ID(),
		ResourceId:            res.ID(),
		HttpMethod:            method.HttpMethod,
		IntegrationHttpMethod: pulumi.String("POST"),
		Type:                  pulumi.String("AWS_PROXY"),
		Uri:                   fn.function.InvokeArn,
	})
	if err != nil {
		return fmt.Errorf("Error creating integration: %w", err)
	}

	route.methods = append(route.methods, method)
	route.integrations = append(route.integrations, integration)
	a.deps = append(a.deps, method, integration)
	return nil
}

// registerService binds route to fn: the prefix itself and, when the
// binding matches sub-paths, a {proxy+} child below it.
func (a *Api) registerService(ctx *pulumi.Context, binding stack.RouteBinding, fn *ServiceFunction) error {
	name := fn.unit.Name
	route := &Route{binding: binding}

	var err error
	route.resource, err = a.resourceFor(ctx, binding.PathPrefix)
	if err != nil {
		return err
	}
	if err := a.anyMethod(ctx, name, route, route.resource, fn); err != nil {
		return err
	}

	if binding.MatchesSubPaths {
		route.proxy, err = apigateway.NewResource(ctx, fmt.Sprintf("%s-proxy", name), &apigateway.ResourceArgs{
			RestApi:  a.api.ID(),
			ParentId: route.resource.ID(),
			PathPart: pulumi.String("{proxy+}"),
		})
		if err != nil {
			return fmt.Errorf("Error creating proxy resource: %w", err)
		}
		if err := a.anyMethod(ctx, fmt.Sprintf("%s-proxy", name), route, route.proxy, fn); err != nil {
			return err
		}
	}

	route.permission, err = lambda.NewPermission(ctx, fmt.Sprintf("%s-apigw-permission", name), &lambda.PermissionArgs{
		Action:    pulumi.String("lambda:InvokeFunction"),
		Function:  fn.function.Name,
		Principal: pulumi.String("apigateway.amazonaws.com"),
		SourceArn: pulumi.Sprintf("%s/*/*", a.api.ExecutionArn),
	})
	if err != nil {
		return fmt.Errorf("Error creating permission: %w", err)
	}

	a.routes = append(a.routes, route)
	return nil
}

// deploy snapshots the API into a stage. The fingerprint forces a new
// deployment whenever the declared routes change.
func (a *Api) deploy(ctx *pulumi.Context, stageName, fingerprint string) (*apigateway.Stage, error) {
	deployment, err := apigateway.NewDeployment(ctx, "deployment", &apigateway.DeploymentArgs{
		RestApi: a.api.ID(),
		Triggers: pulumi.StringMap{
			"redeployment": pulumi.String(fingerprint),
		},
	}, pulumi.DependsOn(a.deps))
	if err != nil {
		return nil, fmt.Errorf("Error creating deployment: %w", err)
	}

	stage, err := apigateway.NewStage(ctx, "stage", &apigateway.StageArgs{
		RestApi:    a.api.ID(),
		Deployment: deployment.ID(),
		StageName:  pulumi.String(stageName),
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating stage: %w", err)
	}
	return stage, nil
}
