package main

import (
	"strings"
	"testing"

	"github.com/pulumi/pulumi/sdk/v3/go/common/resource"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-stack/internal/stack"
)

type mocks int

func (mocks) NewResource(args pulumi.MockResourceArgs) (string, resource.PropertyMap, error) {
	outputs := args.Inputs.Copy()
	switch args.TypeToken {
	case "aws:apigateway/restApi:RestApi":
		outputs["rootResourceId"] = resource.NewStringProperty("root")
		outputs["executionArn"] = resource.NewStringProperty("arn:aws:execute-api:us-east-1:123456789012:abc123")
	case "aws:lambda/function:Function":
		arn := "arn:aws:lambda:us-east-1:123456789012:function:" + args.Name
		outputs["name"] = resource.NewStringProperty(args.Name)
		outputs["arn"] = resource.NewStringProperty(arn)
		outputs["invokeArn"] = resource.NewStringProperty("arn:aws:apigateway:us-east-1:lambda:path/2015-03-31/functions/" + arn + "/invocations")
	case "aws:iam/role:Role":
		outputs["arn"] = resource.NewStringProperty("arn:aws:iam::123456789012:role/" + args.Name)
	case "aws:apigateway/stage:Stage":
		outputs["invokeUrl"] = resource.NewStringProperty("https://abc123.execute-api.us-east-1.amazonaws.com/" + args.Inputs["stageName"].StringValue())
	case "aws:ecr/repository:Repository":
		outputs["registryId"] = resource.NewStringProperty("123456789012")
		outputs["repositoryUrl"] = resource.NewStringProperty("123456789012.dkr.ecr.us-east-1.amazonaws.com/registry")
	case "docker:index/image:Image":
		outputs["repoDigest"] = resource.NewStringProperty("123456789012.dkr.ecr.us-east-1.amazonaws.com/registry@sha256:" + strings.Repeat("a", 64))
	case "awsx:ec2:Vpc":
		outputs["vpcId"] = resource.NewStringProperty("vpc-123")
		outputs["privateSubnetIds"] = resource.NewArrayProperty([]resource.PropertyValue{
			resource.NewStringProperty("subnet-a"),
			resource.NewStringProperty("subnet-b"),
		})
	}
	return args.Name + "_id", outputs, nil
}

func (mocks) Call(args pulumi.MockCallArgs) (resource.PropertyMap, error) {
	switch args.Token {
	case "aws:iam/getPolicyDocument:getPolicyDocument":
		return resource.PropertyMap{
			"json": resource.NewStringProperty(`{"Version":"2012-10-17","Statement":[]}`),
		}, nil
	case "aws:ecr/getAuthorizationToken:getAuthorizationToken":
		return resource.PropertyMap{
			"userName": resource.NewStringProperty("AWS"),
			"password": resource.NewStringProperty("secret"),
		}, nil
	case "command:local:run":
		return resource.PropertyMap{
			"command": args.Args["command"],
			"stdout":  resource.NewStringProperty(""),
			"stderr":  resource.NewStringProperty(""),
		}, nil
	}
	return resource.PropertyMap{}, nil
}

// await blocks until out resolves and returns its value.
func await(out pulumi.Output) interface{} {
	ch := make(chan interface{}, 1)
	out.ApplyT(func(v interface{}) interface{} {
		ch <- v
		return v
	})
	return <-ch
}

// str reads a resolved string, *string or ID output.
func str(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case pulumi.ID:
		return string(s)
	case *string:
		if s != nil {
			return *s
		}
	}
	return ""
}

func runStack(t *testing.T, decl stack.Declaration, settings StackSettings, check func(*ECommerceStack)) error {
	t.Helper()
	return pulumi.RunErr(func(ctx *pulumi.Context) error {
		s, err := NewECommerceStack(ctx, decl, settings)
		if err != nil {
			return err
		}
		check(s)
		return nil
	}, pulumi.WithMocks("ecommerce-stack", "test", mocks(0)))
}

func TestStack_ZipPackaging(t *testing.T) {
	err := runStack(t, stack.Default(), defaultSettings(), func(s *ECommerceStack) {
		require.Len(t, s.functions, 3)
		require.Len(t, s.api.routes, 3)

		wantUnits := []string{"user", "store", "order"}
		wantParts := []string{"users", "stores", "orders"}
		for i, fn := range s.functions {
			assert.Equal(t, wantUnits[i], fn.unit.Name)
			assert.Equal(t, stack.Handler, *await(fn.function.Handler).(*string))
			assert.Equal(t, stack.Runtime, *await(fn.function.Runtime).(*string))
			assert.Equal(t, []string{"arm64"}, await(fn.function.Architectures))

			env := await(fn.function.Environment.Variables()).(map[string]string)
			assert.Equal(t, "/"+wantParts[i], env["BASE_PATH"])
			assert.Equal(t, "info", env["LOG_LEVEL"])

			tags := await(fn.function.Tags).(map[string]string)
			assert.Equal(t, wantUnits[i], tags["service"])
			assert.Len(t, tags["source-hash"], 64)

			route := s.api.routes[i]
			assert.Equal(t, wantUnits[i], route.binding.Target)
			assert.Equal(t, wantParts[i], await(route.resource.PathPart))
			require.NotNil(t, route.proxy)
			assert.Equal(t, "{proxy+}", await(route.proxy.PathPart))

			// Prefix and {proxy+} both accept ANY and proxy to this unit only.
			invokeArn := str(await(fn.function.InvokeArn))
			require.Contains(t, invokeArn, ":function:"+fn.unit.Service.Resource+"/")
			require.Len(t, route.methods, 2)
			require.Len(t, route.integrations, 2)
			for j := range route.methods {
				assert.Equal(t, "ANY", str(await(route.methods[j].HttpMethod)))
				assert.Equal(t, "NONE", str(await(route.methods[j].Authorization)))
				assert.Equal(t, "AWS_PROXY", str(await(route.integrations[j].Type)))
				assert.Equal(t, "POST", str(await(route.integrations[j].IntegrationHttpMethod)))
				assert.Equal(t, invokeArn, str(await(route.integrations[j].Uri)))
			}
			assert.Equal(t, "path-"+wantParts[i]+"_id", str(await(route.integrations[0].ResourceId)))
			assert.Equal(t, wantUnits[i]+"-proxy_id", str(await(route.integrations[1].ResourceId)))

			require.NotNil(t, route.permission)
			assert.Equal(t, "lambda:InvokeFunction", str(await(route.permission.Action)))
			assert.Equal(t, "apigateway.amazonaws.com", str(await(route.permission.Principal)))
			assert.Equal(t, str(await(fn.function.Name)), str(await(route.permission.Function)))
			assert.Equal(t, "arn:aws:execute-api:us-east-1:123456789012:abc123/*/*", str(await(route.permission.SourceArn)))
		}

		assert.Equal(t, "https://abc123.execute-api.us-east-1.amazonaws.com/prod", await(s.stage.InvokeUrl))
	})
	require.NoError(t, err)
}

func TestStack_ImagePackaging(t *testing.T) {
	settings := defaultSettings()
	settings.Packaging = packagingImage
	settings.Architecture = "x86_64"

	err := runStack(t, stack.Default(), settings, func(s *ECommerceStack) {
		require.Len(t, s.functions, 3)
		for _, fn := range s.functions {
			assert.Equal(t, "Image", *await(fn.function.PackageType).(*string))
			assert.Contains(t, *await(fn.function.ImageUri).(*string), "@sha256:")
			assert.Equal(t, []string{"x86_64"}, await(fn.function.Architectures))
		}
	})
	require.NoError(t, err)
}

func TestStack_Vpc(t *testing.T) {
	settings := defaultSettings()
	settings.Vpc = true

	err := runStack(t, stack.Default(), settings, func(s *ECommerceStack) {
		require.Len(t, s.functions, 3)
		subnets := await(s.functions[0].function.VpcConfig.SubnetIds()).([]string)
		assert.Equal(t, []string{"subnet-a", "subnet-b"}, subnets)
	})
	require.NoError(t, err)
}

func TestStack_CustomStage(t *testing.T) {
	settings := defaultSettings()
	settings.Stage = "dev"

	err := runStack(t, stack.Default(), settings, func(s *ECommerceStack) {
		assert.Equal(t, "https://abc123.execute-api.us-east-1.amazonaws.com/dev", await(s.stage.InvokeUrl))
	})
	require.NoError(t, err)
}

func TestStack_RejectsInvalidDeclaration(t *testing.T) {
	decl := stack.Default()
	decl.Routes[1].PathPrefix = "/users"

	called := false
	err := runStack(t, decl, defaultSettings(), func(*ECommerceStack) { called = true })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlapping route prefixes")
	assert.False(t, called)
}
