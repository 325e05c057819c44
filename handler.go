package main

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/iam"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/lambda"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"ecommerce-stack/internal/stack"
)

const vpcAccessPolicyArn = "arn:aws:iam::aws:policy/service-role/AWSLambdaVPCAccessExecutionRole"

// ServiceFunction is the Lambda function of one compute unit.
type ServiceFunction struct {
	unit     stack.ComputeUnit
	function *lambda.Function
}

type ServiceFunctionArgs struct {
	unit     stack.ComputeUnit
	route    stack.RouteBinding
	artifact *Artifact
	network  *Network
	logLevel string
}

func NewServiceFunction(ctx *pulumi.Context, args ServiceFunctionArgs) (*ServiceFunction, error) {
	sf := &ServiceFunction{unit: args.unit}
	name := args.unit.Name

	assumeRolePolicy, err := iam.GetPolicyDocument(ctx, &iam.GetPolicyDocumentArgs{
		Statements: []iam.GetPolicyDocumentStatement{
			{
				Actions: []string{"sts:AssumeRole"},
				Principals: []iam.GetPolicyDocumentStatementPrincipal{
					{Type: "Service", Identifiers: []string{"lambda.amazonaws.com"}},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating AssumeRolePolicy: %w", err)
	}
	policies := []string{string(iam.ManagedPolicyAWSLambdaBasicExecutionRole)}
	if args.network != nil {
		policies = append(policies, vpcAccessPolicyArn)
	}
	executionRole, err := iam.NewRole(ctx, fmt.Sprintf("%s-execution-role", name), &iam.RoleArgs{
		AssumeRolePolicy:  pulumi.String(assumeRolePolicy.Json),
		ManagedPolicyArns: pulumi.ToStringArray(policies),
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating %s execution role: %w", name, err)
	}

	fnArgs := &lambda.FunctionArgs{
		Description:   pulumi.String(fmt.Sprintf("%s service behind %s", name, args.route.PathPrefix)),
		Architectures: pulumi.ToStringArray([]string{args.unit.Architecture}),
		Role:          executionRole.Arn,
		MemorySize:    pulumi.IntPtr(128),
		Timeout:       pulumi.IntPtr(10),
		Environment: &lambda.FunctionEnvironmentArgs{
			Variables: pulumi.StringMap{
				"BASE_PATH": pulumi.String(args.route.PathPrefix),
				"LOG_LEVEL": pulumi.String(args.logLevel),
			},
		},
		Tags: pulumi.StringMap{
			"service":     pulumi.String(name),
			"source-hash": pulumi.String(args.artifact.sourceHash),
		},
	}
	opts := []pulumi.ResourceOption{}
	if args.artifact.image != nil {
		fnArgs.PackageType = pulumi.String("Image")
		fnArgs.ImageUri = args.artifact.image.RepoDigest
		opts = append(opts, pulumi.DependsOn([]pulumi.Resource{args.artifact.image}))
	} else {
		fnArgs.Code = args.artifact.code
		fnArgs.Handler = pulumi.String(args.unit.Handler)
		fnArgs.Runtime = pulumi.String(args.unit.Runtime)
	}
	if args.network != nil {
		fnArgs.VpcConfig = &lambda.FunctionVpcConfigArgs{
			SubnetIds:        args.network.vpc.PrivateSubnetIds,
			SecurityGroupIds: pulumi.StringArray{args.network.sg.ID()},
		}
	}

	resourceName := args.unit.Service.Resource
	if resourceName == "" {
		resourceName = name
	}
	sf.function, err = lambda.NewFunction(ctx, resourceName, fnArgs, opts...)
	if err != nil {
		return nil, fmt.Errorf("Error creating %s lambda function: %w", name, err)
	}

	return sf, nil
}
