package main

import (
	"fmt"
	"path"
	"strings"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ecr"
	"github.com/pulumi/pulumi-command/sdk/go/command/local"
	"github.com/pulumi/pulumi-docker/sdk/v4/go/docker"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"ecommerce-stack/internal/stack"
)

// sharedSources is compiled into every service binary.
const sharedSources = "./internal"

type BuildArgs struct {
	packaging string
}

// Build turns service source trees into deployable artifacts.
type Build struct {
	args BuildArgs
	repo *ecr.Repository
}

// Artifact is the deployable code of one compute unit: a zip archive
// holding the bootstrap executable, or a container image.
type Artifact struct {
	code       pulumi.Archive
	image      *docker.Image
	sourceHash string
}

func NewBuild(ctx *pulumi.Context, args BuildArgs) (*Build, error) {
	b := &Build{args: args}
	if args.packaging != packagingImage {
		return b, nil
	}
	var err error
	b.repo, err = ecr.NewRepository(ctx, "registry", &ecr.RepositoryArgs{
		ForceDelete: pulumi.BoolPtr(true),
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating repo: %w", err)
	}
	return b, nil
}

func (b *Build) Artifact(ctx *pulumi.Context, unit stack.ComputeUnit) (*Artifact, error) {
	hash, err := hashSources(unit.Service.SourcePath, sharedSources)
	if err != nil {
		return nil, fmt.Errorf("Error hashing %s sources: %w", unit.Name, err)
	}
	if b.args.packaging == packagingImage {
		return b.imageArtifact(ctx, unit, hash)
	}
	return b.zipArtifact(ctx, unit, hash)
}

func assetDir(unit stack.ComputeUnit) string {
	return path.Join("asset", unit.Name)
}

// buildCommand cross-compiles unit into asset/<name>/bootstrap.
func buildCommand(unit stack.ComputeUnit, goarch string) string {
	dir := assetDir(unit)
	return strings.Join([]string{
		fmt.Sprintf("rm -rf %s && mkdir -p %s", dir, dir),
		fmt.Sprintf("GOOS=linux GOARCH=%s CGO_ENABLED=0 go build -mod=readonly -tags lambda.norpc -o ./%s/%s %s",
			goarch, dir, stack.Handler, unit.Service.SourcePath),
		fmt.Sprintf("chmod +x ./%s/%s", dir, stack.Handler),
	}, " && ")
}

func (b *Build) zipArtifact(ctx *pulumi.Context, unit stack.ComputeUnit, hash string) (*Artifact, error) {
	arch, err := goarch(unit.Architecture)
	if err != nil {
		return nil, err
	}
	bootstrap := path.Join(assetDir(unit), stack.Handler)
	_, err = local.Run(ctx, &local.RunArgs{
		Dir:        pulumi.StringRef("."),
		Command:    buildCommand(unit, arch),
		AssetPaths: []string{bootstrap},
	})
	if err != nil {
		return nil, fmt.Errorf("Error building %s: %w", unit.Name, err)
	}

	return &Artifact{
		code: pulumi.NewAssetArchive(map[string]interface{}{
			stack.Handler: pulumi.NewFileAsset("./" + bootstrap),
		}),
		sourceHash: hash,
	}, nil
}

func (b *Build) imageArtifact(ctx *pulumi.Context, unit stack.ComputeUnit, hash string) (*Artifact, error) {
	arch, err := goarch(unit.Architecture)
	if err != nil {
		return nil, err
	}
	authToken := ecr.GetAuthorizationTokenOutput(ctx, ecr.GetAuthorizationTokenOutputArgs{
		RegistryId: b.repo.RegistryId,
	})
	image, err := docker.NewImage(ctx, fmt.Sprintf("%s-image", unit.Name), &docker.ImageArgs{
		Registry: docker.RegistryArgs{
			Server:   b.repo.RepositoryUrl,
			Username: authToken.UserName(),
			Password: pulumi.ToSecret(authToken.ApplyT(func(authToken ecr.GetAuthorizationTokenResult) (*string, error) {
				return &authToken.Password, nil
			})).(pulumi.StringPtrOutput),
		},
		Build: docker.DockerBuildArgs{
			Platform:   pulumi.String("linux/" + arch),
			Context:    pulumi.String("."),
			Dockerfile: pulumi.String("Dockerfile"),
			Args: pulumi.StringMap{
				"SOURCE": pulumi.String(unit.Service.SourcePath),
				"GOARCH": pulumi.String(arch),
			},
		},
		ImageName: b.repo.RepositoryUrl.ApplyT(func(url string) string {
			return fmt.Sprintf("%s:%s-%s", url, unit.Name, hash[:12])
		}).(pulumi.StringOutput),
	})
	if err != nil {
		return nil, fmt.Errorf("Error building %s image: %w", unit.Name, err)
	}
	return &Artifact{image: image, sourceHash: hash}, nil
}
