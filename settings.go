package main

import (
	"fmt"

	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"

	"ecommerce-stack/internal/logging"
	"ecommerce-stack/internal/stack"
)

const (
	packagingZip   = "zip"
	packagingImage = "image"
)

// StackSettings is read from the Pulumi stack configuration.
type StackSettings struct {
	Stage        string
	Architecture string
	// Packaging is "zip" (cross-compiled bootstrap) or "image" (container
	// image pushed to ECR).
	Packaging string
	LogLevel  string
	// Vpc places the functions in private subnets of a new VPC.
	Vpc bool
}

func defaultSettings() StackSettings {
	return StackSettings{
		Stage:        stack.DefaultStage,
		Architecture: stack.DefaultArchitecture,
		Packaging:    packagingZip,
		LogLevel:     "info",
	}
}

func loadSettings(ctx *pulumi.Context) (StackSettings, error) {
	cfg := config.New(ctx, "")
	s := defaultSettings()
	if v := cfg.Get("stage"); v != "" {
		s.Stage = v
	}
	if v := cfg.Get("architecture"); v != "" {
		s.Architecture = v
	}
	if v := cfg.Get("packaging"); v != "" {
		s.Packaging = v
	}
	if v := cfg.Get("logLevel"); v != "" {
		s.LogLevel = v
	}
	s.Vpc = cfg.GetBool("vpc")
	return s, s.validate()
}

func (s StackSettings) validate() error {
	if _, err := goarch(s.Architecture); err != nil {
		return err
	}
	switch s.Packaging {
	case packagingZip, packagingImage:
	default:
		return fmt.Errorf("unknown packaging %q (expected zip or image)", s.Packaging)
	}
	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		return err
	}
	if s.Stage == "" {
		return fmt.Errorf("stage name required")
	}
	return nil
}

// goarch maps a Lambda architecture to the Go toolchain's GOARCH.
func goarch(architecture string) (string, error) {
	switch architecture {
	case "arm64":
		return "arm64", nil
	case "x86_64":
		return "amd64", nil
	}
	return "", fmt.Errorf("unknown architecture %q (expected arm64 or x86_64)", architecture)
}
