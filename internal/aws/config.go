package aws

import (
	"context"
	"fmt"
	"os"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

const (
	defaultRegion = "eu-west-3"
	// LocalStack accepts any key pair.
	localAccessKey = "test"
)

// Settings are the AWS knobs read from the environment.
type Settings struct {
	Region   string
	Endpoint string // AWS_ENDPOINT_OVERRIDE, e.g. LocalStack
}

func SettingsFromEnv() Settings {
	s := Settings{
		Region:   strings.TrimSpace(os.Getenv("AWS_REGION")),
		Endpoint: strings.TrimSpace(os.Getenv("AWS_ENDPOINT_OVERRIDE")),
	}
	if s.Region == "" {
		s.Region = defaultRegion
	}
	return s
}

// Local reports whether clients talk to an emulator instead of AWS.
func (s Settings) Local() bool { return s.Endpoint != "" }

// LoadAWSConfig builds the SDK config for s. Against an emulator with no
// credentials in the environment, static dummy credentials are used.
func LoadAWSConfig(ctx context.Context, s Settings) (sdkaws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(s.Region)}
	if s.Local() && os.Getenv("AWS_ACCESS_KEY_ID") == "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(localAccessKey, localAccessKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return cfg, fmt.Errorf("load aws config for %s: %w", s.Region, err)
	}
	return cfg, nil
}
