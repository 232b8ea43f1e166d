package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/rs/zerolog"

	"github.com/guimove/capsim/internal/model"
)

const credentialCheckTimeout = 3 * time.Second

var (
	ErrAWSCredentials      = errors.New("AWS credentials not found; set AWS_PROFILE, run 'aws sso login', or configure ~/.aws/credentials")
	ErrUnknownInstanceType = errors.New("unknown instance type")
	ErrNoPrice             = errors.New("no price found")
)

// ec2API is a minimal interface for the EC2 calls we need.
type ec2API interface {
	DescribeInstanceTypes(ctx context.Context, params *ec2.DescribeInstanceTypesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstanceTypesOutput, error)
	DescribeSpotPriceHistory(ctx context.Context, params *ec2.DescribeSpotPriceHistoryInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSpotPriceHistoryOutput, error)
}

// pricingAPI is a minimal interface for the Pricing API calls we need.
type pricingAPI interface {
	GetProducts(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error)
}

// Provider resolves EC2 instance types into node capacities.
type Provider struct {
	ec2Client     ec2API
	pricingClient pricingAPI
	region        string
	cache         *FileCache
	cacheTTL      time.Duration
	logger        zerolog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithCache stores resolved capacities under dir for ttl.
func WithCache(dir string, ttl time.Duration) Option {
	return func(p *Provider) {
		if dir != "" && ttl > 0 {
			p.cache = NewFileCache(dir)
			p.cacheTTL = ttl
		}
	}
}

// WithLogger sets the provider logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// NewProvider creates a provider using the default AWS SDK config chain.
// IMDS (EC2 metadata) is disabled to avoid long timeouts when running locally.
// On EC2, use environment variables or instance profile via AWS_PROFILE.
func NewProvider(ctx context.Context, region string, opts ...Option) (*Provider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithEC2IMDSClientEnableState(imds.ClientDisabled),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAWSCredentials, err)
	}

	// Verify credentials are available before making any API calls
	credCtx, cancel := context.WithTimeout(ctx, credentialCheckTimeout)
	defer cancel()
	if _, err := cfg.Credentials.Retrieve(credCtx); err != nil {
		return nil, ErrAWSCredentials
	}

	// Pricing API is only available in us-east-1
	pricingCfg := cfg.Copy()
	pricingCfg.Region = "us-east-1"

	return newProvider(ec2.NewFromConfig(cfg), pricing.NewFromConfig(pricingCfg), region, opts...), nil
}

func newProvider(ec2Client ec2API, pricingClient pricingAPI, region string, opts ...Option) *Provider {
	p := &Provider{
		ec2Client:     ec2Client,
		pricingClient: pricingClient,
		region:        region,
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Region returns the AWS region.
func (p *Provider) Region() string {
	return p.region
}

// NodeCapacity resolves an instance type into its raw capacity, the kubelet
// reservation EKS applies to it, and its hourly prices. A missing price is
// logged and left at zero.
func (p *Provider) NodeCapacity(ctx context.Context, instanceType string) (model.NodeCapacity, error) {
	key := "capacity-" + p.region + "-" + instanceType

	var nc model.NodeCapacity
	if p.cache != nil && p.cache.Get(key, p.cacheTTL, &nc) {
		p.logger.Debug().Str("instance_type", instanceType).Msg("capacity served from cache")
		return nc, nil
	}

	info, err := p.describeInstanceType(ctx, instanceType)
	if err != nil {
		return model.NodeCapacity{}, err
	}
	nc = info.capacity()

	if price, err := p.onDemandPrice(ctx, instanceType); err != nil {
		p.logger.Warn().Err(err).Str("instance_type", instanceType).Msg("on-demand price unavailable")
	} else {
		nc.PricePerHour = price
	}
	if price, err := p.spotPrice(ctx, instanceType); err != nil {
		p.logger.Debug().Err(err).Str("instance_type", instanceType).Msg("spot price unavailable")
	} else {
		nc.SpotPricePerHour = price
	}

	if p.cache != nil {
		if err := p.cache.Set(key, nc); err != nil {
			p.logger.Warn().Err(err).Msg("caching node capacity")
		}
	}
	return nc, nil
}
