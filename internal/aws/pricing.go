package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	pricingtypes "github.com/aws/aws-sdk-go-v2/service/pricing/types"
)

// priceListItem maps the GetProducts price list fields we need.
type priceListItem struct {
	Terms struct {
		OnDemand map[string]struct {
			PriceDimensions map[string]struct {
				Unit         string            `json:"unit"`
				PricePerUnit map[string]string `json:"pricePerUnit"`
			} `json:"priceDimensions"`
		} `json:"OnDemand"`
	} `json:"terms"`
}

// onDemandPrice returns the Linux shared-tenancy on-demand hourly price.
func (p *Provider) onDemandPrice(ctx context.Context, instanceType string) (float64, error) {
	term := func(field, value string) pricingtypes.Filter {
		return pricingtypes.Filter{
			Type:  pricingtypes.FilterTypeTermMatch,
			Field: aws.String(field),
			Value: aws.String(value),
		}
	}

	output, err := p.pricingClient.GetProducts(ctx, &pricing.GetProductsInput{
		ServiceCode: aws.String("AmazonEC2"),
		Filters: []pricingtypes.Filter{
			term("instanceType", instanceType),
			term("regionCode", p.region),
			term("operatingSystem", "Linux"),
			term("tenancy", "Shared"),
			term("preInstalledSw", "NA"),
			term("capacitystatus", "Used"),
		},
		MaxResults: aws.Int32(10),
	})
	if err != nil {
		return 0, fmt.Errorf("getting products for %s: %w", instanceType, err)
	}

	for _, raw := range output.PriceList {
		if price, ok := parseOnDemandPrice(raw); ok {
			return price, nil
		}
	}
	return 0, fmt.Errorf("%w: on-demand %s in %s", ErrNoPrice, instanceType, p.region)
}

// parseOnDemandPrice extracts the first positive hourly USD price from one
// price list document.
func parseOnDemandPrice(raw string) (float64, bool) {
	var item priceListItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return 0, false
	}
	for _, offer := range item.Terms.OnDemand {
		for _, dim := range offer.PriceDimensions {
			if dim.Unit != "Hrs" {
				continue
			}
			price, err := strconv.ParseFloat(dim.PricePerUnit["USD"], 64)
			if err == nil && price > 0 {
				return price, true
			}
		}
	}
	return 0, false
}

// spotPrice returns the lowest current Linux spot price across availability
// zones.
func (p *Provider) spotPrice(ctx context.Context, instanceType string) (float64, error) {
	output, err := p.ec2Client.DescribeSpotPriceHistory(ctx, &ec2.DescribeSpotPriceHistoryInput{
		InstanceTypes:       []ec2types.InstanceType{ec2types.InstanceType(instanceType)},
		ProductDescriptions: []string{"Linux/UNIX"},
		StartTime:           aws.Time(time.Now()),
	})
	if err != nil {
		return 0, fmt.Errorf("describing spot prices for %s: %w", instanceType, err)
	}

	lowest := math.MaxFloat64
	for _, sp := range output.SpotPriceHistory {
		if sp.SpotPrice == nil {
			continue
		}
		price, err := strconv.ParseFloat(*sp.SpotPrice, 64)
		if err == nil && price > 0 && price < lowest {
			lowest = price
		}
	}
	if lowest == math.MaxFloat64 {
		return 0, fmt.Errorf("%w: spot %s in %s", ErrNoPrice, instanceType, p.region)
	}
	return lowest, nil
}
