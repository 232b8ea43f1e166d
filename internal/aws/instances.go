package aws

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/guimove/capsim/internal/model"
)

const mibPerGiB = 1024.0

// instanceInfo is the part of an EC2 instance type description we use.
type instanceInfo struct {
	InstanceType string
	VCPUs        int32
	MemoryMiB    int64
	Architecture string
	MaxENIs      int32
	IPv4PerENI   int32
}

// capacity converts the description to a node capacity. CPU is in cores and
// memory in GiB.
func (i instanceInfo) capacity() model.NodeCapacity {
	return model.NodeCapacity{
		Name:   i.InstanceType,
		Source: "aws",
		CPU:    float64(i.VCPUs),
		Mem:    float64(i.MemoryMiB) / mibPerGiB,
		SystemRequest: model.Resources{
			CPU: reservedCPU(i.VCPUs),
			Mem: reservedMemory(i.MemoryMiB),
		},
		Architecture: i.Architecture,
		MaxPods:      int(ComputeMaxPods(i.MaxENIs, i.IPv4PerENI)),
	}
}

// describeInstanceType fetches one instance type from EC2.
func (p *Provider) describeInstanceType(ctx context.Context, instanceType string) (instanceInfo, error) {
	if _, _, size := parseInstanceType(instanceType); size == "" {
		return instanceInfo{}, fmt.Errorf("%w: %q", ErrUnknownInstanceType, instanceType)
	}

	output, err := p.ec2Client.DescribeInstanceTypes(ctx, &ec2.DescribeInstanceTypesInput{
		InstanceTypes: []ec2types.InstanceType{ec2types.InstanceType(instanceType)},
	})
	if err != nil {
		return instanceInfo{}, fmt.Errorf("describing instance type %s: %w", instanceType, err)
	}
	if len(output.InstanceTypes) == 0 {
		return instanceInfo{}, fmt.Errorf("%w: %q", ErrUnknownInstanceType, instanceType)
	}
	return convertInstanceType(output.InstanceTypes[0]), nil
}

// convertInstanceType maps an EC2 InstanceTypeInfo to instanceInfo.
func convertInstanceType(it ec2types.InstanceTypeInfo) instanceInfo {
	info := instanceInfo{InstanceType: string(it.InstanceType)}

	if it.VCpuInfo != nil && it.VCpuInfo.DefaultVCpus != nil {
		info.VCPUs = *it.VCpuInfo.DefaultVCpus
	}
	if it.MemoryInfo != nil && it.MemoryInfo.SizeInMiB != nil {
		info.MemoryMiB = *it.MemoryInfo.SizeInMiB
	}
	if it.NetworkInfo != nil {
		if it.NetworkInfo.MaximumNetworkInterfaces != nil {
			info.MaxENIs = *it.NetworkInfo.MaximumNetworkInterfaces
		}
		if it.NetworkInfo.Ipv4AddressesPerInterface != nil {
			info.IPv4PerENI = *it.NetworkInfo.Ipv4AddressesPerInterface
		}
	}
	if it.ProcessorInfo != nil {
		for _, arch := range it.ProcessorInfo.SupportedArchitectures {
			switch arch {
			case ec2types.ArchitectureTypeX8664:
				info.Architecture = "amd64"
			case ec2types.ArchitectureTypeArm64:
				info.Architecture = "arm64"
			}
		}
	}
	return info
}

// ComputeMaxPods calculates the maximum pods for an instance using the EKS standard formula.
func ComputeMaxPods(maxENIs, ipv4PerENI int32) int32 {
	if maxENIs == 0 || ipv4PerENI == 0 {
		return 110 // Kubernetes default
	}
	maxPods := (maxENIs * ipv4PerENI) - 1
	if maxPods > 250 {
		maxPods = 250
	}
	if maxPods < 1 {
		maxPods = 1
	}
	return maxPods
}

// reservedCPU applies the EKS kubelet CPU reservation formula, in cores.
// Reserve: 6% of the first core, 1% of the next, 0.5% of the next 2, 0.25% of the rest.
func reservedCPU(vcpus int32) float64 {
	remaining := float64(vcpus)
	var reserved float64

	for _, tier := range []struct{ cores, share float64 }{
		{1, 0.06}, {1, 0.01}, {2, 0.005},
	} {
		chunk := min(remaining, tier.cores)
		if chunk <= 0 {
			break
		}
		reserved += chunk * tier.share
		remaining -= chunk
	}
	if remaining > 0 {
		reserved += remaining * 0.0025
	}
	return reserved
}

// reservedMemory applies the kubelet memory reservation tiers, in GiB.
// 255MiB base + 25% of first 4GiB + 20% of next 4GiB + 10% of next 8GiB + 6% of next 112GiB + 2% above.
// It never exceeds the machine memory.
func reservedMemory(memoryMiB int64) float64 {
	total := float64(memoryMiB) / mibPerGiB
	remaining := total
	reserved := 255.0 / mibPerGiB

	for _, tier := range []struct{ gib, share float64 }{
		{4, 0.25}, {4, 0.20}, {8, 0.10}, {112, 0.06},
	} {
		chunk := min(remaining, tier.gib)
		if chunk <= 0 {
			break
		}
		reserved += chunk * tier.share
		remaining -= chunk
	}
	if remaining > 0 {
		reserved += remaining * 0.02
	}
	return min(reserved, total)
}

// parseInstanceType extracts family, generation, and size from an instance type name.
// e.g., "m5.xlarge" → ("m5", 5, "xlarge"), "m7g.large" → ("m7g", 7, "large")
var instanceTypeRegex = regexp.MustCompile(`^([a-z]+)(\d+)([a-z-]*)\.(.+)$`)

func parseInstanceType(instanceType string) (family string, generation int, size string) {
	parts := strings.SplitN(instanceType, ".", 2)
	if len(parts) != 2 {
		return instanceType, 0, ""
	}

	family = parts[0]
	size = parts[1]

	matches := instanceTypeRegex.FindStringSubmatch(instanceType)
	if len(matches) >= 5 {
		gen, _ := strconv.Atoi(matches[2])
		generation = gen
	}

	return family, generation, size
}
