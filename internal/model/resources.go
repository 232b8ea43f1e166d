package model

// Resources is a CPU/memory pair. CPU is in cores, memory in GiB.
type Resources struct {
	CPU float64 `json:"cpu" mapstructure:"cpu"`
	Mem float64 `json:"mem" mapstructure:"mem"`
}

// Add returns the sum of two Resources values.
func (r Resources) Add(other Resources) Resources {
	return Resources{
		CPU: r.CPU + other.CPU,
		Mem: r.Mem + other.Mem,
	}
}

// Sub returns the difference of two Resources values.
func (r Resources) Sub(other Resources) Resources {
	return Resources{
		CPU: r.CPU - other.CPU,
		Mem: r.Mem - other.Mem,
	}
}

// FitsIn returns true if this quantity fits within the given capacity.
func (r Resources) FitsIn(capacity Resources) bool {
	return r.CPU <= capacity.CPU && r.Mem <= capacity.Mem
}

// IsZero returns true if both dimensions are zero.
func (r Resources) IsZero() bool {
	return r.CPU == 0 && r.Mem == 0
}
