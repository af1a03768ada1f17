package nas

import (
	"fmt"
	"math"
	"sort"
)

// Activation names a supported hidden-layer nonlinearity.
type Activation string

const (
	ActivationReLU      Activation = "relu"
	ActivationTanh      Activation = "tanh"
	ActivationLeakyReLU Activation = "leaky_relu"
	ActivationSigmoid   Activation = "sigmoid"
	ActivationELU       Activation = "elu"
)

// leakySlope is the negative-side slope of leaky_relu.
const leakySlope = 0.01

// validActivations maps activation names to validity. Unexported to prevent mutation.
var validActivations = map[Activation]bool{
	ActivationReLU:      true,
	ActivationTanh:      true,
	ActivationLeakyReLU: true,
	ActivationSigmoid:   true,
	ActivationELU:       true,
}

// IsValidActivation returns true if name is a supported activation.
func IsValidActivation(name string) bool { return validActivations[Activation(name)] }

// ValidActivationNames returns sorted valid activation names.
func ValidActivationNames() []string {
	names := make([]string, 0, len(validActivations))
	for a := range validActivations {
		names = append(names, string(a))
	}
	sort.Strings(names)
	return names
}

// ArchitectureConfig identifies one candidate feed-forward network.
// It is a value type; copies are independent and never mutated after construction.
type ArchitectureConfig struct {
	Depth        int        `json:"depth" yaml:"depth"`
	Width        int        `json:"width" yaml:"width"`
	Activation   Activation `json:"activation" yaml:"activation"`
	DropoutRate  float64    `json:"dropout_rate" yaml:"dropout_rate"`
	UseBatchNorm bool       `json:"use_batchnorm" yaml:"use_batchnorm"`
}

// DefaultConfig is the configuration returned when nothing better is known.
func DefaultConfig() ArchitectureConfig {
	return ArchitectureConfig{Depth: 2, Width: 64, Activation: ActivationReLU}
}

// Validate checks every field against its allowed domain.
func (c ArchitectureConfig) Validate() error {
	if c.Depth < 1 {
		return &InvalidConfigError{Field: "depth", Value: c.Depth, Reason: "must be >= 1"}
	}
	if c.Width < 1 {
		return &InvalidConfigError{Field: "width", Value: c.Width, Reason: "must be >= 1"}
	}
	if !validActivations[c.Activation] {
		return &InvalidConfigError{Field: "activation", Value: c.Activation,
			Reason: fmt.Sprintf("unsupported; valid: %v", ValidActivationNames())}
	}
	if math.IsNaN(c.DropoutRate) || c.DropoutRate < 0 || c.DropoutRate > 1 {
		return &InvalidConfigError{Field: "dropout_rate", Value: c.DropoutRate, Reason: "must be in [0,1]"}
	}
	return nil
}

// Key renders a canonical identifier, e.g. "d2-w64-relu-p0.00-bn0".
func (c ArchitectureConfig) Key() string {
	bn := 0
	if c.UseBatchNorm {
		bn = 1
	}
	return fmt.Sprintf("d%d-w%d-%s-p%.2f-bn%d", c.Depth, c.Width, c.Activation, c.DropoutRate, bn)
}

// Complexity is the simplicity tie-break key (depth × width).
func (c ArchitectureConfig) Complexity() int {
	return c.Depth * c.Width
}

func (c ArchitectureConfig) String() string { return c.Key() }
