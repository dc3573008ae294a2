package config

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that is read either from a duration string
// like "1.5s" or "500ms", or from a bare number of seconds.
type Duration time.Duration

// Duration returns d as a time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// SetValue is used by cleanenv for env variables and defaults.
func (d *Duration) SetValue(s string) error {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return d.setSeconds(secs)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration '%s', expected seconds or a value like 1.5s", s)
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) setSeconds(secs float64) error {
	if math.IsNaN(secs) || math.IsInf(secs, 0) || math.Abs(secs) > math.MaxInt64/float64(time.Second) {
		return fmt.Errorf("invalid duration of %v seconds", secs)
	}
	*d = Duration(math.Round(secs * float64(time.Second)))
	return nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case float64:
		return d.setSeconds(v)
	case string:
		return d.SetValue(v)
	default:
		return fmt.Errorf("invalid duration %s, expected seconds or a value like 1.5s", b)
	}
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: invalid duration, expected seconds or a value like 1.5s", n.Line)
	}
	return d.SetValue(n.Value)
}
