package config

import (
	"fmt"
	"strings"
)

// LoadWithCLI loads configuration honoring --config, --profile (alias --env)
// and repeated --set key=value arguments. Other arguments are rejected.
func LoadWithCLI(args []string) (*Config, error) {
	opts, err := parseCLIOverrides(args)
	if err != nil {
		return nil, err
	}
	return LoadWithOptions(opts)
}

func parseCLIOverrides(args []string) (Options, error) {
	opts := Options{Overrides: map[string]string{}}
	value := func(i *int, arg, name string) (string, error) {
		if v, ok := strings.CutPrefix(arg, name+"="); ok {
			return v, nil
		}
		if *i+1 >= len(args) {
			return "", fmt.Errorf("missing value for %s", name)
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, _, _ := strings.Cut(arg, "=")
		switch name {
		case "--config":
			v, err := value(&i, arg, name)
			if err != nil {
				return opts, err
			}
			opts.Path = v
		case "--profile", "--env":
			v, err := value(&i, arg, name)
			if err != nil {
				return opts, err
			}
			opts.Profile = v
		case "--set":
			v, err := value(&i, arg, name)
			if err != nil {
				return opts, err
			}
			key, val, ok := strings.Cut(v, "=")
			if !ok || strings.TrimSpace(key) == "" {
				return opts, fmt.Errorf("invalid --set value %q (want key=value)", v)
			}
			opts.Overrides[strings.TrimSpace(key)] = val
		default:
			return opts, fmt.Errorf("unknown config flag %q", arg)
		}
	}
	return opts, nil
}
