package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// decodeTOML rejects keys that no field consumed. Parse errors from the
// toml package already carry the line number.
func decodeTOML(content string) (fileConfig, error) {
	var payload fileConfig
	md, err := toml.Decode(content, &payload)
	if err != nil {
		return fileConfig{}, err
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return fileConfig{}, fmt.Errorf("unknown field %s", strings.Join(keys, ", "))
	}
	return payload, nil
}
