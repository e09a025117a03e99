package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Handler names understood by Host.
const (
	HandlerPlayer    = "player"
	HandlerConsole   = "console"
	HandlerBroadcast = "broadcast"
	HandlerWhisper   = "whisper"
	HandlerElevate   = "elevate"
	HandlerOnline    = "online"
)

// ProcessConfig is one external program bound to a host operation.
type ProcessConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile is the layout of host.yaml.
type ConfigFile struct {
	Handlers []ProcessConfig `yaml:"handlers" json:"handlers"`
}

// LoadHandlers reads a YAML or JSON handler file.
// A missing file yields no handlers.
func LoadHandlers(path string) (map[string]ProcessConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]ProcessConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read host config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	handlers := make(map[string]ProcessConfig, len(cfg.Handlers))
	for _, h := range cfg.Handlers {
		if h.Name == "" || h.Command == "" {
			continue
		}
		handlers[h.Name] = h
	}
	return handlers, nil
}
