package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/NERVsystems/fuelsite/pkg/config"
)

// clientServerKey names this server inside the client's mcpServers map.
const clientServerKey = "fuelsite"

func validateOutputPath(path string, exts ...string) error {
	if path == "" {
		return errors.New("output path is required")
	}
	if !slices.Contains(exts, filepath.Ext(path)) {
		return fmt.Errorf("output path must end in %s", strings.Join(exts, " or "))
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return errors.New("output path must not contain ..")
		}
	}
	return nil
}

// generateClientConfig creates or updates an MCP client config file so that
// the client starts "fuelsite serve". Other servers in the file are kept.
func generateClientConfig(outputPath, configPath string) error {
	logger := slog.Default()

	if err := validateOutputPath(outputPath, ".json"); err != nil {
		return err
	}

	// Get absolute path to executable
	execPath, err := os.Executable()
	if err != nil {
		execPath = os.Args[0]
	}
	absExecPath, err := filepath.Abs(execPath)
	if err != nil {
		absExecPath = execPath
	}

	args := []string{"serve"}
	if configPath != "" {
		absConfig, err := filepath.Abs(configPath)
		if err != nil {
			return fmt.Errorf("failed to resolve config path: %w", err)
		}
		args = append(args, "--config", absConfig)
	}

	serverConfig := map[string]any{
		"command": absExecPath,
		"args":    args,
	}

	clientConfig := make(map[string]any)
	if data, err := os.ReadFile(outputPath); err == nil {
		if err := json.Unmarshal(data, &clientConfig); err != nil {
			logger.Warn("existing config is not valid JSON, will create new", "error", err)
			clientConfig = make(map[string]any)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read existing config: %w", err)
	}

	mcpServers, ok := clientConfig["mcpServers"].(map[string]any)
	if !ok {
		mcpServers = make(map[string]any)
		clientConfig["mcpServers"] = mcpServers
	}
	mcpServers[clientServerKey] = serverConfig

	data, err := json.MarshalIndent(clientConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	return writeFile(outputPath, data)
}

// writeDefaultConfig writes the built-in configuration as YAML.
func writeDefaultConfig(outputPath string) error {
	if err := validateOutputPath(outputPath, ".yaml", ".yml"); err != nil {
		return err
	}

	data, err := config.Default().Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return writeFile(outputPath, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	// the file may carry API keys
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Chmod(path, 0o600)
}
