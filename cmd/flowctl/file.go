package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/meikuraledutech/flow"
)

// readAutomation loads a flow file. It accepts a full automation record or
// bare flow data (an object with nodes and edges), in JSON or YAML. Bare
// flow data is named after the file.
func readAutomation(path string) (*flow.Automation, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isYAML(path) {
		if raw, err = yamlToJSON(raw); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var a flow.Automation
	if _, ok := probe["flow_data"]; ok {
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else {
		fd, err := flow.ParseFlowData(raw)
		if err != nil {
			return nil, err
		}
		a = flow.Automation{
			Name:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			IsActive: true,
			FlowData: fd,
		}
	}
	if err := a.Normalize(); err != nil {
		return nil, err
	}
	return &a, nil
}

// writeAutomation encodes a as indented JSON or as YAML.
func writeAutomation(a *flow.Automation, format string) ([]byte, error) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, err
	}
	switch format {
	case "json", "":
		return append(data, '\n'), nil
	case "yaml":
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return yaml.Marshal(v)
	}
	return nil, fmt.Errorf("unknown format %q (json or yaml)", format)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func yamlToJSON(raw []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
