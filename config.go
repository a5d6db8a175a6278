package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/liminality-dev/resonate/internal/peers"
	"github.com/liminality-dev/resonate/internal/semantic"
)

// config is the on-disk description of a curated project:
// its identity, its peers, and the inference integration.
type config struct {
	Project struct {
		ID   peers.ProjectID `yaml:"id"`
		Path string          `yaml:"path"`
	} `yaml:"project"`

	Peers []peers.PeerRef `yaml:"peers"`

	LLM semantic.Config `yaml:"llm"`
}

func loadConfig(path string) (*config, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %v: %w", path, err)
	}

	cfg := config{LLM: semantic.DefaultConfig()}
	if err := yaml.Unmarshal(bs, &cfg); err != nil {
		return nil, fmt.Errorf("parse %v: %w", path, err)
	}

	if cfg.Project.ID == "" {
		return nil, fmt.Errorf("%v: project.id is required", path)
	}
	if cfg.Project.Path == "" {
		cfg.Project.Path = "."
	}
	for i := range cfg.Peers {
		if err := cfg.Peers[i].Validate(); err != nil {
			return nil, fmt.Errorf("%v: %w", path, err)
		}
	}

	return &cfg, nil
}

// peerByName finds a configured peer by display name.
func (c *config) peerByName(name string) (peers.PeerRef, error) {
	for _, p := range c.Peers {
		if p.DisplayName == name {
			return p, nil
		}
	}
	return peers.PeerRef{}, fmt.Errorf("unknown peer %q; check %d configured peer(s)", name, len(c.Peers))
}
