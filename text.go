package main

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed content/site.yaml
var siteYAML []byte

type project struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Repo        string `yaml:"repo"`
	Playground  bool   `yaml:"playground"`
}

type job struct {
	Period  string `yaml:"period"`
	Role    string `yaml:"role"`
	Company string `yaml:"company"`
	Summary string `yaml:"summary"`
}

// siteContent is the copy shown on the home page.
type siteContent struct {
	Name       string    `yaml:"name"`
	Title      string    `yaml:"title"`
	Tagline    string    `yaml:"tagline"`
	GitHub     string    `yaml:"github"`
	LinkedIn   string    `yaml:"linkedin"`
	About      []string  `yaml:"about"`
	Projects   []project `yaml:"projects"`
	Experience []job     `yaml:"experience"`
	Footer     string    `yaml:"footer"`
}

func loadSiteContent() (*siteContent, error) {
	return parseSiteContent(siteYAML)
}

func parseSiteContent(raw []byte) (*siteContent, error) {
	var sc siteContent
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode site content: %w", err)
	}
	if sc.Name == "" {
		return nil, errors.New("site content: name is required")
	}
	return &sc, nil
}
