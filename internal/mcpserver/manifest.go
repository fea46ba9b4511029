package mcpserver

import (
	"encoding/json"
)

const manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"

// Manifest represents the MCP server manifest (server.json) format.
type Manifest struct {
	Schema      string      `json:"$schema"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Version     string      `json:"version"`
	Repository  *Repository `json:"repository,omitempty"`
	Packages    []Package   `json:"packages,omitempty"`
}

// Repository contains source repository information.
type Repository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Package describes how to install and run the MCP server.
type Package struct {
	RegistryType     string     `json:"registryType"`
	Identifier       string     `json:"identifier"`
	PackageArguments []Argument `json:"packageArguments,omitempty"`
	Transport        Transport  `json:"transport"`
}

// Argument represents a command-line argument.
type Argument struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// Transport describes the communication method.
type Transport struct {
	Type string `json:"type"`
}

const (
	serverName        = "io.github.panbanda/sift"
	serverDescription = "Structural similarity and plagiarism detection for source code"
	repositoryURL     = "https://github.com/panbanda/sift"
	imageRepository   = "ghcr.io/panbanda/sift"
)

// ociPackage runs the published container image with "mcp serve".
func ociPackage(version string) Package {
	args := make([]Argument, 0, 2)
	for _, word := range []string{"mcp", "serve"} {
		args = append(args, Argument{Type: "positional", Value: word})
	}
	return Package{
		RegistryType:     "oci",
		Identifier:       imageRepository + ":" + version,
		PackageArguments: args,
		Transport:        Transport{Type: "stdio"},
	}
}

// GenerateManifest renders the server.json that registers sift in the MCP
// registry. An empty or development version is published as 0.0.0.
func GenerateManifest(version string) ([]byte, error) {
	if version == "" || version == "dev" {
		version = "0.0.0"
	}
	return json.MarshalIndent(Manifest{
		Schema:      manifestSchema,
		Name:        serverName,
		Description: serverDescription,
		Version:     version,
		Repository:  &Repository{URL: repositoryURL, Source: "github"},
		Packages:    []Package{ociPackage(version)},
	}, "", "  ")
}
