package dto

import "time"

type InstallInput struct {
	Path  string
	Force bool
}

type PluginInfo struct {
	Name        string
	Version     string
	Runtime     string
	Location    string
	Binary      string
	Entry       string
	Roles       []string
	InstalledAt time.Time
}

type DoctorResult struct {
	Name            string
	Runtime         string
	ChecksumValid   bool
	BinaryReachable bool
	LifecycleOK     bool
	Error           string
}

type ResolveInput struct {
	Path    string
	Package string
	Force   bool
}

type ResolveOutput struct {
	Package string
	Roles   []string
}
