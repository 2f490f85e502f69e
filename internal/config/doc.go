// Package config provides the configuration of studyhelper: defaults, the
// .studyhelper YAML file, XDG directories and secrets loaded from .env files.
package config
