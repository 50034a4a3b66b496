// Package config loads the file manager settings.
//
// Sources are applied in order, later ones winning:
//
//  1. built-in defaults (LoadDefaults)
//  2. a JSON or YAML file named by -c / -config
//  3. environment variables (a .env file is honoured by the binary)
//  4. command-line flags
package config
