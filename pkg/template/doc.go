// Package template implements hostbroker's Template Store: a read-mostly
// cache loaded from a YAML template file, holding validated types.Template
// values indefinitely until an operator-triggered Reload.
package template
