/*
Package config builds hostbroker's explicit Config tree.

There is no package-level singleton: Load is called once at process
startup in cmd/hostbroker and cmd/hostbrokerd, and the resulting
*Config is passed into every constructor that needs a section of it
(provider client, storage registry, template store, event publisher,
quota checker, rate limiter).

Precedence, lowest to highest: compiled-in defaults, a directory-resolved
config.yaml ($HOSTBROKER_CONFDIR or ./config), an explicit --config file,
then a fixed set of HOSTBROKER_* environment variables.
*/
package config
