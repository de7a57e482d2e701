/*
Package gconf implements a configuration store intended to be used as a
global, in-database configuration.

Each extension keeps a single configuration object, stored under the
"_c:<pkg>" key. Configuration is loaded from the genesis file, validated on
save and read once when an extension is constructed.

Not being able to get a configuration value is a critical condition for the
application and there is no recovery path for the client. Application must be
terminated and configured correctly.
*/
package gconf
