// Package plugins hosts plugin implementation subpackages and the catalog of
// plugins compiled into the host binary.
package plugins
